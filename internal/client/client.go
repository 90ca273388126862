// Package client generates synthetic order flow: each client periodically
// submits a random preference to its paired broker and logs the fill
// notifications that come back.
package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/efreitasn/marketsim/internal/bus"
)

// Service is one client process bound to a single broker.
type Service struct {
	id       string
	brokerID string
	bus      bus.Bus
	logger   *slog.Logger
	symbols  []string

	// Jitter bounds: the first submission waits a random delay in
	// [delayMin, delayMax), then each subsequent one a random interval in
	// [intervalMin, intervalMax).
	delayMin, delayMax       time.Duration
	intervalMin, intervalMax time.Duration
}

// NewService creates a client with the given identity, submitting to
// brokerID's inbox and drawing symbols from the given catalog.
func NewService(id, brokerID string, b bus.Bus, logger *slog.Logger, symbols []string, delayMin, delayMax, intervalMin, intervalMax time.Duration) *Service {
	return &Service{
		id:          id,
		brokerID:    brokerID,
		bus:         b,
		logger:      logger.With(slog.String("client", id)),
		symbols:     symbols,
		delayMin:    delayMin,
		delayMax:    delayMax,
		intervalMin: intervalMin,
		intervalMax: intervalMax,
	}
}

// Run starts the notification consumer and then submits preferences on a
// jittered schedule until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	s.logger.Info("client started", slog.String("paired_broker", s.brokerID))

	go s.consumeNotifications(ctx)

	if !sleep(ctx, jitter(s.delayMin, s.delayMax)) {
		return
	}
	for {
		s.submit(ctx)
		if !sleep(ctx, jitter(s.intervalMin, s.intervalMax)) {
			s.logger.Info("client stopped")
			return
		}
	}
}

// submit sends one freshly drawn preference to the paired broker.
func (s *Service) submit(ctx context.Context) {
	pref := NewPreference(s.id, s.symbols)
	body, err := json.Marshal(pref)
	if err != nil {
		s.logger.Error("marshal preference", slog.String("error", err.Error()))
		return
	}
	err = s.bus.Send(ctx, bus.BrokerInbox(s.brokerID), bus.Message{Body: string(body)})
	if err != nil {
		s.logger.Error("submit preference", slog.String("error", err.Error()))
		return
	}
	s.logger.Info("preference submitted",
		slog.String("symbol", pref.Symbol),
		slog.String("side", string(pref.Side)),
		slog.Float64("quantity", pref.Quantity),
		slog.String("criteria", pref.CriterionSummary()),
	)
}

// consumeNotifications logs every fill/no-fill line the broker relays.
func (s *Service) consumeNotifications(ctx context.Context) {
	msgs, err := s.bus.Consume(ctx, bus.ClientInbox(s.id))
	if err != nil {
		s.logger.Error("consume notifications", slog.String("error", err.Error()))
		return
	}
	for msg := range msgs {
		s.logger.Info("notification received", slog.String("message", msg.Body))
	}
}

// jitter draws a duration in [min, max); min is returned when the bounds
// are degenerate.
func jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int64N(int64(max-min)))
}

// sleep blocks for d, reporting false if ctx was cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
