package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/efreitasn/marketsim/internal/bus"
	"github.com/efreitasn/marketsim/internal/domain"
)

// Service is one broker process: it consumes market-data broadcasts and
// client preferences, and runs an evaluation pass over the preference book
// whenever either arrives.
type Service struct {
	id           string
	bus          bus.Bus
	logger       *slog.Logger
	tradeTimeout time.Duration

	trends *TrendTracker
	book   *Book

	// kick coalesces evaluation triggers: a pass already pending covers
	// any number of signals.
	kick chan struct{}
}

// NewService creates a broker with the given identity. tradeTimeout bounds
// each trade request's wait for the exchange's reply.
func NewService(id string, b bus.Bus, logger *slog.Logger, tradeTimeout time.Duration) *Service {
	return &Service{
		id:           id,
		bus:          b,
		logger:       logger.With(slog.String("broker", id)),
		tradeTimeout: tradeTimeout,
		trends:       NewTrendTracker(),
		book:         NewBook(),
		kick:         make(chan struct{}, 1),
	}
}

// Run starts the broadcast and preference consumers and then blocks in the
// evaluation loop until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	s.logger.Info("broker started")

	go s.consumeBroadcasts(ctx)
	go s.consumePreferences(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("broker stopped")
			return
		case <-s.kick:
			s.evaluatePass(ctx)
		}
	}
}

func (s *Service) signal() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// consumeBroadcasts folds market-data snapshots into the trend tracker.
// Malformed broadcasts are dropped; the loop never dies on one.
func (s *Service) consumeBroadcasts(ctx context.Context) {
	sub, err := s.bus.Subscribe(ctx, bus.TopicMarketData)
	if err != nil {
		s.logger.Error("subscribe to market data", slog.String("error", err.Error()))
		return
	}
	for body := range sub {
		var snap domain.Instrument
		if err := json.Unmarshal([]byte(body), &snap); err != nil {
			s.logger.Warn("dropping malformed broadcast", slog.String("error", err.Error()))
			continue
		}
		s.trends.Observe(snap)
		s.signal()
	}
}

// consumePreferences accepts client preferences into the book.
func (s *Service) consumePreferences(ctx context.Context) {
	msgs, err := s.bus.Consume(ctx, bus.BrokerInbox(s.id))
	if err != nil {
		s.logger.Error("consume preferences", slog.String("error", err.Error()))
		return
	}
	for msg := range msgs {
		var pref domain.ClientPreference
		if err := json.Unmarshal([]byte(msg.Body), &pref); err != nil {
			s.logger.Warn("dropping malformed preference", slog.String("error", err.Error()))
			continue
		}
		if err := pref.Validate(); err != nil {
			s.logger.Warn("dropping invalid preference",
				slog.String("client", pref.ClientID),
				slog.String("error", err.Error()),
			)
			continue
		}
		s.book.Add(pref)
		s.logger.Info("preference accepted",
			slog.String("client", pref.ClientID),
			slog.String("symbol", pref.Symbol),
			slog.String("side", string(pref.Side)),
			slog.Float64("quantity", pref.Quantity),
			slog.String("criteria", pref.CriterionSummary()),
			slog.Int("pending", s.book.Len()),
		)
		s.signal()
	}
}

// evaluatePass walks the book in insertion order. Entries whose symbol has
// no trend record yet are skipped (not resolvable). Eligible entries issue
// a synchronous trade request; once the outcome is relayed to the client
// the entry leaves the book, success or failure alike. A request timeout
// or a failed client notice leaves the entry pending for the next pass.
func (s *Service) evaluatePass(ctx context.Context) {
	for _, entry := range s.book.Entries() {
		trend, ok := s.trends.Lookup(entry.Pref.Symbol)
		if !ok {
			continue
		}
		if !Eligible(entry.Pref, trend) {
			continue
		}

		outcome, err := s.requestTrade(ctx, entry.Pref)
		if err != nil {
			s.logger.Warn("trade request failed",
				slog.String("symbol", entry.Pref.Symbol),
				slog.String("error", err.Error()),
			)
			continue
		}

		notice := s.fillNotice(entry.Pref, outcome)
		err = s.bus.Send(ctx, bus.ClientInbox(entry.Pref.ClientID), bus.Message{Body: notice})
		if err != nil {
			// The entry stays in the book; the next pass repeats the whole
			// cycle, trade included.
			s.logger.Error("failed to notify client",
				slog.String("client", entry.Pref.ClientID),
				slog.String("error", err.Error()),
			)
			continue
		}

		s.book.Remove(entry.ID)
		s.logger.Info("preference resolved",
			slog.String("client", entry.Pref.ClientID),
			slog.String("symbol", entry.Pref.Symbol),
			slog.String("outcome", string(outcome)),
			slog.Int("pending", s.book.Len()),
		)
	}
}

// requestTrade sends a trade request to the exchange and blocks for the
// correlation-matched reply, bounded by the trade timeout.
func (s *Service) requestTrade(ctx context.Context, pref domain.ClientPreference) (domain.TradeOutcome, error) {
	body, err := json.Marshal(domain.TradeRequest{
		Symbol:   pref.Symbol,
		BrokerID: s.id,
		Side:     pref.Side,
		Quantity: pref.Quantity,
	})
	if err != nil {
		return "", fmt.Errorf("marshal trade request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.tradeTimeout)
	defer cancel()

	reply, err := s.bus.Request(reqCtx, bus.QueueTrades, string(body))
	if err != nil {
		return "", fmt.Errorf("trade request for %s: %w", pref.Symbol, err)
	}
	return domain.TradeOutcome(reply), nil
}

// fillNotice renders the human-readable line sent back to the client.
func (s *Service) fillNotice(pref domain.ClientPreference, outcome domain.TradeOutcome) string {
	if outcome.Succeeded() {
		return fmt.Sprintf("Broker %s successfully %s %s for Client %s at RM %.2f!",
			s.id, pref.Side, pref.Symbol, pref.ClientID, pref.Quantity)
	}
	return fmt.Sprintf("Broker %s: failed to %s %s for Client %s!",
		s.id, pref.Side, pref.Symbol, pref.ClientID)
}
