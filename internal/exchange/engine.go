package exchange

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/efreitasn/marketsim/internal/bus"
	"github.com/efreitasn/marketsim/internal/domain"
)

const (
	// maxStep bounds the magnitude of a single price tick: the step is a
	// random integer in [0, maxStep).
	maxStep = 20
	// upBias is the probability a tick moves the price up.
	upBias = 0.6
	// priceFloor guards against the random walk driving a price toward
	// zero: a decrementing tick is rejected while the price is at or
	// below it. Settlement is not subject to the floor.
	priceFloor = 20.0
)

// Engine runs the exchange: it random-walks instrument prices on a timer,
// broadcasts snapshots on the market-data topic, and settles trade
// requests arriving on the trades queue.
type Engine struct {
	registry     *Registry
	bus          bus.Bus
	logger       *slog.Logger
	tickInterval time.Duration

	// handoff carries each tick's post-update snapshot to the broadcast
	// loop: exactly one broadcast per completed tick.
	handoff chan domain.Instrument
}

// New creates an Engine over the given registry and transport.
func New(registry *Registry, b bus.Bus, logger *slog.Logger, tickInterval time.Duration) *Engine {
	return &Engine{
		registry:     registry,
		bus:          b,
		logger:       logger,
		tickInterval: tickInterval,
		handoff:      make(chan domain.Instrument, 1),
	}
}

// Registry exposes the engine's instrument table for read-only consumers
// (the market HTTP API).
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Run starts the price ticker, the broadcaster, and the trade-request
// server. It blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	e.logger.Info("exchange started", slog.Int("instruments", e.registry.Len()))

	go e.tickLoop(ctx)
	go e.broadcastLoop(ctx)
	go e.serveTrades(ctx)

	<-ctx.Done()
	e.logger.Info("exchange stopped")
}

// tickLoop perturbs one randomly chosen instrument per interval.
func (e *Engine) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			symbol := e.registry.Symbol(rand.IntN(e.registry.Len()))
			magnitude := rand.IntN(maxStep)
			up := rand.Float64() < upBias

			snap, err := e.applyStep(symbol, magnitude, up)
			if err != nil {
				// Symbols come from the registry itself; this is unreachable
				// short of a bug, but never kill the loop over one tick.
				e.logger.Error("price tick failed",
					slog.String("symbol", symbol),
					slog.String("error", err.Error()),
				)
				continue
			}
			e.logger.Info("price tick",
				slog.String("symbol", snap.Symbol),
				slog.Float64("price", snap.Price),
				slog.String("direction", string(snap.Direction)),
			)

			select {
			case e.handoff <- snap:
			case <-ctx.Done():
				return
			}
		}
	}
}

// applyStep applies a signed step of the given magnitude to the
// instrument's price. A decrement is rejected while the current price is
// at or below the floor; in that case nothing is applied and the
// direction is left as it was, since direction reflects the sign actually
// applied rather than attempted.
func (e *Engine) applyStep(symbol string, magnitude int, up bool) (domain.Instrument, error) {
	return e.registry.Update(symbol, func(inst *domain.Instrument) {
		step := float64(magnitude)
		switch {
		case up:
			inst.Price += step
			inst.Direction = domain.DirectionUp
		case inst.Price > priceFloor:
			inst.Price -= step
			inst.Direction = domain.DirectionDown
		default:
			// Floor guard: decrement rejected, price and direction unchanged.
		}
	})
}

// broadcastLoop publishes instrument snapshots on the market-data topic.
// The first pass emits every instrument so brokers that subscribed before
// startup see the whole book; after that it forwards exactly one snapshot
// per completed tick. Broadcasts are fire-and-forget.
func (e *Engine) broadcastLoop(ctx context.Context) {
	for _, snap := range e.registry.SnapshotAll() {
		e.publish(ctx, snap)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-e.handoff:
			e.publish(ctx, snap)
		}
	}
}

func (e *Engine) publish(ctx context.Context, snap domain.Instrument) {
	payload, err := json.Marshal(snap)
	if err != nil {
		e.logger.Error("marshal snapshot",
			slog.String("symbol", snap.Symbol),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := e.bus.Publish(ctx, bus.TopicMarketData, string(payload)); err != nil {
		// At-most-once by design: log and move on, no redelivery.
		e.logger.Warn("broadcast failed",
			slog.String("symbol", snap.Symbol),
			slog.String("error", err.Error()),
		)
	}
}

// Settle resolves a trade request against the registry. An unknown symbol
// fails and leaves the registry untouched. Otherwise, under the
// instrument's lock, the trade moves the price by
// (quantity / price) × volatility: up for buys, down for sells. A sell
// that would drive the price negative resets it to par instead.
func (e *Engine) Settle(req domain.TradeRequest) domain.TradeOutcome {
	snap, err := e.registry.Update(req.Symbol, func(inst *domain.Instrument) {
		units := req.Quantity / inst.Price
		delta := units * inst.Volatility
		if req.Side == domain.SideBuy {
			inst.Price += delta
			inst.Direction = domain.DirectionUp
		} else {
			inst.Price -= delta
			inst.Direction = domain.DirectionDown
			if inst.Price < 0 {
				inst.Price = domain.OpeningPrice
			}
		}
	})
	if err != nil {
		e.logger.Warn("trade for unknown symbol",
			slog.String("symbol", req.Symbol),
			slog.String("broker", req.BrokerID),
		)
		return domain.OutcomeFailed
	}

	e.logger.Info("trade settled",
		slog.String("symbol", snap.Symbol),
		slog.String("broker", req.BrokerID),
		slog.String("side", string(req.Side)),
		slog.Float64("quantity", req.Quantity),
		slog.Float64("price", snap.Price),
		slog.String("direction", string(snap.Direction)),
	)
	return domain.OutcomeSuccess
}

// serveTrades consumes the trade-request queue, settles each request, and
// replies on the request's reply queue tagged with its correlation id.
// Bad messages are logged and skipped; the loop never dies on one.
func (e *Engine) serveTrades(ctx context.Context) {
	msgs, err := e.bus.Consume(ctx, bus.QueueTrades)
	if err != nil {
		e.logger.Error("consume trade requests", slog.String("error", err.Error()))
		return
	}

	for msg := range msgs {
		if msg.ReplyTo == "" || msg.CorrelationID == "" {
			e.logger.Warn("dropping trade request without reply address or correlation id")
			continue
		}

		var req domain.TradeRequest
		if err := json.Unmarshal([]byte(msg.Body), &req); err != nil {
			e.logger.Warn("dropping malformed trade request",
				slog.String("error", err.Error()),
			)
			continue
		}

		outcome := e.Settle(req)

		reply := bus.Message{CorrelationID: msg.CorrelationID, Body: string(outcome)}
		if err := e.bus.Send(ctx, msg.ReplyTo, reply); err != nil {
			e.logger.Error("trade reply failed",
				slog.String("reply_to", msg.ReplyTo),
				slog.String("error", err.Error()),
			)
		}
	}
}
