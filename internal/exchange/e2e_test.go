package exchange_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/efreitasn/marketsim/internal/broker"
	"github.com/efreitasn/marketsim/internal/bus"
	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/exchange"
)

// The full message cycle over the in-process bus: a client preference
// reaches a broker, a market-data broadcast makes it eligible, the broker
// trades with the exchange, the settlement moves the price, and the client
// is notified exactly once.
func TestExchangeBrokerClientCycle(t *testing.T) {
	b := bus.NewMemBus()
	defer b.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	registry := exchange.NewRegistry([]domain.Instrument{{
		Symbol: "CTOS", Name: "CTOS Digital Bhd",
		Price: 100, Direction: domain.DirectionUnknown, Volatility: 0.5,
	}})
	// A huge tick interval keeps the random walk out of the picture; the
	// only price movement in this test is the settlement.
	engine := exchange.New(registry, b, logger, time.Hour)
	go engine.Run(ctx)

	svc := broker.NewService("1", b, logger, 2*time.Second)
	go svc.Run(ctx)

	notices, err := b.Consume(ctx, bus.ClientInbox("7"))
	if err != nil {
		t.Fatalf("consume notices: %v", err)
	}

	pref := domain.ClientPreference{
		ClientID: "7", Symbol: "CTOS", Side: domain.SideBuy, Quantity: 50,
		Criterion: domain.BySymbol,
	}
	body, err := json.Marshal(pref)
	if err != nil {
		t.Fatalf("marshal preference: %v", err)
	}
	if err := b.Send(ctx, bus.BrokerInbox("1"), bus.Message{Body: string(body)}); err != nil {
		t.Fatalf("send preference: %v", err)
	}

	// The engine's catch-up broadcast may fire before the broker's
	// subscription attaches, so keep republishing the current snapshot
	// until the cycle completes.
	var notice string
	gotNotice := make(chan string, 1)
	go func() {
		msg := <-notices
		gotNotice <- msg.Body
	}()

	snapshot, err := registry.Get("CTOS")
	if err != nil {
		t.Fatalf("get instrument: %v", err)
	}
	payload, _ := json.Marshal(snapshot)
	deadline := time.After(3 * time.Second)
loop:
	for {
		select {
		case notice = <-gotNotice:
			break loop
		case <-deadline:
			t.Fatal("no notification before deadline")
		case <-time.After(20 * time.Millisecond):
			_ = b.Publish(ctx, bus.TopicMarketData, string(payload))
		}
	}

	if !strings.Contains(notice, "Broker 1 successfully Buy CTOS for Client 7") {
		t.Errorf("unexpected notice %q", notice)
	}

	// Settlement of 50 units at 100 with volatility 0.5 moves the price by
	// (50/100) * 0.5 = 0.25.
	inst, err := registry.Get("CTOS")
	if err != nil {
		t.Fatalf("get instrument: %v", err)
	}
	if inst.Price != 100.25 {
		t.Errorf("price after settlement = %v, want 100.25", inst.Price)
	}
	if inst.Direction != domain.DirectionUp {
		t.Errorf("direction after settlement = %s, want %s", inst.Direction, domain.DirectionUp)
	}

	// The preference resolved once: further broadcasts must not produce a
	// second notification.
	for range 5 {
		_ = b.Publish(ctx, bus.TopicMarketData, string(payload))
		time.Sleep(20 * time.Millisecond)
	}
	select {
	case msg := <-notices:
		t.Errorf("unexpected second notification %q", msg.Body)
	default:
	}
}
