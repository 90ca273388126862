package broker

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/efreitasn/marketsim/internal/bus"
	"github.com/efreitasn/marketsim/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeExchange answers every trade request on the trades queue with a
// fixed outcome.
func fakeExchange(ctx context.Context, t *testing.T, b bus.Bus, outcome domain.TradeOutcome) {
	t.Helper()
	msgs, err := b.Consume(ctx, bus.QueueTrades)
	if err != nil {
		t.Fatalf("consume trades: %v", err)
	}
	go func() {
		for msg := range msgs {
			reply := bus.Message{CorrelationID: msg.CorrelationID, Body: string(outcome)}
			_ = b.Send(ctx, msg.ReplyTo, reply)
		}
	}()
}

// submitPreference serializes pref into the broker's inbox.
func submitPreference(ctx context.Context, t *testing.T, b bus.Bus, brokerID string, pref domain.ClientPreference) {
	t.Helper()
	body, err := json.Marshal(pref)
	if err != nil {
		t.Fatalf("marshal preference: %v", err)
	}
	if err := b.Send(ctx, bus.BrokerInbox(brokerID), bus.Message{Body: string(body)}); err != nil {
		t.Fatalf("send preference: %v", err)
	}
}

// publishUntil republishes snapshots (subscription setup is asynchronous,
// so a single publish can be missed) until done returns true or the
// deadline passes.
func publishUntil(ctx context.Context, t *testing.T, b bus.Bus, snaps []domain.Instrument, done func() bool) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		if done() {
			return
		}
		for _, s := range snaps {
			payload, _ := json.Marshal(s)
			_ = b.Publish(ctx, bus.TopicMarketData, string(payload))
		}
		select {
		case <-deadline:
			t.Fatal("condition not reached before deadline")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestService_ResolvesBySymbolPreferenceAndNotifiesClient(t *testing.T) {
	b := bus.NewMemBus()
	defer b.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fakeExchange(ctx, t, b, domain.OutcomeSuccess)

	svc := NewService("1", b, testLogger(), time.Second)
	go svc.Run(ctx)

	notices, err := b.Consume(ctx, bus.ClientInbox("7"))
	if err != nil {
		t.Fatalf("consume notices: %v", err)
	}

	submitPreference(ctx, t, b, "1", domain.ClientPreference{
		ClientID: "7", Symbol: "CTOS", Side: domain.SideBuy, Quantity: 5000,
		Criterion: domain.BySymbol,
	})

	var notice string
	gotNotice := make(chan string, 1)
	go func() {
		msg := <-notices
		gotNotice <- msg.Body
	}()

	publishUntil(ctx, t, b, []domain.Instrument{snap("CTOS", 100, domain.DirectionUp)}, func() bool {
		select {
		case notice = <-gotNotice:
			return true
		default:
			return false
		}
	})

	if !strings.Contains(notice, "successfully Buy CTOS for Client 7") {
		t.Errorf("unexpected notice %q", notice)
	}
	if svc.book.Len() != 0 {
		t.Errorf("expected empty book after resolution, got %d entries", svc.book.Len())
	}
}

func TestService_FailedOutcomeStillResolvesPreference(t *testing.T) {
	b := bus.NewMemBus()
	defer b.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fakeExchange(ctx, t, b, domain.OutcomeFailed)

	svc := NewService("1", b, testLogger(), time.Second)
	go svc.Run(ctx)

	notices, err := b.Consume(ctx, bus.ClientInbox("7"))
	if err != nil {
		t.Fatalf("consume notices: %v", err)
	}

	submitPreference(ctx, t, b, "1", domain.ClientPreference{
		ClientID: "7", Symbol: "CTOS", Side: domain.SideSell, Quantity: 5000,
		Criterion: domain.BySymbol,
	})

	var notice string
	gotNotice := make(chan string, 1)
	go func() {
		msg := <-notices
		gotNotice <- msg.Body
	}()

	publishUntil(ctx, t, b, []domain.Instrument{snap("CTOS", 100, domain.DirectionUp)}, func() bool {
		select {
		case notice = <-gotNotice:
			return true
		default:
			return false
		}
	})

	if !strings.Contains(notice, "failed to Sell CTOS for Client 7") {
		t.Errorf("unexpected notice %q", notice)
	}
	// Failure terminates the preference just like success.
	if svc.book.Len() != 0 {
		t.Errorf("expected empty book after failed outcome, got %d entries", svc.book.Len())
	}
}

func TestService_ByTrendPreferenceWaitsForMatchingWindow(t *testing.T) {
	b := bus.NewMemBus()
	defer b.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fakeExchange(ctx, t, b, domain.OutcomeSuccess)

	svc := NewService("1", b, testLogger(), time.Second)
	go svc.Run(ctx)

	notices, err := b.Consume(ctx, bus.ClientInbox("7"))
	if err != nil {
		t.Fatalf("consume notices: %v", err)
	}

	submitPreference(ctx, t, b, "1", domain.ClientPreference{
		ClientID: "7", Symbol: "CTOS", Side: domain.SideBuy, Quantity: 5000,
		Criterion: domain.ByTrend,
		TrendPair: []domain.Direction{domain.DirectionUp, domain.DirectionDown},
	})

	// Feed an [UP UP] window until the broker has certainly evaluated it:
	// the preference must stay pending.
	upSnap := snap("CTOS", 100, domain.DirectionUp)
	publishUntil(ctx, t, b, []domain.Instrument{upSnap, upSnap}, func() bool {
		trend, ok := svc.trends.Lookup("CTOS")
		return ok && len(trend.Directions) == 2
	})
	time.Sleep(50 * time.Millisecond)
	if svc.book.Len() != 1 {
		t.Fatalf("preference resolved on non-matching trend; book has %d entries", svc.book.Len())
	}
	select {
	case msg := <-notices:
		t.Fatalf("unexpected notice %q before trend matched", msg.Body)
	default:
	}

	// Now one DOWN broadcast makes the window [UP DOWN] and the pair
	// matches. The subscription is known to be live at this point, so a
	// single publish is enough; a second would roll the window past the
	// matching state.
	payload, _ := json.Marshal(snap("CTOS", 95, domain.DirectionDown))
	if err := b.Publish(ctx, bus.TopicMarketData, string(payload)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-notices:
		if !strings.Contains(msg.Body, "successfully Buy CTOS for Client 7") {
			t.Errorf("unexpected notice %q", msg.Body)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no notice after matching trend")
	}
}

func TestService_TradeTimeoutLeavesPreferencePending(t *testing.T) {
	b := bus.NewMemBus()
	defer b.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// No exchange consuming the trades queue: every request times out.
	svc := NewService("1", b, testLogger(), 30*time.Millisecond)
	go svc.Run(ctx)

	submitPreference(ctx, t, b, "1", domain.ClientPreference{
		ClientID: "7", Symbol: "CTOS", Side: domain.SideBuy, Quantity: 5000,
		Criterion: domain.BySymbol,
	})

	publishUntil(ctx, t, b, []domain.Instrument{snap("CTOS", 100, domain.DirectionUp)}, func() bool {
		trend, ok := svc.trends.Lookup("CTOS")
		return ok && trend.LastPrice == 100 && svc.book.Len() == 1
	})

	// Give the pass time to hit its timeout; the entry must survive it.
	time.Sleep(100 * time.Millisecond)
	if svc.book.Len() != 1 {
		t.Errorf("expected preference to stay pending after timeout, book has %d entries", svc.book.Len())
	}
}

func TestService_DropsMalformedAndInvalidPreferences(t *testing.T) {
	b := bus.NewMemBus()
	defer b.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := NewService("1", b, testLogger(), time.Second)
	go svc.Run(ctx)

	if err := b.Send(ctx, bus.BrokerInbox("1"), bus.Message{Body: "not json"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	submitPreference(ctx, t, b, "1", domain.ClientPreference{
		ClientID: "7", Symbol: "CTOS", Side: "Hold", Quantity: 5000, // unknown side
		Criterion: domain.BySymbol,
	})
	// A valid one after the junk proves the consumer loop survived.
	submitPreference(ctx, t, b, "1", domain.ClientPreference{
		ClientID: "7", Symbol: "CTOS", Side: domain.SideBuy, Quantity: 5000,
		Criterion: domain.BySymbol,
	})

	deadline := time.After(2 * time.Second)
	for svc.book.Len() != 1 {
		select {
		case <-deadline:
			t.Fatalf("expected exactly 1 accepted preference, got %d", svc.book.Len())
		case <-time.After(10 * time.Millisecond):
		}
	}
}
