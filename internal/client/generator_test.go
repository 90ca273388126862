package client

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/efreitasn/marketsim/internal/bus"
	"github.com/efreitasn/marketsim/internal/domain"
)

func TestNewPreference_AlwaysValid(t *testing.T) {
	symbols := []string{"CTOS", "LAMBO", "MYEG"}

	for range 500 {
		pref := NewPreference("3", symbols)
		if err := pref.Validate(); err != nil {
			t.Fatalf("generated invalid preference %+v: %v", pref, err)
		}
		if pref.ClientID != "3" {
			t.Fatalf("wrong client id %q", pref.ClientID)
		}
	}
}

func TestNewPreference_ValuesStayInRange(t *testing.T) {
	symbols := []string{"CTOS"}
	seenCriteria := map[domain.Criterion]bool{}

	for range 1000 {
		pref := NewPreference("3", symbols)
		seenCriteria[pref.Criterion] = true

		if pref.Symbol != "CTOS" {
			t.Fatalf("symbol %q not drawn from catalog", pref.Symbol)
		}
		if pref.Quantity < minQuantity || pref.Quantity >= maxQuantity {
			t.Fatalf("quantity %v out of range", pref.Quantity)
		}
		switch pref.Criterion {
		case domain.ByPrice:
			if pref.Threshold < minThreshold || pref.Threshold >= maxThreshold {
				t.Fatalf("threshold %v out of range", pref.Threshold)
			}
		case domain.ByTrend:
			if len(pref.TrendPair) != 2 {
				t.Fatalf("trend pair %v", pref.TrendPair)
			}
		case domain.BySymbol:
			if pref.Threshold != 0 || pref.TrendPair != nil {
				t.Fatalf("symbol-only preference carries extras: %+v", pref)
			}
		}
	}

	// 1000 draws across 3 uniform criteria: all of them should show up.
	for _, c := range criteria {
		if !seenCriteria[c] {
			t.Errorf("criterion %s never drawn", c)
		}
	}
}

func TestService_SubmitsToPairedBrokerInbox(t *testing.T) {
	b := bus.NewMemBus()
	defer b.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService("3", "1", b, logger, []string{"CTOS"},
		0, 0, // no first delay
		time.Hour, time.Hour, // effectively one submission
	)
	go svc.Run(ctx)

	msgs, err := b.Consume(ctx, bus.BrokerInbox("1"))
	if err != nil {
		t.Fatalf("consume: %v", err)
	}

	select {
	case msg := <-msgs:
		var pref domain.ClientPreference
		if err := json.Unmarshal([]byte(msg.Body), &pref); err != nil {
			t.Fatalf("unmarshal submitted preference: %v", err)
		}
		if pref.ClientID != "3" || pref.Symbol != "CTOS" {
			t.Errorf("unexpected preference %+v", pref)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no preference submitted")
	}
}
