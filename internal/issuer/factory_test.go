package issuer

import (
	"math/rand/v2"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"vcard-service/internal/model"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		usd              float64
		base, fee, total int64
	}{
		{usd: 20, base: 1670, fee: 34, total: 1704},
		{usd: 15, base: 1253, fee: 26, total: 1279},
		{usd: 1, base: 84, fee: 2, total: 86},
		{usd: 55, base: 4593, fee: 92, total: 4685},
	}
	for _, tt := range tests {
		q := Quote(tt.usd)
		if q.BaseInr != tt.base || q.FeeInr != tt.fee || q.TotalInr != tt.total {
			t.Errorf("Quote(%v) = %+v, want base=%d fee=%d total=%d", tt.usd, q, tt.base, tt.fee, tt.total)
		}
		if q.Rate != "83.50" {
			t.Errorf("expected rate 83.50, got %s", q.Rate)
		}
	}
}

func TestBuild(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1700000000000))
	f := NewFactory(
		WithRand(rand.New(rand.NewPCG(1, 2))),
		WithClock(clock),
		WithIDGenerator(func() string { return "tx-1" }),
	)

	tx := f.Build(model.CreateCardRequest{
		Platform:  "chatgpt",
		Network:   "visa",
		Bank:      "hdfc",
		AmountUsd: 20,
		Color:     "Midnight",
	})

	if tx.ID != "tx-1" || tx.Status != model.StatusActive {
		t.Fatalf("unexpected identity fields %+v", tx)
	}
	if tx.AmountInr != 1704 || tx.AmountBaseInr != 1670 || tx.FeeInr != 34 {
		t.Fatalf("unexpected pricing %+v", tx)
	}
	if tx.Timestamp != 1700000000000 {
		t.Fatalf("expected fake clock timestamp, got %d", tx.Timestamp)
	}
	if tx.Expiry != "05/28" {
		t.Fatalf("expected fixed expiry, got %s", tx.Expiry)
	}
	if len(tx.CardNumber) != 16 || !strings.HasPrefix(tx.CardNumber, "4532") {
		t.Fatalf("unexpected visa card number %s", tx.CardNumber)
	}
	if tx.CardNumber[4] == '0' {
		t.Fatalf("suffix must not start with zero: %s", tx.CardNumber)
	}
	if len(tx.CVV) != 3 || tx.CVV[0] == '0' {
		t.Fatalf("unexpected cvv %s", tx.CVV)
	}
}

func TestBuildNonVisaPrefix(t *testing.T) {
	f := NewFactory()
	for _, network := range []string{"mastercard", "rupay"} {
		tx := f.Build(model.CreateCardRequest{Network: network, AmountUsd: 5})
		if !strings.HasPrefix(tx.CardNumber, "5214") {
			t.Errorf("network %s: expected 5214 prefix, got %s", network, tx.CardNumber)
		}
	}
}

func TestBuildDefaultIDsAreUnique(t *testing.T) {
	f := NewFactory()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := f.Build(model.CreateCardRequest{Network: "visa", AmountUsd: 1}).ID
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestPaymentIntentIsDeterministic(t *testing.T) {
	tx := model.CardTransaction{ID: "tx-1", AmountInr: 1279}

	a := NewPaymentIntent(tx)
	b := NewPaymentIntent(tx)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("expected identical intents for the same transaction")
	}
	if a.Payee != "vcard@shaktiind" || a.AmountInr != 1279 {
		t.Fatalf("unexpected intent %+v", a)
	}
	if !strings.HasPrefix(a.URI, "upi://pay?") || !strings.Contains(a.URI, "am=1279.00") {
		t.Fatalf("unexpected uri %s", a.URI)
	}
	if len(a.QRMatrix) != 8 || len(a.QRMatrix[7]) != 8 {
		t.Fatalf("expected 8x8 matrix, got %d rows", len(a.QRMatrix))
	}

	other := NewPaymentIntent(model.CardTransaction{ID: "tx-2", AmountInr: 1279})
	if reflect.DeepEqual(a.QRMatrix, other.QRMatrix) {
		t.Fatal("expected different transactions to render different patterns")
	}
}
