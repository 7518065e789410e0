// Package issuer synthesizes virtual card records and their pricing. Nothing
// here talks to a card network; every number is generated locally.
package issuer

import (
	"math/rand/v2"
	"strconv"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/segmentio/ksuid"
	"github.com/shopspring/decimal"

	"vcard-service/internal/catalog"
	"vcard-service/internal/model"
)

const (
	visaPrefix       = "4532"
	mastercardPrefix = "5214"

	suffixMin  = 100000000000
	suffixSpan = 900000000000
	cvvMin     = 100
	cvvSpan    = 900
)

// Factory builds fully formed card transactions.
type Factory struct {
	mu    sync.Mutex
	rng   *rand.Rand
	clock clockwork.Clock
	newID func() string
}

type Option func(*Factory)

// WithRand injects the random source used for card digits.
func WithRand(r *rand.Rand) Option {
	return func(f *Factory) { f.rng = r }
}

func WithClock(c clockwork.Clock) Option {
	return func(f *Factory) { f.clock = c }
}

func WithIDGenerator(gen func() string) Option {
	return func(f *Factory) { f.newID = gen }
}

func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		rng:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		clock: clockwork.NewRealClock(),
		newID: func() string { return ksuid.New().String() },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Build creates an ACTIVE transaction for req. It never fails: the amount
// range and catalog membership are the caller's concern.
func (f *Factory) Build(req model.CreateCardRequest) model.CardTransaction {
	q := Quote(req.AmountUsd)

	f.mu.Lock()
	suffix := suffixMin + f.rng.Int64N(suffixSpan)
	cvv := cvvMin + f.rng.IntN(cvvSpan)
	f.mu.Unlock()

	return model.CardTransaction{
		ID:            f.newID(),
		Platform:      req.Platform,
		AmountUsd:     req.AmountUsd,
		AmountInr:     q.TotalInr,
		AmountBaseInr: q.BaseInr,
		FeeInr:        q.FeeInr,
		Timestamp:     f.clock.Now().UnixMilli(),
		Status:        model.StatusActive,
		CardNumber:    cardPrefix(req.Network) + strconv.FormatInt(suffix, 10),
		Expiry:        catalog.CardExpiry,
		CVV:           strconv.Itoa(cvv),
		Color:         req.Color,
		Network:       req.Network,
		Bank:          req.Bank,
	}
}

func cardPrefix(network string) string {
	if network == catalog.NetworkVisa {
		return visaPrefix
	}
	return mastercardPrefix
}

// Quote prices amountUsd in whole rupees: the converted amount and the fee
// are each rounded up.
func Quote(amountUsd float64) model.Quote {
	base := decimal.NewFromFloat(amountUsd).Mul(catalog.ExchangeRate).Ceil()
	fee := base.Mul(catalog.FeeRate).Ceil()

	return model.Quote{
		AmountUsd: amountUsd,
		Rate:      catalog.ExchangeRate.StringFixed(2),
		BaseInr:   base.IntPart(),
		FeeInr:    fee.IntPart(),
		TotalInr:  base.Add(fee).IntPart(),
	}
}
