// Package catalog holds the static reference data shown on the create page.
package catalog

import "github.com/shopspring/decimal"

const (
	UPIID      = "vcard@shaktiind"
	UPIPayee   = "VCard Issuance"
	CardExpiry = "05/28"

	NetworkVisa       = "visa"
	NetworkMastercard = "mastercard"
)

var (
	// ExchangeRate is INR per USD.
	ExchangeRate = decimal.RequireFromString("83.50")
	FeeRate      = decimal.RequireFromString("0.02")
)

type Platform struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	DefaultPrice float64 `json:"defaultPrice"`
}

type Option struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Color struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

var Platforms = []Platform{
	{ID: "chatgpt", Name: "ChatGPT Plus", DefaultPrice: 20},
	{ID: "claude", Name: "Claude Pro", DefaultPrice: 20},
	{ID: "midjourney", Name: "Midjourney", DefaultPrice: 30},
	{ID: "netflix", Name: "Netflix US", DefaultPrice: 15},
	{ID: "spotify", Name: "Spotify Premium", DefaultPrice: 10},
	{ID: "adobe", Name: "Adobe CC", DefaultPrice: 55},
	{ID: "aws", Name: "AWS Cloud", DefaultPrice: 10},
	{ID: "digitalocean", Name: "DigitalOcean", DefaultPrice: 5},
	{ID: "zoom", Name: "Zoom Pro", DefaultPrice: 15},
	{ID: "google", Name: "Google One", DefaultPrice: 2},
	{ID: "other", Name: "Custom/Other", DefaultPrice: 1},
}

var Networks = []Option{
	{ID: NetworkVisa, Name: "Visa"},
	{ID: NetworkMastercard, Name: "Mastercard"},
}

var Banks = []Option{
	{ID: "shaktiind", Name: "Shaktiind Global"},
	{ID: "hdfc", Name: "HDFC Virtual"},
	{ID: "icici", Name: "ICICI Secure"},
	{ID: "sbi", Name: "SBI International"},
}

var Colors = []Color{
	{Name: "Midnight", Value: "linear-gradient(135deg, #1e293b 0%, #0f172a 100%)"},
	{Name: "Ocean Blue", Value: "linear-gradient(135deg, #0ea5e9 0%, #1d4ed8 100%)"},
	{Name: "Royal Purple", Value: "linear-gradient(135deg, #8b5cf6 0%, #5b21b6 100%)"},
	{Name: "Emerald", Value: "linear-gradient(135deg, #10b981 0%, #047857 100%)"},
	{Name: "Crimson", Value: "linear-gradient(135deg, #ef4444 0%, #b91c1c 100%)"},
	{Name: "Sunset", Value: "linear-gradient(135deg, #f97316 0%, #c2410c 100%)"},
	{Name: "Rose", Value: "linear-gradient(135deg, #ec4899 0%, #be185d 100%)"},
}

// Snapshot is the payload of the catalog endpoint.
type Snapshot struct {
	Platforms    []Platform `json:"platforms"`
	Networks     []Option   `json:"networks"`
	Banks        []Option   `json:"banks"`
	Colors       []Color    `json:"colors"`
	ExchangeRate string     `json:"exchangeRate"`
	FeeRate      string     `json:"feeRate"`
	UPIID        string     `json:"upiId"`
}

func Current() Snapshot {
	return Snapshot{
		Platforms:    Platforms,
		Networks:     Networks,
		Banks:        Banks,
		Colors:       Colors,
		ExchangeRate: ExchangeRate.StringFixed(2),
		FeeRate:      FeeRate.String(),
		UPIID:        UPIID,
	}
}

// FindPlatform resolves a platform by id or display name.
func FindPlatform(v string) (Platform, bool) {
	for _, p := range Platforms {
		if p.ID == v || p.Name == v {
			return p, true
		}
	}
	return Platform{}, false
}

// FindNetwork resolves a network by id or display name.
func FindNetwork(v string) (Option, bool) {
	return findOption(Networks, v)
}

// FindBank resolves a bank by id or display name.
func FindBank(v string) (Option, bool) {
	return findOption(Banks, v)
}

// FindColor resolves a palette entry by name or gradient value.
func FindColor(v string) (Color, bool) {
	for _, c := range Colors {
		if c.Name == v || c.Value == v {
			return c, true
		}
	}
	return Color{}, false
}

func findOption(opts []Option, v string) (Option, bool) {
	for _, o := range opts {
		if o.ID == v || o.Name == v {
			return o, true
		}
	}
	return Option{}, false
}
