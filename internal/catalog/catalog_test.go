package catalog

import "testing"

func TestLookups(t *testing.T) {
	p, ok := FindPlatform("netflix")
	if !ok || p.DefaultPrice != 15 {
		t.Fatalf("expected netflix at $15, got %+v (found=%v)", p, ok)
	}
	if byName, ok := FindPlatform("Netflix US"); !ok || byName.ID != "netflix" {
		t.Fatalf("expected lookup by display name, got %+v (found=%v)", byName, ok)
	}
	if _, ok := FindPlatform("hulu"); ok {
		t.Fatal("expected unknown platform to be missing")
	}
	if n, ok := FindNetwork("Visa"); !ok || n.ID != NetworkVisa {
		t.Fatalf("unexpected network lookup %+v", n)
	}
	if _, ok := FindNetwork("amex"); ok {
		t.Fatal("expected unknown network to be missing")
	}
	if b, ok := FindBank("hdfc"); !ok || b.Name != "HDFC Virtual" {
		t.Fatalf("unexpected bank lookup %+v", b)
	}
	if _, ok := FindBank("chase"); ok {
		t.Fatal("expected unknown bank to be missing")
	}
	if c, ok := FindColor("Midnight"); !ok || c.Value != Colors[0].Value {
		t.Fatalf("unexpected colour lookup %+v", c)
	}
	if c, ok := FindColor(Colors[2].Value); !ok || c.Name != "Royal Purple" {
		t.Fatalf("unexpected colour lookup by value %+v", c)
	}
	if _, ok := FindColor("#fff"); ok {
		t.Fatal("expected unknown colour to be missing")
	}
}

func TestSnapshotRates(t *testing.T) {
	s := Current()
	if s.ExchangeRate != "83.50" {
		t.Errorf("expected 83.50, got %s", s.ExchangeRate)
	}
	if s.FeeRate != "0.02" {
		t.Errorf("expected 0.02, got %s", s.FeeRate)
	}
	if len(s.Platforms) != 11 {
		t.Errorf("expected 11 platforms, got %d", len(s.Platforms))
	}
}
