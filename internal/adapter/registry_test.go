package adapter

import (
	"errors"
	"testing"
)

func TestRegisterRejectsUnnamespacedName(t *testing.T) {
	reg := NewRegistry()

	for _, name := range []string{"stripe", "payments.", ".stripe", "payments.stripe.live", ""} {
		err := reg.Register(name, func(Config) (any, error) { return nil, nil })
		if !errors.Is(err, ErrInvalidName) {
			t.Fatalf("Register(%q): expected ErrInvalidName, got %v", name, err)
		}
	}
}

func TestResolveIsCaseInsensitive(t *testing.T) {
	reg := NewRegistry()
	marker := &struct{}{}
	ctor := func(Config) (any, error) { return marker, nil }

	if err := reg.Register("payments.x", ctor); err != nil {
		t.Fatalf("register: %v", err)
	}

	resolved, err := reg.Resolve("PAYMENTS.X")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	inst, err := resolved(nil)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	if inst != marker {
		t.Fatalf("expected the registered constructor")
	}
}

func TestResolveUnknown(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Resolve("payments.nope"); !errors.Is(err, ErrUnknownAdapter) {
		t.Fatalf("expected ErrUnknownAdapter, got %v", err)
	}
}

func TestRegisterLastWins(t *testing.T) {
	reg := NewRegistry()
	first := func(Config) (any, error) { return "first", nil }
	second := func(Config) (any, error) { return "second", nil }

	if err := reg.Register("payments.dup", first); err != nil {
		t.Fatalf("register first: %v", err)
	}
	if err := reg.Register("Payments.Dup", second); err != nil {
		t.Fatalf("register second: %v", err)
	}

	ctor, err := reg.Resolve("payments.dup")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	inst, _ := ctor(nil)
	if inst != "second" {
		t.Fatalf("expected last registration to win, got %v", inst)
	}
}

func TestNamesSortedAndFiltered(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"payments.stripe", "maps.google", "payments.mpesa", "flights.amadeus"} {
		if err := reg.Register(name, func(Config) (any, error) { return nil, nil }); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	all := reg.Names("")
	want := []string{"flights.amadeus", "maps.google", "payments.mpesa", "payments.stripe"}
	if len(all) != len(want) {
		t.Fatalf("expected %d names, got %d", len(want), len(all))
	}
	for i := range want {
		if all[i] != want[i] {
			t.Fatalf("names[%d]: expected %s, got %s", i, want[i], all[i])
		}
	}

	payments := reg.Names("payments")
	if len(payments) != 2 || payments[0] != "payments.mpesa" || payments[1] != "payments.stripe" {
		t.Fatalf("unexpected filtered names: %v", payments)
	}
}

func TestNormalizeHeaders(t *testing.T) {
	headers := NormalizeHeaders(map[string][]string{
		"Stripe-Signature": {"t=1,v1=abc"},
		"Verif-Hash":       {"secret"},
		"Empty":            {},
	})

	if headers.Get("stripe-signature") != "t=1,v1=abc" {
		t.Fatalf("expected lowercase lookup to succeed")
	}
	if headers.Get("STRIPE-SIGNATURE") != "t=1,v1=abc" {
		t.Fatalf("expected Get to be case-insensitive")
	}
	if _, ok := headers["empty"]; ok {
		t.Fatalf("expected empty header to be dropped")
	}
}
