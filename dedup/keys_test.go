package dedup

import "testing"

func TestKey(t *testing.T) {
	t.Parallel()

	if got := Key("rates", "CA", 25, "fixed", 500000, 50000); got != "rates:CA:25:fixed:500000:50000" {
		t.Fatalf("Key=%q", got)
	}
	if got := Key(); got != "" {
		t.Fatalf("empty Key=%q", got)
	}
	// Identical input, identical key.
	if Key("a", 1, true) != Key("a", 1, true) {
		t.Fatal("Key must be deterministic")
	}
}

func TestKeyForCall(t *testing.T) {
	t.Parallel()

	if got := KeyForCall("fetchRates", "CA", 25); got != "fetchRates:CA:25" {
		t.Fatalf("KeyForCall=%q", got)
	}
	if got := KeyForCall("ping"); got != "ping" {
		t.Fatalf("KeyForCall no args=%q", got)
	}
}

func TestKeyFromFields(t *testing.T) {
	t.Parallel()

	fields := map[string]any{
		"province": "CA",
		"income":   90000,
		"noise":    "ignored",
	}
	got := KeyFromFields("afford", fields, "province", "income")
	if got != "afford:province=CA:income=90000" {
		t.Fatalf("KeyFromFields=%q", got)
	}

	// Missing fields keep their slot so the shape stays positional.
	got = KeyFromFields("afford", fields, "province", "down")
	if got != "afford:province=CA:down=" {
		t.Fatalf("KeyFromFields missing=%q", got)
	}

	// Name order, not map order, defines the key.
	if KeyFromFields("p", fields, "income", "province") == KeyFromFields("p", fields, "province", "income") {
		t.Fatal("field order must matter")
	}
}

func TestHashKey(t *testing.T) {
	t.Parallel()

	a := HashKey("rates:CA:25:fixed:500000:50000")
	b := HashKey("rates:CA:25:fixed:500000:50000")
	if a != b {
		t.Fatal("HashKey must be stable for identical input")
	}
	if HashKey("a") == HashKey("b") {
		t.Fatal("distinct inputs should not collide trivially")
	}
	if a == "" {
		t.Fatal("digest must be non-empty")
	}
}
