package dataflows

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeSymbol(t *testing.T) {
	cases := map[string]string{
		"  2330 ":  "2330",
		"aapl":     "AAPL",
		"2330.tw":  "2330.TW",
		"":         "",
	}
	for in, want := range cases {
		if got := NormalizeSymbol(in); got != want {
			t.Fatalf("NormalizeSymbol(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsNumericCode(t *testing.T) {
	if !IsNumericCode("2330") {
		t.Fatal("2330 is a numeric code")
	}
	if IsNumericCode("2330.TW") || IsNumericCode("AAPL") || IsNumericCode("") {
		t.Fatal("suffixed, alpha and empty symbols are not numeric codes")
	}
}

func TestCacheManagerRoundTrip(t *testing.T) {
	cm := NewCacheManager(t.TempDir(), time.Hour, true)

	params := map[string]string{"symbol": "2330.TW", "days": "365"}
	in := []string{"a", "b", "c"}
	if err := cm.Set("yahoo", "daily", params, in); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var out []string
	if !cm.Get("yahoo", "daily", params, &out) {
		t.Fatal("Get missed a fresh entry")
	}
	if len(out) != 3 || out[0] != "a" {
		t.Fatalf("out = %v", out)
	}

	// Different params must not collide.
	var other []string
	if cm.Get("yahoo", "daily", map[string]string{"symbol": "2317.TW"}, &other) {
		t.Fatal("Get hit with different params")
	}
}

func TestCacheManagerDisabled(t *testing.T) {
	cm := NewCacheManager(t.TempDir(), time.Hour, false)

	if err := cm.Set("yahoo", "daily", "p", "data"); err != nil {
		t.Fatalf("Set on disabled cache: %v", err)
	}
	var out string
	if cm.Get("yahoo", "daily", "p", &out) {
		t.Fatal("disabled cache must always miss")
	}
}

func TestWithRetrySucceedsAfterFailures(t *testing.T) {
	cfg := &RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, Multiplier: 2}

	attempts := 0
	err := WithRetry(cfg, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithRetry: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestWithRetryExhausted(t *testing.T) {
	cfg := &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, Multiplier: 2}

	sentinel := errors.New("still down")
	err := WithRetry(cfg, func() error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want wrapped sentinel", err)
	}
}
