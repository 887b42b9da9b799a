package queue

import (
	"testing"
	"time"
)

func TestBackoff_ExponentialSchedule(t *testing.T) {
	b := Backoff{Type: BackoffExponential, BaseDelay: 10 * time.Second}

	want := []time.Duration{
		10 * time.Second,
		20 * time.Second,
		40 * time.Second,
		80 * time.Second,
		160 * time.Second,
	}
	for i, w := range want {
		if got := b.Delay(i + 1); got != w {
			t.Fatalf("attempt %d: expected %v, got %v", i+1, w, got)
		}
	}
}

func TestBackoff_Defaults(t *testing.T) {
	if got := (Backoff{}).Delay(1); got != DefaultBaseDelay {
		t.Fatalf("expected default base delay, got %v", got)
	}
	if got := (Backoff{Type: BackoffFixed, BaseDelay: 3 * time.Second}).Delay(4); got != 3*time.Second {
		t.Fatalf("fixed backoff must not grow, got %v", got)
	}
	if got := (Backoff{BaseDelay: time.Second}).Delay(0); got != time.Second {
		t.Fatalf("attempt below 1 clamps to 1, got %v", got)
	}
}

func TestOptions_Normalize(t *testing.T) {
	o := Options{}.normalize()
	if o.MaxAttempts != DefaultMaxAttempts {
		t.Fatalf("expected default max attempts, got %d", o.MaxAttempts)
	}
	if o.Backoff.Type != BackoffExponential {
		t.Fatalf("expected exponential backoff default, got %q", o.Backoff.Type)
	}
	if o.Backoff.BaseDelay != DefaultBaseDelay {
		t.Fatalf("expected default base delay, got %v", o.Backoff.BaseDelay)
	}
}

func TestTerminal(t *testing.T) {
	if IsTerminal(nil) {
		t.Fatalf("nil is not terminal")
	}
	if Terminal(nil) != nil {
		t.Fatalf("Terminal(nil) must stay nil")
	}

	err := Terminal(errTest)
	if !IsTerminal(err) {
		t.Fatalf("expected terminal error")
	}
	if IsTerminal(errTest) {
		t.Fatalf("plain errors are retryable")
	}
}
