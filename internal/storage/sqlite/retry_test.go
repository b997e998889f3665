package sqlite

import (
	"errors"
	"testing"
	"time"
)

func TestIsSQLiteBusy(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "database is locked", err: errors.New("database is locked (5) (SQLITE_BUSY)"), expected: true},
		{name: "SQLITE_BUSY", err: errors.New("SQLITE_BUSY"), expected: true},
		{name: "other error", err: errors.New("some other error"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isSQLiteBusy(tt.err); got != tt.expected {
				t.Errorf("isSQLiteBusy(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestRetryOnBusy(t *testing.T) {
	busy := errors.New("database is locked (5) (SQLITE_BUSY)")

	t.Run("success on first try", func(t *testing.T) {
		calls := 0
		err := retryOnBusy(func() error {
			calls++
			return nil
		})
		if err != nil || calls != 1 {
			t.Errorf("got err=%v calls=%d, want nil and 1", err, calls)
		}
	})

	t.Run("success after retry", func(t *testing.T) {
		calls := 0
		err := retryOnBusy(func() error {
			calls++
			if calls < 3 {
				return busy
			}
			return nil
		})
		if err != nil || calls != 3 {
			t.Errorf("got err=%v calls=%d, want nil and 3", err, calls)
		}
	})

	t.Run("non-busy error fails immediately", func(t *testing.T) {
		calls := 0
		other := errors.New("constraint failed")
		err := retryOnBusy(func() error {
			calls++
			return other
		})
		if err != other || calls != 1 {
			t.Errorf("got err=%v calls=%d, want %v and 1", err, calls, other)
		}
	})

	t.Run("max retries exceeded", func(t *testing.T) {
		calls := 0
		err := retryOnBusy(func() error {
			calls++
			return busy
		})
		if !isSQLiteBusy(err) {
			t.Errorf("expected busy error, got %v", err)
		}
		if calls != busyMaxAttempts {
			t.Errorf("expected %d calls, got %d", busyMaxAttempts, calls)
		}
	})

	t.Run("exponential backoff", func(t *testing.T) {
		var stamps []time.Time
		_ = retryOnBusy(func() error {
			stamps = append(stamps, time.Now())
			if len(stamps) < 3 {
				return busy
			}
			return nil
		})
		if len(stamps) != 3 {
			t.Fatalf("expected 3 calls, got %d", len(stamps))
		}
		if d := stamps[1].Sub(stamps[0]); d < 5*time.Millisecond {
			t.Errorf("first delay should be ~10ms, got %v", d)
		}
		if d := stamps[2].Sub(stamps[1]); d < 15*time.Millisecond {
			t.Errorf("second delay should be ~20ms, got %v", d)
		}
	})
}
