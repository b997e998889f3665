package sqlite

import (
	"strings"
	"time"
)

const (
	busyMaxAttempts  = 5
	busyInitialDelay = 10 * time.Millisecond
)

// isSQLiteBusy reports whether err is a lock contention error worth
// retrying.
func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// retryOnBusy runs fn up to busyMaxAttempts times, doubling the delay
// between attempts, while it fails with SQLITE_BUSY. Other errors are
// returned unchanged on the first failure.
func retryOnBusy(fn func() error) error {
	delay := busyInitialDelay
	var err error
	for attempt := 1; attempt <= busyMaxAttempts; attempt++ {
		err = fn()
		if !isSQLiteBusy(err) {
			return err
		}
		if attempt == busyMaxAttempts {
			break
		}
		tracef("database busy (attempt %d/%d), retrying in %v", attempt, busyMaxAttempts, delay)
		time.Sleep(delay)
		delay *= 2
	}
	opsf("giving up after %d busy attempts: %v", busyMaxAttempts, err)
	return err
}
