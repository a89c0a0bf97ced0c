package health

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck flags a goroutine leak: the process is considered
// wedged once the live goroutine count exceeds limit.
func GoroutineCountCheck(limit int) Check {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > limit {
			return errors.Errorf("%d goroutines running, limit %d", n, limit)
		}
		return nil
	}
}

// GCMaxPauseCheck flags memory pressure: any recorded stop-the-world pause
// longer than limit fails the check.
func GCMaxPauseCheck(limit time.Duration) Check {
	return func(_ context.Context) error {
		var stats debug.GCStats
		debug.ReadGCStats(&stats)
		for _, pause := range stats.Pause {
			if pause > limit {
				return errors.Errorf("GC pause of %s, limit %s", pause, limit)
			}
		}
		return nil
	}
}
