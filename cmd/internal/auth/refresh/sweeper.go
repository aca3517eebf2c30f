package refresh

import (
	"context"
	"log/slog"
	"time"
)

// RunSweeper calls sw.Sweep every interval until ctx is done. Each pass is
// bounded by timeout. Errors are logged and the loop continues.
func RunSweeper(ctx context.Context, sw Sweeper, interval, timeout time.Duration, m *Metrics, log *slog.Logger) {
	if sw == nil || interval <= 0 {
		return
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			sweepOnce(ctx, sw, now.UTC(), timeout, m, log)
		}
	}
}

func sweepOnce(ctx context.Context, sw Sweeper, now time.Time, timeout time.Duration, m *Metrics, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	n, err := sw.Sweep(ctx, now)
	if err != nil {
		log.Warn("refresh.sweep.fail", "err", err)
		return
	}
	m.swept(n)
	if n > 0 {
		log.Info("refresh.sweep", "removed", n)
	}
}
