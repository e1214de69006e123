package provision

import (
	"context"
	"time"
)

const (
	defaultMaxAttempts  = 4
	defaultBackoffBase  = 2 * time.Second
	defaultWaitInterval = 10 * time.Second
	defaultSettleDelay  = 30 * time.Second
)

// withRetry runs one create call, retrying transient failures with
// exponential backoff. Only idempotent steps are routed through here;
// anything else surfaces its first error.
func (p *Provisioner) withRetry(ctx context.Context, step string, fn func(context.Context) (string, error)) (string, error) {
	backoff := p.backoffBase
	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		id, err := fn(ctx)
		if err == nil {
			return id, nil
		}
		lastErr = err
		if Classify(err) != ClassTransient || attempt == p.maxAttempts {
			return "", err
		}
		p.log.Warn().
			Str("step", step).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Err(err).
			Msg("transient failure, retrying")
		if err := p.sleep(ctx, backoff); err != nil {
			return "", err
		}
		backoff *= 2
	}
	return "", lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
