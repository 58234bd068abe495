package target

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bytehawks/distillery/src/credential"
)

// Prober checks that a target is reachable with the given secrets. It must
// honor ctx, which carries the per-attempt timeout.
type Prober interface {
	Probe(ctx context.Context, t Target, secrets map[string]string) error
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, t Target, secrets map[string]string) error

func (f ProberFunc) Probe(ctx context.Context, t Target, secrets map[string]string) error {
	return f(ctx, t, secrets)
}

// Backoff is the delay between attempts on the same target: Initial, then
// multiplied by Multiplier per retry, capped at Max.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultBackoff waits 1s, 2s, 4s ... up to 30s.
var DefaultBackoff = Backoff{
	Initial:    time.Second,
	Max:        30 * time.Second,
	Multiplier: 2,
}

const minBackoff = time.Millisecond

// Delay returns the wait before retry number n (n >= 1).
func (b Backoff) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	mult := b.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(b.Initial) * math.Pow(mult, float64(n-1))
	if b.Max > 0 && d > float64(b.Max) {
		d = float64(b.Max)
	}
	if d < float64(minBackoff) {
		return minBackoff
	}
	return time.Duration(d)
}

// Resolver attempts targets until one answers. Calls may run concurrently;
// targets within one call are attempted strictly in order.
type Resolver struct {
	prober  Prober
	creds   *credential.Provider
	backoff Backoff
	logger  *slog.Logger
	now     func() time.Time
	turn    atomic.Uint64
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCredentials sets the provider used to resolve ${NAME} fields.
func WithCredentials(p *credential.Provider) Option {
	return func(r *Resolver) { r.creds = p }
}

// WithBackoff sets the retry delay policy.
func WithBackoff(b Backoff) Option {
	return func(r *Resolver) { r.backoff = b }
}

// WithLogger sets the logger attempts and failovers are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithClock replaces time.Now for attempt timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// NewResolver returns a Resolver probing through p.
func NewResolver(p Prober, opts ...Option) *Resolver {
	r := &Resolver{
		prober:  p,
		creds:   credential.NewProvider(nil),
		backoff: DefaultBackoff,
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve orders c by strategy and returns the first target that answers.
// The log is returned in every case except an unknown strategy.
func (r *Resolver) Resolve(ctx context.Context, strategy Strategy, c Candidates) (*ActiveTarget, *AttemptLog, error) {
	ordered, err := Order(strategy, c, r.turn.Add(1)-1)
	if err != nil {
		return nil, nil, err
	}
	return r.resolve(ctx, strategy, ordered)
}

// ResolveOrdered attempts targets in the given order.
func (r *Resolver) ResolveOrdered(ctx context.Context, targets []Target) (*ActiveTarget, *AttemptLog, error) {
	return r.resolve(ctx, "", targets)
}

func (r *Resolver) resolve(ctx context.Context, strategy Strategy, targets []Target) (*ActiveTarget, *AttemptLog, error) {
	log := &AttemptLog{ID: uuid.NewString(), Strategy: strategy}
	logger := r.logger.With("resolution", log.ID)
	if strategy != "" {
		logger = logger.With("strategy", string(strategy))
	}

	for i, t := range targets {
		if err := ctx.Err(); err != nil {
			return nil, log, &CancelledError{Log: log, Err: err}
		}

		active, err := r.attemptTarget(ctx, logger, log, t)
		if active != nil {
			if i > 0 {
				logger.Info("resolved after failover", "target", t.ID(), "attempts", log.Len())
			}
			return active, log, nil
		}
		if err != nil {
			return nil, log, err
		}
		if i+1 < len(targets) {
			logger.Warn("target failed, failing over",
				"target", t.ID(),
				"next", targets[i+1].ID(),
			)
		}
	}
	return nil, log, &AllTargetsExhaustedError{Log: log}
}

// attemptTarget probes one target up to Retry+1 times. It returns the active
// target on success, a non-nil error only on cancellation, and (nil, nil)
// when the target is exhausted.
func (r *Resolver) attemptTarget(ctx context.Context, logger *slog.Logger, log *AttemptLog, t Target) (*ActiveTarget, error) {
	for n := 1; n <= t.Retry+1; n++ {
		if n > 1 {
			timer := time.NewTimer(r.backoff.Delay(n - 1))
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, &CancelledError{Log: log, Err: ctx.Err()}
			}
		}

		a := Attempt{
			Target:    t.ID(),
			Kind:      t.Kind,
			Role:      t.Role,
			Transport: t.Transport,
			Number:    n,
			Start:     r.now(),
		}

		// Secrets are read per attempt so a rotated variable is picked up.
		secrets, err := r.creds.ResolveSet(t.Credentials)
		if err != nil {
			a.Reason, a.Err = ReasonCredentials, err
			log.Attempts = append(log.Attempts, a)
			logger.Warn("credentials unavailable", "target", t.ID(), "error", err)
			return nil, nil
		}

		err = r.probe(ctx, t, secrets)
		a.Duration = r.now().Sub(a.Start)

		if err != nil && ctx.Err() != nil {
			return nil, &CancelledError{Log: log, Err: ctx.Err()}
		}
		if err == nil {
			log.Attempts = append(log.Attempts, a)
			logger.Debug("attempt succeeded", "target", t.ID(), "attempt", n, "duration", a.Duration)
			return &ActiveTarget{Target: t, Secrets: secrets, Attempts: n}, nil
		}

		a.Reason, a.Err = classify(err), err
		log.Attempts = append(log.Attempts, a)
		logger.Debug("attempt failed",
			"target", t.ID(),
			"attempt", n,
			"of", t.Retry+1,
			"reason", string(a.Reason),
			"error", err,
		)
	}
	return nil, nil
}

func (r *Resolver) probe(ctx context.Context, t Target, secrets map[string]string) error {
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}
	return r.prober.Probe(ctx, t, secrets)
}

func classify(err error) Reason {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var te interface{ Timeout() bool }
	if errors.As(err, &te) && te.Timeout() {
		return ReasonTimeout
	}
	return ReasonRejected
}
