package diag

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/deepaksuthar40128/RemoteDx/pkg/logging"
)

// DefaultRetryDelay is the pause between a failed attempt and its retry.
const DefaultRetryDelay = 500 * time.Millisecond

// Policy configures how a check is retried.
type Policy struct {
	// Retry enables a single retry after a failed or faulted attempt.
	Retry bool
	// Delay is the pause before the retry. Zero retries immediately.
	Delay time.Duration
}

// MaxAttempts returns the attempt cap for the policy. The cap is fixed at two
// attempts when retry is enabled.
func (p Policy) MaxAttempts() int {
	if p.Retry {
		return 2
	}
	return 1
}

// Runner executes check operations under a Policy and turns every outcome,
// including faults, into a Record.
type Runner struct {
	logger logging.Logger
	now    func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger used for per-attempt logging.
func WithLogger(logger logging.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		logger: logging.NewDiscardLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// fault describes an error or panic raised by a check operation.
type fault struct {
	kind string
	msg  string
}

// Run invokes op until it passes or the policy's attempts are exhausted and
// returns the record of the final attempt. Run never returns an error and
// never propagates a panic from op. The context is passed to op; the delay
// between attempts is not interruptible.
func (r *Runner) Run(ctx context.Context, checkName string, op Operation, policy Policy) Record {
	var (
		attempts  int
		last      Record
		lastFault *fault
	)

	executor := failsafe.With[Record](newRetryPolicy(policy))
	_, _ = executor.Get(func() (Record, error) {
		attempts++
		last, lastFault = r.attempt(ctx, checkName, attempts, op)
		last.Attempts = attempts

		entry := r.logger.WithFields(logging.Fields{
			"check":    checkName,
			"attempt":  attempts,
			"status":   last.Status,
			"duration": last.Duration,
		})
		if !last.Status.OK() && attempts < policy.MaxAttempts() {
			entry.Info("Check attempt did not pass, retrying")
		} else {
			entry.Debug("Check attempt finished")
		}
		return last, nil
	})

	if lastFault != nil && last.Status == StatusError {
		last.Details = fmt.Sprintf("Error during %s after %d attempt(s): %s - %s",
			checkName, attempts, lastFault.kind, lastFault.msg)
	}
	return last
}

// newRetryPolicy builds the failsafe retry policy for one Run call. Records
// are always returned with a nil error, so the policy retries on status.
func newRetryPolicy(policy Policy) retrypolicy.RetryPolicy[Record] {
	builder := retrypolicy.NewBuilder[Record]().
		HandleIf(func(rec Record, err error) bool {
			return err != nil || !rec.Status.OK()
		}).
		WithMaxRetries(policy.MaxAttempts() - 1).
		ReturnLastFailure()
	if policy.Retry && policy.Delay > 0 {
		builder = builder.WithDelay(policy.Delay)
	}
	return builder.Build()
}

// attempt runs op once, timing it and converting faults into an error record.
func (r *Runner) attempt(ctx context.Context, checkName string, n int, op Operation) (rec Record, f *fault) {
	start := r.now()
	rec = Record{CheckName: checkName, CommandsRun: []string{}}

	defer func() {
		if v := recover(); v != nil {
			f = &fault{kind: "panic", msg: fmt.Sprint(v)}
			rec.Status = StatusError
			rec.Details = fmt.Sprintf("Error during %s (attempt %d): %s - %s", checkName, n, f.kind, f.msg)
		}
		rec.Duration = r.now().Sub(start)
		if rec.Duration < 0 {
			rec.Duration = 0
		}
	}()

	out, err := op(ctx)
	if out.CommandsRun != nil {
		rec.CommandsRun = append([]string(nil), out.CommandsRun...)
	}
	if err != nil {
		f = &fault{kind: faultKind(err), msg: err.Error()}
		rec.Status = StatusError
		rec.Details = fmt.Sprintf("Error during %s (attempt %d): %s - %s", checkName, n, f.kind, f.msg)
		return rec, f
	}

	rec.Status = out.Status
	if rec.Status == "" {
		rec.Status = StatusFailed
	}
	rec.Details = out.Details
	if rec.Details == "" {
		rec.Details = noDetails
	}
	return rec, nil
}

// faultKind names an error the way it shows up in record details: the
// error's own Kind when it has one, otherwise the concrete type name of the
// first error in the chain that is not an fmt wrapper.
func faultKind(err error) string {
	var k interface{ Kind() string }
	if errors.As(err, &k) && k.Kind() != "" {
		return k.Kind()
	}
	t := concreteType(err)
	for t.PkgPath() == "fmt" {
		inner := errors.Unwrap(err)
		if inner == nil {
			break
		}
		err = inner
		t = concreteType(err)
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

func concreteType(err error) reflect.Type {
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
