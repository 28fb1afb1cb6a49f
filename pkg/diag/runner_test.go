package diag

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"
)

type step struct {
	out   Outcome
	err   error
	panic any
}

// scripted returns an operation that replays the given steps in order.
func scripted(steps ...step) (Operation, *int) {
	calls := 0
	return func(ctx context.Context) (Outcome, error) {
		s := steps[calls]
		calls++
		if s.panic != nil {
			panic(s.panic)
		}
		return s.out, s.err
	}, &calls
}

var fastRetry = Policy{Retry: true, Delay: time.Millisecond}

func TestRun_PassFirstTry(t *testing.T) {
	op, calls := scripted(step{out: Outcome{Status: StatusPassed, Details: "OK"}})
	rec := NewRunner().Run(context.Background(), "ping_check", op, fastRetry)

	if rec.CheckName != "ping_check" {
		t.Errorf("CheckName = %q", rec.CheckName)
	}
	if rec.Status != StatusPassed || rec.Details != "OK" {
		t.Errorf("got %s %q, want passed OK", rec.Status, rec.Details)
	}
	if rec.Attempts != 1 || *calls != 1 {
		t.Errorf("attempts = %d, calls = %d, want 1/1", rec.Attempts, *calls)
	}
	if rec.Duration < 0 {
		t.Errorf("negative duration %v", rec.Duration)
	}
	if rec.CommandsRun == nil {
		t.Error("CommandsRun should be empty, not nil")
	}
}

func TestRun_FailThenPassOnRetry(t *testing.T) {
	op, calls := scripted(
		step{out: Outcome{Status: StatusFailed, Details: "failed initially"}},
		step{out: Outcome{Status: StatusPassed, Details: "OK on retry", CommandsRun: []string{"ping"}}},
	)
	rec := NewRunner().Run(context.Background(), "retry_pass", op, fastRetry)

	if rec.Status != StatusPassed || rec.Details != "OK on retry" {
		t.Errorf("got %s %q", rec.Status, rec.Details)
	}
	if rec.Attempts != 2 || *calls != 2 {
		t.Errorf("attempts = %d, calls = %d, want 2/2", rec.Attempts, *calls)
	}
	if len(rec.CommandsRun) != 1 || rec.CommandsRun[0] != "ping" {
		t.Errorf("CommandsRun = %v", rec.CommandsRun)
	}
}

func TestRun_FailBothTimes(t *testing.T) {
	op, calls := scripted(
		step{out: Outcome{Status: StatusFailed, Details: "always fails"}},
		step{out: Outcome{Status: StatusFailed, Details: "always fails"}},
	)
	rec := NewRunner().Run(context.Background(), "always_fail", op, fastRetry)

	if rec.Status != StatusFailed || rec.Details != "always fails" {
		t.Errorf("got %s %q", rec.Status, rec.Details)
	}
	if rec.Attempts != 2 || *calls != 2 {
		t.Errorf("attempts = %d, calls = %d, want 2/2", rec.Attempts, *calls)
	}
}

func TestRun_RetryDisabled(t *testing.T) {
	tests := []struct {
		name string
		step step
		want Status
	}{
		{"failed", step{out: Outcome{Status: StatusFailed, Details: "no retry"}}, StatusFailed},
		{"fault", step{err: errors.New("boom")}, StatusError},
		{"panic", step{panic: "kaboom"}, StatusError},
		{"passed", step{out: Outcome{Status: StatusPassed}}, StatusPassed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, calls := scripted(tt.step, tt.step)
			rec := NewRunner().Run(context.Background(), "no_retry", op, Policy{Retry: false, Delay: time.Millisecond})
			if rec.Status != tt.want {
				t.Errorf("status = %s, want %s", rec.Status, tt.want)
			}
			if rec.Attempts != 1 || *calls != 1 {
				t.Errorf("attempts = %d, calls = %d, want 1/1", rec.Attempts, *calls)
			}
		})
	}
}

func TestRun_FaultWithoutRetry(t *testing.T) {
	op, _ := scripted(step{err: errors.New("Sync Test Exception")})
	rec := NewRunner().Run(context.Background(), "sync_exception", op, Policy{})

	if rec.Status != StatusError {
		t.Fatalf("status = %s, want error", rec.Status)
	}
	want := "Error during sync_exception after 1 attempt(s): errorString - Sync Test Exception"
	if rec.Details != want {
		t.Errorf("details = %q\nwant      %q", rec.Details, want)
	}
}

func TestRun_FaultBothAttempts(t *testing.T) {
	op, calls := scripted(
		step{err: errors.New("first")},
		step{err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}},
	)
	rec := NewRunner().Run(context.Background(), "ping_check", op, fastRetry)

	if rec.Status != StatusError || rec.Attempts != 2 || *calls != 2 {
		t.Fatalf("got %s attempts=%d calls=%d", rec.Status, rec.Attempts, *calls)
	}
	if !strings.HasPrefix(rec.Details, "Error during ping_check after 2 attempt(s): OpError - ") {
		t.Errorf("details = %q", rec.Details)
	}
	if strings.Contains(rec.Details, "first") {
		t.Errorf("details should describe the final attempt only: %q", rec.Details)
	}
}

func TestRun_FaultThenPass(t *testing.T) {
	op, _ := scripted(
		step{err: errors.New("transient")},
		step{out: Outcome{Status: StatusPassed, Details: "recovered"}},
	)
	rec := NewRunner().Run(context.Background(), "clock_sync_check", op, fastRetry)

	if rec.Status != StatusPassed || rec.Attempts != 2 {
		t.Fatalf("got %s attempts=%d, want passed/2", rec.Status, rec.Attempts)
	}
	if rec.Details != "recovered" {
		t.Errorf("details should come from the second attempt, got %q", rec.Details)
	}
}

func TestRun_FailedThenFaultRewritesDetails(t *testing.T) {
	op, _ := scripted(
		step{out: Outcome{Status: StatusFailed, Details: "slow"}},
		step{panic: fmt.Errorf("nil map")},
	)
	rec := NewRunner().Run(context.Background(), "software_version_check", op, fastRetry)

	want := "Error during software_version_check after 2 attempt(s): panic - nil map"
	if rec.Status != StatusError || rec.Details != want {
		t.Errorf("got %s %q, want error %q", rec.Status, rec.Details, want)
	}
}

func TestRun_MissingFieldsDefault(t *testing.T) {
	op, _ := scripted(step{out: Outcome{}})
	rec := NewRunner().Run(context.Background(), "empty", op, Policy{})

	if rec.Status != StatusFailed {
		t.Errorf("missing status should be failed, got %s", rec.Status)
	}
	if rec.Details != noDetails {
		t.Errorf("details = %q, want default", rec.Details)
	}
	if rec.CommandsRun == nil || len(rec.CommandsRun) != 0 {
		t.Errorf("CommandsRun = %#v, want empty", rec.CommandsRun)
	}
}

func TestRun_DurationIsLastAttemptOnly(t *testing.T) {
	base := time.Unix(0, 0)
	ticks := []time.Duration{0, 3 * time.Second, 10 * time.Second, 10*time.Second + 250*time.Millisecond}
	i := 0
	r := NewRunner()
	r.now = func() time.Time {
		d := ticks[i]
		i++
		return base.Add(d)
	}

	op, _ := scripted(
		step{out: Outcome{Status: StatusFailed}},
		step{out: Outcome{Status: StatusPassed}},
	)
	rec := r.Run(context.Background(), "timed", op, Policy{Retry: true})

	if rec.Duration != 250*time.Millisecond {
		t.Errorf("Duration = %v, want 250ms (last attempt only)", rec.Duration)
	}
	if rec.DurationSeconds() != 0.25 {
		t.Errorf("DurationSeconds = %v, want 0.25", rec.DurationSeconds())
	}
}

func TestRun_RetryDelayApplied(t *testing.T) {
	op, _ := scripted(
		step{out: Outcome{Status: StatusFailed}},
		step{out: Outcome{Status: StatusFailed}},
	)
	start := time.Now()
	NewRunner().Run(context.Background(), "delayed", op, Policy{Retry: true, Delay: 30 * time.Millisecond})
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("expected retry delay of at least 30ms, run took %v", elapsed)
	}
}

type kindErr struct{}

func (kindErr) Error() string { return "drift source unavailable" }
func (kindErr) Kind() string  { return "ClockSourceError" }

func TestFaultKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"errors.New", errors.New("x"), "errorString"},
		{"wrapped", fmt.Errorf("probe: %w", &net.OpError{Op: "dial", Err: errors.New("x")}), "OpError"},
		{"kind method", fmt.Errorf("outer: %w", kindErr{}), "ClockSourceError"},
		{"deadline", context.DeadlineExceeded, "deadlineExceededError"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := faultKind(tt.err); got != tt.want {
				t.Errorf("faultKind = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPolicyMaxAttempts(t *testing.T) {
	if got := (Policy{Retry: true}).MaxAttempts(); got != 2 {
		t.Errorf("retry policy MaxAttempts = %d, want 2", got)
	}
	if got := (Policy{}).MaxAttempts(); got != 1 {
		t.Errorf("no-retry policy MaxAttempts = %d, want 1", got)
	}
}
