package job_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/xraph/performs/backoff"
	"github.com/xraph/performs/job"
)

var (
	errTimeout = errors.New("upstream timeout")
	errGone    = errors.New("record gone")
)

func TestRules_DefaultWhenNothingMatches(t *testing.T) {
	rules := job.Rules{}.With(job.DiscardOn(errGone))

	d := rules.Decide(errors.New("other"))
	if d.Action != job.ActionDefault {
		t.Errorf("Action = %v, want default", d.Action)
	}
}

func TestRules_MatchWrappedErrors(t *testing.T) {
	rules := job.Rules{}.With(job.DiscardOn(errGone))

	d := rules.Decide(fmt.Errorf("perform: %w", errGone))
	if d.Action != job.ActionDiscard {
		t.Errorf("Action = %v, want discard", d.Action)
	}
}

func TestRules_RetryDefaults(t *testing.T) {
	r := job.RetryOn(errTimeout, 0, nil)
	if r.Attempts != job.DefaultRetryAttempts {
		t.Errorf("Attempts = %d, want %d", r.Attempts, job.DefaultRetryAttempts)
	}
	if got := r.Wait.Delay(1); got != 3*time.Second {
		t.Errorf("Wait.Delay(1) = %v, want 3s", got)
	}
}

func TestRules_WithFillsRetryDefaults(t *testing.T) {
	rules := job.Rules{}.With(job.Rule{
		Name:   "retry:bare",
		Action: job.ActionRetry,
		Match:  func(error) bool { return true },
	})
	if rules[0].Attempts != job.DefaultRetryAttempts || rules[0].Wait == nil {
		t.Fatalf("rule = %+v, want default attempts and wait", rules[0])
	}

	d := job.Rules{{Name: "raw", Action: job.ActionRetry, Match: func(error) bool { return true }}}.Decide(errTimeout)
	if d.Attempts != job.DefaultRetryAttempts || d.Wait == nil {
		t.Errorf("Decide = %+v, want default attempts and wait", d)
	}

	discard := job.Rules{}.With(job.DiscardOn(errGone))
	if discard[0].Wait != nil || discard[0].Attempts != 0 {
		t.Errorf("discard rule changed: %+v", discard[0])
	}
}

func TestRules_LaterRuleWins(t *testing.T) {
	rules := job.Rules{}.
		With(job.RetryIf("any", func(error) bool { return true }, 2, nil)).
		With(job.DiscardOn(errGone))

	if d := rules.Decide(errGone); d.Action != job.ActionDiscard {
		t.Errorf("errGone: Action = %v, want discard", d.Action)
	}
	if d := rules.Decide(errTimeout); d.Action != job.ActionRetry || d.Attempts != 2 {
		t.Errorf("errTimeout: got %+v, want retry with 2 attempts", d)
	}
}

func TestRules_WithReplacesSameName(t *testing.T) {
	rules := job.Rules{}.
		With(job.RetryOn(errTimeout, 3, nil)).
		With(job.RetryOn(errTimeout, 7, backoff.NewConstant(time.Second)))

	if len(rules) != 1 {
		t.Fatalf("len(rules) = %d, want 1", len(rules))
	}
	if rules[0].Attempts != 7 {
		t.Errorf("Attempts = %d, want 7", rules[0].Attempts)
	}
}

func TestState_Terminal(t *testing.T) {
	tests := []struct {
		state job.State
		want  bool
	}{
		{job.StatePending, false},
		{job.StateRunning, false},
		{job.StateRetrying, false},
		{job.StateCompleted, true},
		{job.StateFailed, true},
		{job.StateDiscarded, true},
		{job.StateCancelled, true},
	}
	for _, tt := range tests {
		if got := tt.state.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestNew_AppliesOptions(t *testing.T) {
	runAt := time.Now().Add(time.Hour).UTC()
	j := job.New("report", []byte(`{}`), job.WithQueue("low"), job.WithPriority(4), job.WithRunAt(runAt))

	if j.State != job.StatePending {
		t.Errorf("State = %q, want pending", j.State)
	}
	if j.Queue != "low" || j.Priority != 4 {
		t.Errorf("Queue/Priority = %q/%d, want low/4", j.Queue, j.Priority)
	}
	if !j.RunAt.Equal(runAt) {
		t.Errorf("RunAt = %v, want %v", j.RunAt, runAt)
	}
	if !j.Scheduled(time.Now()) {
		t.Error("expected job to be scheduled in the future")
	}
	if j.MaxRetries != job.DefaultOptions().MaxRetries {
		t.Errorf("MaxRetries = %d, want default", j.MaxRetries)
	}
}
