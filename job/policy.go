package job

import (
	"errors"
	"fmt"
	"time"

	"github.com/xraph/performs/backoff"
)

// Action is what the executor does with a failed attempt.
type Action int

const (
	// ActionDefault retries up to the job's MaxRetries using the engine's
	// backoff strategy.
	ActionDefault Action = iota
	// ActionRetry retries under the matching rule's attempts and wait.
	ActionRetry
	// ActionDiscard drops the job without further attempts.
	ActionDiscard
)

func (a Action) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionDiscard:
		return "discard"
	default:
		return "default"
	}
}

// Decision is a policy's verdict for one failure.
type Decision struct {
	Action Action
	// Rule names the rule that produced the decision; empty for ActionDefault.
	Rule string
	// Attempts is the total number of executions allowed by a retry rule.
	Attempts int
	// Wait computes the delay before the next retry.
	Wait backoff.Strategy
}

// Policy decides how a failure is handled. Policies are consulted on
// every failure, so they may change after registration.
type Policy interface {
	Decide(err error) Decision
}

// Rule matches failures and maps them to an action.
type Rule struct {
	Name     string
	Action   Action
	Match    func(error) bool
	Attempts int
	Wait     backoff.Strategy
}

// Default retry rule settings.
const (
	DefaultRetryAttempts = 5
)

// DefaultRetryWait is the wait used by retry rules that do not set one.
func DefaultRetryWait() backoff.Strategy { return backoff.NewConstant(3 * time.Second) }

// RetryOn retries failures matching target (errors.Is) until the job has
// run attempts times. Zero attempts and a nil wait select the defaults.
func RetryOn(target error, attempts int, wait backoff.Strategy) Rule {
	return RetryIf(ruleName("retry", target), func(err error) bool {
		return errors.Is(err, target)
	}, attempts, wait)
}

// RetryIf is RetryOn with an arbitrary matcher. name identifies the rule
// so re-registering it replaces the earlier one.
func RetryIf(name string, match func(error) bool, attempts int, wait backoff.Strategy) Rule {
	r := Rule{Name: name, Action: ActionRetry, Match: match, Attempts: attempts, Wait: wait}
	return r.withDefaults()
}

// withDefaults fills the attempts and wait of a retry rule built without
// them.
func (r Rule) withDefaults() Rule {
	if r.Action != ActionRetry {
		return r
	}
	if r.Attempts <= 0 {
		r.Attempts = DefaultRetryAttempts
	}
	if r.Wait == nil {
		r.Wait = DefaultRetryWait()
	}
	return r
}

// DiscardOn drops jobs whose failure matches target (errors.Is).
func DiscardOn(target error) Rule {
	return DiscardIf(ruleName("discard", target), func(err error) bool {
		return errors.Is(err, target)
	})
}

// DiscardIf is DiscardOn with an arbitrary matcher.
func DiscardIf(name string, match func(error) bool) Rule {
	return Rule{Name: name, Action: ActionDiscard, Match: match}
}

func ruleName(kind string, target error) string {
	return fmt.Sprintf("%s:%T:%v", kind, target, target)
}

// Rules is an ordered rule list. Later rules take precedence.
type Rules []Rule

// With returns rs with r added. A rule with the same name is replaced in
// place so repeated registration does not duplicate it. Retry rules
// missing attempts or a wait get the defaults.
func (rs Rules) With(r Rule) Rules {
	r = r.withDefaults()
	out := make(Rules, 0, len(rs)+1)
	replaced := false
	for _, existing := range rs {
		if existing.Name == r.Name {
			out = append(out, r)
			replaced = true
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, r)
	}
	return out
}

// Match returns the most recently added rule matching err.
func (rs Rules) Match(err error) (Rule, bool) {
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i].Match != nil && rs[i].Match(err) {
			return rs[i], true
		}
	}
	return Rule{}, false
}

// Decide implements Policy.
func (rs Rules) Decide(err error) Decision {
	r, ok := rs.Match(err)
	if !ok {
		return Decision{Action: ActionDefault}
	}
	r = r.withDefaults()
	return Decision{Action: r.Action, Rule: r.Name, Attempts: r.Attempts, Wait: r.Wait}
}
