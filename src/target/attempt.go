package target

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Reason classifies a failed attempt.
type Reason string

const (
	ReasonTimeout     Reason = "timeout"
	ReasonRejected    Reason = "rejected"
	ReasonCredentials Reason = "credentials"
)

// Attempt records one probe of one target.
type Attempt struct {
	Target    string
	Kind      Kind
	Role      Role
	Transport string
	// Number counts from 1 per target.
	Number   int
	Reason   Reason // empty on success
	Err      error
	Start    time.Time
	Duration time.Duration
}

// OK reports whether the attempt succeeded.
func (a Attempt) OK() bool { return a.Err == nil }

// AttemptLog is the ordered record of one resolution.
type AttemptLog struct {
	ID       string
	Strategy Strategy
	Attempts []Attempt
}

// Len returns the number of attempts made.
func (l *AttemptLog) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Attempts)
}

// Last returns the most recent attempt.
func (l *AttemptLog) Last() (Attempt, bool) {
	if l.Len() == 0 {
		return Attempt{}, false
	}
	return l.Attempts[len(l.Attempts)-1], true
}

// ActiveTarget is a target that answered, with its secrets resolved.
type ActiveTarget struct {
	Target
	// Secrets are the resolved credential fields.
	Secrets map[string]string
	// Attempts is how many probes this target needed.
	Attempts int
}

// String describes the target without revealing secret values.
func (a *ActiveTarget) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s %s)", a.ID(), a.Transport, a.Location())
	keys := make([]string, 0, len(a.Secrets))
	for k := range a.Secrets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, redact(k, a.Secrets[k]))
	}
	return b.String()
}

// redact shows usernames and access keys, masks everything else.
func redact(field, value string) string {
	switch field {
	case "username", "access_key":
		return value
	}
	if value == "" {
		return ""
	}
	return "***"
}
