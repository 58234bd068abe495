// Package credential turns credential fields from the configuration into
// secrets. A field is either a literal or exactly one ${NAME} reference, which
// is read from the environment every time it is resolved.
package credential

import (
	"fmt"
	"os"
	"regexp"
	"sort"
)

// envRefRe matches a field that is exactly one environment reference.
var envRefRe = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*)\}$`)

// MissingEnvironmentVariableError is returned when a ${NAME} field names an
// unset variable. An empty but set variable resolves to "".
type MissingEnvironmentVariableError struct {
	Name string
	// Field is the configuration key being resolved, when known.
	Field string
}

func (e *MissingEnvironmentVariableError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: environment variable %s is not set", e.Field, e.Name)
	}
	return fmt.Sprintf("environment variable %s is not set", e.Name)
}

// LookupFunc reads one environment variable.
type LookupFunc func(name string) (string, bool)

// Provider resolves credential fields. The zero value reads the process
// environment. A Provider holds no state and is safe for concurrent use.
type Provider struct {
	lookup LookupFunc
}

// NewProvider returns a Provider reading variables through lookup.
// A nil lookup means os.LookupEnv.
func NewProvider(lookup LookupFunc) *Provider {
	return &Provider{lookup: lookup}
}

// Reference returns the variable name if field is a ${NAME} reference.
func Reference(field string) (string, bool) {
	m := envRefRe.FindStringSubmatch(field)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Resolve returns the secret for one field. Literals are returned unchanged.
func (p *Provider) Resolve(field string) (string, error) {
	name, ok := Reference(field)
	if !ok {
		return field, nil
	}
	v, set := p.lookupFunc()(name)
	if !set {
		return "", &MissingEnvironmentVariableError{Name: name}
	}
	return v, nil
}

// ResolveSet resolves every non-empty field of a set, keyed by field name.
// Empty fields are omitted from the result. The first missing variable in
// key order is returned as the error.
func (p *Provider) ResolveSet(fields map[string]string) (map[string]string, error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]string, len(fields))
	for _, k := range keys {
		if fields[k] == "" {
			continue
		}
		v, err := p.Resolve(fields[k])
		if err != nil {
			if me, ok := err.(*MissingEnvironmentVariableError); ok {
				me.Field = k
			}
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func (p *Provider) lookupFunc() LookupFunc {
	if p == nil || p.lookup == nil {
		return os.LookupEnv
	}
	return p.lookup
}
