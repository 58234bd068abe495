package target

import (
	"slices"
	"sync"

	"github.com/bytehawks/distillery/src/config"
)

// Strategy names an ordering of candidates. It shares its values with the
// strategy field of the document.
type Strategy = config.Strategy

// OrderFunc returns the targets to attempt, in order. turn counts previous
// resolutions on the same Resolver, for strategies that rotate.
type OrderFunc func(c Candidates, turn uint64) []Target

var (
	strategiesMu sync.RWMutex
	strategies   = map[Strategy]OrderFunc{
		config.StrategyPrimaryWithFallback: primaryWithFallback,
		config.StrategyPrimaryOnly:         primaryOnly,
		config.StrategyRoundRobin:          roundRobin,
	}
)

// Register adds or replaces a strategy. The name also becomes valid in
// documents, so register before loading configuration.
func Register(name Strategy, fn OrderFunc) {
	strategiesMu.Lock()
	defer strategiesMu.Unlock()
	strategies[name] = fn
	config.RegisterStrategy(name)
}

// Order applies a registered strategy.
func Order(name Strategy, c Candidates, turn uint64) ([]Target, error) {
	strategiesMu.RLock()
	fn, ok := strategies[name]
	strategiesMu.RUnlock()
	if !ok {
		return nil, &UnknownStrategyError{Name: name, Known: Known()}
	}
	return fn(c, turn), nil
}

// Known returns the registered strategy names, sorted.
func Known() []Strategy {
	strategiesMu.RLock()
	defer strategiesMu.RUnlock()
	out := make([]Strategy, 0, len(strategies))
	for name := range strategies {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

func primaryWithFallback(c Candidates, _ uint64) []Target {
	return c.All()
}

func primaryOnly(c Candidates, _ uint64) []Target {
	return slices.Clone(c.Primary)
}

// roundRobin starts at a different target on every turn and wraps around.
func roundRobin(c Candidates, turn uint64) []Target {
	all := c.All()
	if len(all) == 0 {
		return all
	}
	start := int(turn % uint64(len(all)))
	return slices.Concat(all[start:], all[:start])
}
