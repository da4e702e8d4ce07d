package container

import (
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// AliasRegistry maps alternative names to canonical bean names. Chains are
// allowed (a -> b -> c) but cycles are rejected at registration, so
// CanonicalName always terminates.
type AliasRegistry struct {
	mu      sync.RWMutex
	aliases map[string]string // alias → name
	logger  *zap.Logger
}

// NewAliasRegistry creates an empty registry.
func NewAliasRegistry(logger *zap.Logger) *AliasRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AliasRegistry{aliases: make(map[string]string), logger: logger}
}

// RegisterAlias makes alias resolve to name. Registering a name as its own
// alias removes that alias instead.
func (r *AliasRegistry) RegisterAlias(name, alias string) error {
	if name == "" || alias == "" {
		return fmt.Errorf("%w: alias and name must not be empty", ErrInvalidDefinition)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if name == alias {
		r.remove(alias)
		return nil
	}
	if registered, ok := r.aliases[alias]; ok {
		if registered == name {
			return nil
		}
		return fmt.Errorf("%w: cannot register alias %q for %q: already registered for %q",
			ErrAliasConflict, alias, name, registered)
	}
	if r.resolvesTo(name, alias) {
		return fmt.Errorf("%w: %q already resolves to %q", ErrCircularAlias, name, alias)
	}

	r.aliases[alias] = name
	r.logger.Debug("registered alias", zap.String("alias", alias), zap.String("name", name))
	return nil
}

// RemoveAlias deletes alias.
func (r *AliasRegistry) RemoveAlias(alias string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.aliases[alias]; !ok {
		return fmt.Errorf("%w: no alias %q", ErrBeanNotFound, alias)
	}
	r.remove(alias)
	return nil
}

// IsAlias reports whether name is a registered alias.
func (r *AliasRegistry) IsAlias(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.aliases[name]
	return ok
}

// Aliases returns every alias that resolves to name, directly or through a
// chain, sorted.
func (r *AliasRegistry) Aliases(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for alias := range r.aliases {
		if alias != name && r.resolvesTo(alias, name) {
			out = append(out, alias)
		}
	}
	slices.Sort(out)
	return out
}

// CanonicalName follows the alias chain from name to a name that is not an
// alias.
func (r *AliasRegistry) CanonicalName(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.canonical(name)
}

func (r *AliasRegistry) canonical(name string) string {
	for {
		next, ok := r.aliases[name]
		if !ok {
			return name
		}
		name = next
	}
}

// resolvesTo reports whether following the chain from name reaches target.
// Must hold mu.
func (r *AliasRegistry) resolvesTo(name, target string) bool {
	for {
		next, ok := r.aliases[name]
		if !ok {
			return false
		}
		if next == target {
			return true
		}
		name = next
	}
}

// remove must hold mu.Lock.
func (r *AliasRegistry) remove(alias string) {
	if name, ok := r.aliases[alias]; ok {
		delete(r.aliases, alias)
		r.logger.Debug("removed alias", zap.String("alias", alias), zap.String("name", name))
	}
}
