package container

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

// State is the lifecycle state of a singleton cache entry.
type State int

const (
	// StateNotStarted means no entry exists for the name.
	StateNotStarted State = iota
	// StateInProgress means the bean is being instantiated and has no identity yet.
	StateInProgress
	// StateEarlyExposed means the raw instance exists and may be handed out
	// to break setter cycles.
	StateEarlyExposed
	// StatePublished means the bean is fully initialized.
	StatePublished
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateInProgress:
		return "in-progress"
	case StateEarlyExposed:
		return "early-exposed"
	case StatePublished:
		return "published"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// resolution is one top-level lookup and every nested lookup it triggers.
// It owns the entries it creates; other resolutions wait for them.
type resolution struct {
	id    uint64
	stack []string

	// waitingFor is the resolution this one is blocked on. Guarded by the
	// cache mutex.
	waitingFor *resolution

	done atomic.Bool
}

func (r *resolution) finish() { r.done.Store(true) }

func (r *resolution) push(name string) { r.stack = append(r.stack, name) }
func (r *resolution) pop()             { r.stack = r.stack[:len(r.stack)-1] }

// chain renders the creation path that leads back to name.
func (r *resolution) chain(name string) string {
	path := r.stack
	if i := slices.Index(path, name); i >= 0 {
		path = path[i:]
	}
	return strings.Join(append(slices.Clone(path), name), " -> ")
}

type entry struct {
	state State
	owner *resolution
	bean  any
	raw   any // instance before post processing, used for destruction

	// early computes the reference handed out while the entry is
	// EarlyExposed. It runs at most once.
	early     func() (any, error)
	earlyOnce sync.Once
	earlyRef  any
	earlyErr  error
	handedOut bool

	def *Definition
}

func (e *entry) earlyReference() (any, error) {
	e.earlyOnce.Do(func() {
		e.earlyRef, e.earlyErr = e.early()
	})
	return e.earlyRef, e.earlyErr
}

// singletonCache is the single map from canonical name to entry. All state
// transitions happen under mu; waiting resolutions block on cond.
type singletonCache struct {
	mu      sync.Mutex
	cond    *sync.Cond
	entries map[string]*entry
	order   []string // publication order

	// dependents[name] lists the beans name was injected into during its
	// current lifetime.
	dependents map[string][]string
}

func newSingletonCache() *singletonCache {
	sc := &singletonCache{entries: make(map[string]*entry), dependents: make(map[string][]string)}
	sc.cond = sync.NewCond(&sc.mu)
	return sc
}

// acquire returns either a usable bean (found=true) or an entry the caller
// now owns and must resolve with publish or abandon.
func (sc *singletonCache) acquire(res *resolution, name string, def *Definition) (bean any, found bool, owned *entry, err error) {
	sc.mu.Lock()
	for {
		e, ok := sc.entries[name]
		if !ok {
			e = &entry{state: StateInProgress, owner: res, def: def}
			sc.entries[name] = e
			delete(sc.dependents, name)
			sc.mu.Unlock()
			return nil, false, e, nil
		}
		if e.state == StatePublished {
			sc.mu.Unlock()
			return e.bean, true, nil, nil
		}

		if e.owner == res || sc.waitCycle(res, e.owner) {
			if e.state != StateEarlyExposed {
				chain := res.chain(name)
				if e.owner != res {
					chain += " (held by a concurrent lookup)"
				}
				sc.mu.Unlock()
				return nil, false, nil, newBeanError(name, "create", ErrCircularDependency,
					fmt.Errorf("unresolvable circular reference: %s", chain))
			}
			e.handedOut = true
			sc.mu.Unlock()
			ref, err := e.earlyReference()
			if err != nil {
				return nil, false, nil, newBeanError(name, "early-reference", ErrInitialization, err)
			}
			return ref, true, nil, nil
		}

		res.waitingFor = e.owner
		sc.cond.Wait()
		res.waitingFor = nil
	}
}

// waitCycle reports whether owner, transitively, waits on res. Must hold mu.
func (sc *singletonCache) waitCycle(res, owner *resolution) bool {
	for r := owner; r != nil; r = r.waitingFor {
		if r == res {
			return true
		}
	}
	return false
}

// expose moves an owned entry to EarlyExposed.
func (sc *singletonCache) expose(e *entry, early func() (any, error)) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	e.early = early
	e.state = StateEarlyExposed
}

// earlyState returns whether the early reference was handed out and, if so,
// its value.
func (sc *singletonCache) earlyState(e *entry) (bool, any, error) {
	sc.mu.Lock()
	handed := e.handedOut
	sc.mu.Unlock()
	if !handed {
		return false, nil, nil
	}
	ref, err := e.earlyReference()
	return true, ref, err
}

func (sc *singletonCache) publish(name string, e *entry, bean, raw any) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	e.state = StatePublished
	e.bean = bean
	e.raw = raw
	e.owner = nil
	e.early = nil
	sc.order = append(sc.order, name)
	sc.cond.Broadcast()
}

// abandon drops an entry whose creation failed so later lookups start over.
// It reports whether the entry's early reference had been handed out.
func (sc *singletonCache) abandon(name string, e *entry) bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.entries[name] == e {
		delete(sc.entries, name)
	}
	sc.cond.Broadcast()
	return e.handedOut
}

// addDependent records that name was injected into dependent.
func (sc *singletonCache) addDependent(name, dependent string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if !slices.Contains(sc.dependents[name], dependent) {
		sc.dependents[name] = append(sc.dependents[name], dependent)
	}
}

// takeDependents removes and returns the beans name was injected into.
func (sc *singletonCache) takeDependents(name string) []string {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	out := sc.dependents[name]
	delete(sc.dependents, name)
	return out
}

// register stores an externally built bean as published.
func (sc *singletonCache) register(name string, bean any) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if _, ok := sc.entries[name]; ok {
		return newBeanError(name, "register", ErrDuplicateBean, fmt.Errorf("singleton already exists"))
	}
	sc.entries[name] = &entry{state: StatePublished, bean: bean, raw: bean}
	sc.order = append(sc.order, name)
	return nil
}

func (sc *singletonCache) published(name string) (any, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if e, ok := sc.entries[name]; ok && e.state == StatePublished {
		return e.bean, true
	}
	return nil, false
}

func (sc *singletonCache) state(name string) State {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if e, ok := sc.entries[name]; ok {
		return e.state
	}
	return StateNotStarted
}

func (sc *singletonCache) names() []string {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return slices.Clone(sc.order)
}

// evict removes a published entry and returns it for destruction.
func (sc *singletonCache) evict(name string) (*entry, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	e, ok := sc.entries[name]
	if !ok || e.state != StatePublished {
		return nil, false
	}
	delete(sc.entries, name)
	sc.order = slices.DeleteFunc(sc.order, func(n string) bool { return n == name })
	return e, true
}

// drain removes every published entry, newest first.
func (sc *singletonCache) drain() ([]string, []*entry) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	names := make([]string, 0, len(sc.order))
	out := make([]*entry, 0, len(sc.order))
	for i := len(sc.order) - 1; i >= 0; i-- {
		name := sc.order[i]
		if e, ok := sc.entries[name]; ok && e.state == StatePublished {
			names = append(names, name)
			out = append(out, e)
			delete(sc.entries, name)
		}
	}
	sc.order = nil
	clear(sc.dependents)
	return names, out
}

// identical compares bean references without panicking on uncomparable
// dynamic types.
func identical(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Pointer, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	}
	return false
}
