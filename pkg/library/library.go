// Package library keeps the prepared motions of an application, builds them
// from config presets and mixes them on demand.
package library

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/go-mocap/internal/config"
	"github.com/teslashibe/go-mocap/internal/log"
	"github.com/teslashibe/go-mocap/pkg/bvh"
	"github.com/teslashibe/go-mocap/pkg/motion"
)

// ErrNotFound is returned when a motion is not registered.
var ErrNotFound = errors.New("library: motion not found")

// Event kinds.
const (
	EventLoaded  = "motion.loaded"
	EventRemoved = "motion.removed"
	EventMixed   = "mix.completed"
)

// Event describes a change to the library.
type Event struct {
	Kind   string    `json:"kind"`
	Motion string    `json:"motion"`
	Target string    `json:"target,omitempty"`
	Frames int       `json:"frames"`
	Time   time.Time `json:"time"`
}

// Library is a thread-safe registry of prepared motions.
type Library struct {
	mu       sync.RWMutex
	motions  map[string]*motion.Motion
	cache    *clipCache
	sink     motion.DiagnosticSink
	handlers []func(Event)
}

// Option configures a Library.
type Option func(*Library)

// WithLoader sets the capture loader. The default reads BVH files.
func WithLoader(l motion.Loader) Option {
	return func(lib *Library) {
		lib.cache = newClipCache(l)
	}
}

// WithSink sets where mix diagnostics go. The default discards them.
func WithSink(s motion.DiagnosticSink) Option {
	return func(lib *Library) {
		lib.sink = s
	}
}

// New creates an empty library.
func New(opts ...Option) *Library {
	lib := &Library{
		motions: make(map[string]*motion.Motion),
		cache:   newClipCache(bvh.Loader{}),
	}
	for _, opt := range opts {
		opt(lib)
	}
	return lib
}

// Load prepares every preset concurrently, registers the ones that succeed
// and resolves links by name. Failures are joined into the returned error.
func (l *Library) Load(specs []config.MotionSpec) error {
	created := make([]*motion.Motion, len(specs))
	errs := make([]error, len(specs))

	var wg sync.WaitGroup
	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec config.MotionSpec) {
			defer wg.Done()
			m, err := motion.Create(l.cache, spec.Name, spec.Path, spec.Loop, spec.Steps)
			if err != nil {
				errs[i] = err
				return
			}
			created[i] = m
		}(i, spec)
	}
	wg.Wait()

	for _, m := range created {
		if m != nil {
			l.Register(m)
		}
	}

	for i, spec := range specs {
		if spec.Link == "" || created[i] == nil {
			continue
		}
		target, err := l.Get(spec.Link)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to link %q: %w", spec.Name, err))
			continue
		}
		created[i].Link(target)
		log.Debug("motion linked", "motion", spec.Name, "linked", spec.Link)
	}

	return errors.Join(errs...)
}

// Subscribe registers fn to receive library events. Handlers are called
// synchronously, outside the library lock.
func (l *Library) Subscribe(fn func(Event)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers = append(l.handlers, fn)
}

func (l *Library) emit(e Event) {
	e.Time = time.Now()
	l.mu.RLock()
	handlers := l.handlers
	l.mu.RUnlock()
	for _, h := range handlers {
		h(e)
	}
}

// Register adds a motion, replacing any motion with the same name.
func (l *Library) Register(m *motion.Motion) {
	l.mu.Lock()
	l.motions[m.Name] = m
	l.mu.Unlock()

	l.emit(Event{Kind: EventLoaded, Motion: m.Name, Frames: len(m.Frames)})
}

// Unregister removes a motion. Links from other motions to it lapse once
// nothing else holds it.
func (l *Library) Unregister(name string) {
	l.mu.Lock()
	_, ok := l.motions[name]
	delete(l.motions, name)
	l.mu.Unlock()

	if ok {
		l.emit(Event{Kind: EventRemoved, Motion: name})
	}
}

// Get retrieves a motion by name.
func (l *Library) Get(name string) (*motion.Motion, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	m, ok := l.motions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return m, nil
}

// List returns all registered motion names, sorted alphabetically.
func (l *Library) List() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.motions))
	for name := range l.motions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Mixes returns the names of generated motions, sorted.
func (l *Library) Mixes() []string {
	var names []string
	for _, name := range l.List() {
		if strings.Contains(name, motion.MixSeparator) {
			names = append(names, name)
		}
	}
	return names
}

// Search finds motions whose name contains query, ignoring case.
func (l *Library) Search(query string) []string {
	q := strings.ToLower(query)
	var matches []string
	for _, name := range l.List() {
		if strings.Contains(strings.ToLower(name), q) {
			matches = append(matches, name)
		}
	}
	return matches
}

// Count returns the number of registered motions.
func (l *Library) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.motions)
}

// Mix builds the transition map from source to target. With register set,
// each sub-motion is renamed "<source>_<target>_<frame>" and registered.
func (l *Library) Mix(source, target string, register bool) (motion.TransitionMap, error) {
	a, err := l.Get(source)
	if err != nil {
		return nil, err
	}
	b, err := l.Get(target)
	if err != nil {
		return nil, err
	}

	l.mu.RLock()
	sink := l.sink
	l.mu.RUnlock()

	start := time.Now()
	tm := a.Mix(b, sink)
	log.Info("motions mixed",
		"source", source,
		"target", target,
		"transitions", len(tm),
		"elapsed", time.Since(start))

	if register {
		for _, p := range tm.Pairs() {
			sub := tm[p.Source].Motion
			sub.Name = fmt.Sprintf("%s_%d", sub.Name, p.Source)
			l.Register(sub)
		}
	}

	l.emit(Event{Kind: EventMixed, Motion: source, Target: target, Frames: len(tm)})
	return tm, nil
}
