// internal/engine/engine.go
package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/solatis/condfield/internal/conditions"
)

/*
 * Rule evaluation engine.
 *
 * One Engine drives the dependent fields of one controlling field in one
 * form instance. It owns:
 *
 *   hidden   field -> stored content ("" until captured by BeforeSubmit)
 *   vis      field -> visibility state machine with transition token
 *   active   the rule set and selection seen by indicator commits
 *
 * Public methods and completion callbacks are serialized by mu. Handles may
 * invoke completion callbacks synchronously, while the engine is still
 * inside the call that started the transition; such callbacks are queued
 * and drained before mu is released (see post/release). A callback whose
 * token no longer matches the field's current transition is ignored.
 *
 * Indicator commits cannot be queued because the handle needs an answer.
 * They read the active rule through an atomic pointer instead of taking mu.
 */

// DefaultRequiredMarkup is inserted when Params.RequiredMarkup is empty.
const DefaultRequiredMarkup = `<abbr class="initialism text-danger" title="Required">*</abbr>`

// Params configures one engine instance.
type Params struct {
	// Field is the controlling field's shortname.
	Field string

	// Conditions is the stored JSON configuration.
	Conditions string

	// HideInitially hides the full hidden union while nothing is selected.
	HideInitially bool

	// RequiredMarkup is the indicator markup inserted into required rows.
	RequiredMarkup string
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the logger. nil falls back to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClearOnInitialHide resets hidden-and-cleared fields to their default
// value when Init hides them.
func WithClearOnInitialHide(on bool) Option {
	return func(e *Engine) { e.clearOnInitialHide = on }
}

type activeRule struct {
	set      *conditions.Set
	selected string
}

// Engine applies a condition set to the rows of a single form.
type Engine struct {
	params             Params
	defaults           DefaultLoader
	logger             *slog.Logger
	clearOnInitialHide bool

	handles map[string]FieldHandle
	fields  []string

	mu          sync.Mutex
	set         *conditions.Set
	hidden      map[string]string
	vis         map[string]*transition
	selected    string
	initialized bool

	qmu   sync.Mutex
	queue []func()

	active atomic.Pointer[activeRule]
}

// New parses the configuration and resolves a handle for every referenced
// field. Fields without a rendered row are skipped. A broken configuration
// is logged and treated as no conditions.
func New(params Params, resolver Resolver, defaults DefaultLoader, opts ...Option) *Engine {
	e := &Engine{
		params:   params,
		defaults: defaults,
		logger:   slog.Default(),
		handles:  make(map[string]FieldHandle),
		hidden:   make(map[string]string),
		vis:      make(map[string]*transition),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.defaults == nil {
		e.defaults = StaticDefaults(nil)
	}
	if e.params.RequiredMarkup == "" {
		e.params.RequiredMarkup = DefaultRequiredMarkup
	}

	e.set = conditions.ParseOrEmpty(params.Conditions, params.Field, e.logger)
	for _, f := range e.set.AllReferenced() {
		if resolver == nil {
			break
		}
		h, ok := resolver.Resolve(f)
		if !ok || h == nil {
			e.logger.Debug("dependent field not rendered", "field", params.Field, "dependent", f)
			continue
		}
		e.handles[f] = h
		e.fields = append(e.fields, f)
		e.vis[f] = &transition{state: Visible}
	}
	e.active.Store(&activeRule{set: e.set})
	return e
}

// Field returns the controlling field's shortname.
func (e *Engine) Field() string {
	return e.params.Field
}

// Conditions returns the rule set in effect. After Init it carries the
// no-selection condition.
func (e *Engine) Conditions() *conditions.Set {
	return e.active.Load().set
}

// Init hides the hidden union when HideInitially is set, records the rows
// that already carry a native required indicator as the no-selection
// requirement, and applies the rules for current.
func (e *Engine) Init(ctx context.Context, current string) {
	e.run(func() {
		if !e.initialized {
			if e.params.HideInitially {
				union := e.set.HiddenUnion()
				for _, f := range e.fields {
					if union.Contains(f) {
						e.hide(ctx, f, false, e.clearOnInitialHide && e.clearedAnywhere(f))
					}
				}
			}

			var native []string
			for _, f := range e.fields {
				if e.handles[f].HasRequiredIndicator() {
					native = append(native, f)
				}
			}
			e.set = e.set.WithNoSelection(native)
			e.initialized = true
		}
		e.apply(ctx, current)
	})
}

// Apply reconciles every dependent row with the rules for selected. It is
// the change handler of the controlling field.
func (e *Engine) Apply(ctx context.Context, selected string) {
	e.run(func() { e.apply(ctx, selected) })
}

func (e *Engine) apply(ctx context.Context, selected string) {
	e.selected = selected
	e.active.Store(&activeRule{set: e.set, selected: selected})

	if selected == conditions.NoSelection {
		if e.params.HideInitially {
			union := e.set.HiddenUnion()
			for _, f := range e.fields {
				if union.Contains(f) {
					e.hide(ctx, f, true, false)
				}
			}
		} else {
			for _, f := range e.fields {
				e.restore(f)
			}
		}
	} else {
		// An option without a condition hides nothing.
		cond, _ := e.set.Lookup(selected)
		for _, f := range e.fields {
			if _, ok := e.hidden[f]; ok && !cond.Hides(f) {
				e.restore(f)
			}
		}
		for _, f := range e.fields {
			if cond.Hides(f) {
				e.hide(ctx, f, true, cond.Clears(f))
			}
		}
	}

	e.toggleIndicators()
}

// hide records f as hidden and starts the hide transition. Fields already
// hidden are left alone, so clearing happens once per transition.
func (e *Engine) hide(ctx context.Context, f string, animate, clear bool) {
	if _, ok := e.hidden[f]; ok {
		return
	}
	e.hidden[f] = ""
	tok := e.vis[f].begin(Hiding)
	e.handles[f].Hide(animate, e.completion(f, tok))
	if clear {
		e.clear(ctx, f)
	}
}

// restore re-injects captured content and starts the show transition.
func (e *Engine) restore(f string) {
	stored, ok := e.hidden[f]
	if !ok {
		return
	}
	delete(e.hidden, f)
	h := e.handles[f]
	if stored != "" {
		h.SetContent(stored)
	}
	tok := e.vis[f].begin(Showing)
	h.Show(true, e.completion(f, tok))
}

func (e *Engine) clear(ctx context.Context, f string) {
	v, err := e.defaults.DefaultValue(ctx, f)
	if err != nil {
		e.logger.Warn("loading default value failed, field not cleared",
			"field", e.params.Field, "dependent", f, "error", err)
		return
	}
	e.handles[f].SetValue(v)
}

func (e *Engine) clearedAnywhere(f string) bool {
	for _, c := range e.set.Conditions() {
		if c.Clears(f) {
			return true
		}
	}
	return false
}

func (e *Engine) completion(f string, tok uint64) func() {
	return func() {
		e.post(func() {
			if !e.vis[f].complete(tok) {
				e.logger.Debug("stale transition ignored", "dependent", f, "token", tok)
			}
		})
	}
}

// BeforeSubmit captures the live content of every hidden row that has not
// been captured yet and blanks it, so nothing hidden is submitted. A later
// restore puts the captured content back.
func (e *Engine) BeforeSubmit() {
	e.run(func() {
		for _, f := range e.fields {
			stored, ok := e.hidden[f]
			if !ok {
				continue
			}
			h := e.handles[f]
			if stored == "" {
				if content := h.Content(); content != "" {
					e.hidden[f] = content
				}
			}
			h.SetContent("")
		}
	})
}

// Selected returns the value last applied.
func (e *Engine) Selected() string {
	return e.active.Load().selected
}

// FieldState is a point-in-time view of one dependent row.
type FieldState struct {
	Visibility Visibility
	Hidden     bool
	Stored     string
	Indicator  bool
}

// State returns the state of every rendered dependent row.
func (e *Engine) State() map[string]FieldState {
	out := make(map[string]FieldState, len(e.fields))
	e.run(func() {
		for _, f := range e.fields {
			stored, hidden := e.hidden[f]
			out[f] = FieldState{
				Visibility: e.vis[f].state,
				Hidden:     hidden,
				Stored:     stored,
				Indicator:  e.handles[f].HasRequiredIndicator(),
			}
		}
	})
	return out
}

// run executes fn with mu held and drains callbacks queued meanwhile.
func (e *Engine) run(fn func()) {
	e.mu.Lock()
	fn()
	e.release()
}

// post queues a completion callback and runs the queue if nobody holds mu.
// When the caller is the goroutine already holding mu the callback runs
// during that goroutine's release.
func (e *Engine) post(fn func()) {
	e.qmu.Lock()
	e.queue = append(e.queue, fn)
	e.qmu.Unlock()
	if e.mu.TryLock() {
		e.release()
	}
}

// release drains the queue and unlocks mu. A callback queued after the
// drain but before the unlock is picked up by re-acquiring.
func (e *Engine) release() {
	for {
		for fn := e.dequeue(); fn != nil; fn = e.dequeue() {
			fn()
		}
		e.mu.Unlock()
		if !e.queued() || !e.mu.TryLock() {
			return
		}
	}
}

func (e *Engine) dequeue() func() {
	e.qmu.Lock()
	defer e.qmu.Unlock()
	if len(e.queue) == 0 {
		return nil
	}
	fn := e.queue[0]
	e.queue = e.queue[1:]
	return fn
}

func (e *Engine) queued() bool {
	e.qmu.Lock()
	defer e.qmu.Unlock()
	return len(e.queue) > 0
}
