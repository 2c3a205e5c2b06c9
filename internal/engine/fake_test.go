// internal/engine/fake_test.go
package engine

import (
	"context"
	"errors"
	"sync"
)

// fakeRow is an in-memory FieldHandle. In deferred mode animated
// transitions and indicator fades queue until step or flush runs them,
// in call order, the way a UI animation queue does.
type fakeRow struct {
	mu sync.Mutex

	visible        bool
	content        string
	value          string
	indicators     int
	indicatorShown bool
	maxIndicators  int
	setValues      []string

	deferred bool
	pending  []func()
}

func newFakeRow(content string) *fakeRow {
	return &fakeRow{visible: true, content: content, value: content}
}

func (r *fakeRow) run(animate bool, action func()) {
	r.mu.Lock()
	if r.deferred && animate {
		r.pending = append(r.pending, action)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	action()
}

func (r *fakeRow) Show(animate bool, done func()) {
	r.run(animate, func() {
		r.mu.Lock()
		r.visible = true
		r.mu.Unlock()
		done()
	})
}

func (r *fakeRow) Hide(animate bool, done func()) {
	r.run(animate, func() {
		r.mu.Lock()
		r.visible = false
		r.mu.Unlock()
		done()
	})
}

func (r *fakeRow) Content() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.content
}

func (r *fakeRow) SetContent(content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.content = content
}

func (r *fakeRow) SetValue(value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value = value
	r.setValues = append(r.setValues, value)
}

func (r *fakeRow) HasRequiredIndicator() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.indicators > 0
}

func (r *fakeRow) AddRequiredIndicator(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indicators == 0 {
		r.indicators++
	}
	if r.indicators > r.maxIndicators {
		r.maxIndicators = r.indicators
	}
	r.indicatorShown = true
}

func (r *fakeRow) RemoveRequiredIndicator(commit func() bool) {
	r.mu.Lock()
	r.indicatorShown = false
	r.mu.Unlock()
	r.run(true, func() {
		remove := commit()
		r.mu.Lock()
		defer r.mu.Unlock()
		if remove {
			r.indicators = 0
			return
		}
		r.indicatorShown = r.indicators > 0
	})
}

// step runs the oldest queued transition. It reports false when idle.
func (r *fakeRow) step() bool {
	r.mu.Lock()
	if len(r.pending) == 0 {
		r.mu.Unlock()
		return false
	}
	action := r.pending[0]
	r.pending = r.pending[1:]
	r.mu.Unlock()
	action()
	return true
}

func (r *fakeRow) flush() {
	for r.step() {
	}
}

func (r *fakeRow) snapshot() (visible bool, indicators int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.visible, r.indicators
}

type fakeForm map[string]*fakeRow

func (f fakeForm) Resolve(field string) (FieldHandle, bool) {
	r, ok := f[field]
	if !ok {
		return nil, false
	}
	return r, true
}

func (f fakeForm) setDeferred(on bool) {
	for _, r := range f {
		r.deferred = on
	}
}

func (f fakeForm) flush() {
	for _, r := range f {
		r.flush()
	}
}

var errNoDefault = errors.New("default unavailable")

type failingDefaults struct{}

func (failingDefaults) DefaultValue(context.Context, string) (string, error) {
	return "", errNoDefault
}
