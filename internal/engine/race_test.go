// internal/engine/race_test.go
package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var selections = []string{"", "A", "B", "Z"}

// expectHidden is the converged hidden set for selected.
func expectHidden(selected string, hideInitially bool) map[string]bool {
	switch selected {
	case "":
		if hideInitially {
			return map[string]bool{"phone": true, "nickname": true}
		}
		return map[string]bool{}
	case "B":
		return map[string]bool{"phone": true, "nickname": true}
	default:
		return map[string]bool{}
	}
}

func TestEngine_StaleHideCompletionIgnored(t *testing.T) {
	ctx := context.Background()
	form := newABForm()
	e := newABEngine(form, false)
	e.Init(ctx, "")
	form.setDeferred(true)

	e.Apply(ctx, "B")
	if st := e.State()["phone"]; st.Visibility != Hiding {
		t.Fatalf("phone visibility = %v, want hiding", st.Visibility)
	}

	e.Apply(ctx, "A")
	if st := e.State()["phone"]; st.Visibility != Showing {
		t.Fatalf("phone visibility = %v, want showing", st.Visibility)
	}

	// The hide completion arrives first and carries an old token.
	form["phone"].step()
	if st := e.State()["phone"]; st.Visibility != Showing {
		t.Errorf("stale hide completion changed visibility to %v", st.Visibility)
	}

	form.flush()
	st := e.State()["phone"]
	if st.Visibility != Visible || st.Hidden {
		t.Errorf("phone state = %+v, want visible", st)
	}
	if visible, ind := form["phone"].snapshot(); !visible || ind != 1 {
		t.Errorf("phone row: visible=%v indicators=%d, want visible with one indicator", visible, ind)
	}
}

func TestEngine_IndicatorSurvivesFastToggle(t *testing.T) {
	ctx := context.Background()
	form := newABForm()
	e := newABEngine(form, false)
	e.Init(ctx, "A")
	form.setDeferred(true)

	// Removal starts under B, but A is selected again before the fade ends.
	e.Apply(ctx, "B")
	e.Apply(ctx, "A")
	e.Apply(ctx, "B")
	e.Apply(ctx, "A")
	form.flush()

	if _, ind := form["phone"].snapshot(); ind != 1 {
		t.Errorf("phone indicators = %d, want 1", ind)
	}
	if form["phone"].maxIndicators > 1 {
		t.Errorf("phone carried %d indicators at once", form["phone"].maxIndicators)
	}
	if !form["phone"].indicatorShown {
		t.Error("phone indicator should be shown")
	}
}

// Property-based test: the final state depends only on the final selection
func TestEngine_PropertyConvergence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("rows converge to the rules of the last selection", prop.ForAll(
		func(ops []int, hideInitially bool, last int) bool {
			ctx := context.Background()
			form := newABForm()
			e := newABEngine(form, hideInitially)
			form.setDeferred(true)
			e.Init(ctx, "")

			// Ops 0-3 select, 4-5 complete one pending phone/nickname step.
			for _, op := range ops {
				switch {
				case op < len(selections):
					e.Apply(ctx, selections[op])
				case op == 4:
					form["phone"].step()
				default:
					form["nickname"].step()
				}
				for _, row := range form {
					if row.maxIndicators > 1 {
						return false
					}
				}
			}
			final := selections[last]
			e.Apply(ctx, final)
			form.flush()

			hidden := expectHidden(final, hideInitially)
			state := e.State()
			for name, row := range form {
				visible, ind := row.snapshot()
				if visible == hidden[name] {
					return false
				}
				if state[name].Hidden != hidden[name] {
					return false
				}
				want := Visible
				if hidden[name] {
					want = Hidden
				}
				if state[name].Visibility != want {
					return false
				}
				required := final == "A" && name == "phone"
				if (ind == 1) != required {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 5)),
		gen.Bool(),
		gen.IntRange(0, len(selections)-1),
	))

	properties.TestingRun(t)
}

func TestEngine_ConcurrentCallbacks(t *testing.T) {
	ctx := context.Background()
	form := newABForm()
	e := newABEngine(form, false)
	e.Init(ctx, "")
	form.setDeferred(true)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		e.Apply(ctx, selections[i%len(selections)])
		for _, row := range form {
			wg.Add(1)
			go func(r *fakeRow) {
				defer wg.Done()
				r.step()
			}(row)
		}
	}
	wg.Wait()

	e.Apply(ctx, "B")
	form.flush()

	for name, st := range e.State() {
		if !st.Hidden || st.Visibility != Hidden {
			t.Errorf("%s state = %+v, want hidden", name, st)
		}
	}
}
