// internal/engine/visibility.go
package engine

import "fmt"

// Visibility is the per-field transition state.
type Visibility int

const (
	Visible Visibility = iota
	Hiding
	Hidden
	Showing
)

func (v Visibility) String() string {
	switch v {
	case Visible:
		return "visible"
	case Hiding:
		return "hiding"
	case Hidden:
		return "hidden"
	case Showing:
		return "showing"
	default:
		return fmt.Sprintf("visibility(%d)", int(v))
	}
}

// transition tracks one field's visibility and the token of the transition
// that last changed it. A completion callback carrying an older token is
// stale and must not touch the state.
type transition struct {
	state Visibility
	token uint64
}

// begin starts a transition towards target and returns its token.
func (t *transition) begin(target Visibility) uint64 {
	t.token++
	t.state = target
	return t.token
}

// complete settles a pending transition if tok is still current.
func (t *transition) complete(tok uint64) bool {
	if tok != t.token {
		return false
	}
	switch t.state {
	case Hiding:
		t.state = Hidden
	case Showing:
		t.state = Visible
	default:
		return false
	}
	return true
}
