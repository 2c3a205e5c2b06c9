// internal/htmlform/render.go
package htmlform

import (
	"context"
	"fmt"
	"io"

	"github.com/solatis/condfield/internal/engine"
)

// Binder attaches engines to the controlling selects of a form.
type Binder struct {
	// Defaults supplies values for hidden-and-cleared fields.
	Defaults engine.DefaultLoader

	// HideInitially applies to selects without data-hide-initially.
	HideInitially bool

	// RequiredMarkup applies to selects without data-req-html.
	RequiredMarkup string

	// Options are passed to every engine.
	Options []engine.Option
}

// Bind creates and initializes one engine per controlling select, applying
// the rules for each select's current selection.
func (b Binder) Bind(ctx context.Context, f *Form) []*engine.Engine {
	var out []*engine.Engine
	for _, c := range f.Controls() {
		params := c.Params()
		if !c.hideSet {
			params.HideInitially = b.HideInitially
		}
		if params.RequiredMarkup == "" {
			params.RequiredMarkup = b.RequiredMarkup
		}
		e := engine.New(params, f, b.Defaults, b.Options...)
		e.Init(ctx, c.Selected)
		out = append(out, e)
	}
	return out
}

// Render parses the form read from r, binds it, and writes the resulting
// document to w.
func (b Binder) Render(ctx context.Context, r io.Reader, w io.Writer) ([]*engine.Engine, error) {
	f, err := Parse(r)
	if err != nil {
		return nil, err
	}
	engines := b.Bind(ctx, f)
	if err := f.Render(w); err != nil {
		return nil, fmt.Errorf("rendering form: %w", err)
	}
	return engines, nil
}
