// internal/htmlform/form.go
package htmlform

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/solatis/condfield/internal/engine"
	"github.com/solatis/condfield/internal/types"
)

/*
 * Rendered form binding.
 *
 * A Form wraps a parsed HTML document and resolves field rows under the two
 * layout conventions forms are rendered with:
 *
 *   classic  the row carries id="fitem_id_profile_field_<x>"
 *   boost    an input named profile_field_<x> (or profile_field_<x>[...])
 *            inside a .fitem, whose row is the nearest ancestor carrying
 *            both "fitem" and "row"
 *
 * Controlling selects are discovered by their data-conditions attribute.
 * data-req-html carries the required indicator markup and
 * data-hide-initially the hide-initially flag.
 */

// Form is a parsed, mutable HTML form document.
type Form struct {
	doc *html.Node
}

// Parse reads a complete HTML document or fragment.
func Parse(r io.Reader) (*Form, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing form: %w", err)
	}
	return &Form{doc: doc}, nil
}

// Render writes the document, including any changes made through row
// handles.
func (f *Form) Render(w io.Writer) error {
	return html.Render(w, f.doc)
}

// String renders the document to a string.
func (f *Form) String() string {
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// Resolve implements engine.Resolver.
func (f *Form) Resolve(field string) (engine.FieldHandle, bool) {
	row := f.row(field)
	if row == nil {
		return nil, false
	}
	return &Row{node: row, field: field}, true
}

func (f *Form) row(field string) *html.Node {
	input := types.InputName(field)
	if n := find(f.doc, withID("fitem_id_"+input)); n != nil {
		return n
	}

	named := func(n *html.Node) bool {
		name, ok := attr(n, "name")
		return ok && (name == input || strings.HasPrefix(name, input+"["))
	}
	for _, n := range findAll(f.doc, named) {
		if closest(n.Parent, withClasses("fitem")) == nil {
			continue
		}
		if row := closest(n, withClasses("fitem", "row")); row != nil {
			return row
		}
	}
	return nil
}

// Control describes a controlling select found in the form.
type Control struct {
	Shortname      string
	Selected       string
	Conditions     string
	RequiredMarkup string
	HideInitially  bool

	hideSet bool
}

// Params converts the control into engine parameters.
func (c Control) Params() engine.Params {
	return engine.Params{
		Field:          c.Shortname,
		Conditions:     c.Conditions,
		HideInitially:  c.HideInitially,
		RequiredMarkup: c.RequiredMarkup,
	}
}

// Controls returns every select carrying a condition configuration, in
// document order.
func (f *Form) Controls() []Control {
	selects := findAll(f.doc, func(n *html.Node) bool {
		if n.Data != "select" {
			return false
		}
		_, ok := attr(n, "data-conditions")
		return ok
	})

	var out []Control
	for _, sel := range selects {
		id, _ := attr(sel, "id")
		shortname := strings.TrimPrefix(id, "id_"+types.InputPrefix)
		if shortname == id || shortname == "" {
			name, _ := attr(sel, "name")
			shortname = strings.TrimPrefix(name, types.InputPrefix)
		}
		if shortname == "" {
			continue
		}
		conds, _ := attr(sel, "data-conditions")
		markup, _ := attr(sel, "data-req-html")
		hide, hideSet := attr(sel, "data-hide-initially")
		out = append(out, Control{
			Shortname:      shortname,
			Selected:       selectedOption(sel),
			Conditions:     conds,
			RequiredMarkup: markup,
			HideInitially:  hide == "1" || hide == "true",
			hideSet:        hideSet,
		})
	}
	return out
}

// selectedOption returns the value of the selected option, or "" when the
// select has no explicit selection.
func selectedOption(sel *html.Node) string {
	opt := find(sel, func(n *html.Node) bool {
		_, ok := attr(n, "selected")
		return n.Data == "option" && ok
	})
	if opt == nil {
		return ""
	}
	if v, ok := attr(opt, "value"); ok {
		return v
	}
	return strings.TrimSpace(textContent(opt))
}
