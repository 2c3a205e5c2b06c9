// internal/htmlform/row.go
package htmlform

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/solatis/condfield/internal/types"
)

// Row is an engine.FieldHandle over one form row. Transitions are instant:
// completion callbacks run before the method returns.
type Row struct {
	node  *html.Node
	field string
}

// Show removes the hidden attribute.
func (r *Row) Show(_ bool, done func()) {
	removeAttr(r.node, "hidden")
	if done != nil {
		done()
	}
}

// Hide sets the hidden attribute.
func (r *Row) Hide(_ bool, done func()) {
	setAttr(r.node, "hidden", "")
	if done != nil {
		done()
	}
}

// Hidden reports whether the row carries the hidden attribute.
func (r *Row) Hidden() bool {
	_, ok := attr(r.node, "hidden")
	return ok
}

// Content renders the row's children.
func (r *Row) Content() string {
	var b strings.Builder
	for c := r.node.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return ""
		}
	}
	return b.String()
}

// SetContent replaces the row's children with the parsed content.
func (r *Row) SetContent(content string) {
	nodes, err := html.ParseFragment(strings.NewReader(content), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return
	}
	removeChildren(r.node)
	for _, n := range nodes {
		r.node.AppendChild(n)
	}
}

// SetValue assigns value to the row's inputs. Text inputs get a value
// attribute, textareas their text, selects the matching option, and
// checkboxes and radios are checked when their value matches.
func (r *Row) SetValue(value string) {
	input := types.InputName(r.field)
	named := func(n *html.Node) bool {
		name, ok := attr(n, "name")
		return ok && (name == input || strings.HasPrefix(name, input+"["))
	}
	for _, n := range findAll(r.node, named) {
		switch n.Data {
		case "textarea":
			removeChildren(n)
			if value != "" {
				n.AppendChild(&html.Node{Type: html.TextNode, Data: value})
			}
		case "select":
			for _, opt := range findAll(n, func(o *html.Node) bool { return o.Data == "option" }) {
				v, ok := attr(opt, "value")
				if !ok {
					v = strings.TrimSpace(textContent(opt))
				}
				if v == value {
					setAttr(opt, "selected", "")
				} else {
					removeAttr(opt, "selected")
				}
			}
		case "input":
			typ, _ := attr(n, "type")
			switch typ {
			case "checkbox", "radio":
				if v, _ := attr(n, "value"); v == value && value != "" {
					setAttr(n, "checked", "")
				} else {
					removeAttr(n, "checked")
				}
			case "hidden", "submit", "button":
			default:
				setAttr(n, "value", value)
			}
		}
	}
}

// indicator finds the row's required marker. Native markers are either
// .req inside .fitemtitle or an abbr.text-danger.
func (r *Row) indicator() *html.Node {
	if n := find(r.node, withClasses("text-danger")); n != nil {
		return n
	}
	if title := find(r.node, withClasses("fitemtitle")); title != nil {
		return find(title, withClasses("req"))
	}
	return nil
}

// HasRequiredIndicator implements engine.FieldHandle.
func (r *Row) HasRequiredIndicator() bool {
	return r.indicator() != nil
}

// IndicatorCount returns the number of required markers in the row.
func (r *Row) IndicatorCount() int {
	return len(findAll(r.node, withClasses("text-danger")))
}

// AddRequiredIndicator shows the existing marker or appends markup to the
// label container: .float-sm-right in the old layout, otherwise
// .col-form-label .align-items-center, falling back to .fitemtitle.
func (r *Row) AddRequiredIndicator(markup string) {
	if n := r.indicator(); n != nil {
		removeAttr(n, "hidden")
		return
	}

	container := find(r.node, withClasses("float-sm-right"))
	if container == nil {
		if label := find(r.node, withClasses("col-form-label")); label != nil {
			container = find(label, withClasses("align-items-center"))
		}
	}
	if container == nil {
		container = find(r.node, withClasses("fitemtitle"))
	}
	if container == nil {
		container = r.node
	}

	nodes, err := html.ParseFragment(strings.NewReader(markup), container)
	if err != nil {
		return
	}
	for _, n := range nodes {
		container.AppendChild(n)
	}
}

// RemoveRequiredIndicator hides the marker and deletes it if commit agrees.
func (r *Row) RemoveRequiredIndicator(commit func() bool) {
	n := r.indicator()
	if n == nil {
		return
	}
	setAttr(n, "hidden", "")
	if commit == nil || commit() {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		return
	}
	removeAttr(n, "hidden")
}
