// internal/engine/handle.go
package engine

import "context"

// FieldHandle is the capability set the engine needs from one dependent
// field's rendered row. Handles are obtained once per field through a
// Resolver and reused for the lifetime of the engine.
//
// Transition methods take a completion callback. A handle may run it
// synchronously (no animation) or later from any goroutine; the
// engine re-validates intent inside every callback.
type FieldHandle interface {
	// Show makes the row visible and calls done when the transition ends.
	Show(animate bool, done func())

	// Hide makes the row invisible and calls done when the transition ends.
	Hide(animate bool, done func())

	// Content returns the row's live inner content.
	Content() string

	// SetContent replaces the row's inner content.
	SetContent(content string)

	// SetValue assigns the field's input value.
	SetValue(value string)

	// HasRequiredIndicator reports whether a required marker is attached,
	// including one that is currently fading out.
	HasRequiredIndicator() bool

	// AddRequiredIndicator ensures exactly one visible required marker.
	// It must not insert a second marker when one already exists.
	AddRequiredIndicator(markup string)

	// RemoveRequiredIndicator fades the marker out and then calls commit.
	// The marker node is deleted only when commit returns true; otherwise
	// it is left in place and visible.
	RemoveRequiredIndicator(commit func() bool)
}

// Resolver maps a field shortname to its row handle. ok is false when the
// current form does not render the field.
type Resolver interface {
	Resolve(field string) (FieldHandle, bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(field string) (FieldHandle, bool)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(field string) (FieldHandle, bool) {
	return f(field)
}

// DefaultLoader supplies the value a field would have on a brand-new entity.
type DefaultLoader interface {
	DefaultValue(ctx context.Context, field string) (string, error)
}

// DefaultLoaderFunc adapts a function to DefaultLoader.
type DefaultLoaderFunc func(ctx context.Context, field string) (string, error)

// DefaultValue implements DefaultLoader.
func (f DefaultLoaderFunc) DefaultValue(ctx context.Context, field string) (string, error) {
	return f(ctx, field)
}

// StaticDefaults is a DefaultLoader backed by a fixed map. Missing fields
// default to the empty string.
type StaticDefaults map[string]string

// DefaultValue implements DefaultLoader.
func (d StaticDefaults) DefaultValue(_ context.Context, field string) (string, error) {
	return d[field], nil
}
