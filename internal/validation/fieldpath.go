// internal/validation/fieldpath.go
package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/solatis/condfield/internal/types"
)

/*
 * Field path resolution for submitted snapshots.
 *
 * A snapshot is a JSON object keyed by input name. Most values are plain
 * strings, but some inputs submit structured values: editors send
 * {"text": ..., "format": ...} and multi-value inputs send arrays. A path
 * addresses one value inside that structure, e.g. "profile_field_bio.text"
 * or "profile_field_tags[0]".
 *
 * Paths are bounded by MaxPathDepth at parse and resolution time.
 */

// PathSegment is one step of a path: an object key or an array index.
type PathSegment struct {
	Key     string
	Index   int
	IsIndex bool
}

func (s PathSegment) String() string {
	if s.IsIndex {
		return fmt.Sprintf("[%d]", s.Index)
	}
	return s.Key
}

// ParsePath splits a dotted path with optional [n] index suffixes.
// Bracketed non-numeric suffixes are kept as part of the key, so the editor
// sub-field notation "bio[text]" addresses the literal input "bio[text]".
func ParsePath(path string) ([]PathSegment, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", types.ErrFieldNotFound)
	}
	var segs []PathSegment
	for _, part := range strings.Split(path, ".") {
		key, rest := part, ""
		if i := strings.IndexByte(part, '['); i > 0 {
			if end := strings.IndexByte(part[i:], ']'); end > 1 {
				if _, err := strconv.Atoi(part[i+1 : i+end]); err == nil {
					key, rest = part[:i], part[i:]
				}
			}
		}
		if key == "" {
			return nil, fmt.Errorf("%w: empty segment in %q", types.ErrFieldNotFound, path)
		}
		segs = append(segs, PathSegment{Key: key})
		for rest != "" {
			end := strings.IndexByte(rest, ']')
			if !strings.HasPrefix(rest, "[") || end < 0 {
				return nil, fmt.Errorf("%w: bad index in %q", types.ErrFieldNotFound, path)
			}
			n, err := strconv.Atoi(rest[1:end])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: bad index in %q", types.ErrFieldNotFound, path)
			}
			segs = append(segs, PathSegment{Index: n, IsIndex: true})
			rest = rest[end+1:]
		}
	}
	if len(segs) > types.MaxPathDepth {
		return nil, types.ErrPathTooDeep
	}
	return segs, nil
}

// Resolve walks data along path. Missing keys, out-of-range indices, and
// paths that continue through a scalar or null return ErrFieldNotFound.
func Resolve(path []PathSegment, data any) (any, error) {
	if len(path) > types.MaxPathDepth {
		return nil, types.ErrPathTooDeep
	}
	return resolveRecursive(path, data)
}

func resolveRecursive(path []PathSegment, current any) (any, error) {
	if len(path) == 0 {
		return current, nil
	}
	seg := path[0]

	switch v := current.(type) {
	case map[string]any:
		if seg.IsIndex {
			return nil, types.ErrFieldNotFound
		}
		val, ok := v[seg.Key]
		if !ok {
			return nil, types.ErrFieldNotFound
		}
		return resolveRecursive(path[1:], val)

	case []any:
		if !seg.IsIndex || seg.Index >= len(v) {
			return nil, types.ErrFieldNotFound
		}
		return resolveRecursive(path[1:], v[seg.Index])

	default:
		return nil, types.ErrFieldNotFound
	}
}
