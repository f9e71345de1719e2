package store

import (
	"encoding/json"
	"fmt"
	"strings"
)

// OpKind selects how an Op changes its target field
type OpKind string

const (
	OpSet    OpKind = "set"
	OpAppend OpKind = "append"
)

// Op changes the field at Path of a JSON document
type Op struct {
	Kind  OpKind
	Path  []string
	Value any
}

// Patch is an ordered list of ops applied all-or-nothing
type Patch []Op

// Set replaces the field at path, creating intermediate objects
func Set(value any, path ...string) Op {
	return Op{Kind: OpSet, Path: path, Value: value}
}

// Append adds the elements of the slice value to the end of the list at path
func Append(value any, path ...string) Op {
	return Op{Kind: OpAppend, Path: path, Value: value}
}

func (o Op) String() string {
	return fmt.Sprintf("%s %s", o.Kind, strings.Join(o.Path, "."))
}

// Apply returns doc with every op applied. doc is never modified; on error
// nothing is returned.
func (p Patch) Apply(doc []byte) ([]byte, error) {
	root := map[string]any{}
	if len(doc) > 0 {
		if err := json.Unmarshal(doc, &root); err != nil {
			return nil, fmt.Errorf("%w: document is not an object: %v", ErrInvalidPatch, err)
		}
	}

	for _, op := range p {
		if err := op.apply(root); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPatch, op, err)
		}
	}

	return json.Marshal(root)
}

func (o Op) apply(root map[string]any) error {
	if len(o.Path) == 0 {
		return fmt.Errorf("empty path")
	}

	value, err := normalize(o.Value)
	if err != nil {
		return err
	}

	parent := root
	for _, key := range o.Path[:len(o.Path)-1] {
		next, ok := parent[key]
		if !ok || next == nil {
			child := map[string]any{}
			parent[key] = child
			parent = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%q is not an object", key)
		}
		parent = child
	}

	last := o.Path[len(o.Path)-1]

	switch o.Kind {
	case OpSet:
		parent[last] = value
	case OpAppend:
		items, ok := value.([]any)
		if !ok {
			return fmt.Errorf("append value must be a list")
		}
		var current []any
		if existing, ok := parent[last]; ok && existing != nil {
			current, ok = existing.([]any)
			if !ok {
				return fmt.Errorf("%q is not a list", last)
			}
		}
		parent[last] = append(current, items...)
	default:
		return fmt.Errorf("unknown op %q", o.Kind)
	}

	return nil
}

// normalize converts a Go value into its generic JSON form
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
