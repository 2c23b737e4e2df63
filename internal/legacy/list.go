package legacy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// List is a multi-valued legacy element. The XML-to-JSON projection used by
// the legacy configuration service collapses single-element collections into
// a bare object and omits empty ones, so a List accepts null, a single value,
// or an array and always exposes a slice.
type List[T any] []T

// Items returns the underlying slice, never nil.
func (l List[T]) Items() []T {
	if l == nil {
		return []T{}
	}
	return []T(l)
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *List[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		*l = List[T]{}
		return nil
	case trimmed[0] == '[':
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		*l = List[T](items)
		return nil
	default:
		var item T
		if err := json.Unmarshal(trimmed, &item); err != nil {
			return err
		}
		*l = List[T]{item}
		return nil
	}
}

// MarshalJSON always writes an array so cached documents decode back into
// the same shape.
func (l List[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Items())
}

// UnmarshalYAML implements yaml.Unmarshaler with the same coercion rules as
// UnmarshalJSON.
func (l *List[T]) UnmarshalYAML(node *yaml.Node) error {
	switch {
	case isYAMLNull(node):
		*l = List[T]{}
		return nil
	case node.Kind == yaml.SequenceNode:
		var items []T
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = List[T](items)
		return nil
	default:
		var item T
		if err := node.Decode(&item); err != nil {
			return err
		}
		*l = List[T]{item}
		return nil
	}
}

// Text is a scalar legacy value. Empty XML elements are projected as null or
// as an empty object, and numeric or boolean looking content may arrive
// unquoted; Text normalises all of these to a string.
type Text string

// String returns the text value.
func (t Text) String() string { return string(t) }

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*t = ""
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*t = Text(s)
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return err
		}
		if len(obj) != 0 {
			return fmt.Errorf("legacy: cannot use non-empty object as text: %s", trimmed)
		}
		*t = ""
	case '[':
		return fmt.Errorf("legacy: cannot use array as text: %s", trimmed)
	default:
		// Numbers and booleans keep their literal form.
		*t = Text(trimmed)
	}
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *Text) UnmarshalYAML(node *yaml.Node) error {
	switch {
	case isYAMLNull(node):
		*t = ""
	case node.Kind == yaml.ScalarNode:
		*t = Text(node.Value)
	case node.Kind == yaml.MappingNode && len(node.Content) == 0:
		*t = ""
	default:
		return fmt.Errorf("legacy: line %d: cannot use %s as text", node.Line, yamlKind(node.Kind))
	}
	return nil
}

// Bool is a legacy boolean that may arrive as a JSON boolean or as the
// strings "true"/"false".
type Bool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *Bool) UnmarshalJSON(data []byte) error {
	var t Text
	if err := t.UnmarshalJSON(data); err != nil {
		return err
	}
	return b.parse(string(t))
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *Bool) UnmarshalYAML(node *yaml.Node) error {
	var t Text
	if err := t.UnmarshalYAML(node); err != nil {
		return err
	}
	return b.parse(string(t))
}

func (b *Bool) parse(s string) error {
	if s == "" {
		*b = false
		return nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("legacy: invalid boolean %q: %w", s, err)
	}
	*b = Bool(v)
	return nil
}

func isYAMLNull(node *yaml.Node) bool {
	return node == nil || (node.Kind == yaml.ScalarNode && node.Tag == "!!null")
}

func yamlKind(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.AliasNode:
		return "alias"
	default:
		return "node"
	}
}
