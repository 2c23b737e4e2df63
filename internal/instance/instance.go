// Package instance resolves field values on content instances, the JSON
// documents the delivery GraphQL API returns for authored content.
package instance

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/GyroZepelix/mithril-studio/internal/schema"
)

// systemNamespace holds the system properties of an instance.
const systemNamespace = "craftercms"

var systemProps = map[string]bool{
	"id":           true,
	"path":         true,
	"contentType":  true,
	"dateCreated":  true,
	"dateModified": true,
	"label":        true,
}

// ErrIndexMismatch is matched by errors from ExtractCollectionItem when the
// index path does not fit the field path.
var ErrIndexMismatch = errors.New("instance: index path does not match field path")

// Retrieve walks a dotted path through nested maps and slices. Numeric
// segments index into slices. Missing segments yield nil.
func Retrieve(model any, path string) any {
	if path == "" {
		return model
	}
	cur := model
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			cur = node[part]
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil
			}
			cur = node[i]
		default:
			return nil
		}
	}
	return cur
}

// Prop returns a property of model. System properties are read from the
// craftercms namespace.
func Prop(model map[string]any, name string) any {
	if model == nil {
		return nil
	}
	if systemProps[name] {
		name = systemNamespace + "." + name
	}
	return Retrieve(model, name)
}

// ResolveFieldID returns the key under which fieldID is stored on model.
// GraphQL rewrites dashes as double underscores ("left-rail_o" becomes
// "left__rail_o"); the rewritten id is used only when it resolves to a truthy
// value.
func ResolveFieldID(model map[string]any, fieldID string) string {
	clean := strings.ReplaceAll(fieldID, "-", "__")
	if clean != fieldID && truthy(Retrieve(model, clean)) {
		return clean
	}
	return fieldID
}

// Value returns the value of a field on model.
func Value(model map[string]any, fieldID string) any {
	if model == nil {
		return nil
	}
	return Retrieve(model, ResolveFieldID(model, fieldID))
}

// ContentTypeID returns the content type id of model.
func ContentTypeID(model map[string]any) string {
	id, _ := Retrieve(model, systemNamespace+".contentType").(string)
	return id
}

// IsEmbedded reports whether model is an embedded component, i.e. has no
// repository path.
func IsEmbedded(model map[string]any) bool {
	return Prop(model, "path") == nil
}

// ExtractCollection returns the collection holding the item at index: the
// last index segment is dropped, so "2.0" addresses the collection inside
// item 2.
func ExtractCollection(model map[string]any, fieldID, index string) (any, error) {
	return extractCollectionPiece(model, fieldID, removeLastPiece(index))
}

// ExtractCollectionItem returns the item addressed by a dotted field path and
// a dotted index path, e.g. field "items_o.content_o" with index "1.0".
// There may be at most one more field segment than index segments.
func ExtractCollectionItem(model map[string]any, fieldID, index string) (any, error) {
	indexes, err := parseIndexes(index)
	if err != nil {
		return nil, err
	}
	fields := strings.Split(fieldID, ".")
	if len(indexes) > len(fields) {
		return nil, fmt.Errorf("%w: %d indexes for %d nested properties of field %q on model %v",
			ErrIndexMismatch, len(indexes), len(fields), fieldID, Prop(model, "id"))
	}
	if len(fields)-len(indexes) > 1 {
		return nil, fmt.Errorf("%w: field %q has %d nested properties but index %q has only %d",
			ErrIndexMismatch, fieldID, len(fields), index, len(indexes))
	}
	return extractCollectionPiece(model, fieldID, index)
}

func extractCollectionPiece(model map[string]any, fieldID, index string) (any, error) {
	indexes, err := parseIndexes(index)
	if err != nil {
		return nil, err
	}
	if len(indexes) == 0 {
		return Retrieve(model, fieldID), nil
	}
	fields := strings.Split(fieldID, ".")
	if len(indexes) > len(fields) {
		return nil, fmt.Errorf("%w: %d indexes for fields %v", ErrIndexMismatch, len(indexes), fields)
	}

	var aux any = model
	for i, idx := range indexes {
		aux = Retrieve(Retrieve(aux, fields[i]), strconv.Itoa(idx))
	}
	if len(indexes) == len(fields) {
		return aux, nil
	}
	// One field left over: items_o.content_o with index 0 reads
	// items_o[0].content_o.
	return Retrieve(aux, fields[len(fields)-1]), nil
}

func parseIndexes(index string) ([]int, error) {
	if index == "" {
		return nil, nil
	}
	parts := strings.Split(index, ".")
	indexes := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("instance: invalid index %q: %w", index, err)
		}
		indexes[i] = n
	}
	return indexes, nil
}

func removeLastPiece(index string) string {
	i := strings.LastIndex(index, ".")
	if i < 0 {
		return ""
	}
	return index[:i]
}

// Project resolves every field of ct against model, keyed by field id.
func Project(ct schema.ContentType, model map[string]any) map[string]any {
	out := make(map[string]any, len(ct.Fields))
	for id := range ct.Fields {
		out[id] = Value(model, id)
	}
	return out
}

// truthy mirrors the loose truthiness the instance documents were written
// against: nil, false, zero and empty strings are false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0 && !math.IsNaN(t)
	case int:
		return t != 0
	default:
		return true
	}
}
