package schema

import (
	"fmt"
	"maps"
	"slices"
	"sort"
)

// ChangeType describes the kind of difference between two catalogs.
type ChangeType string

// Supported change types.
const (
	ChangeAddType         ChangeType = "add_type"
	ChangeRemoveType      ChangeType = "remove_type"
	ChangeAddField        ChangeType = "add_field"
	ChangeRemoveField     ChangeType = "remove_field"
	ChangeAlterFieldType  ChangeType = "alter_field_type"
	ChangeAlterRequired   ChangeType = "alter_required"
	ChangeAlterValidation ChangeType = "alter_validations"
)

// Change is a single difference between a previous and a current catalog.
type Change struct {
	Type        ChangeType `json:"type"`
	ContentType string     `json:"contentType"`
	Field       string     `json:"field,omitempty"`

	// Safe is false when content authored against the previous catalog may no
	// longer fit: a removed type or field, a changed field type, or a new or
	// existing field that is now required.
	Safe bool `json:"safe"`

	Detail string `json:"detail"`
}

// DiffCatalogs compares two catalogs by content type id. Changes are ordered
// by content type id, then field id. Nested repeat fields are compared under
// the dotted id "repeat.nested".
func DiffCatalogs(previous, current []ContentType) []Change {
	prev := indexByID(previous)
	curr := indexByID(current)

	ids := slices.Collect(maps.Keys(prev))
	for id := range curr {
		if _, ok := prev[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var changes []Change
	for _, id := range ids {
		p, inPrev := prev[id]
		c, inCurr := curr[id]
		switch {
		case !inPrev:
			changes = append(changes, Change{
				Type:        ChangeAddType,
				ContentType: id,
				Safe:        true,
				Detail:      fmt.Sprintf("add content type %s (%d fields)", id, len(c.Fields)),
			})
		case !inCurr:
			changes = append(changes, Change{
				Type:        ChangeRemoveType,
				ContentType: id,
				Safe:        false,
				Detail:      fmt.Sprintf("remove content type %s [BREAKING]", id),
			})
		default:
			changes = append(changes, diffFields(id, "", p.Fields, c.Fields)...)
		}
	}
	return changes
}

// HasBreaking reports whether any change is unsafe.
func HasBreaking(changes []Change) bool {
	return slices.ContainsFunc(changes, func(c Change) bool { return !c.Safe })
}

func diffFields(typeID, prefix string, previous, current map[string]Field) []Change {
	ids := slices.Collect(maps.Keys(previous))
	for id := range current {
		if _, ok := previous[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var changes []Change
	for _, id := range ids {
		name := prefix + id
		pf, inPrev := previous[id]
		cf, inCurr := current[id]

		switch {
		case !inPrev:
			changes = append(changes, Change{
				Type:        ChangeAddField,
				ContentType: typeID,
				Field:       name,
				Safe:        !cf.Required,
				Detail:      addFieldDetail(typeID, name, cf),
			})
			continue
		case !inCurr:
			changes = append(changes, Change{
				Type:        ChangeRemoveField,
				ContentType: typeID,
				Field:       name,
				Detail:      fmt.Sprintf("remove field %s.%s [BREAKING]", typeID, name),
			})
			continue
		}

		if pf.Type != cf.Type {
			changes = append(changes, Change{
				Type:        ChangeAlterFieldType,
				ContentType: typeID,
				Field:       name,
				Detail:      fmt.Sprintf("change type of %s.%s from %s to %s [BREAKING]", typeID, name, pf.Type, cf.Type),
			})
		}
		if pf.Required != cf.Required {
			safe := !cf.Required
			detail := fmt.Sprintf("%s.%s is no longer required", typeID, name)
			if cf.Required {
				detail = fmt.Sprintf("%s.%s is now required [BREAKING]", typeID, name)
			}
			changes = append(changes, Change{
				Type:        ChangeAlterRequired,
				ContentType: typeID,
				Field:       name,
				Safe:        safe,
				Detail:      detail,
			})
		}
		if !validationsEqual(pf.Validations, cf.Validations) {
			changes = append(changes, Change{
				Type:        ChangeAlterValidation,
				ContentType: typeID,
				Field:       name,
				Safe:        true,
				Detail:      fmt.Sprintf("validations of %s.%s changed", typeID, name),
			})
		}
		if pf.Type == FieldTypeRepeat && cf.Type == FieldTypeRepeat {
			changes = append(changes, diffFields(typeID, name+".", pf.Fields, cf.Fields)...)
		}
	}
	return changes
}

func addFieldDetail(typeID, name string, f Field) string {
	detail := fmt.Sprintf("add field %s.%s (%s)", typeID, name, f.Type)
	if f.Required {
		detail += " [BREAKING: required on existing content]"
	}
	return detail
}

// validationsEqual compares validations by kind and value. Values decoded
// from a stored snapshot come back as JSON types, so they are compared by
// their printed form.
func validationsEqual(a, b Validations) bool {
	if len(a) != len(b) {
		return false
	}
	for kind, va := range a {
		vb, ok := b[kind]
		if !ok || va.Level != vb.Level || fmt.Sprint(va.Value) != fmt.Sprint(vb.Value) {
			return false
		}
	}
	return true
}

func indexByID(types []ContentType) map[string]ContentType {
	m := make(map[string]ContentType, len(types))
	for _, ct := range types {
		m[ct.ID] = ct
	}
	return m
}
