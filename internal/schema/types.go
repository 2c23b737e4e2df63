// Package schema normalizes legacy content-type descriptors and form
// definitions into the content-type model consumed by the admin UI.
package schema

import (
	"maps"
	"slices"
)

// LegacyFieldType is the free-text type tag of a legacy form field.
type LegacyFieldType string

// Legacy field types the normalizer knows about. Any other tag is carried
// through unchanged.
const (
	LegacyInput        LegacyFieldType = "input"
	LegacyRTETinyMCE5  LegacyFieldType = "rte-tinymce5"
	LegacyRTETinyMCE4  LegacyFieldType = "rte-tinymce4"
	LegacyCheckbox     LegacyFieldType = "checkbox"
	LegacyImagePicker  LegacyFieldType = "image-picker"
	LegacyNodeSelector LegacyFieldType = "node-selector"
	LegacyRepeat       LegacyFieldType = "repeat"
)

// FieldType is the canonical type of a normalized field.
type FieldType string

// Canonical field types produced by the type map. Types without a mapping
// keep their legacy tag, so these are not exhaustive.
const (
	FieldTypeText         FieldType = "text"
	FieldTypeHTML         FieldType = "html"
	FieldTypeBoolean      FieldType = "boolean"
	FieldTypeImage        FieldType = "image"
	FieldTypeNodeSelector FieldType = "node-selector"
	FieldTypeRepeat       FieldType = "repeat"
)

// Canonical maps a legacy type tag to its canonical field type. Unmapped
// tags pass through unchanged.
func (t LegacyFieldType) Canonical() FieldType {
	switch t {
	case LegacyInput:
		return FieldTypeText
	case LegacyRTETinyMCE5, LegacyRTETinyMCE4:
		return FieldTypeHTML
	case LegacyCheckbox:
		return FieldTypeBoolean
	case LegacyImagePicker:
		return FieldTypeImage
	default:
		return FieldType(t)
	}
}

// Mapped reports whether t has an entry in the type map.
func (t LegacyFieldType) Mapped() bool {
	switch t {
	case LegacyInput, LegacyRTETinyMCE5, LegacyRTETinyMCE4, LegacyCheckbox, LegacyImagePicker:
		return true
	default:
		return false
	}
}

// Sortable reports whether values of this field type have a user-defined
// order.
func (t LegacyFieldType) Sortable() bool {
	return t == LegacyNodeSelector || t == LegacyRepeat
}

// ValidationKind is the canonical name of a field validation.
type ValidationKind string

// Supported validation kinds.
const (
	ValidationRequired               ValidationKind = "required"
	ValidationMinCount               ValidationKind = "minCount"
	ValidationMaxCount               ValidationKind = "maxCount"
	ValidationMaxLength              ValidationKind = "maxLength"
	ValidationAllowedContentTypeTags ValidationKind = "allowedContentTypeTags"
	ValidationReadOnly               ValidationKind = "readOnly"
)

// ValidationLevel is the severity of a validation.
type ValidationLevel string

// LevelRequired is the only level the legacy model produces.
const LevelRequired ValidationLevel = "required"

// Validation is one normalized validation rule. Value is nil, a bool, a
// float64, a string, or a []string depending on where it came from.
type Validation struct {
	ID    ValidationKind  `json:"id"`
	Value any             `json:"value"`
	Level ValidationLevel `json:"level"`
}

// Validations maps a validation kind to its rule.
type Validations map[ValidationKind]Validation

// Field is a normalized content-type field.
type Field struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Type         FieldType   `json:"type"`
	Sortable     bool        `json:"sortable"`
	Validations  Validations `json:"validations"`
	DefaultValue string      `json:"defaultValue"`
	Required     bool        `json:"required"`

	// Fields holds the nested fields of a repeat group, keyed by id.
	Fields map[string]Field `json:"fields,omitempty"`
}

// Section is an ordered group of field ids as laid out on the authoring form.
type Section struct {
	Description     string   `json:"description"`
	ExpandByDefault bool     `json:"expandByDefault"`
	Title           string   `json:"title"`
	Fields          []string `json:"fields"`
}

// DataSource is a datasource declared on the form definition.
type DataSource struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Title      string            `json:"title"`
	Interface  string            `json:"interface"`
	Properties map[string]string `json:"properties"`
}

// ContentType is the normalized content type. Descriptor-only values carry
// nil Fields, Sections and DataSources until a definition is merged in.
type ContentType struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	QuickCreate     bool             `json:"quickCreate"`
	QuickCreatePath string           `json:"quickCreatePath"`
	Type            string           `json:"type"`
	Fields          map[string]Field `json:"fields"`
	Sections        []Section        `json:"sections"`
	DisplayTemplate *string          `json:"displayTemplate"`
	MergeStrategy   *string          `json:"mergeStrategy"`
	DataSources     []DataSource     `json:"dataSources"`
}

// Definition is the fragment of a ContentType produced from a form
// definition.
type Definition struct {
	DisplayTemplate *string
	MergeStrategy   *string
	Sections        []Section
	Fields          map[string]Field
	DataSources     []DataSource
}

// Clone returns a deep copy of d. Validation values that are string lists are
// copied too.
func (d *Definition) Clone() *Definition {
	if d == nil {
		return nil
	}
	out := &Definition{
		DisplayTemplate: cloneString(d.DisplayTemplate),
		MergeStrategy:   cloneString(d.MergeStrategy),
		Fields:          cloneFields(d.Fields),
	}
	if d.Sections != nil {
		out.Sections = make([]Section, len(d.Sections))
		for i, sec := range d.Sections {
			sec.Fields = slices.Clone(sec.Fields)
			out.Sections[i] = sec
		}
	}
	if d.DataSources != nil {
		out.DataSources = make([]DataSource, len(d.DataSources))
		for i, ds := range d.DataSources {
			ds.Properties = maps.Clone(ds.Properties)
			out.DataSources[i] = ds
		}
	}
	return out
}

func cloneFields(fields map[string]Field) map[string]Field {
	if fields == nil {
		return nil
	}
	out := make(map[string]Field, len(fields))
	for id, f := range fields {
		if f.Validations != nil {
			vs := make(Validations, len(f.Validations))
			for kind, v := range f.Validations {
				if list, ok := v.Value.([]string); ok {
					v.Value = slices.Clone(list)
				}
				vs[kind] = v
			}
			f.Validations = vs
		}
		f.Fields = cloneFields(f.Fields)
		out[id] = f
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Merge returns a copy of ct overlaid with def. Every key def carries wins,
// including nil ones; a nil def leaves ct as it is.
func (ct ContentType) Merge(def *Definition) ContentType {
	merged := ct
	if def == nil {
		return merged
	}
	merged.DisplayTemplate = def.DisplayTemplate
	merged.MergeStrategy = def.MergeStrategy
	merged.Sections = def.Sections
	merged.Fields = def.Fields
	merged.DataSources = def.DataSources
	return merged
}
