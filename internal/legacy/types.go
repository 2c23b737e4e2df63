// Package legacy models the documents served by the legacy Studio
// configuration service and provides sources that fetch them, either over
// HTTP or from a directory of YAML fixtures.
package legacy

import (
	"bytes"
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// ContentType is the coarse content-type descriptor returned by
// get-content-type.json and get-content-types.json.
type ContentType struct {
	Form            string `json:"form" yaml:"form"`
	Name            string `json:"name" yaml:"name"`
	Label           string `json:"label" yaml:"label"`
	Type            string `json:"type" yaml:"type"`
	Path            string `json:"path,omitempty" yaml:"path,omitempty"`
	QuickCreate     Bool   `json:"quickCreate" yaml:"quickCreate"`
	QuickCreatePath string `json:"quickCreatePath" yaml:"quickCreatePath"`
	ImageThumbnail  string `json:"imageThumbnail,omitempty" yaml:"imageThumbnail,omitempty"`
}

// FormDefinition is the JSON projection of a content type's
// form-definition.xml.
type FormDefinition struct {
	Title       Text         `json:"title" yaml:"title"`
	Description Text         `json:"description" yaml:"description"`
	ObjectType  Text         `json:"objectType" yaml:"objectType"`
	ContentType Text         `json:"content-type" yaml:"content-type"`
	Properties  *Properties  `json:"properties,omitempty" yaml:"properties,omitempty"`
	Sections    *Sections    `json:"sections,omitempty" yaml:"sections,omitempty"`
	DataSources *DataSources `json:"datasources,omitempty" yaml:"datasources,omitempty"`
}

// Section is one form section.
type Section struct {
	Title       Text    `json:"title" yaml:"title"`
	Description Text    `json:"description" yaml:"description"`
	DefaultOpen Text    `json:"defaultOpen" yaml:"defaultOpen"`
	Fields      *Fields `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Field is one authored form field. Fields is only meaningful for "repeat"
// fields.
type Field struct {
	ID           string       `json:"id" yaml:"id"`
	Title        Text         `json:"title" yaml:"title"`
	Type         string       `json:"type" yaml:"type"`
	Description  Text         `json:"description" yaml:"description"`
	DefaultValue Text         `json:"defaultValue" yaml:"defaultValue"`
	Help         Text         `json:"help" yaml:"help"`
	Properties   *Properties  `json:"properties,omitempty" yaml:"properties,omitempty"`
	Constraints  *Constraints `json:"constraints,omitempty" yaml:"constraints,omitempty"`
	Fields       *Fields      `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Property is a name/value pair. Constraints share the same shape.
type Property struct {
	Name  string `json:"name" yaml:"name"`
	Value Text   `json:"value" yaml:"value"`
	Type  Text   `json:"type,omitempty" yaml:"type,omitempty"`
}

// DataSource is a named datasource declared by a form definition.
// Receptacles are datasources of type "receptacles".
type DataSource struct {
	ID         string      `json:"id" yaml:"id"`
	Type       string      `json:"type" yaml:"type"`
	Title      Text        `json:"title" yaml:"title"`
	Interface  Text        `json:"interface" yaml:"interface"`
	Properties *Properties `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// Properties wraps the <properties><property/>...</properties> element.
type Properties struct {
	Property List[Property] `json:"property" yaml:"property"`
}

// Constraints wraps the <constraints><constraint/>...</constraints> element.
type Constraints struct {
	Constraint List[Property] `json:"constraint" yaml:"constraint"`
}

// Fields wraps the <fields><field/>...</fields> element.
type Fields struct {
	Field List[Field] `json:"field" yaml:"field"`
}

// Sections wraps the <sections><section/>...</sections> element.
type Sections struct {
	Section List[Section] `json:"section" yaml:"section"`
}

// DataSources wraps the <datasources><datasource/>...</datasources> element.
type DataSources struct {
	DataSource List[DataSource] `json:"datasource" yaml:"datasource"`
}

// PropertyList returns the properties of an optional block, tolerating a nil
// block.
func (p *Properties) PropertyList() []Property {
	if p == nil {
		return []Property{}
	}
	return p.Property.Items()
}

func (p *Properties) UnmarshalJSON(data []byte) error {
	type plain Properties
	return unmarshalBlockJSON(data, (*plain)(p))
}

func (p *Properties) UnmarshalYAML(node *yaml.Node) error {
	type plain Properties
	return unmarshalBlockYAML(node, (*plain)(p))
}

func (c *Constraints) UnmarshalJSON(data []byte) error {
	type plain Constraints
	return unmarshalBlockJSON(data, (*plain)(c))
}

func (c *Constraints) UnmarshalYAML(node *yaml.Node) error {
	type plain Constraints
	return unmarshalBlockYAML(node, (*plain)(c))
}

func (f *Fields) UnmarshalJSON(data []byte) error {
	type plain Fields
	return unmarshalBlockJSON(data, (*plain)(f))
}

func (f *Fields) UnmarshalYAML(node *yaml.Node) error {
	type plain Fields
	return unmarshalBlockYAML(node, (*plain)(f))
}

func (s *Sections) UnmarshalJSON(data []byte) error {
	type plain Sections
	return unmarshalBlockJSON(data, (*plain)(s))
}

func (s *Sections) UnmarshalYAML(node *yaml.Node) error {
	type plain Sections
	return unmarshalBlockYAML(node, (*plain)(s))
}

func (d *DataSources) UnmarshalJSON(data []byte) error {
	type plain DataSources
	return unmarshalBlockJSON(data, (*plain)(d))
}

func (d *DataSources) UnmarshalYAML(node *yaml.Node) error {
	type plain DataSources
	return unmarshalBlockYAML(node, (*plain)(d))
}

// unmarshalBlockJSON decodes a wrapper element, treating an empty element
// (projected as "" or null) as a present but empty block.
func unmarshalBlockJSON(data []byte, v any) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte(`""`)) || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return json.Unmarshal(trimmed, v)
}

func unmarshalBlockYAML(node *yaml.Node, v any) error {
	if isYAMLNull(node) || (node.Kind == yaml.ScalarNode && node.Value == "") {
		return nil
	}
	return node.Decode(v)
}
