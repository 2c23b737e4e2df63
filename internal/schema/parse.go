package schema

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/GyroZepelix/mithril-studio/internal/legacy"
)

const (
	// componentLabelPrefix is stripped from descriptor labels.
	componentLabelPrefix = "Component - "

	receptaclesDataSourceType = "receptacles"
	displayTemplateProperty   = "display-template"
	mergeStrategyProperty     = "merge-strategy"
)

// ErrMalformedDefinition is matched by every *StructureError.
var ErrMalformedDefinition = errors.New("malformed form definition")

// StructureError reports a legacy form definition missing a block the
// normalizer needs, such as a repeat field without <fields>.
type StructureError struct {
	FieldID string
	Block   string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("field %q: missing <%s> block: %v", e.FieldID, e.Block, ErrMalformedDefinition)
}

func (e *StructureError) Unwrap() error { return ErrMalformedDefinition }

// ParseLegacyContentType converts a legacy descriptor into a ContentType with
// no fields, sections or datasources.
func ParseLegacyContentType(l legacy.ContentType) ContentType {
	return ContentType{
		ID:              l.Form,
		Name:            strings.TrimPrefix(l.Label, componentLabelPrefix),
		QuickCreate:     bool(l.QuickCreate),
		QuickCreatePath: l.QuickCreatePath,
		Type:            l.Type,
	}
}

// ParseLegacyFormDef converts a legacy form definition into a Definition
// fragment. A nil definition yields a nil fragment. Field ids are global to
// the definition: when two sections declare the same id, the later field
// replaces the earlier one while both sections keep listing the id.
func ParseLegacyFormDef(def *legacy.FormDefinition) (*Definition, error) {
	if def == nil {
		return nil, nil
	}

	receptacles := Receptacles{}
	var dataSources []legacy.DataSource
	if def.DataSources != nil {
		dataSources = def.DataSources.DataSource.Items()
	}
	for _, ds := range dataSources {
		if ds.Type == receptaclesDataSourceType {
			receptacles[ds.ID] = ds
		}
	}

	out := &Definition{
		Sections:    []Section{},
		Fields:      map[string]Field{},
		DataSources: make([]DataSource, 0, len(dataSources)),
	}

	var sections []legacy.Section
	if def.Sections != nil {
		sections = def.Sections.Section.Items()
	}
	for _, ls := range sections {
		fieldIDs := []string{}

		var fields []legacy.Field
		if ls.Fields != nil {
			fields = ls.Fields.Field.Items()
		}
		for _, lf := range fields {
			field, err := parseField(lf, receptacles)
			if err != nil {
				return nil, err
			}
			fieldIDs = append(fieldIDs, field.ID)
			out.Fields[field.ID] = field
		}

		out.Sections = append(out.Sections, Section{
			Description:     ls.Description.String(),
			ExpandByDefault: ls.DefaultOpen.String() == "true",
			Title:           ls.Title.String(),
			Fields:          fieldIDs,
		})
	}

	topLevel := def.Properties.PropertyList()
	out.DisplayTemplate = findProperty(topLevel, displayTemplateProperty)
	out.MergeStrategy = findProperty(topLevel, mergeStrategyProperty)

	for _, ds := range dataSources {
		out.DataSources = append(out.DataSources, parseDataSource(ds))
	}

	return out, nil
}

// parseField normalizes one top-level field.
func parseField(lf legacy.Field, receptacles Receptacles) (Field, error) {
	legacyType := LegacyFieldType(lf.Type)

	id := lf.ID
	if isReservedFieldID(id) {
		id = Camelize(id)
	}

	field := Field{
		ID:           id,
		Name:         lf.Title.String(),
		Type:         legacyType.Canonical(),
		Sortable:     legacyType.Sortable(),
		Validations:  Validations{},
		DefaultValue: lf.DefaultValue.String(),
	}

	if lf.Constraints != nil {
		for _, c := range lf.Constraints.Constraint.Items() {
			value := strings.TrimSpace(c.Value.String())
			switch c.Name {
			case "required":
				if value == "true" {
					field.Required = true
					field.Validations[ValidationRequired] = Validation{
						ID:    ValidationRequired,
						Value: true,
						Level: LevelRequired,
					}
				}
			case "allowDuplicates", "pattern", "minSize":
				// Recognised, no validation.
			default:
				slog.Warn("unhandled form definition constraint",
					"field", lf.ID,
					"constraint", c.Name,
					"value", value,
				)
			}
		}
	}

	switch legacyType {
	case LegacyRepeat:
		if lf.Fields == nil {
			return Field{}, &StructureError{FieldID: lf.ID, Block: "fields"}
		}
		field.Fields = make(map[string]Field)
		for _, nested := range lf.Fields.Field.Items() {
			nf, err := parseNestedField(nested, receptacles)
			if err != nil {
				return Field{}, err
			}
			field.Fields[nf.ID] = nf
		}
	case LegacyNodeSelector:
		if lf.Properties == nil {
			return Field{}, &StructureError{FieldID: lf.ID, Block: "properties"}
		}
		maps.Copy(field.Validations, FieldValidations(lf.Properties.PropertyList(), receptacles))
	case LegacyInput:
		// A plain input commonly has no <properties>; that means no validations.
		maps.Copy(field.Validations, FieldValidations(lf.Properties.PropertyList(), nil))
	}

	return field, nil
}

// parseNestedField normalizes a field inside a repeat group. Nested fields
// carry no constraints; only node selectors get validations, read from their
// own properties. Deeper nesting is not interpreted.
func parseNestedField(lf legacy.Field, receptacles Receptacles) (Field, error) {
	legacyType := LegacyFieldType(lf.Type)
	id := Camelize(lf.ID)

	field := Field{
		ID:       id,
		Name:     lf.Title.String(),
		Type:     legacyType.Canonical(),
		Sortable: legacyType.Sortable(),
	}

	if legacyType == LegacyNodeSelector {
		if lf.Properties == nil {
			return Field{}, &StructureError{FieldID: lf.ID, Block: "properties"}
		}
		field.Validations = FieldValidations(lf.Properties.PropertyList(), receptacles)
	}

	return field, nil
}

func parseDataSource(ds legacy.DataSource) DataSource {
	props := ds.Properties.PropertyList()
	out := DataSource{
		ID:         ds.ID,
		Type:       ds.Type,
		Title:      ds.Title.String(),
		Interface:  ds.Interface.String(),
		Properties: make(map[string]string, len(props)),
	}
	for _, p := range props {
		out.Properties[p.Name] = p.Value.String()
	}
	return out
}

// findProperty returns the value of the first property called name.
func findProperty(props []legacy.Property, name string) *string {
	for _, p := range props {
		if p.Name == name {
			v := p.Value.String()
			return &v
		}
	}
	return nil
}

// isReservedFieldID reports whether a legacy field id is one of the system
// ids that are exposed camel-cased.
func isReservedFieldID(id string) bool {
	return id == "file-name" || id == "internal-name"
}

// Camelize removes runs of dashes and upper-cases the character following
// them: "internal-name" becomes "internalName". Trailing dashes are dropped.
func Camelize(s string) string {
	if !strings.Contains(s, "-") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	upper := false
	for _, r := range s {
		if r == '-' {
			upper = true
			continue
		}
		if upper {
			b.WriteString(strings.ToUpper(string(r)))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
