package schema

import (
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/GyroZepelix/mithril-studio/internal/legacy"
)

// itemManagerProperty names the field property that references receptacle
// datasources.
const itemManagerProperty = "itemManager"

// Receptacles indexes "receptacles" datasources by id.
type Receptacles map[string]legacy.DataSource

// isSystemValidation reports whether a field property name is one of the
// legacy properties that carry a validation.
func isSystemValidation(name string) bool {
	switch name {
	case itemManagerProperty, "minSize", "maxSize", "maxlength", "readonly":
		return true
	default:
		return false
	}
}

// canonicalValidation maps a legacy validation key to its canonical kind.
// "contentTypes" and "tags" share a target; whichever is processed last wins.
func canonicalValidation(key string) (ValidationKind, bool) {
	switch key {
	case "minSize":
		return ValidationMinCount, true
	case "maxSize":
		return ValidationMaxCount, true
	case "maxlength":
		return ValidationMaxLength, true
	case "contentTypes", "tags":
		return ValidationAllowedContentTypeTags, true
	case "readonly":
		return ValidationReadOnly, true
	default:
		return "", false
	}
}

// FieldValidations extracts validations from a field's legacy properties.
// When receptacles is non-nil, an itemManager property is expanded into the
// validations declared by the receptacles it references; those values are
// always lists of strings. Other recognised properties with a non-blank value
// are coerced with bestGuess. Unrecognised properties produce nothing.
func FieldValidations(props []legacy.Property, receptacles Receptacles) Validations {
	// Later duplicates replace earlier ones but keep the first position.
	byName := make(map[string]legacy.Property, len(props))
	order := make([]string, 0, len(props))
	for _, p := range props {
		if _, seen := byName[p.Name]; !seen {
			order = append(order, p.Name)
		}
		byName[p.Name] = p
	}

	validations := Validations{}
	for _, name := range order {
		if !isSystemValidation(name) {
			continue
		}
		prop := byName[name]

		if name == itemManagerProperty && receptacles != nil {
			if prop.Value == "" {
				continue
			}
			for _, id := range strings.Split(prop.Value.String(), ",") {
				receptacle, ok := receptacles[id]
				if !ok {
					continue
				}
				for _, rp := range receptacle.Properties.PropertyList() {
					kind, ok := canonicalValidation(rp.Name)
					if !ok {
						continue
					}
					validations[kind] = Validation{
						ID:    kind,
						Value: splitList(rp.Value.String()),
						Level: LevelRequired,
					}
				}
			}
			continue
		}

		if isBlank(prop.Value.String()) {
			continue
		}
		kind, ok := canonicalValidation(name)
		if !ok {
			slog.Debug("dropping validation property without canonical key", "property", name)
			continue
		}
		validations[kind] = Validation{
			ID:    kind,
			Value: bestGuess(prop.Value.String()),
			Level: LevelRequired,
		}
	}
	return validations
}

// bestGuess coerces a legacy property value: blank stays nil, "true" and
// "false" become booleans, finite numbers become float64, and anything else
// is returned as is.
func bestGuess(value string) any {
	switch value {
	case "":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return value
}

// splitList splits a comma separated value. A blank value is an empty list.
func splitList(value string) []string {
	if value == "" {
		return []string{}
	}
	return strings.Split(value, ",")
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
