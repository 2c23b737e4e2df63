package schema

import (
	"fmt"
	"sort"
	"strings"
)

// ValidateContentTypes checks a normalized catalog. It returns a
// *ValidationError listing ALL problems found, or nil if every content type
// is consistent.
func ValidateContentTypes(types []ContentType) error {
	var allErrors []string

	idCount := make(map[string]int, len(types))
	for _, ct := range types {
		idCount[ct.ID]++
	}
	ids := make([]string, 0, len(idCount))
	for id := range idCount {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if count := idCount[id]; count > 1 && id != "" {
			allErrors = append(allErrors, fmt.Sprintf("content type id %q is listed %d times", id, count))
		}
	}

	for _, ct := range types {
		for _, msg := range validateContentType(ct) {
			allErrors = append(allErrors, fmt.Sprintf("content type %q: %s", ct.ID, msg))
		}
	}

	if len(allErrors) == 0 {
		return nil
	}
	return &ValidationError{Problems: allErrors}
}

// ValidateContentType checks a single normalized content type.
func ValidateContentType(ct ContentType) error {
	problems := validateContentType(ct)
	if len(problems) == 0 {
		return nil
	}
	for i, msg := range problems {
		problems[i] = fmt.Sprintf("content type %q: %s", ct.ID, msg)
	}
	return &ValidationError{Problems: problems}
}

// ValidationError holds a list of all validation problems found.
type ValidationError struct {
	Problems []string
}

// Error returns a human-readable summary of all validation problems.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("content type validation failed with %d problem(s):\n- %s",
		len(e.Problems), strings.Join(e.Problems, "\n- "))
}

// validateContentType returns the problems of one content type: every id a
// section lists must be a key of Fields, and field keys must match the
// field's own id.
func validateContentType(ct ContentType) []string {
	var problems []string

	if ct.ID == "" {
		problems = append(problems, "id is required")
	}

	for i, section := range ct.Sections {
		for _, id := range section.Fields {
			if _, ok := ct.Fields[id]; !ok {
				problems = append(problems, fmt.Sprintf("section[%d] (%s): field %q is not defined", i, section.Title, id))
			}
		}
	}

	keys := make([]string, 0, len(ct.Fields))
	for key := range ct.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		f := ct.Fields[key]
		if f.ID != key {
			problems = append(problems, fmt.Sprintf("field %q: key does not match id %q", key, f.ID))
		}
		if f.Type == FieldTypeRepeat && f.Fields == nil {
			problems = append(problems, fmt.Sprintf("field %q: repeat field has no nested fields", key))
		}
		for nestedKey, nested := range f.Fields {
			if nested.ID != nestedKey {
				problems = append(problems, fmt.Sprintf("field %q: nested key %q does not match id %q", key, nestedKey, nested.ID))
			}
			if len(nested.Fields) > 0 {
				problems = append(problems, fmt.Sprintf("field %q: nested field %q is nested more than one level", key, nestedKey))
			}
		}
	}

	return problems
}
