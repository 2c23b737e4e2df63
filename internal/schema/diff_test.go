package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func catalogEntry(id string, fields ...Field) ContentType {
	ct := ContentType{ID: id, Name: id, Fields: map[string]Field{}}
	for _, f := range fields {
		ct.Fields[f.ID] = f
	}
	return ct
}

func TestDiffCatalogs_Identical(t *testing.T) {
	catalog := []ContentType{
		catalogEntry("/component/banner", Field{ID: "title_t", Type: FieldTypeText}),
	}
	if changes := DiffCatalogs(catalog, catalog); len(changes) != 0 {
		t.Errorf("expected no changes, got %+v", changes)
	}
}

func TestDiffCatalogs_Types(t *testing.T) {
	previous := []ContentType{catalogEntry("/component/banner"), catalogEntry("/page/legacy")}
	current := []ContentType{catalogEntry("/component/banner"), catalogEntry("/page/article")}

	got := DiffCatalogs(previous, current)
	want := []Change{
		{Type: ChangeAddType, ContentType: "/page/article", Safe: true, Detail: "add content type /page/article (0 fields)"},
		{Type: ChangeRemoveType, ContentType: "/page/legacy", Safe: false, Detail: "remove content type /page/legacy [BREAKING]"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("changes mismatch (-want +got):\n%s", diff)
	}
	if !HasBreaking(got) {
		t.Error("HasBreaking = false, want true")
	}
}

func TestDiffCatalogs_Fields(t *testing.T) {
	required := Validations{ValidationRequired: {ID: ValidationRequired, Value: true, Level: LevelRequired}}

	previous := []ContentType{catalogEntry("/page/article",
		Field{ID: "title_t", Type: FieldTypeText},
		Field{ID: "summary_t", Type: FieldTypeText},
		Field{ID: "hero_s", Type: FieldTypeImage},
		Field{ID: "body_html", Type: FieldTypeHTML, Required: true, Validations: required},
	)}
	current := []ContentType{catalogEntry("/page/article",
		Field{ID: "title_t", Type: FieldTypeText, Required: true, Validations: required},
		Field{ID: "hero_s", Type: FieldTypeNodeSelector},
		Field{ID: "body_html", Type: FieldTypeHTML},
		Field{ID: "tags_o", Type: FieldTypeNodeSelector},
		Field{ID: "author_s", Type: FieldTypeText, Required: true},
	)}

	tests := []struct {
		field string
		typ   ChangeType
		safe  bool
	}{
		{"author_s", ChangeAddField, false},
		{"body_html", ChangeAlterRequired, true},
		{"body_html", ChangeAlterValidation, true},
		{"hero_s", ChangeAlterFieldType, false},
		{"summary_t", ChangeRemoveField, false},
		{"tags_o", ChangeAddField, true},
		{"title_t", ChangeAlterRequired, false},
		{"title_t", ChangeAlterValidation, true},
	}

	got := DiffCatalogs(previous, current)
	if len(got) != len(tests) {
		t.Fatalf("got %d changes, want %d: %+v", len(got), len(tests), got)
	}
	for i, tt := range tests {
		c := got[i]
		if c.Field != tt.field || c.Type != tt.typ || c.Safe != tt.safe {
			t.Errorf("change[%d] = {%s %s safe=%v}, want {%s %s safe=%v}", i, c.Field, c.Type, c.Safe, tt.field, tt.typ, tt.safe)
		}
		if c.ContentType != "/page/article" {
			t.Errorf("change[%d].ContentType = %q", i, c.ContentType)
		}
	}
}

func TestDiffCatalogs_NestedRepeatFields(t *testing.T) {
	previous := []ContentType{catalogEntry("/page/article", Field{
		ID:   "links_o",
		Type: FieldTypeRepeat,
		Fields: map[string]Field{
			"linkTitle":  {ID: "linkTitle", Type: FieldTypeText},
			"targetItem": {ID: "targetItem", Type: FieldTypeNodeSelector},
		},
	})}
	current := []ContentType{catalogEntry("/page/article", Field{
		ID:   "links_o",
		Type: FieldTypeRepeat,
		Fields: map[string]Field{
			"linkTitle": {ID: "linkTitle", Type: FieldTypeText},
		},
	})}

	got := DiffCatalogs(previous, current)
	if len(got) != 1 || got[0].Field != "links_o.targetItem" || got[0].Type != ChangeRemoveField {
		t.Errorf("changes = %+v, want removal of links_o.targetItem", got)
	}
}

func TestValidationsEqual_DecodedValues(t *testing.T) {
	live := Validations{ValidationAllowedContentTypeTags: {
		ID:    ValidationAllowedContentTypeTags,
		Value: []string{"page", "landing"},
		Level: LevelRequired,
	}}
	stored := Validations{ValidationAllowedContentTypeTags: {
		ID:    ValidationAllowedContentTypeTags,
		Value: []any{"page", "landing"},
		Level: LevelRequired,
	}}
	if !validationsEqual(live, stored) {
		t.Error("validations decoded from JSON should equal the live ones")
	}

	stored[ValidationAllowedContentTypeTags] = Validation{ID: ValidationAllowedContentTypeTags, Value: []any{"page"}, Level: LevelRequired}
	if validationsEqual(live, stored) {
		t.Error("different tag lists compared equal")
	}
}
