package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/GyroZepelix/mithril-studio/internal/legacy"
)

func TestBestGuess(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"", nil},
		{"true", true},
		{"false", false},
		{"50", 50.0},
		{" 2.5 ", 2.5},
		{"-1", -1.0},
		{"1e3", 1000.0},
		{"NaN", "NaN"},
		{"Infinity", "Infinity"},
		{"12px", "12px"},
		{"True", "True"},
		{"/component/hero", "/component/hero"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, bestGuess(tt.in)); diff != "" {
				t.Errorf("bestGuess(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestFieldValidations_DirectProperties(t *testing.T) {
	props := []legacy.Property{
		{Name: "maxlength", Value: "50"},
		{Name: "readonly", Value: "true"},
		{Name: "minSize", Value: "   "},
		{Name: "placeholder", Value: "Type here"},
		{Name: "maxSize", Value: "2"},
		{Name: "maxSize", Value: "5"},
	}

	got := FieldValidations(props, nil)
	want := Validations{
		ValidationMaxLength: {ID: ValidationMaxLength, Value: 50.0, Level: LevelRequired},
		ValidationReadOnly:  {ID: ValidationReadOnly, Value: true, Level: LevelRequired},
		ValidationMaxCount:  {ID: ValidationMaxCount, Value: 5.0, Level: LevelRequired},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FieldValidations mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldValidations_ItemManager(t *testing.T) {
	receptacles := Receptacles{
		"components": {
			ID:   "components",
			Type: "receptacles",
			Properties: &legacy.Properties{Property: legacy.List[legacy.Property]{
				{Name: "contentTypes", Value: "/component/a,/component/b"},
				{Name: "minSize", Value: "2"},
				{Name: "allowShared", Value: "true"},
			}},
		},
		"empty": {
			ID:         "empty",
			Type:       "receptacles",
			Properties: &legacy.Properties{Property: legacy.List[legacy.Property]{{Name: "maxSize", Value: ""}}},
		},
		"bare": {ID: "bare", Type: "receptacles"},
	}

	tests := []struct {
		name        string
		itemManager string
		receptacles Receptacles
		want        Validations
	}{
		{
			name:        "single receptacle",
			itemManager: "components",
			receptacles: receptacles,
			want: Validations{
				ValidationAllowedContentTypeTags: {ID: ValidationAllowedContentTypeTags, Value: []string{"/component/a", "/component/b"}, Level: LevelRequired},
				ValidationMinCount:               {ID: ValidationMinCount, Value: []string{"2"}, Level: LevelRequired},
			},
		},
		{
			name:        "blank receptacle value is an empty list",
			itemManager: "empty",
			receptacles: receptacles,
			want: Validations{
				ValidationMaxCount: {ID: ValidationMaxCount, Value: []string{}, Level: LevelRequired},
			},
		},
		{
			name:        "unknown and bare receptacles",
			itemManager: "missing,bare",
			receptacles: receptacles,
			want:        Validations{},
		},
		{
			name:        "blank item manager",
			itemManager: "",
			receptacles: receptacles,
			want:        Validations{},
		},
		{
			name:        "no receptacle lookup",
			itemManager: "components",
			receptacles: nil,
			want:        Validations{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			props := []legacy.Property{{Name: "itemManager", Value: legacy.Text(tt.itemManager)}}
			got := FieldValidations(props, tt.receptacles)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("FieldValidations mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFieldValidations_ReceptaclesInItemManagerOrder(t *testing.T) {
	receptacles := Receptacles{
		"first": {ID: "first", Properties: &legacy.Properties{Property: legacy.List[legacy.Property]{
			{Name: "contentTypes", Value: "/component/a"},
		}}},
		"second": {ID: "second", Properties: &legacy.Properties{Property: legacy.List[legacy.Property]{
			{Name: "tags", Value: "hero"},
		}}},
	}

	got := FieldValidations([]legacy.Property{{Name: "itemManager", Value: "second,first"}}, receptacles)
	want := []string{"/component/a"}
	if diff := cmp.Diff(want, got[ValidationAllowedContentTypeTags].Value); diff != "" {
		t.Errorf("allowedContentTypeTags mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldValidations_Empty(t *testing.T) {
	got := FieldValidations(nil, nil)
	if got == nil || len(got) != 0 {
		t.Errorf("FieldValidations(nil) = %#v, want an empty non-nil map", got)
	}
}
