package formschema

import (
	"testing"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
)

func ptrF(v float64) *float64 { return &v }
func ptrI(v int) *int         { return &v }

func TestValidateField(t *testing.T) {
	v := New()
	cases := []struct {
		name  string
		field domain.FieldDefinition
		value any
		ok    bool
	}{
		{"text ok", domain.FieldDefinition{Key: "a", Kind: domain.FieldText}, "hello", true},
		{"text wrong type", domain.FieldDefinition{Key: "a", Kind: domain.FieldText}, 12.0, false},
		{"text too short", domain.FieldDefinition{Key: "a", Kind: domain.FieldText, Rule: domain.FieldRule{MinLength: ptrI(3)}}, "ab", false},
		{"text too long", domain.FieldDefinition{Key: "a", Kind: domain.FieldTextArea, Rule: domain.FieldRule{MaxLength: ptrI(2)}}, "abc", false},
		{"pattern", domain.FieldDefinition{Key: "a", Kind: domain.FieldText, Rule: domain.FieldRule{Pattern: `^[A-Z]{3}$`}}, "ABC", true},
		{"pattern mismatch", domain.FieldDefinition{Key: "a", Kind: domain.FieldText, Rule: domain.FieldRule{Pattern: `^[A-Z]{3}$`}}, "abc", false},
		{"number in range", domain.FieldDefinition{Key: "n", Kind: domain.FieldNumber, Rule: domain.FieldRule{Min: ptrF(0), Max: ptrF(10)}}, 5.5, true},
		{"number below min", domain.FieldDefinition{Key: "n", Kind: domain.FieldNumber, Rule: domain.FieldRule{Min: ptrF(0)}}, -1.0, false},
		{"number above max", domain.FieldDefinition{Key: "n", Kind: domain.FieldNumber, Rule: domain.FieldRule{Max: ptrF(10)}}, 11, false},
		{"integer ok", domain.FieldDefinition{Key: "i", Kind: domain.FieldInteger}, 42.0, true},
		{"integer fraction", domain.FieldDefinition{Key: "i", Kind: domain.FieldInteger}, 4.2, false},
		{"boolean", domain.FieldDefinition{Key: "b", Kind: domain.FieldBoolean}, true, true},
		{"boolean string", domain.FieldDefinition{Key: "b", Kind: domain.FieldBoolean}, "yes", false},
		{"date ok", domain.FieldDefinition{Key: "d", Kind: domain.FieldDate}, "2026-10-18", true},
		{"date shape", domain.FieldDefinition{Key: "d", Kind: domain.FieldDate}, "18/10/2026", false},
		{"date calendar", domain.FieldDefinition{Key: "d", Kind: domain.FieldDate}, "2026-02-31", false},
		{"email ok", domain.FieldDefinition{Key: "e", Kind: domain.FieldEmail}, "qa@acme.co", true},
		{"email bad", domain.FieldDefinition{Key: "e", Kind: domain.FieldEmail}, "not-an-email", false},
		{"select ok", domain.FieldDefinition{Key: "s", Kind: domain.FieldSelect, Rule: domain.FieldRule{Options: []string{"GLASS", "PET"}}}, "PET", true},
		{"select unknown", domain.FieldDefinition{Key: "s", Kind: domain.FieldSelect, Rule: domain.FieldRule{Options: []string{"GLASS", "PET"}}}, "CAN", false},
	}
	for _, tc := range cases {
		err := v.ValidateField(tc.field, tc.value)
		if tc.ok && err != nil {
			t.Fatalf("%s: ValidateField() error = %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestCompileRejectsUnknownKind(t *testing.T) {
	if _, err := Compile(domain.FieldDefinition{Key: "x", Kind: "BLOB"}); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}
