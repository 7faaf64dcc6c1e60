package field

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbind/pkg/message"
)

func floatPtr(v float64) *float64 { return &v }

func TestValidateRequiredBlank(t *testing.T) {
	fld := &Field{Name: "title", Kind: NewText(), Required: true}
	fld.SetInput("   ")

	if fld.Validate(message.Default()) {
		t.Fatal("blank required field must fail")
	}
	if len(fld.Errors) != 1 {
		t.Fatalf("expected exactly one error, got %v", fld.Errors)
	}
	if fld.Errors[0] != "This field is required" {
		t.Fatalf("unexpected message: %q", fld.Errors[0])
	}
	if fld.Value != nil {
		t.Fatalf("value must stay undefined on failure, got %v", fld.Value)
	}
}

func TestValidateOptionalBlankShortCircuits(t *testing.T) {
	fld := &Field{Name: "notes", Kind: NewText()}
	fld.SetInput("")

	if !fld.Validate(message.Default()) {
		t.Fatalf("optional blank field must pass, errors: %v", fld.Errors)
	}
	if fld.Value != nil {
		t.Fatalf("blank field must not commit a value, got %v", fld.Value)
	}
}

func TestSetInputTrims(t *testing.T) {
	fld := &Field{Name: "title", Kind: NewText()}
	fld.SetInput("  spaced  ", "\tkept\n")

	want := []string{"spaced", "kept"}
	if diff := cmp.Diff(want, fld.Input); diff != "" {
		t.Fatalf("input mismatch (-want +got):\n%s", diff)
	}
}

func TestValueFormat(t *testing.T) {
	fld := &Field{Name: "price", Kind: NewNumber(), ValueFormat: "%.2f"}
	fld.SetInput("1234")

	if !fld.Validate(message.Default()) {
		t.Fatalf("unexpected errors: %v", fld.Errors)
	}
	if fld.Value != "1234.00" {
		t.Fatalf("expected formatted value, got %v", fld.Value)
	}
}

func TestRangeBounds(t *testing.T) {
	cases := []struct {
		input string
		valid bool
	}{
		{"18", true},
		{"120", true},
		{"17", false},
		{"121", false},
	}
	for _, tc := range cases {
		fld := &Field{
			Name:       "age",
			Kind:       NewInteger(),
			RangeStart: floatPtr(18),
			RangeEnd:   floatPtr(120),
		}
		fld.SetInput(tc.input)
		if got := fld.Validate(message.Default()); got != tc.valid {
			t.Fatalf("input %q: expected valid=%v, errors: %v", tc.input, tc.valid, fld.Errors)
		}
		if !tc.valid {
			want := "value must be between 18 and 120"
			if len(fld.Errors) != 1 || fld.Errors[0] != want {
				t.Fatalf("input %q: expected %q, got %v", tc.input, want, fld.Errors)
			}
		}
	}
}

func TestRangeSingleBoundMessages(t *testing.T) {
	low := &Field{Name: "n", Kind: NewInteger(), RangeStart: floatPtr(10)}
	low.SetInput("5")
	if low.Validate(message.Default()) {
		t.Fatal("expected range failure")
	}
	if low.Errors[0] != "value must be greater than or equal to 10" {
		t.Fatalf("unexpected min message: %q", low.Errors[0])
	}

	high := &Field{Name: "n", Kind: NewInteger(), RangeEnd: floatPtr(10)}
	high.SetInput("11")
	if high.Validate(message.Default()) {
		t.Fatal("expected range failure")
	}
	if high.Errors[0] != "value must be less than or equal to 10" {
		t.Fatalf("unexpected max message: %q", high.Errors[0])
	}
}

func TestRangeSkippedForOptionFields(t *testing.T) {
	fld := &Field{
		Name:       "level",
		Kind:       NewSelect(),
		RangeStart: floatPtr(100),
		Options:    []Option{{Value: "2", Label: "Two"}},
	}
	fld.SetInput("2")

	if !fld.Validate(message.Default()) {
		t.Fatalf("option fields skip range checks, errors: %v", fld.Errors)
	}
}

func TestOptionsRejectUnknownValue(t *testing.T) {
	fld := &Field{
		Name: "genre",
		Kind: NewMultiple(),
		Options: []Option{
			{Value: "1", Label: "Reference"},
			{Value: "2", Label: "Textbook"},
		},
	}
	fld.SetInput("1", "9")

	if fld.Validate(message.Default()) {
		t.Fatal("unknown option value must fail")
	}
	if fld.Errors[0] != "'9' is not a valid value" {
		t.Fatalf("unexpected message: %q", fld.Errors[0])
	}
	if fld.Value != nil {
		t.Fatalf("no value may be committed alongside errors, got %v", fld.Value)
	}
}

func TestMultipleAcceptsScalarAndSelectAcceptsArray(t *testing.T) {
	options := []Option{{Value: "4"}, {Value: "6"}}

	multi := &Field{Name: "genres", Kind: NewMultiple(), Options: options}
	multi.SetInput("4")
	if !multi.Validate(message.Default()) {
		t.Fatalf("scalar into multiple must pass, errors: %v", multi.Errors)
	}

	sel := &Field{Name: "tags", Kind: NewSelect(), Options: options}
	sel.SetInput("4", "6")
	if !sel.Validate(message.Default()) {
		t.Fatalf("array into select must pass, errors: %v", sel.Errors)
	}
}

func TestMultipleRejectedForSingleValuedKinds(t *testing.T) {
	fld := &Field{Name: "age", Kind: NewInteger()}
	fld.SetInput("1", "2")

	if fld.Validate(message.Default()) {
		t.Fatal("multi-valued input into integer must fail")
	}
	if fld.Errors[0] != "This field does not take multiple values" {
		t.Fatalf("unexpected message: %q", fld.Errors[0])
	}
}

func TestStagedValueDiscardedOnLaterFailure(t *testing.T) {
	fld := &Field{
		Name:       "born",
		Kind:       NewInteger(),
		RangeStart: floatPtr(1900),
	}
	fld.SetInput("1800")

	if fld.Validate(message.Default()) {
		t.Fatal("expected range failure")
	}
	if _, staged := fld.Staged(); staged {
		t.Fatal("staged state must be discarded on failure")
	}
	if fld.Value != nil {
		t.Fatalf("value must stay undefined, got %v", fld.Value)
	}
}

func TestFormatValueDefault(t *testing.T) {
	fld := &Field{Name: "title", Kind: NewText()}
	fld.SetInput("Go")
	fld.Validate(message.Default())

	want := map[string]string{"title": "Go"}
	if diff := cmp.Diff(want, fld.FormatValue()); diff != "" {
		t.Fatalf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestValueStrings(t *testing.T) {
	fld := &Field{Name: "genres", Kind: NewMultiple()}
	fld.Value = []string{"4", "6"}

	if diff := cmp.Diff([]string{"4", "6"}, fld.ValueStrings()); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	fld.Value = nil
	if got := fld.ValueStrings(); got != nil {
		t.Fatalf("nil value must yield nil, got %v", got)
	}
}
