package profile

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const bookProfile = `
name: book
html_prefix: true
required:
  - title
  - name: isbn
    unique: true
    unique_message: That ISBN is already in use
optional:
  - name: pages
    type: posinteger
    min: 1
  - name: publisher
    type: select
    source:
      table: publishers
      label_column: name
  - notes
`

func TestParseYAMLScalarAndMappingDecls(t *testing.T) {
	prof, err := ParseYAML([]byte(bookProfile))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if prof.Name != "book" || !prof.HTMLPrefix {
		t.Fatalf("header mismatch: %+v", prof)
	}

	wantNames := []string{"title", "isbn", "pages", "publisher", "notes"}
	if diff := cmp.Diff(wantNames, prof.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	isbn := prof.Required[1]
	if !isbn.Unique || isbn.UniqueMsg != "That ISBN is already in use" {
		t.Fatalf("unique decl mismatch: %+v", isbn)
	}

	pages := prof.Optional[0]
	if pages.Type != "posinteger" || pages.Min == nil || *pages.Min != 1 {
		t.Fatalf("pages decl mismatch: %+v", pages)
	}

	publisher := prof.Optional[1]
	if publisher.Source == nil || publisher.Source.Table != "publishers" || publisher.Source.LabelColumn != "name" {
		t.Fatalf("source decl mismatch: %+v", publisher.Source)
	}
}

func TestParseYAMLUniqueListForm(t *testing.T) {
	prof, err := ParseYAML([]byte(`
name: user
required: [login, email]
unique: [login, email]
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := UniqueRules{"login": "", "email": ""}
	if diff := cmp.Diff(want, prof.Unique); diff != "" {
		t.Fatalf("unique mismatch (-want +got):\n%s", diff)
	}
}

func TestParseYAMLUniqueMapForm(t *testing.T) {
	prof, err := ParseYAML([]byte(`
name: user
required: [login]
unique:
  login: That login is taken
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if prof.Unique["login"] != "That login is taken" {
		t.Fatalf("unique message mismatch: %+v", prof.Unique)
	}
}

func TestValidateEmptyProfile(t *testing.T) {
	var prof Profile
	if err := prof.Validate(); !errors.Is(err, ErrNoFields) {
		t.Fatalf("expected ErrNoFields, got %v", err)
	}
}

func TestValidateDuplicateNames(t *testing.T) {
	prof := &Profile{
		Required: []Decl{{Name: "title"}},
		Optional: []Decl{{Name: "title"}},
	}
	err := prof.Validate()
	if err == nil || !strings.Contains(err.Error(), `duplicate field "title"`) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestValidateDependencyGroups(t *testing.T) {
	short := &Profile{
		Required:   []Decl{{Name: "address"}},
		Dependency: [][]string{{"address"}},
	}
	if err := short.Validate(); err == nil {
		t.Fatal("single-member group must fail")
	}

	unknown := &Profile{
		Required:   []Decl{{Name: "address"}},
		Dependency: [][]string{{"address", "city"}},
	}
	err := unknown.Validate()
	if err == nil || !strings.Contains(err.Error(), `unknown field "city"`) {
		t.Fatalf("expected unknown-member error, got %v", err)
	}
}

func TestValidateUniqueReferences(t *testing.T) {
	prof := &Profile{
		Required: []Decl{{Name: "title"}},
		Unique:   UniqueRules{"isbn": ""},
	}
	err := prof.Validate()
	if err == nil || !strings.Contains(err.Error(), `unknown field "isbn"`) {
		t.Fatalf("expected unknown-field error, got %v", err)
	}
}
