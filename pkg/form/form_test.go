package form

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formbind/pkg/field"
	"github.com/goliatone/go-formbind/pkg/profile"
)

func mustForm(t *testing.T, name string, prof *profile.Profile, opts ...Option) *Form {
	t.Helper()
	f, err := New(name, prof, opts...)
	if err != nil {
		t.Fatalf("build form: %v", err)
	}
	return f
}

func fieldNames(f *Form) []string {
	names := make([]string, 0, len(f.Fields()))
	for _, fld := range f.Fields() {
		names = append(names, fld.Name)
	}
	return names
}

func TestNewRequiresNameAndProfile(t *testing.T) {
	if _, err := New("book", nil); !errors.Is(err, ErrNoProfile) {
		t.Fatalf("expected ErrNoProfile, got %v", err)
	}

	prof := &profile.Profile{Required: []profile.Decl{{Name: "title"}}}
	if _, err := New("", prof); !errors.Is(err, ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}

	prof.Name = "book"
	f := mustForm(t, "", prof)
	if f.Name() != "book" {
		t.Fatalf("name must fall back to the profile name, got %q", f.Name())
	}
}

func TestBuildOrderAndDefaults(t *testing.T) {
	prof := &profile.Profile{
		Name:     "book",
		Fields:   []profile.Decl{{Name: "id", Type: "hidden"}},
		Required: []profile.Decl{{Name: "title"}},
		Optional: []profile.Decl{{Name: "pages", Type: "posinteger"}},
	}
	f := mustForm(t, "", prof)

	want := []string{"id", "title", "pages"}
	if diff := cmp.Diff(want, fieldNames(f)); diff != "" {
		t.Fatalf("field order mismatch (-want +got):\n%s", diff)
	}

	title, _ := f.Field("title")
	if title.Kind.Name() != "text" {
		t.Fatalf("missing type must default to text, got %q", title.Kind.Name())
	}
	if !title.Required {
		t.Fatal("required section must set the flag")
	}

	pages, _ := f.Field("pages")
	if pages.Required {
		t.Fatal("optional section must not set the flag")
	}
}

func TestBuildExplicitOrderWins(t *testing.T) {
	prof := &profile.Profile{
		Name: "book",
		Required: []profile.Decl{
			{Name: "title", Order: 2},
			{Name: "isbn", Order: 1},
		},
	}
	f := mustForm(t, "", prof)

	want := []string{"isbn", "title"}
	if diff := cmp.Diff(want, fieldNames(f)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildUnknownTypeFails(t *testing.T) {
	prof := &profile.Profile{
		Name:     "book",
		Required: []profile.Decl{{Name: "title", Type: "holograph"}},
	}
	_, err := New("", prof)
	if err == nil || !strings.Contains(err.Error(), `kind "holograph" not found`) {
		t.Fatalf("expected unknown-kind error, got %v", err)
	}
}

func TestBuildUniqueRulesApplied(t *testing.T) {
	prof := &profile.Profile{
		Name:     "user",
		Required: []profile.Decl{{Name: "login"}, {Name: "email"}},
		Unique:   profile.UniqueRules{"login": "That login is taken", "email": ""},
	}
	f := mustForm(t, "", prof)

	login, _ := f.Field("login")
	if !login.Unique || login.UniqueMessage != "That login is taken" {
		t.Fatalf("unique rule not applied: %+v", login)
	}
	email, _ := f.Field("email")
	if !email.Unique || email.UniqueMessage != "" {
		t.Fatalf("list-form unique rule must keep the default message: %+v", email)
	}
}

type staticGuesser map[string]string

func (g staticGuesser) GuessType(name string) (string, error) {
	kind, ok := g[name]
	if !ok {
		return "", fmt.Errorf("no column or relationship %q", name)
	}
	return kind, nil
}

func TestAutoFieldsUseTypeGuesser(t *testing.T) {
	prof := &profile.Profile{
		Name:         "book",
		AutoRequired: []string{"title"},
		AutoOptional: []string{"pages", "genres"},
	}

	if _, err := New("", prof); !errors.Is(err, ErrNoTypeGuesser) {
		t.Fatalf("expected ErrNoTypeGuesser, got %v", err)
	}

	guesser := staticGuesser{"title": "text", "pages": "integer", "genres": "multiple"}
	f := mustForm(t, "", prof, WithTypeGuesser(guesser))

	title, _ := f.Field("title")
	if !title.Required || title.Kind.Name() != "text" {
		t.Fatalf("auto required field mismatch: %+v", title)
	}
	genres, _ := f.Field("genres")
	if genres.Kind.Name() != "multiple" {
		t.Fatalf("guessed kind mismatch: %q", genres.Kind.Name())
	}
}

func TestValidateHappyPath(t *testing.T) {
	prof := &profile.Profile{
		Name:     "book",
		Required: []profile.Decl{{Name: "title"}},
		Optional: []profile.Decl{{Name: "pages", Type: "posinteger"}},
	}
	f := mustForm(t, "", prof)

	ok, err := f.Validate(Submission{"title": {"Go"}, "pages": {"120"}})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !ok || !f.Validated() {
		t.Fatalf("expected valid form, errors: %v", f.Errors())
	}

	pages, _ := f.Field("pages")
	if pages.Value != "120" {
		t.Fatalf("unexpected pages value: %v", pages.Value)
	}
}

func TestValidateAggregatesAllErrors(t *testing.T) {
	prof := &profile.Profile{
		Name: "book",
		Required: []profile.Decl{
			{Name: "title"},
			{Name: "pages", Type: "posinteger"},
		},
	}
	f := mustForm(t, "", prof)

	ok, err := f.Validate(Submission{"pages": {"-4"}})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if ok {
		t.Fatal("expected validation failure")
	}
	if f.ErrorCount() != 2 {
		t.Fatalf("expected both fields to report, got %v", f.Errors())
	}
}

func TestValidateResultIsCachedUntilClear(t *testing.T) {
	prof := &profile.Profile{
		Name:     "book",
		Required: []profile.Decl{{Name: "title"}},
	}
	f := mustForm(t, "", prof)

	if ok, _ := f.Validate(Submission{}); ok {
		t.Fatal("expected failure on empty submission")
	}
	// A second call must not re-run against the new submission.
	if ok, _ := f.Validate(Submission{"title": {"Go"}}); ok {
		t.Fatal("second call must return the cached verdict")
	}

	f.Clear()
	if f.ErrorCount() != 0 {
		t.Fatalf("clear must drop field errors, got %v", f.Errors())
	}
	if ok, _ := f.Validate(Submission{"title": {"Go"}}); !ok {
		t.Fatalf("fresh run must pass, errors: %v", f.Errors())
	}
}

func TestValidateHTMLPrefix(t *testing.T) {
	prof := &profile.Profile{
		Name:       "book",
		HTMLPrefix: true,
		Required:   []profile.Decl{{Name: "title"}},
	}
	f := mustForm(t, "", prof)

	if got := f.FullName("title"); got != "book.title" {
		t.Fatalf("unexpected full name %q", got)
	}

	ok, _ := f.Validate(Submission{"book.title": {"Go"}, "title": {"ignored"}})
	if !ok {
		t.Fatalf("prefixed key must be used, errors: %v", f.Errors())
	}
	title, _ := f.Field("title")
	if title.Value != "Go" {
		t.Fatalf("unexpected value %v", title.Value)
	}
}

func TestValidateDependencyGroup(t *testing.T) {
	prof := &profile.Profile{
		Name: "contact",
		Optional: []profile.Decl{
			{Name: "address"}, {Name: "city"}, {Name: "state"}, {Name: "zip"},
		},
		Dependency: [][]string{{"address", "city", "state", "zip"}},
	}
	f := mustForm(t, "", prof)

	ok, _ := f.Validate(Submission{"address": {"4 Privet Dr"}})
	if ok {
		t.Fatal("partial group submission must fail")
	}
	if f.ErrorCount() != 3 {
		t.Fatalf("expected the three blank members to fail, got %v", f.Errors())
	}
	for _, name := range []string{"city", "state", "zip"} {
		fld, _ := f.Field(name)
		if fld.Required {
			t.Fatalf("required flag on %q must revert after validation", name)
		}
		if len(fld.Errors) != 1 {
			t.Fatalf("expected one error on %q, got %v", name, fld.Errors)
		}
	}

	f.Clear()
	if ok, _ := f.Validate(Submission{}); !ok {
		t.Fatalf("untouched group must stay optional, errors: %v", f.Errors())
	}
}

func TestValidateClearFieldSkipsCycle(t *testing.T) {
	prof := &profile.Profile{
		Name:     "user",
		Optional: []profile.Decl{{Name: "avatar", Clear: true}},
	}
	f := mustForm(t, "", prof)

	ok, _ := f.Validate(Submission{"avatar": {"stale.png"}})
	if !ok {
		t.Fatalf("clear fields never fail, errors: %v", f.Errors())
	}
	avatar, _ := f.Field("avatar")
	if avatar.Value != nil {
		t.Fatalf("clear fields must not commit a value, got %v", avatar.Value)
	}
}

func TestValidateFieldHook(t *testing.T) {
	prof := &profile.Profile{
		Name:     "book",
		Required: []profile.Decl{{Name: "title"}},
		Optional: []profile.Decl{{Name: "notes"}},
	}
	f := mustForm(t, "", prof)

	if err := f.OnValidate("missing", nil); err == nil {
		t.Fatal("hook on unknown field must fail")
	}

	hookRan := false
	err := f.OnValidate("title", func(fld *field.Field) {
		hookRan = true
		if fld.Value == "Mistakes Were Made" {
			fld.AddError("We do not stock that title")
		}
	})
	if err != nil {
		t.Fatalf("register hook: %v", err)
	}
	notesRan := false
	if err := f.OnValidate("notes", func(*field.Field) { notesRan = true }); err != nil {
		t.Fatalf("register hook: %v", err)
	}

	ok, _ := f.Validate(Submission{"title": {"Mistakes Were Made"}})
	if ok {
		t.Fatal("hook error must fail the form")
	}
	if !hookRan {
		t.Fatal("hook did not run")
	}
	if notesRan {
		t.Fatal("hooks must not run for fields without a value")
	}
	if f.Errors()["title"][0] != "We do not stock that title" {
		t.Fatalf("unexpected errors: %v", f.Errors())
	}
}

func TestValidateCrossHook(t *testing.T) {
	prof := &profile.Profile{
		Name: "event",
		Required: []profile.Decl{
			{Name: "starts", Type: "date"},
			{Name: "ends", Type: "date"},
		},
	}
	f := mustForm(t, "", prof)

	f.OnCrossValidate(func(form *Form, _ Submission) {
		starts, _ := form.Field("starts")
		ends, _ := form.Field("ends")
		if fmt.Sprint(starts.Value) > fmt.Sprint(ends.Value) {
			ends.AddError("must not end before it starts")
		}
	})

	ok, _ := f.Validate(Submission{
		"starts": {"2023-05-02"},
		"ends":   {"2023-05-01"},
	})
	if ok {
		t.Fatal("cross rule must fail the form")
	}
	if f.Errors()["ends"][0] != "must not end before it starts" {
		t.Fatalf("unexpected errors: %v", f.Errors())
	}
}

func TestValidateModelHookErrorPropagates(t *testing.T) {
	prof := &profile.Profile{
		Name:     "book",
		Required: []profile.Decl{{Name: "title"}},
	}
	f := mustForm(t, "", prof)

	boom := errors.New("connection reset")
	f.OnModelValidate(func(*Form) error { return boom })

	_, err := f.Validate(Submission{"title": {"Go"}})
	if !errors.Is(err, boom) {
		t.Fatalf("model hook error must propagate, got %v", err)
	}
	if f.Validated() {
		t.Fatal("form must not report validated after a model failure")
	}
}

func TestSanitizerScrubsTextOnly(t *testing.T) {
	prof := &profile.Profile{
		Name: "post",
		Required: []profile.Decl{
			{Name: "body", Type: "textarea"},
			{Name: "tag", Type: "select", Options: []profile.Option{{Value: "a&b", Label: "A and B"}}},
		},
	}
	f := mustForm(t, "", prof, WithSanitizer(bluemonday.StrictPolicy()))

	ok, _ := f.Validate(Submission{
		"body": {`hello <script>alert(1)</script>`},
		"tag":  {"a&b"},
	})
	if !ok {
		t.Fatalf("unexpected errors: %v", f.Errors())
	}

	body, _ := f.Field("body")
	if strings.Contains(fmt.Sprint(body.Value), "<script>") {
		t.Fatalf("markup must be stripped, got %v", body.Value)
	}
	tag, _ := f.Field("tag")
	if got := tag.ValueStrings(); len(got) != 1 || got[0] != "a&b" {
		t.Fatalf("choice input must pass through unscrubbed, got %v", got)
	}
}

func TestFIFSkipsSecretsAndMergesInOrder(t *testing.T) {
	prof := &profile.Profile{
		Name: "user",
		Required: []profile.Decl{
			{Name: "login"},
			{Name: "password", Type: "password"},
			{Name: "token", WriteOnly: true},
			{Name: "joined", Type: "datesplit"},
		},
	}
	f := mustForm(t, "", prof)

	ok, _ := f.Validate(Submission{
		"login":    {"hermione"},
		"password": {"alohomora"},
		"token":    {"t-123"},
		"joined":   {"1991-09-01"},
	})
	if !ok {
		t.Fatalf("unexpected errors: %v", f.Errors())
	}

	want := map[string]string{
		"login":        "hermione",
		"joined.year":  "1991",
		"joined.month": "09",
		"joined.day":   "01",
	}
	if diff := cmp.Diff(want, f.FIF()); diff != "" {
		t.Fatalf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmissionFromValues(t *testing.T) {
	got := SubmissionFromValues(map[string]string{"title": "Go"})
	want := Submission{"title": {"Go"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}
