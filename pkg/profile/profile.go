// Package profile defines the declarative form profile: which fields a form
// carries, which are required, how choice fields source their options, and
// the cross-field rules (dependency groups, uniqueness) the form enforces.
package profile

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoFields is returned when a profile declares no field at all.
	ErrNoFields = errors.New("profile: at least one field declaration is required")
)

// Option declares one static {value, label} pair for a choice field.
type Option struct {
	Value string `yaml:"value"`
	Label string `yaml:"label"`
}

// Source declares where a relation-backed field finds its options and links.
type Source struct {
	Table        string `yaml:"table"`
	Relation     string `yaml:"relation"`
	LabelColumn  string `yaml:"label_column"`
	SortColumn   string `yaml:"sort_column"`
	ActiveColumn string `yaml:"active_column"`
}

// Decl declares one field. In YAML a declaration may be a bare string (the
// field name, defaulting to the text type) or a full mapping.
type Decl struct {
	Name     string   `yaml:"name"`
	Type     string   `yaml:"type"`
	Label    string   `yaml:"label"`
	Required bool     `yaml:"required"`
	Order    int      `yaml:"order"`
	Multiple bool     `yaml:"multiple"`
	Options  []Option `yaml:"options"`

	Min *float64 `yaml:"min"`
	Max *float64 `yaml:"max"`
	// Format is a printf-style template applied when copying input to value.
	Format string `yaml:"format"`

	Password  bool   `yaml:"password"`
	WriteOnly bool   `yaml:"writeonly"`
	NoUpdate  bool   `yaml:"noupdate"`
	Clear     bool   `yaml:"clear"`
	Disabled  bool   `yaml:"disabled"`
	ReadOnly  bool   `yaml:"readonly"`
	Unique    bool   `yaml:"unique"`
	UniqueMsg string `yaml:"unique_message"`

	Source *Source `yaml:"source"`
}

// UnmarshalYAML accepts either a scalar field name or a full mapping.
func (d *Decl) UnmarshalYAML(unmarshal func(any) error) error {
	var name string
	if err := unmarshal(&name); err == nil {
		d.Name = strings.TrimSpace(name)
		return nil
	}
	type plain Decl
	var decoded plain
	if err := unmarshal(&decoded); err != nil {
		return err
	}
	*d = Decl(decoded)
	d.Name = strings.TrimSpace(d.Name)
	return nil
}

// UniqueRules maps field names to a custom uniqueness message; an empty
// message selects the catalog default. In YAML the rules may be a sequence of
// names or a name-to-message mapping.
type UniqueRules map[string]string

// UnmarshalYAML accepts both the list and the map form.
func (u *UniqueRules) UnmarshalYAML(unmarshal func(any) error) error {
	var names []string
	if err := unmarshal(&names); err == nil {
		rules := make(UniqueRules, len(names))
		for _, name := range names {
			rules[strings.TrimSpace(name)] = ""
		}
		*u = rules
		return nil
	}
	var mapped map[string]string
	if err := unmarshal(&mapped); err != nil {
		return err
	}
	rules := make(UniqueRules, len(mapped))
	for name, msg := range mapped {
		rules[strings.TrimSpace(name)] = msg
	}
	*u = rules
	return nil
}

// Profile is the declarative description of one form.
type Profile struct {
	Name string `yaml:"name"`
	// HTMLPrefix qualifies submitted parameter names with "<form>." so
	// several forms can share one page.
	HTMLPrefix bool `yaml:"html_prefix"`

	// Fields is the explicit ordered list; Required and Optional append to
	// it with the corresponding required flag.
	Fields   []Decl `yaml:"fields"`
	Required []Decl `yaml:"required"`
	Optional []Decl `yaml:"optional"`

	// AutoRequired and AutoOptional name fields whose type is inferred from
	// the persistent schema at build time.
	AutoRequired []string `yaml:"auto_required"`
	AutoOptional []string `yaml:"auto_optional"`

	// Dependency groups become mutually required once any member is
	// submitted non-blank.
	Dependency [][]string `yaml:"dependency"`

	Unique UniqueRules `yaml:"unique"`
}

// Names returns every declared field name in declaration order.
func (p *Profile) Names() []string {
	var names []string
	for _, decl := range p.Fields {
		names = append(names, decl.Name)
	}
	for _, decl := range p.Required {
		names = append(names, decl.Name)
	}
	for _, decl := range p.Optional {
		names = append(names, decl.Name)
	}
	names = append(names, p.AutoRequired...)
	names = append(names, p.AutoOptional...)
	return names
}

// Validate performs the structural checks that abort form construction:
// unnamed declarations, duplicate names, and cross-field rules referencing
// undeclared fields.
func (p *Profile) Validate() error {
	names := p.Names()
	if len(names) == 0 {
		return ErrNoFields
	}

	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return errors.New("profile: field declaration is missing a name")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("profile: duplicate field %q", name)
		}
		seen[name] = struct{}{}
	}

	for _, group := range p.Dependency {
		if len(group) < 2 {
			return errors.New("profile: dependency groups need at least two members")
		}
		for _, member := range group {
			if _, ok := seen[member]; !ok {
				return fmt.Errorf("profile: dependency group references unknown field %q", member)
			}
		}
	}

	for name := range p.Unique {
		if _, ok := seen[name]; !ok {
			return fmt.Errorf("profile: unique rule references unknown field %q", name)
		}
	}

	return nil
}
