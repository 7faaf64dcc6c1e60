// Package tui collects form submissions interactively. A PromptDriver
// abstracts the terminal so collection logic can be tested with a scripted
// driver; the default driver is backed by survey.
package tui

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/goliatone/go-formbind/pkg/field"
	"github.com/goliatone/go-formbind/pkg/form"
)

// ErrAborted is returned when the user interrupts a prompt.
var ErrAborted = errors.New("tui: prompt aborted")

// InputConfig configures a text or password prompt.
type InputConfig struct {
	Message string
	Default string
	Help    string
}

// ConfirmConfig configures a yes/no prompt.
type ConfirmConfig struct {
	Message string
	Default bool
}

// SelectConfig configures a single or multi-select prompt.
type SelectConfig struct {
	Message  string
	Options  []string
	Defaults []int // indices into Options
}

// PromptDriver abstracts the terminal interaction.
type PromptDriver interface {
	Input(cfg InputConfig) (string, error)
	Password(cfg InputConfig) (string, error)
	Confirm(cfg ConfirmConfig) (bool, error)
	Select(cfg SelectConfig) (int, error)
	MultiSelect(cfg SelectConfig) ([]int, error)
}

// NewSurveyDriver returns the survey-backed driver.
func NewSurveyDriver() PromptDriver { return &surveyDriver{} }

type surveyDriver struct{}

func (d *surveyDriver) Input(cfg InputConfig) (string, error) {
	var out string
	prompt := &survey.Input{Message: cfg.Message, Default: cfg.Default, Help: cfg.Help}
	if err := survey.AskOne(prompt, &out); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func (d *surveyDriver) Password(cfg InputConfig) (string, error) {
	var out string
	prompt := &survey.Password{Message: cfg.Message, Help: cfg.Help}
	if err := survey.AskOne(prompt, &out); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func (d *surveyDriver) Confirm(cfg ConfirmConfig) (bool, error) {
	var out bool
	prompt := &survey.Confirm{Message: cfg.Message, Default: cfg.Default}
	if err := survey.AskOne(prompt, &out); err != nil {
		return false, translateSurveyErr(err)
	}
	return out, nil
}

func (d *surveyDriver) Select(cfg SelectConfig) (int, error) {
	var out int
	prompt := &survey.Select{Message: cfg.Message, Options: cfg.Options}
	if len(cfg.Defaults) > 0 {
		prompt.Default = cfg.Options[cfg.Defaults[0]]
	}
	if err := survey.AskOne(prompt, &out); err != nil {
		return 0, translateSurveyErr(err)
	}
	return out, nil
}

func (d *surveyDriver) MultiSelect(cfg SelectConfig) ([]int, error) {
	var out []int
	prompt := &survey.MultiSelect{Message: cfg.Message, Options: cfg.Options}
	if len(cfg.Defaults) > 0 {
		defaults := make([]string, 0, len(cfg.Defaults))
		for _, idx := range cfg.Defaults {
			defaults = append(defaults, cfg.Options[idx])
		}
		prompt.Default = defaults
	}
	if err := survey.AskOne(prompt, &out); err != nil {
		return nil, translateSurveyErr(err)
	}
	return out, nil
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}

// Collect walks the form's fields in declared order and prompts for each,
// returning a submission keyed by the prefix-qualified parameter names.
// Hidden, read-only and disabled fields are skipped; their values come from
// the bound record, not the terminal.
func Collect(f *form.Form, driver PromptDriver) (form.Submission, error) {
	params := make(form.Submission)

	for _, fld := range f.Fields() {
		if fld.ReadOnly || fld.Disabled || fld.Kind.Name() == "hidden" {
			continue
		}

		values, err := promptField(fld, driver)
		if err != nil {
			return nil, err
		}
		if values != nil {
			params[f.FullName(fld.Name)] = values
		}
	}
	return params, nil
}

func promptField(fld *field.Field, driver PromptDriver) ([]string, error) {
	msg := fld.Label
	if msg == "" {
		msg = fld.Name
	}
	if fld.Required {
		msg += " (required)"
	}

	switch {
	case fld.Password:
		value, err := driver.Password(InputConfig{Message: msg})
		if err != nil {
			return nil, err
		}
		return []string{value}, nil

	case fld.Kind.Name() == "boolean":
		value, err := driver.Confirm(ConfirmConfig{Message: msg})
		if err != nil {
			return nil, err
		}
		if value {
			return []string{"1"}, nil
		}
		return []string{"0"}, nil

	// Selects accept multi-valued input programmatically but present as a
	// single dropdown; only the multiple kind gets checkbox prompts.
	case len(fld.Options) > 0 && (fld.Multiple || fld.Kind.Name() == "multiple"):
		cfg := selectConfig(fld, msg)
		picked, err := driver.MultiSelect(cfg)
		if err != nil {
			return nil, err
		}
		values := make([]string, 0, len(picked))
		for _, idx := range picked {
			values = append(values, fld.Options[idx].Value)
		}
		return values, nil

	case len(fld.Options) > 0:
		cfg := selectConfig(fld, msg)
		picked, err := driver.Select(cfg)
		if err != nil {
			return nil, err
		}
		return []string{fld.Options[picked].Value}, nil

	default:
		value, err := driver.Input(InputConfig{
			Message: msg,
			Default: defaultInput(fld),
		})
		if err != nil {
			return nil, err
		}
		return []string{value}, nil
	}
}

func selectConfig(fld *field.Field, msg string) SelectConfig {
	labels := make([]string, len(fld.Options))
	current := make(map[string]struct{})
	for _, id := range fld.ValueStrings() {
		current[id] = struct{}{}
	}
	var defaults []int
	for i, opt := range fld.Options {
		labels[i] = opt.DisplayLabel()
		if _, ok := current[opt.Value]; ok {
			defaults = append(defaults, i)
		}
	}
	return SelectConfig{Message: msg, Options: labels, Defaults: defaults}
}

func defaultInput(fld *field.Field) string {
	switch v := fld.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
