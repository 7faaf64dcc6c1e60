// Command formbind-cli builds a form from a declarative profile and runs one
// interactive validation cycle against it: prompt for every field, validate,
// and print either the errors or the resulting value map.
package main

import (
	"flag"
	"fmt"
	"log"
	"sort"

	"github.com/goliatone/go-formbind/pkg/form"
	"github.com/goliatone/go-formbind/pkg/profile"
	"github.com/goliatone/go-formbind/pkg/profile/openapi"
	"github.com/goliatone/go-formbind/pkg/tui"
)

func main() {
	profilePath := flag.String("profile", "", "form profile YAML path")
	openapiPath := flag.String("openapi", "", "OpenAPI document path (alternative to -profile)")
	operationID := flag.String("operation", "", "operation ID when loading from OpenAPI")
	name := flag.String("name", "", "form name (defaults to the profile name)")
	flag.Parse()

	prof, err := loadProfile(*profilePath, *openapiPath, *operationID)
	if err != nil {
		log.Fatalf("Failed to load profile: %v", err)
	}

	f, err := form.New(*name, prof)
	if err != nil {
		log.Fatalf("Failed to build form: %v", err)
	}

	params, err := tui.Collect(f, tui.NewSurveyDriver())
	if err != nil {
		log.Fatalf("Prompt failed: %v", err)
	}

	ok, err := f.Validate(params)
	if err != nil {
		log.Fatalf("Validation failed: %v", err)
	}

	if !ok {
		fmt.Println("Form is invalid:")
		for _, fld := range f.Fields() {
			for _, msg := range fld.Errors {
				fmt.Printf("  %s: %s\n", fld.Name, msg)
			}
		}
		return
	}

	fmt.Println("Form is valid:")
	values := f.FIF()
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("  %s = %s\n", key, values[key])
	}
}

func loadProfile(profilePath, openapiPath, operationID string) (*profile.Profile, error) {
	switch {
	case profilePath != "":
		return profile.LoadYAML(profilePath)
	case openapiPath != "":
		if operationID == "" {
			return nil, fmt.Errorf("-operation is required with -openapi")
		}
		return openapi.LoadFile(openapiPath, operationID)
	default:
		return nil, fmt.Errorf("one of -profile or -openapi is required")
	}
}
