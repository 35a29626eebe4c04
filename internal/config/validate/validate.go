package validate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidateAgainstSchema compiles schema under name and validates the JSON
// document data against it. ref selects a sub-schema ("#/$defs/x") and
// may be empty.
func ValidateAgainstSchema(name string, schema []byte, data []byte, ref string) error {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(name, bytes.NewReader(schema)); err != nil {
		return fmt.Errorf("loading schema %s: %w", name, err)
	}

	target := name
	if ref != "" {
		if !strings.HasPrefix(ref, "#") {
			ref = "#" + ref
		}
		target = name + ref
	}
	compiled, err := compiler.Compile(target)
	if err != nil {
		return fmt.Errorf("compiling schema %s: %w", target, err)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := compiled.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
