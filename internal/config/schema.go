// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package config

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/knpvt5/auth/internal/auth"
)

// SchemaID is the $id of the generated config schema.
const SchemaID = "https://github.com/knpvt5/auth/schemas/authd.schema.json"

var (
	compileOnce sync.Once
	compiled    *jschema.Schema
	compileErr  error
)

// GenerateSchema returns the JSON Schema for the YAML config file.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(&Config{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "authd configuration"
	schema.Description = "Schema for authd YAML config files"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code(auth.CodeConfigInvalid).Wrapf(err, "marshal schema")
	}
	return data, nil
}

// ValidateYAML checks a YAML config document against the schema. An empty
// document is valid.
func ValidateYAML(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return oops.Code(auth.CodeConfigInvalid).Wrapf(err, "invalid YAML")
	}
	if doc == nil {
		return nil
	}

	// Round-trip through JSON so numbers and maps have the shapes the
	// validator expects.
	raw, err := json.Marshal(doc)
	if err != nil {
		return oops.Code(auth.CodeConfigInvalid).Wrapf(err, "config is not representable as JSON")
	}
	inst, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return oops.Code(auth.CodeConfigInvalid).Wrapf(err, "decode config document")
	}

	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := sch.Validate(inst); err != nil {
		return oops.Code(auth.CodeConfigInvalid).
			With("violations", FormatSchemaError(err)).
			Wrapf(err, "config does not match schema")
	}
	return nil
}

func compiledSchema() (*jschema.Schema, error) {
	compileOnce.Do(func() {
		schemaBytes, err := GenerateSchema()
		if err != nil {
			compileErr = err
			return
		}
		doc, err := jschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			compileErr = oops.Code(auth.CodeConfigInvalid).Wrapf(err, "parse schema")
			return
		}
		c := jschema.NewCompiler()
		if err := c.AddResource(SchemaID, doc); err != nil {
			compileErr = oops.Code(auth.CodeConfigInvalid).Wrapf(err, "add schema resource")
			return
		}
		compiled, err = c.Compile(SchemaID)
		if err != nil {
			compileErr = oops.Code(auth.CodeConfigInvalid).Wrapf(err, "compile schema")
		}
	})
	return compiled, compileErr
}

// FormatSchemaError trims a validation error to its violation lines.
func FormatSchemaError(err error) string {
	if err == nil {
		return ""
	}
	lines := strings.Split(err.Error(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "jsonschema validation failed") {
			continue
		}
		out = append(out, strings.TrimPrefix(line, "- "))
	}
	return strings.Join(out, "; ")
}
