/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/suparena/entityservice/errors"
)

// LoadEntitySchema compiles the JSON schema at path. Files ending in .yaml or .yml are
// parsed as YAML, anything else as JSON.
func LoadEntitySchema(path string) (*gojsonschema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigurationError("schemaFile", fmt.Sprintf("failed to read %s: %v", path, err))
	}
	return ParseEntitySchema(data, filepath.Ext(path))
}

// ParseEntitySchema compiles a schema document. ext selects the format like a file extension.
func ParseEntitySchema(data []byte, ext string) (*gojsonschema.Schema, error) {
	var loader gojsonschema.JSONLoader
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errors.NewConfigurationError("schemaFile", fmt.Sprintf("invalid YAML: %v", err))
		}
		loader = gojsonschema.NewGoLoader(doc)
	default:
		loader = gojsonschema.NewBytesLoader(data)
	}

	schema, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, errors.NewConfigurationError("schemaFile", fmt.Sprintf("invalid schema: %v", err))
	}
	return schema, nil
}
