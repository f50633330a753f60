package app

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// schemaFile is the on-disk form of the per-class path schemas:
//
//	schemas:
//	  article: /blog/{title}
//	  page: /{title}
type schemaFile struct {
	Schemas map[string]string `yaml:"schemas"`
}

// LoadSchemas reads path schemas from a YAML file and overlays the inline ones, which win.
func LoadSchemas(path string, inline map[string]string) (map[string]string, error) {
	out := map[string]string{}
	if path = strings.TrimSpace(path); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read route schemas: %w", err)
		}
		var f schemaFile
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("parse route schemas %s: %w", path, err)
		}
		for class, schema := range f.Schemas {
			class, schema = strings.TrimSpace(class), strings.TrimSpace(schema)
			if class == "" || schema == "" {
				continue
			}
			out[class] = schema
		}
	}
	for class, schema := range inline {
		out[class] = schema
	}
	return out, nil
}
