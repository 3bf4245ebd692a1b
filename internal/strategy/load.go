package strategy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load decodes a strategy definition from JSON or YAML, applies defaults
// and validates it.
func Load(data []byte, format string) (*Definition, error) {
	var def Definition

	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("strategy: parse yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("strategy: parse json: %w", err)
		}
	}

	def.ApplyDefaults()
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadFile loads a strategy definition from path, picking the format from
// the file extension (.yaml/.yml vs .json).
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("strategy: read %s: %w", path, err)
	}
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	return Load(data, format)
}
