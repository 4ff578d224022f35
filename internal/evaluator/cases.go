package evaluator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type battery struct {
	Cases []Case `json:"cases" yaml:"cases"`
}

// LoadCases reads a battery from a .json, .yaml or .yml file holding a
// top-level "cases" list.
func LoadCases(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var b battery
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &b)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &b)
	default:
		return nil, fmt.Errorf("unsupported battery format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("parse battery %s: %w", path, err)
	}
	if err := ValidateCases(b.Cases); err != nil {
		return nil, err
	}
	return b.Cases, nil
}

func ValidateCases(cases []Case) error {
	if len(cases) == 0 {
		return fmt.Errorf("%w: battery is empty", ErrInvalidCase)
	}
	for i, c := range cases {
		if strings.TrimSpace(c.Question) == "" {
			return fmt.Errorf("%w: case %d has no question", ErrInvalidCase, i)
		}
		if !c.Expected.Valid() {
			return fmt.Errorf("%w: case %d has unknown expectation %q", ErrInvalidCase, i, c.Expected)
		}
	}
	return nil
}
