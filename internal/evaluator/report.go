package evaluator

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// DefaultReportPath is where reports go when no path is configured.
const DefaultReportPath = "evaluation_results.json"

//go:embed report.schema.json
var reportSchemaJSON string

const reportSchemaURL = "report.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func reportSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(reportSchemaURL, strings.NewReader(reportSchemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add report schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(reportSchemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile report schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}

// ValidateReport checks encoded report JSON against the report schema.
func ValidateReport(data []byte) error {
	s, err := reportSchema()
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("decode report: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("report does not match schema: %w", err)
	}
	return nil
}

// WriteReport encodes r as indented JSON, validates it and writes it to path.
func WriteReport(path string, r Report) error {
	if path == "" {
		path = DefaultReportPath
	}
	if r.Results == nil {
		r.Results = []Record{}
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := ValidateReport(data); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
