package crop

import (
	"bytes"
	"fmt"
	"os"

	yaml "go.yaml.in/yaml/v3"
)

type fileSchema struct {
	Default string       `yaml:"default"`
	Crops   []Definition `yaml:"crops"`
}

// LoadFile reads crop definitions from a YAML file.
//
//	default: iris
//	crops:
//	  - id: iris
//	    name: Iris
//	    tasks:
//	      - {offset: 0, title: Plant, phase: Planting, kind: plant}
//	    stages:
//	      - key: before_flowering
//	        rates: [{nutrient: N, per_m2: 20}]
func LoadFile(path string) (*Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse decodes a YAML crop document. Unknown keys are rejected.
func Parse(data []byte) (*Table, error) {
	var doc fileSchema
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("crop yaml: %w", err)
	}
	t, err := NewTable(doc.Crops...)
	if err != nil {
		return nil, err
	}
	return t.WithDefault(doc.Default)
}
