// Package seed holds the reference directory loaded by `directoryctl seed`.
package seed

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

//go:embed universities.yaml
var universitiesYAML []byte

// Table is the full seed document.
type Table struct {
	Universities []University `yaml:"universities"`
}

// University is one institution with its faculties.
type University struct {
	Name         string    `yaml:"name"`
	Abbreviation string    `yaml:"abbreviation"`
	State        string    `yaml:"state"`
	Ownership    string    `yaml:"ownership"`
	Website      string    `yaml:"website"`
	Faculties    []Faculty `yaml:"faculties"`
}

// Faculty groups departments.
type Faculty struct {
	Name         string       `yaml:"name"`
	Abbreviation string       `yaml:"abbreviation"`
	Departments  []Department `yaml:"departments"`
}

// Department lists program durations keyed by degree type.
type Department struct {
	Name         string         `yaml:"name"`
	Abbreviation string         `yaml:"abbreviation"`
	Durations    map[string]int `yaml:"durations"`
}

// Load parses the embedded table.
func Load() (*Table, error) {
	return Decode(bytes.NewReader(universitiesYAML))
}

// Decode parses a seed table and rejects unknown keys.
func Decode(r io.Reader) (*Table, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var table Table
	if err := dec.Decode(&table); err != nil {
		return nil, fmt.Errorf("decode seed table: %w", err)
	}
	for i, u := range table.Universities {
		if u.Name == "" || u.Abbreviation == "" {
			return nil, fmt.Errorf("seed university %d: name and abbreviation required", i)
		}
	}
	return &table, nil
}
