package compiler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/stepwise/pkg/adapters/catalog"
	"github.com/aretw0/stepwise/pkg/domain"
	"gopkg.in/yaml.v3"
)

// ErrInvalidFlow is returned when a flow file fails to compile.
var ErrInvalidFlow = errors.New("invalid flow")

// Flow is a compiled flow file: the wizard steps and, optionally, the
// catalog that feeds them.
type Flow struct {
	Name    string
	Title   string
	Steps   []domain.StepDefinition
	Catalog *catalog.Catalog
}

// rawFlow is the document layout:
//
//	name: grant-permissions
//	title: Grant permissions
//	steps:
//	  - id: modules
//	    level: 0
//	    require_selection: [modules]
//	  - id: menus
//	    parent: modules
//	  - id: notes
//	    kind: fields
//	    require_committed: [menus]
//	catalog:
//	  level0: [...]
type rawFlow struct {
	Name    string           `yaml:"name"`
	Title   string           `yaml:"title"`
	Steps   []rawStep        `yaml:"steps"`
	Catalog *catalog.Catalog `yaml:"catalog"`
}

type rawStep struct {
	ID               string             `yaml:"id"`
	Title            string             `yaml:"title"`
	Kind             domain.PayloadKind `yaml:"kind"`
	Level            *int               `yaml:"level"`
	Parent           string             `yaml:"parent"`
	RequireSelection []string           `yaml:"require_selection"`
	RequireCommitted []string           `yaml:"require_committed"`
}

// Parser compiles flow documents.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// Parse compiles a flow document. Every problem found is reported in one error.
func (p *Parser) Parse(data []byte) (*Flow, error) {
	var raw rawFlow
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidFlow)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidFlow, err)
	}
	return compile(raw)
}

// ParseFile reads and compiles the flow at path.
func (p *Parser) ParseFile(path string) (*Flow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow: %w", err)
	}
	flow, err := p.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return flow, nil
}
