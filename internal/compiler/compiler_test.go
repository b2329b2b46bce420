package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const permissionsFlow = `
name: grant-permissions
title: Grant permissions
steps:
  - id: modules
    title: Modules
    level: 0
    require_selection: [modules]
  - id: menus
    title: Menus
    parent: modules
    require_selection: [modules, menus]
  - id: apis
    parent: menus
  - id: notes
    kind: fields
    require_committed: [apis]
catalog:
  level0:
    - {id: hr, name: HR}
  level1:
    - {id: hr.emp, name: Employees, parent: hr}
  level2:
    - {id: api.emp.list, name: List employees, parent: hr.emp}
`

func TestParse_PermissionsFlow(t *testing.T) {
	flow, err := NewParser().Parse([]byte(permissionsFlow))
	require.NoError(t, err)

	assert.Equal(t, "grant-permissions", flow.Name)
	assert.Equal(t, "Grant permissions", flow.Title)
	require.Len(t, flow.Steps, 4)
	assert.Equal(t, domain.Level0, flow.Steps[0].Source.Level)
	assert.Equal(t, domain.Level1, flow.Steps[1].Source.Level)
	assert.Equal(t, "modules", flow.Steps[1].Source.ParentStep)
	assert.Equal(t, domain.Level2, flow.Steps[2].Source.Level)
	assert.Equal(t, domain.KindFields, flow.Steps[3].Kind)
	require.NotNil(t, flow.Catalog)
	assert.Len(t, flow.Catalog.Levels(), 3)

	menus := flow.Steps[1]
	assert.False(t, menus.Allows(domain.Payloads{
		"modules": domain.NewSelectionPayload("hr"),
		"menus":   domain.NewSelectionPayload(),
	}))
	assert.True(t, menus.Allows(domain.Payloads{
		"modules": domain.NewSelectionPayload("hr"),
		"menus":   domain.NewSelectionPayload("hr.emp"),
	}))
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		message string
	}{
		{"empty", "", "empty document"},
		{"no steps", "name: x\n", "flow has no steps"},
		{"unknown field", "steps:\n  - id: a\n    colour: red\n", "colour"},
		{"duplicate ids", "steps:\n  - id: a\n  - id: a\n", `duplicate step id "a"`},
		{"later parent", "steps:\n  - id: b\n    parent: a\n  - id: a\n    level: 0\n", `depends on "a"`},
		{"unknown gate ref", "steps:\n  - id: a\n    require_committed: [ghost]\n", `unknown step "ghost"`},
		{"bad kind", "steps:\n  - id: a\n    kind: radio\n", `unknown kind "radio"`},
		{"bad level", "steps:\n  - id: a\n    level: 7\n", "invalid level 7"},
		{"fields with parent", "steps:\n  - id: a\n    level: 0\n  - id: b\n    kind: fields\n    parent: a\n", "cannot have a level"},
		{"dangling catalog parent", "steps:\n  - id: a\n    level: 0\ncatalog:\n  level0: [{id: hr}]\n  level1: [{id: x, parent: nope}]\n", `unknown parent "nope"`},
		{"catalog too shallow", "steps:\n  - id: a\n    level: 0\n  - id: b\n    parent: a\ncatalog:\n  level0: [{id: hr}]\n", "catalog has 1 level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser().Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidFlow)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestParse_ReportsEveryProblem(t *testing.T) {
	_, err := NewParser().Parse([]byte("steps:\n  - id: a\n    kind: radio\n  - id: a\n  - id: b\n    require_selection: [ghost]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
	assert.Contains(t, err.Error(), "duplicate step id")
	assert.Contains(t, err.Error(), "ghost")
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(permissionsFlow), 0o644))

	flow, err := NewParser().ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, flow.Steps, 4)

	_, err = NewParser().ParseFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
