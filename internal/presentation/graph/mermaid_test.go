package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/stepwise/internal/presentation/graph"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func steps() []domain.StepDefinition {
	return []domain.StepDefinition{
		{ID: "modules", Title: "Modules", Kind: domain.KindSelection, Source: &domain.LevelSource{Level: domain.Level0}, Gate: domain.RequireSelection("modules")},
		{ID: "menus", Kind: domain.KindSelection, Source: &domain.LevelSource{Level: domain.Level1, ParentStep: "modules"}},
		{ID: "review-notes", Kind: domain.KindFields},
	}
}

func TestGenerateMermaid(t *testing.T) {
	out := graph.GenerateMermaid(steps(), nil)

	for _, want := range []string{
		"graph TD\n",
		`modules(("Modules <br/> level0"))`,
		`menus[["menus <br/> level1"]]`,
		`review_notes[/"review-notes"/]`,
		`modules -- "gate" --> menus`,
		"menus --> review_notes",
		`modules -. "parents" .-> menus`,
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "classDef")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	s, err := domain.NewSession("perm:1", steps())
	require.NoError(t, err)
	_, err = s.Commit(domain.NewSelectionPayload("hr"))
	require.NoError(t, err)

	out := graph.GenerateMermaid(steps(), graph.OverlayFor(s))
	assert.Contains(t, out, "class modules committed;")
	assert.Contains(t, out, "class menus current;")
	assert.Equal(t, 1, strings.Count(out, "committed;"))
}
