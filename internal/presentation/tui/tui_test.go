package tui

import (
	"bytes"
	"testing"
	"time"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/hierarchy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionSummary(t *testing.T) {
	s, err := domain.NewSession("perm:1", []domain.StepDefinition{
		{ID: "modules", Title: "Modules", Kind: domain.KindSelection},
		{ID: "notes", Kind: domain.KindFields},
	})
	require.NoError(t, err)
	_, err = s.Commit(domain.NewSelectionPayload("hr", "fin"))
	require.NoError(t, err)
	s.Fail(&domain.StepError{Severity: domain.SeverityRetryable, Message: "backend down"})

	out := SessionSummary(s)
	assert.Contains(t, out, "# Session `perm:1`")
	assert.Contains(t, out, "**Step:** 2/2 `notes`")
	assert.Contains(t, out, "> **retryable:** backend down")
	assert.Contains(t, out, "| 1 | Modules (`modules`) | `fin`, `hr` |")
	assert.Contains(t, out, "| ▶ 2 | `notes` | _pending_ |")
}

func TestSnapshotSummary(t *testing.T) {
	out := SnapshotSummary(&domain.Snapshot{
		SessionKey: "perm:1",
		Payloads: domain.Payloads{
			"notes":   domain.NewFieldsPayload(map[string]any{"reason": "audit"}),
			"modules": domain.NewSelectionPayload(),
		},
		CurrentIndex: 1,
		SavedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	assert.Contains(t, out, "2026-01-02 03:04:05 UTC")
	assert.Contains(t, out, "| modules | _none selected_ |")
	assert.Contains(t, out, `| notes | `+"`"+`{"reason":"audit"}`+"`"+` |`)
}

func TestOptionsSummary(t *testing.T) {
	groups := hierarchy.Groups{
		"hr": {{ID: "hr.emp", Name: "Employees", ParentID: "hr"}, {ID: "hr.pay", Name: "Payroll", ParentID: "hr"}},
	}
	out := OptionsSummary(groups, domain.NewSelection("hr.pay"))
	assert.Contains(t, out, "### hr (1/2)")
	assert.Contains(t, out, "- [ ] `hr.emp` Employees")
	assert.Contains(t, out, "- [x] `hr.pay` Payroll")

	assert.Contains(t, OptionsSummary(hierarchy.Groups{}, domain.EmptySelection()), "No options")
}

func TestRenderer_Plain(t *testing.T) {
	out, err := NewRenderer(true)("# title")
	require.NoError(t, err)
	assert.Equal(t, "# title", out)
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Contains(t, buf.String(), "|_|")
}
