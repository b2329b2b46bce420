package tui

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/hierarchy"
)

// SessionSummary renders a session view as markdown.
func SessionSummary(s *domain.Session) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Session `%s`\n\n", s.Key)
	fmt.Fprintf(&sb, "**Status:** %s  \n", s.Status)
	if s.Open() {
		fmt.Fprintf(&sb, "**Step:** %d/%d `%s`\n\n", s.CurrentIndex+1, len(s.Steps), s.Current().ID)
	} else {
		sb.WriteString("\n")
	}
	if s.TransientError != nil {
		fmt.Fprintf(&sb, "> **%s:** %s\n\n", s.TransientError.Severity, s.TransientError.Message)
	}

	sb.WriteString("| # | Step | Payload |\n|---|---|---|\n")
	for i, step := range s.Steps {
		marker := fmt.Sprintf("%d", i+1)
		if s.Open() && i == s.CurrentIndex {
			marker = "▶ " + marker
		}
		fmt.Fprintf(&sb, "| %s | %s | %s |\n", marker, stepLabel(step), describe(s.Payloads[step.ID]))
	}
	return sb.String()
}

// SnapshotSummary renders a stored snapshot as markdown.
func SnapshotSummary(snap *domain.Snapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Snapshot `%s`\n\n", snap.SessionKey)
	fmt.Fprintf(&sb, "**Saved:** %s  \n**Step index:** %d\n\n", snap.SavedAt.Format("2006-01-02 15:04:05 MST"), snap.CurrentIndex)

	ids := make([]string, 0, len(snap.Payloads))
	for id := range snap.Payloads {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	sb.WriteString("| Step | Payload |\n|---|---|\n")
	for _, id := range ids {
		fmt.Fprintf(&sb, "| %s | %s |\n", id, describe(snap.Payloads[id]))
	}
	return sb.String()
}

// OptionsSummary renders grouped options as a markdown checklist.
func OptionsSummary(groups hierarchy.Groups, selected domain.Selection) string {
	if groups.Len() == 0 {
		return "_No options available._\n"
	}
	var sb strings.Builder
	stats := groups.Stats(selected)
	for _, key := range groups.Keys() {
		st := stats[key]
		label := key
		if key == hierarchy.RootGroup {
			label = "All"
		}
		fmt.Fprintf(&sb, "### %s (%d/%d)\n\n", label, st.Selected, st.Total)
		for _, item := range groups[key] {
			box := " "
			if selected.Has(item.ID) {
				box = "x"
			}
			fmt.Fprintf(&sb, "- [%s] `%s` %s\n", box, item.ID, item.Name)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func stepLabel(step domain.StepDefinition) string {
	if step.Title != "" {
		return fmt.Sprintf("%s (`%s`)", step.Title, step.ID)
	}
	return "`" + step.ID + "`"
}

func describe(p domain.Payload) string {
	switch v := p.(type) {
	case nil:
		return "_pending_"
	case domain.SelectionPayload:
		if v.Selection.IsEmpty() {
			return "_none selected_"
		}
		return "`" + strings.Join(v.Selection.IDs(), "`, `") + "`"
	case domain.FieldsPayload:
		b, err := json.Marshal(v.Values)
		if err != nil {
			return "_unprintable_"
		}
		return "`" + string(b) + "`"
	default:
		return string(p.Kind())
	}
}
