package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/stepwise/pkg/domain"
)

// Overlay marks session progress on the diagram.
type Overlay struct {
	Committed   []string
	CurrentStep string
}

// OverlayFor builds the overlay of a session view.
func OverlayFor(s *domain.Session) *Overlay {
	o := &Overlay{CurrentStep: s.Current().ID}
	for _, step := range s.Steps {
		if _, ok := s.Payloads[step.ID]; ok {
			o.Committed = append(o.Committed, step.ID)
		}
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of a step list:
// - Level0 step: ((Circle))
// - Level1/Level2 step: [[Subroutine]]
// - Fields step: [/Parallelogram/]
// - Other selection step: [Rectangle]
// Solid arrows follow step order; dotted arrows show which step's selection
// feeds a level.
func GenerateMermaid(steps []domain.StepDefinition, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for i, step := range steps {
		safeID := sanitizeMermaidID(step.ID)

		opener, closer := "[", "]"
		switch {
		case step.Kind == domain.KindFields:
			opener, closer = "[/", "/]"
		case step.Source != nil && step.Source.Level == domain.Level0:
			opener, closer = "((", "))"
		case step.Source != nil:
			opener, closer = "[[", "]]"
		}

		label := step.ID
		if step.Title != "" {
			label = strings.ReplaceAll(step.Title, "\"", "'")
		}
		if step.Source != nil {
			label = fmt.Sprintf("%s <br/> %s", label, step.Source.Level)
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))

		if i+1 < len(steps) {
			next := sanitizeMermaidID(steps[i+1].ID)
			arrow := "-->"
			if step.Gate != nil {
				arrow = "-- \"gate\" -->"
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeID, arrow, next))
		}
		if step.Source != nil && step.Source.ParentStep != "" {
			sb.WriteString(fmt.Sprintf("    %s -. \"parents\" .-> %s\n", sanitizeMermaidID(step.Source.ParentStep), safeID))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef committed fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.Committed {
			safeID := sanitizeMermaidID(id)
			if !seen[safeID] && safeID != "" && id != overlay.CurrentStep {
				seen[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s committed;\n", safeID))
			}
		}
		if overlay.CurrentStep != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentStep)))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
