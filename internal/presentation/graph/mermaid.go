package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/forge/pkg/domain"
)

// GenerateMermaid produces a Mermaid flowchart of blocks and lines.
// It applies semantic styling:
// - Entry block (no incoming lines): ((Circle))
// - Other blocks: [Rectangle]
// - Normal lines: solid arrows; failure lines: dotted arrows labelled "failure"
// With overlay set, blocks are styled by state.
func GenerateMermaid(blocks []domain.BlockSnapshot, lines []domain.Line, overlay bool) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	incoming := make(map[string]bool, len(lines))
	for _, l := range lines {
		incoming[l.To] = true
	}

	for _, b := range blocks {
		safeID := sanitizeMermaidID(b.ID)
		opener, closer := "[", "]"
		if !incoming[b.ID] {
			opener, closer = "((", "))"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s <br/> %s\"%s\n", safeID, opener, b.ID, b.TypeID, closer)
	}

	for _, l := range lines {
		arrow := "-->"
		if l.EffectiveKind() == domain.LineFailure {
			arrow = "-. failure .->"
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(l.From), arrow, sanitizeMermaidID(l.To))
	}

	if overlay {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast regardless of theme (Light/Dark)
		sb.WriteString("    classDef running fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef done fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#b71c1c,stroke-width:2px,color:#000;\n")
		for _, b := range blocks {
			switch b.State {
			case domain.StateRunning, domain.StateDone, domain.StateFailed:
				fmt.Fprintf(&sb, "    class %s %s;\n", sanitizeMermaidID(b.ID), b.State)
			}
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
