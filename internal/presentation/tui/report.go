package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/forge/pkg/domain"
	"github.com/muesli/termenv"
)

// Report renders an instance snapshot as markdown.
func Report(snap *domain.InstanceSnapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", snap.Name)
	fmt.Fprintf(&sb, "Instance `%s` is **%s** after %d ticks.\n\n", snap.ID, snap.State, snap.Tick)

	sb.WriteString("| Block | Type | State | Result |\n")
	sb.WriteString("|---|---|---|---|\n")
	for _, b := range snap.Blocks {
		result := b.Result
		if result == "" {
			result = "-"
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", b.ID, b.TypeID, b.State, strings.ReplaceAll(result, "|", "\\|"))
	}
	return sb.String()
}

// StateLabel colors a state for terminal output.
func StateLabel(w io.Writer, state domain.RunnableState) string {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()
	s := out.String(string(state))
	switch state {
	case domain.StateDone:
		return s.Foreground(p.Color("#22c55e")).Bold().String()
	case domain.StateFailed:
		return s.Foreground(p.Color("#ef4444")).Bold().String()
	case domain.StateRunning:
		return s.Foreground(p.Color("#f59e0b")).String()
	default:
		return s.Faint().String()
	}
}
