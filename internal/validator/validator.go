package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/forge/pkg/domain"
)

// ValidateGraph checks for broken lines and unreachable blocks. Blocks are
// reachable when they are entry blocks (no incoming lines) or a line leads
// to them from a reachable block.
func ValidateGraph(blockIDs []string, lines []domain.Line) error {
	known := make(map[string]bool, len(blockIDs))
	for _, id := range blockIDs {
		known[id] = true
	}

	var errors []string
	incoming := make(map[string]bool)
	next := make(map[string][]string)
	for _, l := range lines {
		if !known[l.From] {
			errors = append(errors, fmt.Sprintf("Line '%s' starts at missing block '%s'", l.ID, l.From))
			continue
		}
		if !known[l.To] {
			errors = append(errors, fmt.Sprintf("Line '%s' leads to missing block '%s'", l.ID, l.To))
			continue
		}
		if l.From == l.To {
			errors = append(errors, fmt.Sprintf("Line '%s' loops on block '%s'", l.ID, l.From))
			continue
		}
		incoming[l.To] = true
		next[l.From] = append(next[l.From], l.To)
	}

	// Crawler
	visited := make(map[string]bool)
	var queue []string
	for _, id := range blockIDs {
		if !incoming[id] {
			queue = append(queue, id)
		}
	}
	if len(blockIDs) > 0 && len(queue) == 0 {
		errors = append(errors, "No entry block: every block has an incoming line")
	}

	for len(queue) > 0 {
		currentID := queue[0]
		queue = queue[1:]
		if visited[currentID] {
			continue
		}
		visited[currentID] = true
		for _, target := range next[currentID] {
			if !visited[target] {
				queue = append(queue, target)
			}
		}
	}

	for _, id := range blockIDs {
		if !visited[id] {
			errors = append(errors, fmt.Sprintf("Unreachable block: '%s'", id))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(errors), strings.Join(errors, "\n- "))
	}
	return nil
}
