package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// maxKeyWidth bounds the KEY column; longer keys are truncated with "...".
const maxKeyWidth = 48

// FormatTable writes node statuses as a formatted table to the provided writer.
// Rows are indented by depth so the hierarchy reads top-down.
// Returns the number of nodes formatted.
func FormatTable(w io.Writer, statuses []*NodeStatus, startKey string) int {
	if len(statuses) == 0 {
		fmt.Fprintf(w, "No nodes found under '%s'\n", startKey)
		return 0
	}

	fmt.Fprintf(w, "Nodes under '%s':\n\n", startKey)

	fmt.Fprintf(w, "%-20s %-20s %-7s %-9s %s\n",
		"JOB", "RESOURCES", "STORED", "FINISHED", "KEY")
	fmt.Fprintf(w, "%-20s %-20s %-7s %-9s %s\n",
		"--------------------", "--------------------", "-------", "---------", "------------------------------------------------")

	for _, s := range statuses {
		fmt.Fprintf(w, "%-20s %-20s %-7s %-9s %s\n",
			formatJob(s.Job, s.Depth),
			formatResources(s.Resources),
			formatStored(s.Stored),
			formatProgress(s),
			formatKey(s.Key),
		)
	}

	countMsg := "node"
	if len(statuses) != 1 {
		countMsg = "nodes"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(statuses), countMsg)

	return len(statuses)
}

// FormatJSONL writes node statuses as line-delimited JSON (JSONL).
// Each status is written as a single JSON object on its own line.
func FormatJSONL(w io.Writer, statuses []*NodeStatus) error {
	for _, status := range statuses {
		data, err := json.Marshal(status)
		if err != nil {
			return fmt.Errorf("failed to marshal node status to JSON: %w", err)
		}

		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// formatJob indents the job name two spaces per level.
func formatJob(job string, depth int) string {
	return strings.Repeat("  ", depth) + job
}

func formatResources(resources []any) string {
	if len(resources) == 0 {
		return "-"
	}
	data, err := json.Marshal(resources)
	if err != nil {
		return "?"
	}
	s := string(data)
	return truncate(s[1:len(s)-1], 20)
}

func formatStored(stored bool) string {
	if stored {
		return "yes"
	}
	return "no"
}

// formatProgress renders finished/stored children, or "-" for a node with none.
func formatProgress(s *NodeStatus) string {
	total := len(s.Children)
	if total == 0 && len(s.FinishedChildren) == 0 {
		return "-"
	}
	return fmt.Sprintf("%d/%d", len(s.FinishedChildren), total)
}

func formatKey(key string) string {
	return truncate(key, maxKeyWidth)
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	return s[:width-3] + "..."
}
