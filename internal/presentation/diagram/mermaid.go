package diagram

import (
	"fmt"
	"strings"

	"github.com/aretw0/sieve/pkg/graph"
)

// Overlay contains run data to highlight on the diagram.
type Overlay struct {
	VisitedSteps []string
	FailedStep   string
}

// GenerateMermaid produces a Mermaid flowchart from the compiled steps.
// It applies semantic styling:
// - Start: ([Stadium])
// - Conditional: {Rhombus}
// - Sink: [[Subroutine]]
// - End: ((Circle))
// - Default: [Rectangle]
func GenerateMermaid(nodes []graph.NodeInfo) string {
	return GenerateMermaidWithOverlay(nodes, nil)
}

// GenerateMermaidWithOverlay is GenerateMermaid plus visited/failed styles.
func GenerateMermaidWithOverlay(nodes []graph.NodeInfo, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	endUsed := false
	for _, node := range nodes {
		safeID := sanitizeMermaidID(node.Name)

		opener, closer := "[", "]"
		switch {
		case node.Start:
			opener, closer = "([", "])"
		case len(node.Edges) > 1:
			opener, closer = "{", "}"
		case node.Terminal:
			opener, closer = "[[", "]]"
		}

		text := node.Name
		if node.Description != "" {
			text = fmt.Sprintf("%s<br/>%s", node.Name, escapeLabel(node.Description))
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, text, closer)

		for _, edge := range node.Edges {
			if edge.To == graph.End {
				endUsed = true
			}
			safeTo := sanitizeMermaidID(edge.To)
			arrow := "-->"
			if edge.Label != "" {
				arrow = fmt.Sprintf("-- \"%s\" -->", escapeLabel(string(edge.Label)))
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", safeID, arrow, safeTo)
		}
	}

	if endUsed {
		fmt.Fprintf(&sb, "    %s((\"End\"))\n", sanitizeMermaidID(graph.End))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on both light and dark themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#b71c1c,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, name := range overlay.VisitedSteps {
			safeID := sanitizeMermaidID(name)
			if safeID == "" || seen[safeID] || name == overlay.FailedStep {
				continue
			}
			seen[safeID] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
		}
		if overlay.FailedStep != "" {
			fmt.Fprintf(&sb, "    class %s failed;\n", sanitizeMermaidID(overlay.FailedStep))
		}
	}

	return sb.String()
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
