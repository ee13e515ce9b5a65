package diagram_test

import (
	"strings"
	"testing"

	"github.com/aretw0/sieve/internal/presentation/diagram"
	"github.com/aretw0/sieve/pkg/domain"
	"github.com/aretw0/sieve/pkg/graph"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name        string
		nodes       []graph.NodeInfo
		overlay     *diagram.Overlay
		contains    []string
		notContains []string
	}{
		{
			name: "Start Step Shape",
			nodes: []graph.NodeInfo{
				{Name: "load", Start: true, Edges: []graph.EdgeInfo{{To: "inspect"}}},
			},
			contains: []string{
				"graph TD\n",
				`load(["load"])`,
				"load --> inspect",
			},
		},
		{
			name: "Conditional Step Shape",
			nodes: []graph.NodeInfo{
				{Name: "inspect", Edges: []graph.EdgeInfo{
					{To: "clean", Label: domain.LabelHandle},
					{To: "summarize", Label: domain.LabelSkip},
				}},
			},
			contains: []string{
				`inspect{"inspect"}`,
				`inspect -- "Handle" --> clean`,
				`inspect -- "Skip" --> summarize`,
			},
		},
		{
			name: "Sink And End",
			nodes: []graph.NodeInfo{
				{Name: "report", Terminal: true, Description: `Report "Summary"`, Edges: []graph.EdgeInfo{{To: graph.End}}},
			},
			contains: []string{
				`report[["report<br/>Report 'Summary'"]]`,
				"report --> __end__",
				`__end__(("End"))`,
			},
		},
		{
			name: "ID Sanitization",
			nodes: []graph.NodeInfo{
				{Name: "remove-outliers.v2", Edges: []graph.EdgeInfo{{To: "next step"}}},
			},
			contains: []string{
				`remove_outliers_v2["remove-outliers.v2"]`,
				"remove_outliers_v2 --> next_step",
			},
			notContains: []string{"End"},
		},
		{
			name: "Overlay",
			nodes: []graph.NodeInfo{
				{Name: "load", Start: true, Edges: []graph.EdgeInfo{{To: "inspect"}}},
				{Name: "inspect", Edges: []graph.EdgeInfo{{To: graph.End}}},
			},
			overlay: &diagram.Overlay{VisitedSteps: []string{"load", "load", "inspect"}, FailedStep: "inspect"},
			contains: []string{
				"classDef visited",
				"class load visited;",
				"class inspect failed;",
			},
			notContains: []string{"class inspect visited;"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := diagram.GenerateMermaidWithOverlay(tt.nodes, tt.overlay)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
			for _, unwanted := range tt.notContains {
				if strings.Contains(got, unwanted) {
					t.Errorf("GenerateMermaid() = \n%v\nUnexpected substring: %v", got, unwanted)
				}
			}
			if strings.Count(got, "class load visited;") > 1 {
				t.Errorf("visited steps must be deduplicated:\n%v", got)
			}
		})
	}
}
