/*
Package graph defines workflow graphs of named steps over a state type S.

A Definition collects steps, unconditional edges and at most one
conditional dispatch, then Compile validates the shape and returns an
immutable Graph that the executor walks.

	def := graph.NewDefinition[State]()
	_ = def.RegisterStep("load", load)
	_ = def.RegisterStep("inspect", inspect)
	_ = def.RegisterStep("clean", clean)
	_ = def.RegisterSink("report", report)
	_ = def.AddEdge("load", "inspect")
	_ = def.AddConditionalEdge("inspect", router, map[domain.Label]string{
		domain.LabelHandle: "clean",
		domain.LabelSkip:   "report",
	})
	_ = def.AddEdge("clean", "report")
	_ = def.SetStart("load")

	g, err := def.Compile()

Every configuration error matches domain.ErrGraphConfiguration.
*/
package graph
