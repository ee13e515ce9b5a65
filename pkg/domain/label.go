package domain

// Label is a routing decision returned by a router.
type Label string

const (
	// LabelHandle routes to the cleaning step.
	LabelHandle Label = "Handle"
	// LabelSkip bypasses the cleaning step.
	LabelSkip Label = "Skip"
)
