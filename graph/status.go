package graph

// Status is the lifecycle state of a module record.
type Status int

const (
	StatusUnlinked Status = iota
	StatusLinking
	StatusLinked
	StatusInstantiated
	StatusEvaluating
	StatusEvaluatingAsync
	StatusEvaluated
	StatusErrored
)

var statusNames = [...]string{
	StatusUnlinked:        "unlinked",
	StatusLinking:         "linking",
	StatusLinked:          "linked",
	StatusInstantiated:    "instantiated",
	StatusEvaluating:      "evaluating",
	StatusEvaluatingAsync: "evaluating-async",
	StatusEvaluated:       "evaluated",
	StatusErrored:         "errored",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// AtLeast reports whether s has reached the given lifecycle point.
// Errored counts as past instantiation.
func (s Status) AtLeast(other Status) bool {
	return s >= other
}
