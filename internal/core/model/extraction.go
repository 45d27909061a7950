package model

// Partial is the canonical record decoded from one chunk's generator
// response, before it is merged into the graph.
type Partial struct {
	Actors   []Actor
	Services []Service
	Events   []Event
}

// Empty reports whether the partial carries no facts at all.
func (p Partial) Empty() bool {
	return len(p.Actors) == 0 && len(p.Services) == 0 && len(p.Events) == 0
}

type SkipKind string

const (
	SkipDocument SkipKind = "document"
	SkipActor    SkipKind = "actor"
	SkipService  SkipKind = "service"
	SkipEvent    SkipKind = "event"
)

// Skip describes an entry dropped while decoding. It is a diagnostic, not an error.
type Skip struct {
	Kind   SkipKind `json:"kind"`
	Index  int      `json:"index"`
	Reason string   `json:"reason"`
}
