package model

// Event is an interaction between two named components. The whole struct is
// its identity: two events are the same only when all four fields match.
type Event struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Kind        string `json:"type"`
	Description string `json:"description"`
}

const UnknownEventKind = "Unknown"
