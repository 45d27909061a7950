package model

// Document is the serialized form of the final architecture graph. Arrays
// keep insertion order.
type Document struct {
	Actors        []Actor    `json:"actors"`
	Microservices []Service  `json:"microservices"`
	Databases     []Database `json:"databases"`
	Events        []Event    `json:"events"`
}
