package model

import "strings"

type ActorKind string

const (
	ActorExternal       ActorKind = "External"
	ActorInternal       ActorKind = "Internal"
	ActorExternalSystem ActorKind = "ExternalSystem"
)

// ParseActorKind maps a loosely written kind ("external system", "INTERNAL")
// onto ActorKind. Anything unrecognised is treated as External.
func ParseActorKind(s string) ActorKind {
	switch squash(s) {
	case "internal":
		return ActorInternal
	case "externalsystem", "system":
		return ActorExternalSystem
	default:
		return ActorExternal
	}
}

type Criticality string

const (
	CriticalityHigh   Criticality = "High"
	CriticalityMedium Criticality = "Medium"
	CriticalityLow    Criticality = "Low"
)

// ParseCriticality defaults to Medium.
func ParseCriticality(s string) Criticality {
	switch squash(s) {
	case "high":
		return CriticalityHigh
	case "low":
		return CriticalityLow
	default:
		return CriticalityMedium
	}
}

type DatabaseKind string

const (
	DatabaseSQL      DatabaseKind = "SQL"
	DatabaseNoSQL    DatabaseKind = "NoSQL"
	DatabaseInMemory DatabaseKind = "InMemory"
	DatabaseUnknown  DatabaseKind = "Unknown"
)

func ParseDatabaseKind(s string) DatabaseKind {
	switch squash(s) {
	case "sql":
		return DatabaseSQL
	case "nosql":
		return DatabaseNoSQL
	case "inmemory":
		return DatabaseInMemory
	default:
		return DatabaseUnknown
	}
}

// Actor is a user or external party. Identity is Name.
type Actor struct {
	Name string    `json:"name"`
	Kind ActorKind `json:"type"`
}

// Service is a microservice. Identity is Name; every other field is fixed by
// the first extraction that mentions the service.
type Service struct {
	Name        string      `json:"name"`
	Database    *string     `json:"db"`
	Exposes     []string    `json:"exposes"`
	Consumes    []string    `json:"consumes"`
	Scaling     string      `json:"scaling"`
	Criticality Criticality `json:"criticality"`
}

// DatabaseName returns the linked database name, or "" when there is none.
func (s Service) DatabaseName() string {
	if s.Database == nil {
		return ""
	}
	return *s.Database
}

// Clone returns a copy that shares no slices or pointers with s.
func (s Service) Clone() Service {
	out := s
	if s.Database != nil {
		db := *s.Database
		out.Database = &db
	}
	out.Exposes = append([]string{}, s.Exposes...)
	out.Consumes = append([]string{}, s.Consumes...)
	return out
}

// Database is derived from service references. UsedBy only grows.
type Database struct {
	Name   string       `json:"name"`
	Kind   DatabaseKind `json:"type"`
	UsedBy []string     `json:"used_by"`
}

func (d Database) Clone() Database {
	out := d
	out.UsedBy = append([]string{}, d.UsedBy...)
	return out
}

func squash(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}
