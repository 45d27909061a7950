// Package graph holds the canonical architecture aggregate and the rules for
// folding partial extractions into it.
//
// A Graph is only mutated through Merge (or an Aggregator); callers read it
// through accessors that return copies.
package graph

import (
	"slices"

	"github.com/agenthands/archgraph/internal/core/model"
)

type Graph struct {
	actors     map[string]*model.Actor
	actorOrder []string

	services     map[string]*model.Service
	serviceOrder []string

	databases     map[string]*model.Database
	databaseOrder []string

	events     map[model.Event]struct{}
	eventOrder []model.Event
}

// Counts is a size summary of a graph.
type Counts struct {
	Actors    int `json:"actors"`
	Services  int `json:"microservices"`
	Databases int `json:"databases"`
	Events    int `json:"events"`
}

func New() *Graph {
	return &Graph{
		actors:    make(map[string]*model.Actor),
		services:  make(map[string]*model.Service),
		databases: make(map[string]*model.Database),
		events:    make(map[model.Event]struct{}),
	}
}

func (g *Graph) Counts() Counts {
	return Counts{
		Actors:    len(g.actorOrder),
		Services:  len(g.serviceOrder),
		Databases: len(g.databaseOrder),
		Events:    len(g.eventOrder),
	}
}

func (g *Graph) Actors() []model.Actor {
	out := make([]model.Actor, 0, len(g.actorOrder))
	for _, name := range g.actorOrder {
		out = append(out, *g.actors[name])
	}
	return out
}

func (g *Graph) Actor(name string) (model.Actor, bool) {
	a, ok := g.actors[name]
	if !ok {
		return model.Actor{}, false
	}
	return *a, true
}

func (g *Graph) Services() []model.Service {
	out := make([]model.Service, 0, len(g.serviceOrder))
	for _, name := range g.serviceOrder {
		out = append(out, g.services[name].Clone())
	}
	return out
}

func (g *Graph) Service(name string) (model.Service, bool) {
	s, ok := g.services[name]
	if !ok {
		return model.Service{}, false
	}
	return s.Clone(), true
}

func (g *Graph) Databases() []model.Database {
	out := make([]model.Database, 0, len(g.databaseOrder))
	for _, name := range g.databaseOrder {
		out = append(out, g.databases[name].Clone())
	}
	return out
}

func (g *Graph) Database(name string) (model.Database, bool) {
	d, ok := g.databases[name]
	if !ok {
		return model.Database{}, false
	}
	return d.Clone(), true
}

func (g *Graph) Events() []model.Event {
	return append(make([]model.Event, 0, len(g.eventOrder)), g.eventOrder...)
}

func (g *Graph) HasEvent(e model.Event) bool {
	_, ok := g.events[e]
	return ok
}

// Document renders the graph in its output form. Empty sections are
// emitted as empty arrays.
func (g *Graph) Document() model.Document {
	return model.Document{
		Actors:        g.Actors(),
		Microservices: g.Services(),
		Databases:     g.Databases(),
		Events:        g.Events(),
	}
}

// FromDocument rebuilds a graph from its serialized form. Database kinds and
// used_by lists are restored as written; links implied by services are
// added on top.
func FromDocument(doc model.Document) *Graph {
	g := New()
	for _, d := range doc.Databases {
		if d.Name == "" {
			continue
		}
		g.ensureDatabase(d.Name, d.Kind)
		for _, svc := range d.UsedBy {
			g.linkDatabase(d.Name, svc)
		}
	}
	Merge(g, model.Partial{
		Actors:   doc.Actors,
		Services: doc.Microservices,
		Events:   doc.Events,
	})
	return g
}

func (g *Graph) putActor(a model.Actor) {
	if existing, ok := g.actors[a.Name]; ok {
		*existing = a
		return
	}
	g.actors[a.Name] = &a
	g.actorOrder = append(g.actorOrder, a.Name)
}

// registerService stores the profile on first sighting and reports whether it did.
func (g *Graph) registerService(s model.Service) bool {
	if _, ok := g.services[s.Name]; ok {
		return false
	}
	profile := s.Clone()
	profile.Exposes = dedupe(profile.Exposes)
	profile.Consumes = dedupe(profile.Consumes)
	g.services[s.Name] = &profile
	g.serviceOrder = append(g.serviceOrder, s.Name)
	return true
}

func (g *Graph) ensureDatabase(name string, kind model.DatabaseKind) (*model.Database, bool) {
	if d, ok := g.databases[name]; ok {
		return d, false
	}
	if kind == "" {
		kind = model.DatabaseUnknown
	}
	d := &model.Database{Name: name, Kind: kind, UsedBy: []string{}}
	g.databases[name] = d
	g.databaseOrder = append(g.databaseOrder, name)
	return d, true
}

// linkDatabase adds service to the database's used_by set, creating the
// database with kind Unknown when needed.
func (g *Graph) linkDatabase(name, service string) (created, linked bool) {
	d, created := g.ensureDatabase(name, model.DatabaseUnknown)
	if slices.Contains(d.UsedBy, service) {
		return created, false
	}
	d.UsedBy = append(d.UsedBy, service)
	return created, true
}

func (g *Graph) addEvent(e model.Event) bool {
	if _, ok := g.events[e]; ok {
		return false
	}
	g.events[e] = struct{}{}
	g.eventOrder = append(g.eventOrder, e)
	return true
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
