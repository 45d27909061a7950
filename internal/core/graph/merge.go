package graph

import (
	"strings"
	"sync"

	"github.com/agenthands/archgraph/internal/core/model"
)

// Stats counts what a single merge changed.
type Stats struct {
	ActorsWritten    int `json:"actors_written"`
	ServicesAdded    int `json:"services_added"`
	ServicesRepeated int `json:"services_repeated"`
	DatabasesCreated int `json:"databases_created"`
	DatabaseLinks    int `json:"database_links"`
	EventsAdded      int `json:"events_added"`
	EventsDuplicate  int `json:"events_duplicate"`
	Skipped          int `json:"skipped"`
}

// Merge folds one partial extraction into g and returns g.
//
// Actors are overwritten by name. A service's profile is fixed on first
// sighting; later sightings only contribute database links. Databases and
// events are sets. Nothing is ever removed.
func Merge(g *Graph, p model.Partial) *Graph {
	fold(g, p)
	return g
}

func fold(g *Graph, p model.Partial) Stats {
	var st Stats

	for _, a := range p.Actors {
		a.Name = strings.TrimSpace(a.Name)
		if a.Name == "" {
			st.Skipped++
			continue
		}
		if a.Kind == "" {
			a.Kind = model.ActorExternal
		}
		g.putActor(a)
		st.ActorsWritten++
	}

	for _, s := range p.Services {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			st.Skipped++
			continue
		}
		if g.registerService(s) {
			st.ServicesAdded++
		} else {
			st.ServicesRepeated++
		}

		db := strings.TrimSpace(s.DatabaseName())
		if db == "" {
			continue
		}
		created, linked := g.linkDatabase(db, s.Name)
		if created {
			st.DatabasesCreated++
		}
		if linked {
			st.DatabaseLinks++
		}
	}

	for _, e := range p.Events {
		if strings.TrimSpace(e.From) == "" || strings.TrimSpace(e.To) == "" {
			st.Skipped++
			continue
		}
		if e.Kind == "" {
			e.Kind = model.UnknownEventKind
		}
		if g.addEvent(e) {
			st.EventsAdded++
		} else {
			st.EventsDuplicate++
		}
	}

	return st
}

// Aggregator owns a graph and serializes merges into it, so partial results
// may be folded from several goroutines.
type Aggregator struct {
	mu    sync.Mutex
	graph *Graph
}

// NewAggregator wraps g, or a fresh graph when g is nil.
func NewAggregator(g *Graph) *Aggregator {
	if g == nil {
		g = New()
	}
	return &Aggregator{graph: g}
}

func (a *Aggregator) Merge(p model.Partial) Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return fold(a.graph, p)
}

// Document snapshots the current graph.
func (a *Aggregator) Document() model.Document {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.graph.Document()
}

// Graph returns the owned graph. It must not be read while merges are still running.
func (a *Aggregator) Graph() *Graph {
	return a.graph
}
