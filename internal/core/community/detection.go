// Package community groups architecture components into clusters of
// closely interacting parts, a starting point for drawing bounded contexts.
package community

import (
	"sort"

	"github.com/agenthands/archgraph/internal/core/graph"
)

// Cluster is a set of components, in graph insertion order, named after the
// label that won propagation (or the first member for connected components).
type Cluster struct {
	Label   string   `json:"label"`
	Members []string `json:"members"`
}

type Detector interface {
	Detect(g *graph.Graph) []Cluster
}

// NewDetector returns the default detector.
func NewDetector() Detector {
	return NewLabelPropagationDetector()
}

// topology is the undirected, weighted view of g used for clustering.
// Nodes are actors, services, databases and any event endpoint not declared
// as one of those; edges are events and service-to-database links.
type topology struct {
	nodes []string
	index map[string]int
	adj   map[string]map[string]int
}

func newTopology(g *graph.Graph) *topology {
	t := &topology{
		index: make(map[string]int),
		adj:   make(map[string]map[string]int),
	}

	for _, a := range g.Actors() {
		t.addNode(a.Name)
	}
	for _, s := range g.Services() {
		t.addNode(s.Name)
	}
	for _, d := range g.Databases() {
		t.addNode(d.Name)
		for _, svc := range d.UsedBy {
			t.addEdge(svc, d.Name)
		}
	}
	for _, e := range g.Events() {
		t.addEdge(e.From, e.To)
	}

	return t
}

func (t *topology) addNode(name string) {
	if _, ok := t.index[name]; ok {
		return
	}
	t.index[name] = len(t.nodes)
	t.nodes = append(t.nodes, name)
	t.adj[name] = make(map[string]int)
}

func (t *topology) addEdge(a, b string) {
	t.addNode(a)
	t.addNode(b)
	if a == b {
		return
	}
	t.adj[a][b]++
	t.adj[b][a]++
}

// group turns a node -> label assignment into clusters of two or more
// members, ordered by their first member.
func (t *topology) group(labels map[string]string) []Cluster {
	byLabel := make(map[string]*Cluster)
	var order []*Cluster

	for _, n := range t.nodes {
		label := labels[n]
		c, ok := byLabel[label]
		if !ok {
			c = &Cluster{Label: label}
			byLabel[label] = c
			order = append(order, c)
		}
		c.Members = append(c.Members, n)
	}

	var clusters []Cluster
	for _, c := range order {
		if len(c.Members) >= 2 {
			clusters = append(clusters, *c)
		}
	}
	return clusters
}

// ComponentDetector clusters by plain connectivity.
type ComponentDetector struct{}

func NewComponentDetector() *ComponentDetector {
	return &ComponentDetector{}
}

func (d *ComponentDetector) Detect(g *graph.Graph) []Cluster {
	t := newTopology(g)
	labels := make(map[string]string, len(t.nodes))

	for _, n := range t.nodes {
		if _, seen := labels[n]; seen {
			continue
		}
		d.dfs(t, n, n, labels)
	}

	return t.group(labels)
}

func (d *ComponentDetector) dfs(t *topology, u, label string, labels map[string]string) {
	labels[u] = label
	neighbors := make([]string, 0, len(t.adj[u]))
	for v := range t.adj[u] {
		neighbors = append(neighbors, v)
	}
	sort.Slice(neighbors, func(i, j int) bool { return t.index[neighbors[i]] < t.index[neighbors[j]] })

	for _, v := range neighbors {
		if _, seen := labels[v]; !seen {
			d.dfs(t, v, label, labels)
		}
	}
}
