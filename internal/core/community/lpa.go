package community

import (
	"sort"

	"github.com/agenthands/archgraph/internal/core/graph"
)

// LabelPropagationDetector clusters with label propagation. Nodes are
// visited in graph insertion order, so the result is deterministic.
type LabelPropagationDetector struct {
	MaxIterations int
}

func NewLabelPropagationDetector() *LabelPropagationDetector {
	return &LabelPropagationDetector{
		MaxIterations: 20,
	}
}

func (d *LabelPropagationDetector) Detect(g *graph.Graph) []Cluster {
	t := newTopology(g)
	if len(t.nodes) == 0 {
		return nil
	}

	labels := make(map[string]string, len(t.nodes))
	for _, n := range t.nodes {
		labels[n] = n
	}

	for iter := 0; iter < d.MaxIterations; iter++ {
		changed := 0

		for _, u := range t.nodes {
			neighbors := t.adj[u]
			if len(neighbors) == 0 {
				continue
			}

			counts := make(map[string]int)
			best := 0
			for v, weight := range neighbors {
				label := labels[v]
				counts[label] += weight
				if counts[label] > best {
					best = counts[label]
				}
			}

			// Ties keep the current label, otherwise the largest label wins.
			if counts[labels[u]] == best {
				continue
			}
			var candidates []string
			for label, count := range counts {
				if count == best {
					candidates = append(candidates, label)
				}
			}
			sort.Strings(candidates)
			labels[u] = candidates[len(candidates)-1]
			changed++
		}

		if changed == 0 {
			break
		}
	}

	return t.group(labels)
}
