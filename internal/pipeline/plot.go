package pipeline

import (
	"context"
	"fmt"

	"github.com/ohmygaugh/factgpt/internal/domain/graph"
)

// Node groups.
const (
	GroupSeed  = 0
	GroupOther = 1
)

// Node is a tag in a plot result.
type Node struct {
	ID    string `json:"id"`
	Group int    `json:"group"`
}

// Link connects two tags in a plot result. Value is the co-occurrence weight.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Value  int    `json:"value"`
}

// Plot builds the tag graph around q: the first kTags tags of the matching
// documents, the kYens shortest paths between every pair of them, and a
// kWalk-step walk from each.
func (p *Pipeline) Plot(ctx context.Context, q string, kTags, kYens, kWalk int) (graph.Graph, error) {
	if err := ctx.Err(); err != nil {
		return graph.Graph{}, fmt.Errorf("plot: %w", err)
	}

	seeds := p.seedTags(q, kTags)
	b := newPlotBuilder(p.graph)
	for _, s := range seeds {
		b.addNode(s, GroupSeed)
	}

	for i := range seeds {
		for j := i + 1; j < len(seeds); j++ {
			for _, path := range p.graph.kShortestPaths(seeds[i], seeds[j], kYens) {
				b.addPath(path)
			}
		}
	}
	for _, s := range seeds {
		b.addPath(p.graph.walk(s, kWalk))
	}

	return graph.New(b.nodes, b.links), nil
}

func (p *Pipeline) seedTags(q string, kTags int) []string {
	if kTags <= 0 {
		return nil
	}
	var seeds []string
	seen := make(map[string]struct{})
	for _, h := range p.rank(tokenize(q), false) {
		for _, t := range distinctTags(p.docs[h.doc]) {
			if _, ok := seen[t]; ok || !p.graph.has(t) {
				continue
			}
			seen[t] = struct{}{}
			seeds = append(seeds, t)
			if len(seeds) == kTags {
				return seeds
			}
		}
	}
	return seeds
}

type plotBuilder struct {
	g         *tagGraph
	nodes     []any
	links     []any
	seenNodes map[string]struct{}
	seenLinks map[edge]struct{}
}

func newPlotBuilder(g *tagGraph) *plotBuilder {
	return &plotBuilder{
		g:         g,
		seenNodes: make(map[string]struct{}),
		seenLinks: make(map[edge]struct{}),
	}
}

func (b *plotBuilder) addNode(id string, group int) {
	if _, ok := b.seenNodes[id]; ok {
		return
	}
	b.seenNodes[id] = struct{}{}
	b.nodes = append(b.nodes, Node{ID: id, Group: group})
}

func (b *plotBuilder) addPath(path []string) {
	for i, n := range path {
		b.addNode(n, GroupOther)
		if i == 0 {
			continue
		}
		e := newEdge(path[i-1], n)
		if _, ok := b.seenLinks[e]; ok {
			continue
		}
		b.seenLinks[e] = struct{}{}
		b.links = append(b.links, Link{Source: path[i-1], Target: n, Value: b.g.weight(path[i-1], n)})
	}
}
