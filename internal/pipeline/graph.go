package pipeline

import (
	"cmp"
	"slices"
	"strings"

	"github.com/ohmygaugh/factgpt/internal/domain/document"
)

// edge is an undirected tag pair with a <= b.
type edge struct {
	a, b string
}

func newEdge(x, y string) edge {
	if x > y {
		x, y = y, x
	}
	return edge{a: x, b: y}
}

// tagGraph is the undirected co-occurrence graph of document tags.
// Edge weight is the number of documents sharing both tags.
type tagGraph struct {
	weights map[edge]int
	// order lists each tag's neighbors by weight desc, then name.
	order map[string][]string
}

func newTagGraph(docs []document.Document) *tagGraph {
	g := &tagGraph{
		weights: make(map[edge]int),
		order:   make(map[string][]string),
	}

	adj := make(map[string]map[string]struct{})
	for _, d := range docs {
		tags := distinctTags(d)
		for _, t := range tags {
			if _, ok := adj[t]; !ok {
				adj[t] = make(map[string]struct{})
			}
		}
		for i := range tags {
			for j := i + 1; j < len(tags); j++ {
				g.weights[newEdge(tags[i], tags[j])]++
				adj[tags[i]][tags[j]] = struct{}{}
				adj[tags[j]][tags[i]] = struct{}{}
			}
		}
	}

	for tag, ns := range adj {
		list := make([]string, 0, len(ns))
		for n := range ns {
			list = append(list, n)
		}
		slices.SortFunc(list, func(x, y string) int {
			if c := cmp.Compare(g.weight(tag, y), g.weight(tag, x)); c != 0 {
				return c
			}
			return strings.Compare(x, y)
		})
		g.order[tag] = list
	}
	return g
}

func distinctTags(d document.Document) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, t := range d.AllTags() {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func (g *tagGraph) has(tag string) bool {
	_, ok := g.order[tag]
	return ok
}

func (g *tagGraph) weight(x, y string) int {
	return g.weights[newEdge(x, y)]
}

// shortestPath returns a fewest-hops path from src to dst avoiding the
// blocked nodes and edges, or nil when dst is unreachable.
func (g *tagGraph) shortestPath(src, dst string, blockedNodes map[string]bool, blockedEdges map[edge]bool) []string {
	if !g.has(src) || !g.has(dst) || blockedNodes[src] {
		return nil
	}

	prev := map[string]string{src: src}
	queue := []string{src}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n == dst {
			return reconstruct(prev, src, dst)
		}
		for _, m := range g.order[n] {
			if blockedNodes[m] || blockedEdges[newEdge(n, m)] {
				continue
			}
			if _, seen := prev[m]; seen {
				continue
			}
			prev[m] = n
			queue = append(queue, m)
		}
	}
	return nil
}

func reconstruct(prev map[string]string, src, dst string) []string {
	path := []string{dst}
	for n := dst; n != src; {
		n = prev[n]
		path = append(path, n)
	}
	slices.Reverse(path)
	return path
}

// kShortestPaths returns up to k loopless src->dst paths in non-decreasing
// hop count (Yen's algorithm over unit edge costs).
func (g *tagGraph) kShortestPaths(src, dst string, k int) [][]string {
	if k <= 0 || src == dst {
		return nil
	}
	first := g.shortestPath(src, dst, nil, nil)
	if first == nil {
		return nil
	}

	paths := [][]string{first}
	var candidates [][]string
	for len(paths) < k {
		last := paths[len(paths)-1]
		for i := 0; i < len(last)-1; i++ {
			root := last[:i+1]

			blockedEdges := make(map[edge]bool)
			for _, p := range paths {
				if len(p) > i+1 && slices.Equal(p[:i+1], root) {
					blockedEdges[newEdge(p[i], p[i+1])] = true
				}
			}
			blockedNodes := make(map[string]bool, i)
			for _, n := range root[:i] {
				blockedNodes[n] = true
			}

			spur := g.shortestPath(last[i], dst, blockedNodes, blockedEdges)
			if spur == nil {
				continue
			}
			total := append(slices.Clone(root[:i]), spur...)
			if !containsPath(paths, total) && !containsPath(candidates, total) {
				candidates = append(candidates, total)
			}
		}
		if len(candidates) == 0 {
			break
		}

		best := 0
		for j := range candidates {
			if len(candidates[j]) < len(candidates[best]) {
				best = j
			}
		}
		paths = append(paths, candidates[best])
		candidates = slices.Delete(candidates, best, best+1)
	}
	return paths
}

func containsPath(set [][]string, p []string) bool {
	for _, q := range set {
		if slices.Equal(q, p) {
			return true
		}
	}
	return false
}

// walk follows the heaviest not-yet-visited neighbor for up to steps hops.
func (g *tagGraph) walk(start string, steps int) []string {
	if !g.has(start) {
		return nil
	}
	path := []string{start}
	visited := map[string]bool{start: true}
	cur := start
	for range steps {
		next := ""
		for _, n := range g.order[cur] {
			if !visited[n] {
				next = n
				break
			}
		}
		if next == "" {
			break
		}
		visited[next] = true
		path = append(path, next)
		cur = next
	}
	return path
}
