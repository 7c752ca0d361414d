// Package graph holds the plot result produced by the pipeline.
package graph

// Graph is the node/link set returned by a pipeline plot call.
// Elements are opaque and passed to clients unmodified.
type Graph struct {
	Nodes []any `json:"nodes"`
	Links []any `json:"links"`
}

// New builds a Graph whose nil slices are replaced by empty ones
// so both keys always encode as JSON arrays.
func New(nodes, links []any) Graph {
	if nodes == nil {
		nodes = []any{}
	}
	if links == nil {
		links = []any{}
	}
	return Graph{Nodes: nodes, Links: links}
}
