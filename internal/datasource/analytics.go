package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/daviddao/mobsinet_viewer/internal/snapshot"
)

// Analytics query names, as used in failure messages.
const (
	QueryDegree       = "degree"
	QueryDiameter     = "diameter"
	QueryEccentricity = "eccentricity"
	QueryDistance     = "distance"
	QueryPath         = "shortest path"
	QueryNode2Vec     = "node2vec"
)

// Degree returns the number of links touching the node.
func (c *Client) Degree(ctx context.Context, id snapshot.NodeID) (int, error) {
	var out struct {
		Degree int `json:"degree"`
	}
	err := c.query(ctx, QueryDegree, "calculate_degree", url.Values{"node_id": {id.String()}}, &out)
	return out.Degree, err
}

// Diameter returns the longest shortest-path length in the current graph.
func (c *Client) Diameter(ctx context.Context) (int, error) {
	var out struct {
		Diameter int `json:"diameter"`
	}
	err := c.query(ctx, QueryDiameter, "calculate_diameter", nil, &out)
	return out.Diameter, err
}

// Eccentricity returns the greatest distance from the node to any other.
func (c *Client) Eccentricity(ctx context.Context, id snapshot.NodeID) (int, error) {
	var out struct {
		Eccentricity int `json:"eccentricity"`
	}
	err := c.query(ctx, QueryEccentricity, "calculate_eccentricity", url.Values{"node_id": {id.String()}}, &out)
	return out.Eccentricity, err
}

// Distance returns the euclidean distance between two nodes.
func (c *Client) Distance(ctx context.Context, a, b snapshot.NodeID) (float64, error) {
	var out struct {
		Distance float64 `json:"distance"`
	}
	params := url.Values{"node1": {a.String()}, "node2": {b.String()}}
	err := c.query(ctx, QueryDistance, "calculate_distance", params, &out)
	return out.Distance, err
}

// ShortestPath returns the node sequence of a shortest path from a to b,
// both endpoints included.
func (c *Client) ShortestPath(ctx context.Context, a, b snapshot.NodeID) ([]snapshot.NodeID, error) {
	var out struct {
		Path []snapshot.NodeID `json:"shortest_path"`
	}
	params := url.Values{"node1_id": {a.String()}, "node2_id": {b.String()}}
	if err := c.query(ctx, QueryPath, "calculate_shortest_path_between_two_nodes", params, &out); err != nil {
		return nil, err
	}
	return out.Path, nil
}

// Embedding is a node2vec result: one vector per word, where words are node
// ids in the backend's string form.
type Embedding struct {
	Words   []string    `json:"words"`
	Vectors [][]float64 `json:"vectors"`
}

// Dimensions is the vector length, 0 for an empty embedding.
func (e Embedding) Dimensions() int {
	if len(e.Vectors) == 0 {
		return 0
	}
	return len(e.Vectors[0])
}

// Node2Vec embeds the current graph in dims dimensions.
func (c *Client) Node2Vec(ctx context.Context, dims int) (Embedding, error) {
	if dims < 1 {
		return Embedding{}, queryFailure(QueryNode2Vec, fmt.Errorf("dimensions must be >= 1, got %d", dims))
	}
	var out Embedding
	params := url.Values{"dimensions": {strconv.Itoa(dims)}}
	if err := c.query(ctx, QueryNode2Vec, "node2vec_algorithm", params, &out); err != nil {
		return Embedding{}, err
	}
	if len(out.Words) != len(out.Vectors) {
		return Embedding{}, queryFailure(QueryNode2Vec,
			fmt.Errorf("node2vec_algorithm: %d words for %d vectors", len(out.Words), len(out.Vectors)))
	}
	for i, v := range out.Vectors {
		if len(v) != dims {
			return Embedding{}, queryFailure(QueryNode2Vec,
				fmt.Errorf("node2vec_algorithm: vector %d has %d dimensions, want %d", i, len(v), dims))
		}
	}
	return out, nil
}

// query runs an analytics GET and decodes the result. Every failure comes
// back as a *QueryError.
func (c *Client) query(ctx context.Context, name, endpoint string, params url.Values, out any) error {
	body, err := c.get(ctx, endpoint, params)
	if err != nil {
		return queryFailure(name, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return queryFailure(name, fmt.Errorf("%s: decode response: %w", endpoint, err))
	}
	return nil
}
