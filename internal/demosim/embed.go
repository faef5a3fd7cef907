package demosim

import (
	"fmt"
	"math"
	"strconv"
)

// MaxDimensions caps the embedding size Embed accepts.
const MaxDimensions = 64

// ErrDimensions is returned for an embedding size outside [1, MaxDimensions].
var ErrDimensions = fmt.Errorf("dimensions must be between 1 and %d", MaxDimensions)

// Embed places every node in dims-dimensional space, answering
// node2vec_algorithm. Component k is the hop distance to the k-th landmark
// node over the undirected graph, centered and scaled into [-1, 1], so nodes
// that are close in the graph get close vectors. Landmarks are spread evenly
// over the id-sorted nodes; components past the node count stay zero.
// Words are the node ids as strings, in id order.
func (s *Simulation) Embed(dims int) (words []string, vectors [][]float64, err error) {
	if dims < 1 || dims > MaxDimensions {
		return nil, nil, fmt.Errorf("%w, got %d", ErrDimensions, dims)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.nodeIDs()
	words = make([]string, len(ids))
	vectors = make([][]float64, len(ids))
	for i, id := range ids {
		words[i] = strconv.Itoa(id)
		vectors[i] = make([]float64, dims)
	}

	adj := s.adjacency(false)
	landmarks := min(dims, len(ids))
	unreachable := float64(len(ids))
	col := make([]float64, len(ids))
	for k := 0; k < landmarks; k++ {
		dist, _ := bfs(adj, ids[k*len(ids)/landmarks])
		for i, id := range ids {
			col[i] = unreachable
			if d, ok := dist[id]; ok {
				col[i] = float64(d)
			}
		}
		normalize(col)
		for i := range ids {
			vectors[i][k] = col[i]
		}
	}
	return words, vectors, nil
}

// normalize centers v on zero and scales it so the largest magnitude is 1.
func normalize(v []float64) {
	if len(v) == 0 {
		return
	}
	mean := 0.0
	for _, x := range v {
		mean += x
	}
	mean /= float64(len(v))

	peak := 0.0
	for i := range v {
		v[i] -= mean
		peak = math.Max(peak, math.Abs(v[i]))
	}
	if peak == 0 {
		return
	}
	for i := range v {
		v[i] /= peak
	}
}
