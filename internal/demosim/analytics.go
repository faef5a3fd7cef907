package demosim

import (
	"fmt"
	"math"
)

// adjacency returns the neighbors of each node. Directed links are only
// followed source to target.
func (s *Simulation) adjacency(directed bool) map[int][]int {
	adj := make(map[int][]int, len(s.nodes))
	for _, n := range s.nodes {
		adj[n.id] = nil
	}
	for _, l := range s.links {
		adj[l.source] = append(adj[l.source], l.target)
		if l.bidirectional || !directed {
			adj[l.target] = append(adj[l.target], l.source)
		}
	}
	return adj
}

// bfs returns hop counts from src and each node's predecessor.
func bfs(adj map[int][]int, src int) (map[int]int, map[int]int) {
	dist := map[int]int{src: 0}
	prev := make(map[int]int)
	queue := []int{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, nb := range adj[cur] {
			if _, seen := dist[nb]; seen {
				continue
			}
			dist[nb] = dist[cur] + 1
			prev[nb] = cur
			queue = append(queue, nb)
		}
	}
	return dist, prev
}

func (s *Simulation) find(id int) (node, bool) {
	for _, n := range s.nodes {
		if n.id == id {
			return n, true
		}
	}
	return node{}, false
}

func notFound(id int) error {
	return fmt.Errorf("%w: %d", ErrNodeNotFound, id)
}

// Degree counts the distinct nodes linked to id in either direction.
func (s *Simulation) Degree(id int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.find(id); !ok {
		return 0, notFound(id)
	}
	return len(s.adjacency(false)[id]), nil
}

// Eccentricity is the largest hop count from id to any node, ignoring link
// direction.
func (s *Simulation) Eccentricity(id int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.find(id); !ok {
		return 0, notFound(id)
	}
	return s.eccentricity(s.adjacency(false), id)
}

func (s *Simulation) eccentricity(adj map[int][]int, id int) (int, error) {
	dist, _ := bfs(adj, id)
	if len(dist) != len(s.nodes) {
		return 0, ErrDisconnected
	}
	ecc := 0
	for _, d := range dist {
		ecc = max(ecc, d)
	}
	return ecc, nil
}

// Diameter is the largest eccentricity in the graph.
func (s *Simulation) Diameter() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.nodes) == 0 {
		return 0, ErrDisconnected
	}
	adj := s.adjacency(false)
	diameter := 0
	for _, id := range s.nodeIDs() {
		ecc, err := s.eccentricity(adj, id)
		if err != nil {
			return 0, err
		}
		diameter = max(diameter, ecc)
	}
	return diameter, nil
}

// Distance is the euclidean distance between two nodes.
func (s *Simulation) Distance(a, b int) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	na, ok := s.find(a)
	if !ok {
		return 0, notFound(a)
	}
	nb, ok := s.find(b)
	if !ok {
		return 0, notFound(b)
	}
	return math.Hypot(na.x-nb.x, na.y-nb.y), nil
}

// ShortestPath returns the hop-minimal path from a to b following link
// direction, both endpoints included.
func (s *Simulation) ShortestPath(a, b int) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.find(a); !ok {
		return nil, notFound(a)
	}
	if _, ok := s.find(b); !ok {
		return nil, notFound(b)
	}

	dist, prev := bfs(s.adjacency(true), a)
	if _, ok := dist[b]; !ok {
		return nil, fmt.Errorf("%w %d and %d", ErrNoPath, a, b)
	}
	path := []int{b}
	for cur := b; cur != a; {
		cur = prev[cur]
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}
