// Package demosim is a small in-process stand-in for the simulation backend.
// It moves nodes by random walk, links nodes within radio range and answers
// the same HTTP endpoints the viewer polls, so the viewer can be run and
// tested without the full simulator.
package demosim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"
	"sort"
	"sync"
	"time"
)

// Errors returned by Simulation operations.
var (
	ErrUnknownProject = errors.New("unknown project")
	ErrRunning        = errors.New("simulation is already running")
	ErrNodeNotFound   = errors.New("node not found")
	ErrNoPath         = errors.New("no path between nodes")
	ErrDisconnected   = errors.New("graph is not connected")
)

// Projects the demo backend can load.
var Projects = []string{"pingpong", "sample1", "sample9"}

// Params are the tunable simulation values exposed through get_config.
type Params struct {
	Nodes       int
	Rounds      int
	RefreshRate float64
	DimX, DimY  float64
	Speed       float64
	Radius      float64
	// LowPowerEvery makes every n-th node reach only half the radius, which
	// produces one-way links. Zero disables it.
	LowPowerEvery int
}

// DefaultParams returns the parameters a freshly loaded project starts with.
func DefaultParams() Params {
	return Params{
		Nodes:         20,
		Rounds:        100,
		RefreshRate:   1,
		DimX:          1000,
		DimY:          1000,
		Speed:         40,
		Radius:        250,
		LowPowerEvery: 5,
	}
}

type node struct {
	id       int
	x, y     float64
	size     float64
	color    string
	lowPower bool
}

// link is a directed or bidirectional edge, source < target when
// bidirectional.
type link struct {
	source, target int
	bidirectional  bool
}

// Simulation is the demo simulation state. All methods are safe for
// concurrent use.
type Simulation struct {
	mu      sync.Mutex
	log     *slog.Logger
	rng     *rand.Rand
	project string
	params  Params
	round   int
	nodes   []node
	links   []link
	nextID  int
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	msgRound int
	msgAll   int
	logs     []string
}

// New returns a simulation with the first project loaded.
func New(seed uint64, log *slog.Logger) *Simulation {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Simulation{
		log:    log,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		params: DefaultParams(),
	}
	s.reset(Projects[0])
	return s
}

// Init loads a project and places its nodes. A running simulation is
// stopped first.
func (s *Simulation) Init(project string) error {
	if !slices.Contains(Projects, project) {
		return fmt.Errorf("%w: %q", ErrUnknownProject, project)
	}
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset(project)
	s.log.Info("simulation initialized", "project", project, "nodes", len(s.nodes))
	return nil
}

func (s *Simulation) reset(project string) {
	s.project = project
	s.round = 0
	s.nodes = nil
	s.nextID = 1
	s.msgRound, s.msgAll = 0, 0
	s.logs = []string{"loaded project " + project}
	s.addNodes(s.params.Nodes, "")
	s.links = s.connect()
}

// Run steps the simulation for the given number of rounds in the
// background, pausing 1/refreshRate seconds between rounds. A refreshRate
// of zero runs rounds back to back.
func (s *Simulation) Run(rounds int, refreshRate float64) error {
	if rounds <= 0 {
		return fmt.Errorf("rounds must be > 0, got %d", rounds)
	}
	if refreshRate < 0 {
		return fmt.Errorf("refresh rate must be >= 0, got %v", refreshRate)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})

	var pause time.Duration
	if refreshRate > 0 {
		pause = time.Duration(float64(time.Second) / refreshRate)
	}
	go s.loop(ctx, rounds, pause, s.done)
	s.log.Info("simulation started", "rounds", rounds, "pause", pause)
	return nil
}

func (s *Simulation) loop(ctx context.Context, rounds int, pause time.Duration, done chan struct{}) {
	defer close(done)
	defer func() {
		s.mu.Lock()
		s.running = false
		s.cancel = nil
		s.mu.Unlock()
	}()

	timer := time.NewTimer(pause)
	defer timer.Stop()
	for i := 0; i < rounds; i++ {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		s.Step()
		timer.Reset(pause)
	}
}

// Stop halts a running simulation and waits for its loop to exit.
func (s *Simulation) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.log.Info("simulation stopped")
}

// Running reports whether rounds are being stepped.
func (s *Simulation) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Round is the number of completed rounds.
func (s *Simulation) Round() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

// Step advances one round: every node moves, links are recomputed and each
// node pings its neighbors.
func (s *Simulation) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.round++
	for i := range s.nodes {
		n := &s.nodes[i]
		angle := s.rng.Float64() * 2 * math.Pi
		n.x = clamp(n.x+s.params.Speed*math.Cos(angle), 0, s.params.DimX)
		n.y = clamp(n.y+s.params.Speed*math.Sin(angle), 0, s.params.DimY)
	}
	s.links = s.connect()

	sent := make(map[int]int, len(s.nodes))
	for _, l := range s.links {
		sent[l.source]++
		if l.bidirectional {
			sent[l.target]++
		}
	}
	s.msgRound = 0
	s.logs = s.logs[:0]
	for _, n := range s.nodes {
		if sent[n.id] == 0 {
			continue
		}
		s.msgRound += sent[n.id]
		s.logs = append(s.logs, fmt.Sprintf("node %d sent ping to %d neighbors", n.id, sent[n.id]))
	}
	s.msgAll += s.msgRound
}

// AddNodes places count new nodes at random positions. An empty color uses
// the default.
func (s *Simulation) AddNodes(count int, color string) error {
	if count <= 0 {
		return fmt.Errorf("number of nodes must be > 0, got %d", count)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addNodes(count, color)
	s.links = s.connect()
	s.logs = append(s.logs, fmt.Sprintf("added %d nodes", count))
	return nil
}

// Reevaluate recomputes links from the current positions and parameters
// without advancing the round. It returns the number of links.
func (s *Simulation) Reevaluate() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links = s.connect()
	s.logs = append(s.logs, fmt.Sprintf("reevaluated connections: %d links", len(s.links)))
	return len(s.links)
}

func (s *Simulation) addNodes(count int, color string) {
	for i := 0; i < count; i++ {
		id := s.nextID
		s.nextID++
		lowPower := s.params.LowPowerEvery > 0 && id%s.params.LowPowerEvery == 0
		c := color
		if c == "" {
			c = "blue"
			if lowPower {
				c = "orange"
			}
		}
		s.nodes = append(s.nodes, node{
			id:       id,
			x:        s.rng.Float64() * s.params.DimX,
			y:        s.rng.Float64() * s.params.DimY,
			size:     1,
			color:    c,
			lowPower: lowPower,
		})
	}
}

func (s *Simulation) reach(n node) float64 {
	if n.lowPower {
		return s.params.Radius / 2
	}
	return s.params.Radius
}

// connect links a to b when b lies within a's reach. Pairs that reach each
// other become one bidirectional link.
func (s *Simulation) connect() []link {
	var out []link
	for i := 0; i < len(s.nodes); i++ {
		for j := i + 1; j < len(s.nodes); j++ {
			a, b := s.nodes[i], s.nodes[j]
			d := math.Hypot(a.x-b.x, a.y-b.y)
			ab, ba := d <= s.reach(a), d <= s.reach(b)
			switch {
			case ab && ba:
				out = append(out, link{source: a.id, target: b.id, bidirectional: true})
			case ab:
				out = append(out, link{source: a.id, target: b.id})
			case ba:
				out = append(out, link{source: b.id, target: a.id})
			}
		}
	}
	return out
}

// Params returns the current parameters.
func (s *Simulation) Params() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// SetParams replaces the parameters. They apply from the next Init; radius
// and speed also apply to the next round.
func (s *Simulation) SetParams(p Params) error {
	if p.Nodes < 0 || p.Rounds < 0 || p.RefreshRate < 0 || p.Speed < 0 || p.Radius < 0 || p.LowPowerEvery < 0 {
		return errors.New("parameters must not be negative")
	}
	if p.DimX <= 0 || p.DimY <= 0 {
		return errors.New("dimensions must be > 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = p
	return nil
}

// Project returns the loaded project name.
func (s *Simulation) Project() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project
}

// Wire is the update_graph response body.
type Wire struct {
	Nodes    [][]any  `json:"n"`
	Links    [][]any  `json:"l"`
	Running  bool     `json:"r"`
	Round    int      `json:"t"`
	MsgRound int      `json:"msg_r"`
	MsgAll   int      `json:"msg_a"`
	Logs     *[]string `json:"logs,omitempty"`
}

// Snapshot returns the current state in wire form.
func (s *Simulation) Snapshot(withLogs bool) Wire {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := Wire{
		Nodes:    make([][]any, 0, len(s.nodes)),
		Links:    make([][]any, 0, len(s.links)),
		Running:  s.running,
		Round:    s.round,
		MsgRound: s.msgRound,
		MsgAll:   s.msgAll,
	}
	for _, n := range s.nodes {
		w.Nodes = append(w.Nodes, []any{n.id, round2(n.x), round2(n.y), 0, n.size, n.color})
	}
	for _, l := range s.links {
		w.Links = append(w.Links, []any{l.source, l.target, l.bidirectional})
	}
	if withLogs {
		// Newest first, as the simulator's log buffer reports it.
		logs := slices.Clone(s.logs)
		if logs == nil {
			logs = []string{}
		}
		slices.Reverse(logs)
		w.Logs = &logs
	}
	return w
}

// Config returns the project configuration in get_config form: scalar
// settings plus nested parameter groups.
func (s *Simulation) Config(project string) (map[string]any, error) {
	if !slices.Contains(Projects, project) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProject, project)
	}
	p := s.Params()
	return map[string]any{
		"simulation_name":         project,
		"simulation_rounds":       p.Rounds,
		"simulation_refresh_rate": p.RefreshRate,
		"number_of_nodes":         p.Nodes,
		"dim_x":                   []float64{0, p.DimX},
		"dim_y":                   []float64{0, p.DimY},
		"mobility_model":          "random_walk",
		"mobility_model_parameters": map[string]any{
			"speed": p.Speed,
		},
		"connectivity_model": "radius",
		"connectivity_model_parameters": map[string]any{
			"radius":          p.Radius,
			"low_power_every": p.LowPowerEvery,
		},
	}, nil
}

func (s *Simulation) nodeIDs() []int {
	ids := make([]int, len(s.nodes))
	for i, n := range s.nodes {
		ids[i] = n.id
	}
	sort.Ints(ids)
	return ids
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
