// Package snapshot decodes round snapshots served by the simulation backend.
//
// A Snapshot captures the nodes, links, message counters and log lines of a
// single simulation round. Snapshots are decoded fresh on every poll and
// replace the previous one wholesale; nothing is patched incrementally.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrMalformedSnapshot is returned when the node or link table is missing or
// one of its rows cannot be decoded.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// NodeID identifies a simulated device.
type NodeID int

func (id NodeID) String() string { return strconv.Itoa(int(id)) }

// ParseNodeID parses a node id typed by a user.
func ParseNodeID(s string) (NodeID, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid node id %q", s)
	}
	return NodeID(n), nil
}

// Node is the position and render attributes of one device for one round.
type Node struct {
	ID    NodeID
	X     float64
	Y     float64
	Z     float64
	Size  float64
	Color string
}

// Link is a directed edge, or a bidirectional one when Bidirectional is set.
type Link struct {
	Source        NodeID
	Target        NodeID
	Bidirectional bool
}

// Snapshot is the full state of one simulation round.
//
// Nodes and Links are nil when the backend omitted them; an empty table
// decodes to an empty, non-nil slice.
type Snapshot struct {
	Round             int
	Nodes             []Node
	Links             []Link
	Running           bool
	MessagesThisRound int
	MessagesOverall   int
	Logs              []string

	// Time the response was decoded.
	FetchedAt time.Time
}

// wireSnapshot mirrors the update_graph response body.
type wireSnapshot struct {
	N    []json.RawMessage `json:"n"`
	L    []json.RawMessage `json:"l"`
	R    bool              `json:"r"`
	T    int               `json:"t"`
	MsgR int               `json:"msg_r"`
	MsgA int               `json:"msg_a"`
	Logs []string          `json:"logs"`
}

// Decode parses an update_graph response body.
//
// A missing "n" or "l" field is not a decode error; it yields nil Nodes or
// Links so the caller can classify the snapshot. A row that cannot be read
// is reported as ErrMalformedSnapshot.
func Decode(data []byte) (*Snapshot, error) {
	var w wireSnapshot
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	snap := &Snapshot{
		Round:             w.T,
		Running:           w.R,
		MessagesThisRound: w.MsgR,
		MessagesOverall:   w.MsgA,
		Logs:              w.Logs,
		FetchedAt:         time.Now(),
	}

	if w.N != nil {
		snap.Nodes = make([]Node, 0, len(w.N))
		for i, row := range w.N {
			n, err := decodeNode(row)
			if err != nil {
				return nil, fmt.Errorf("%w: node row %d: %v", ErrMalformedSnapshot, i, err)
			}
			snap.Nodes = append(snap.Nodes, n)
		}
	}
	if w.L != nil {
		snap.Links = make([]Link, 0, len(w.L))
		for i, row := range w.L {
			l, err := decodeLink(row)
			if err != nil {
				return nil, fmt.Errorf("%w: link row %d: %v", ErrMalformedSnapshot, i, err)
			}
			snap.Links = append(snap.Links, l)
		}
	}
	return snap, nil
}

// Complete reports whether both the node and link tables are present.
func (s *Snapshot) Complete() bool {
	return s != nil && s.Nodes != nil && s.Links != nil
}

// decodeNode reads a [id, x, y, z, size, color] row.
func decodeNode(row json.RawMessage) (Node, error) {
	var cols []json.RawMessage
	if err := json.Unmarshal(row, &cols); err != nil {
		return Node{}, err
	}
	if len(cols) < 6 {
		return Node{}, fmt.Errorf("want 6 columns, got %d", len(cols))
	}

	var n Node
	var err error
	if n.ID, err = decodeID(cols[0]); err != nil {
		return Node{}, err
	}
	for i, dst := range []*float64{&n.X, &n.Y, &n.Z, &n.Size} {
		if err := json.Unmarshal(cols[i+1], dst); err != nil {
			return Node{}, fmt.Errorf("column %d: %w", i+1, err)
		}
	}
	if err := json.Unmarshal(cols[5], &n.Color); err != nil {
		return Node{}, fmt.Errorf("color: %w", err)
	}
	return n, nil
}

// decodeLink reads a [source, target, bidirectional] row. The flag may be
// omitted, in which case the link is one-way.
func decodeLink(row json.RawMessage) (Link, error) {
	var cols []json.RawMessage
	if err := json.Unmarshal(row, &cols); err != nil {
		return Link{}, err
	}
	if len(cols) < 2 {
		return Link{}, fmt.Errorf("want at least 2 columns, got %d", len(cols))
	}

	var l Link
	var err error
	if l.Source, err = decodeID(cols[0]); err != nil {
		return Link{}, err
	}
	if l.Target, err = decodeID(cols[1]); err != nil {
		return Link{}, err
	}
	if len(cols) > 2 {
		if err := json.Unmarshal(cols[2], &l.Bidirectional); err != nil {
			return Link{}, fmt.Errorf("bidirectional: %w", err)
		}
	}
	return l, nil
}

// decodeID accepts both numeric and quoted numeric ids.
func decodeID(raw json.RawMessage) (NodeID, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		return ParseNodeID(s)
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("id: %w", err)
	}
	return NodeID(n), nil
}
