package main

import (
	"time"

	"github.com/daviddao/mobsinet_viewer/internal/snapshot"
)

// jsonOutput is the structure for snapshot --json.
type jsonOutput struct {
	Round     int        `json:"round"`
	Running   bool       `json:"running"`
	Nodes     []jsonNode `json:"nodes"`
	Links     []jsonLink `json:"links"`
	Logs      []string   `json:"logs,omitempty"`
	Stats     jsonStats  `json:"stats"`
	FetchedAt string     `json:"fetched_at"`
}

type jsonNode struct {
	ID    int     `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Size  float64 `json:"size"`
	Color string  `json:"color"`
}

type jsonLink struct {
	Source        int  `json:"source"`
	Target        int  `json:"target"`
	Bidirectional bool `json:"bidirectional"`
}

type jsonStats struct {
	Nodes             int `json:"nodes"`
	Links             int `json:"links"`
	MessagesThisRound int `json:"messages_this_round"`
	MessagesOverall   int `json:"messages_overall"`
}

// buildJSONOutput converts a snapshot into the JSON output structure.
func buildJSONOutput(snap *snapshot.Snapshot) jsonOutput {
	nodes := make([]jsonNode, len(snap.Nodes))
	for i, n := range snap.Nodes {
		nodes[i] = jsonNode{
			ID:    int(n.ID),
			X:     n.X,
			Y:     n.Y,
			Size:  n.Size,
			Color: n.Color,
		}
	}

	links := make([]jsonLink, len(snap.Links))
	for i, l := range snap.Links {
		links[i] = jsonLink{
			Source:        int(l.Source),
			Target:        int(l.Target),
			Bidirectional: l.Bidirectional,
		}
	}

	return jsonOutput{
		Round:   snap.Round,
		Running: snap.Running,
		Nodes:   nodes,
		Links:   links,
		Logs:    snap.Logs,
		Stats: jsonStats{
			Nodes:             len(snap.Nodes),
			Links:             len(snap.Links),
			MessagesThisRound: snap.MessagesThisRound,
			MessagesOverall:   snap.MessagesOverall,
		},
		FetchedAt: snap.FetchedAt.Format(time.RFC3339),
	}
}
