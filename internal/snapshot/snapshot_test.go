package snapshot

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestDecodeFullSnapshot(t *testing.T) {
	body := `{
		"n": [[1, 0, 0, 0, 1, "blue"], [2, 10, 0, 0, 2, "#ff0000"]],
		"l": [[1, 2, false], [2, 1, true]],
		"r": true,
		"t": 5,
		"msg_r": 3,
		"msg_a": 42,
		"logs": ["b", "a"]
	}`

	snap, err := Decode([]byte(body))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	want := &Snapshot{
		Round:             5,
		Running:           true,
		MessagesThisRound: 3,
		MessagesOverall:   42,
		Logs:              []string{"b", "a"},
		Nodes: []Node{
			{ID: 1, X: 0, Y: 0, Z: 0, Size: 1, Color: "blue"},
			{ID: 2, X: 10, Y: 0, Z: 0, Size: 2, Color: "#ff0000"},
		},
		Links: []Link{
			{Source: 1, Target: 2},
			{Source: 2, Target: 1, Bidirectional: true},
		},
	}
	if diff := cmp.Diff(want, snap, cmpopts.IgnoreFields(Snapshot{}, "FetchedAt")); diff != "" {
		t.Errorf("Decode mismatch (-want +got):\n%s", diff)
	}
	if snap.FetchedAt.IsZero() {
		t.Error("FetchedAt should be set")
	}
	if !snap.Complete() {
		t.Error("snapshot with both tables should be complete")
	}
}

func TestDecodeMissingTables(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no nodes", `{"l": [], "r": true, "t": 1}`},
		{"no links", `{"n": [], "r": true, "t": 1}`},
		{"null nodes", `{"n": null, "l": [], "r": true, "t": 1}`},
		{"empty object", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := Decode([]byte(tt.body))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if snap.Complete() {
				t.Error("snapshot should be incomplete")
			}
		})
	}
}

func TestDecodeEmptyTablesAreComplete(t *testing.T) {
	snap, err := Decode([]byte(`{"n": [], "l": [], "r": false, "t": 0}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !snap.Complete() {
		t.Error("empty tables should still count as present")
	}
	if len(snap.Nodes) != 0 || len(snap.Links) != 0 {
		t.Errorf("expected empty tables, got %d nodes %d links", len(snap.Nodes), len(snap.Links))
	}
}

func TestDecodeBadRows(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"short node row", `{"n": [[1, 0, 0]], "l": []}`},
		{"non numeric x", `{"n": [[1, "x", 0, 0, 1, "red"]], "l": []}`},
		{"short link row", `{"n": [], "l": [[1]]}`},
		{"bad id", `{"n": [[true, 0, 0, 0, 1, "red"]], "l": []}`},
		{"bad flag", `{"n": [], "l": [[1, 2, "yes"]]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.body))
			if !errors.Is(err, ErrMalformedSnapshot) {
				t.Errorf("Decode error = %v, want ErrMalformedSnapshot", err)
			}
		})
	}
}

func TestDecodeInvalidJSON(t *testing.T) {
	_, err := Decode([]byte(`{"n": [`))
	if err == nil {
		t.Fatal("expected error for truncated body")
	}
	if errors.Is(err, ErrMalformedSnapshot) {
		t.Error("a syntax error is a transport problem, not a malformed snapshot")
	}
}

func TestDecodeStringIDsAndOptionalFlag(t *testing.T) {
	snap, err := Decode([]byte(`{"n": [["7", 1, 2, 3, 1, "green"]], "l": [["7", 8]]}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if snap.Nodes[0].ID != 7 {
		t.Errorf("node id = %d, want 7", snap.Nodes[0].ID)
	}
	if snap.Links[0].Bidirectional {
		t.Error("link without flag should be one-way")
	}
	if snap.Links[0].Target != 8 {
		t.Errorf("link target = %d, want 8", snap.Links[0].Target)
	}
}

func TestParseNodeID(t *testing.T) {
	if id, err := ParseNodeID("12"); err != nil || id != 12 {
		t.Errorf("ParseNodeID(12) = %d, %v", id, err)
	}
	if _, err := ParseNodeID("a"); err == nil {
		t.Error("ParseNodeID should reject non-numeric ids")
	}
	if got := NodeID(3).String(); got != "3" {
		t.Errorf("String() = %q, want %q", got, "3")
	}
}
