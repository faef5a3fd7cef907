package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/daviddao/mobsinet_viewer/internal/datasource"
	"github.com/daviddao/mobsinet_viewer/internal/snapshot"
)

type queryKind int

const (
	queryDegree queryKind = iota
	queryDiameter
	queryEccentricity
	queryDistance
	queryPath
	queryClear
	queryNode2Vec
)

// query is a parsed analytics prompt, e.g. "path 1 7".
type query struct {
	kind queryKind
	a, b snapshot.NodeID
	dims int // embedding size for node2vec
}

// queryAliases maps prompt words to query kinds and their argument count.
var queryAliases = map[string]struct {
	kind queryKind
	args int
}{
	"degree":       {queryDegree, 1},
	"deg":          {queryDegree, 1},
	"diameter":     {queryDiameter, 0},
	"diam":         {queryDiameter, 0},
	"eccentricity": {queryEccentricity, 1},
	"ecc":          {queryEccentricity, 1},
	"distance":     {queryDistance, 2},
	"dist":         {queryDistance, 2},
	"path":         {queryPath, 2},
	"sp":           {queryPath, 2},
	"clear":        {queryClear, 0},
	"node2vec":     {queryNode2Vec, 1},
	"n2v":          {queryNode2Vec, 1},
}

const queryUsage = "degree <id> | diameter | ecc <id> | distance <a> <b> | path <a> <b> | node2vec <dims> | clear"

// parseQuery parses the analytics prompt.
func parseQuery(s string) (query, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return query{}, fmt.Errorf("empty query (try: %s)", queryUsage)
	}
	alias, ok := queryAliases[strings.ToLower(fields[0])]
	if !ok {
		return query{}, fmt.Errorf("unknown query %q (try: %s)", fields[0], queryUsage)
	}
	args := fields[1:]
	if len(args) != alias.args {
		return query{}, fmt.Errorf("%s takes %d argument(s), got %d", fields[0], alias.args, len(args))
	}

	q := query{kind: alias.kind}
	if q.kind == queryNode2Vec {
		dims, err := strconv.Atoi(args[0])
		if err != nil || dims < 1 {
			return query{}, fmt.Errorf("%s takes a positive dimension count, got %q", fields[0], args[0])
		}
		q.dims = dims
		return q, nil
	}
	ids := []*snapshot.NodeID{&q.a, &q.b}
	for i, arg := range args {
		id, err := snapshot.ParseNodeID(arg)
		if err != nil {
			return query{}, err
		}
		*ids[i] = id
	}
	return q, nil
}

// queryResult is what a query shows. Path is set for shortest-path queries
// and Embedding for node2vec.
type queryResult struct {
	Text      string
	Path      []snapshot.NodeID
	Embedding *datasource.Embedding
}

// runQuery runs q against the backend. Failures are *datasource.QueryError
// whose text is ready to show.
func runQuery(ctx context.Context, c *datasource.Client, q query) (queryResult, error) {
	switch q.kind {
	case queryDegree:
		d, err := c.Degree(ctx, q.a)
		if err != nil {
			return queryResult{}, err
		}
		return queryResult{Text: fmt.Sprintf("degree of %s: %d", q.a, d)}, nil
	case queryDiameter:
		d, err := c.Diameter(ctx)
		if err != nil {
			return queryResult{}, err
		}
		return queryResult{Text: fmt.Sprintf("diameter: %d", d)}, nil
	case queryEccentricity:
		e, err := c.Eccentricity(ctx, q.a)
		if err != nil {
			return queryResult{}, err
		}
		return queryResult{Text: fmt.Sprintf("eccentricity of %s: %d", q.a, e)}, nil
	case queryDistance:
		d, err := c.Distance(ctx, q.a, q.b)
		if err != nil {
			return queryResult{}, err
		}
		return queryResult{Text: fmt.Sprintf("distance %s-%s: %.2f", q.a, q.b, d)}, nil
	case queryPath:
		path, err := c.ShortestPath(ctx, q.a, q.b)
		if err != nil {
			return queryResult{}, err
		}
		return queryResult{Text: "path: " + formatPath(path), Path: path}, nil
	case queryNode2Vec:
		emb, err := c.Node2Vec(ctx, q.dims)
		if err != nil {
			return queryResult{}, err
		}
		return queryResult{
			Text:      fmt.Sprintf("node2vec: %d nodes in %d dimensions", len(emb.Words), q.dims),
			Embedding: &emb,
		}, nil
	case queryClear:
		return queryResult{Text: "highlight cleared", Path: []snapshot.NodeID{}}, nil
	}
	return queryResult{}, fmt.Errorf("unsupported query")
}

func formatPath(path []snapshot.NodeID) string {
	if len(path) == 0 {
		return "(empty)"
	}
	parts := make([]string, len(path))
	for i, id := range path {
		parts[i] = id.String()
	}
	return strings.Join(parts, " → ")
}

// formatEmbedding lists one vector per line, keyed by word.
func formatEmbedding(emb datasource.Embedding) string {
	width := 0
	for _, w := range emb.Words {
		width = max(width, len(w))
	}
	var b strings.Builder
	for i, w := range emb.Words {
		fmt.Fprintf(&b, "%-*s", width, w)
		for _, x := range emb.Vectors[i] {
			fmt.Fprintf(&b, " %7.3f", x)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
