package datasource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/jellydator/ttlcache/v3"
)

// Form names accepted by SubmitForm.
const (
	FormOptions  = "options"
	FormAddNodes = "add-nodes"
)

var formEndpoints = map[string]string{
	FormOptions:  "update_config",
	FormAddNodes: "add_nodes",
}

// ConfigEntry is one flattened project configuration value. Keys of nested
// groups read "group[key]", the form field names the backend expects back.
type ConfigEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// InitSimulation loads the project and resets the backend simulation.
func (c *Client) InitSimulation(ctx context.Context, project string) error {
	_, err := c.get(ctx, "init_simulation", url.Values{"project": {project}})
	return err
}

// RunSimulation runs the given number of rounds. refreshRate is passed
// through to the backend; zero means as fast as it can.
func (c *Client) RunSimulation(ctx context.Context, rounds int, refreshRate float64) error {
	params := url.Values{
		"rounds":       {strconv.Itoa(rounds)},
		"refresh_rate": {strconv.FormatFloat(refreshRate, 'g', -1, 64)},
	}
	_, err := c.get(ctx, "run_simulation", params)
	return err
}

// StopSimulation asks the backend to stop after the current round.
func (c *Client) StopSimulation(ctx context.Context) error {
	_, err := c.get(ctx, "stop_simulation", nil)
	return err
}

// ReevaluateConnections asks the backend to recompute links from the current
// node positions without advancing the round.
func (c *Client) ReevaluateConnections(ctx context.Context) error {
	_, err := c.get(ctx, "reevaluate_connections", nil)
	return err
}

// ProjectNames lists the projects the backend can load.
func (c *Client) ProjectNames(ctx context.Context) ([]string, error) {
	if item := c.projects.Get("projects"); item != nil {
		return item.Value(), nil
	}
	body, err := c.get(ctx, "projects_names", nil)
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(body, &names); err != nil {
		return nil, fmt.Errorf("projects_names: decode response: %w", err)
	}
	c.projects.Set("projects", names, ttlcache.DefaultTTL)
	return names, nil
}

// GetConfig returns the project configuration flattened and sorted by key.
func (c *Client) GetConfig(ctx context.Context, project string) ([]ConfigEntry, error) {
	if item := c.configs.Get(project); item != nil {
		return item.Value(), nil
	}
	body, err := c.get(ctx, "get_config", url.Values{"project": {project}})
	if err != nil {
		return nil, err
	}
	entries, err := Flatten(body)
	if err != nil {
		return nil, fmt.Errorf("get_config: %w", err)
	}
	c.configs.Set(project, entries, ttlcache.DefaultTTL)
	return entries, nil
}

// InvalidateCache drops cached project names and configs.
func (c *Client) InvalidateCache() {
	c.projects.DeleteAll()
	c.configs.DeleteAll()
}

// SubmitForm posts form values to the project's form endpoint. A successful
// options submission invalidates the cached config for the project.
func (c *Client) SubmitForm(ctx context.Context, form, project string, values url.Values) error {
	endpoint, ok := formEndpoints[form]
	if !ok {
		return fmt.Errorf("unknown form %q (want %s or %s)", form, FormOptions, FormAddNodes)
	}
	if _, err := c.postForm(ctx, endpoint, url.Values{"project": {project}}, values); err != nil {
		return err
	}
	if form == FormOptions {
		c.configs.Delete(project)
	}
	return nil
}

// Flatten turns a get_config response into sorted entries. One level of
// nesting becomes "group[key]"; anything deeper is kept as compact JSON.
func Flatten(data []byte) ([]ConfigEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	var out []ConfigEntry
	for k, v := range raw {
		group, ok := v.(map[string]any)
		if !ok {
			out = append(out, ConfigEntry{Key: k, Value: formatValue(v)})
			continue
		}
		for sk, sv := range group {
			out = append(out, ConfigEntry{Key: k + "[" + sk + "]", Value: formatValue(sv)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
