// Package importer loads problem instances from external tabular
// sources. CSV is the only format dispatchers actually export from
// legacy planning tools, so that is what ships.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"routeopt/internal/model"
)

// ParseNodes reads node rows from CSV. The first row is a header;
// recognized columns are id, x, y, demand, window_start, window_end,
// service_sec, depot, tags and allowed_depots. demand, tags and
// allowed_depots hold semicolon-separated lists. Unknown columns are
// ignored.
func ParseNodes(r io.Reader) ([]model.NodeIn, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := col["id"]; !ok {
		return nil, fmt.Errorf("header missing id column")
	}

	var nodes []model.NodeIn
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		get := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		n := model.NodeIn{ID: get("id")}
		if n.ID == "" {
			return nil, fmt.Errorf("line %d: empty id", line)
		}
		if n.X, err = floatField(get("x"), 0); err != nil {
			return nil, fmt.Errorf("line %d: x: %w", line, err)
		}
		if n.Y, err = floatField(get("y"), 0); err != nil {
			return nil, fmt.Errorf("line %d: y: %w", line, err)
		}
		if v := get("demand"); v != "" {
			if n.Demand, err = floatList(v); err != nil {
				return nil, fmt.Errorf("line %d: demand: %w", line, err)
			}
		}
		ws, we := get("window_start"), get("window_end")
		if ws != "" || we != "" {
			var w model.WindowIn
			if w.Start, err = floatField(ws, 0); err != nil {
				return nil, fmt.Errorf("line %d: window_start: %w", line, err)
			}
			if w.End, err = floatField(we, 0); err != nil {
				return nil, fmt.Errorf("line %d: window_end: %w", line, err)
			}
			n.Window = &w
		}
		if n.ServiceSec, err = floatField(get("service_sec"), 0); err != nil {
			return nil, fmt.Errorf("line %d: service_sec: %w", line, err)
		}
		n.Depot = isTrue(get("depot"))
		if v := get("tags"); v != "" {
			n.Tags = splitList(v)
		}
		if v := get("allowed_depots"); v != "" {
			n.AllowedDepots = splitList(v)
		}
		nodes = append(nodes, n)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("no node rows")
	}
	return nodes, nil
}

func floatField(s string, def float64) (float64, error) {
	if s == "" {
		return def, nil
	}
	return strconv.ParseFloat(s, 64)
}

func floatList(s string) ([]float64, error) {
	parts := splitList(s)
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ";") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isTrue(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}
