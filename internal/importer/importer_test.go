package importer

import (
	"strings"
	"testing"
)

func TestParseNodes(t *testing.T) {
	csv := `id,x,y,demand,window_start,window_end,service_sec,depot,tags,allowed_depots
d1,0,0,,,,,true,,
c1,1.5,2,3;1,100,600,30,false,frozen;fragile,d1
c2,4,5,2,,,,no,,
`
	nodes, err := ParseNodes(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseNodes: %v", err)
	}
	if len(nodes) != 3 {
		t.Fatalf("got %d nodes", len(nodes))
	}
	if !nodes[0].Depot || nodes[0].ID != "d1" {
		t.Fatalf("depot row: %+v", nodes[0])
	}
	c1 := nodes[1]
	if c1.X != 1.5 || c1.Y != 2 {
		t.Fatalf("coords: %+v", c1)
	}
	if len(c1.Demand) != 2 || c1.Demand[0] != 3 || c1.Demand[1] != 1 {
		t.Fatalf("demand: %+v", c1.Demand)
	}
	if c1.Window == nil || c1.Window.Start != 100 || c1.Window.End != 600 {
		t.Fatalf("window: %+v", c1.Window)
	}
	if c1.ServiceSec != 30 {
		t.Fatalf("service: %v", c1.ServiceSec)
	}
	if len(c1.Tags) != 2 || c1.Tags[0] != "frozen" {
		t.Fatalf("tags: %+v", c1.Tags)
	}
	if len(c1.AllowedDepots) != 1 || c1.AllowedDepots[0] != "d1" {
		t.Fatalf("allowed depots: %+v", c1.AllowedDepots)
	}
	if nodes[2].Window != nil || nodes[2].Depot {
		t.Fatalf("defaults: %+v", nodes[2])
	}
}

func TestParseNodesColumnOrderIndependent(t *testing.T) {
	csv := "depot,id,y,x\ntrue,d1,9,8\n"
	nodes, err := ParseNodes(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseNodes: %v", err)
	}
	if nodes[0].X != 8 || nodes[0].Y != 9 || !nodes[0].Depot {
		t.Fatalf("reordered columns: %+v", nodes[0])
	}
}

func TestParseNodesRejectsBadInput(t *testing.T) {
	for _, in := range []string{
		"x,y\n1,2\n",            // missing id column
		"id,x\nc1,notanumber\n", // bad float
		"id\n\n",                // empty id
		"id,x\n",                // no rows
	} {
		if _, err := ParseNodes(strings.NewReader(in)); err == nil {
			t.Fatalf("accepted bad csv %q", in)
		}
	}
}
