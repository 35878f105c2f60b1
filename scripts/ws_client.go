// Package main runs a demo WebSocket client for solve progress events.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

func post(base, path string, body any) (*http.Response, error) {
	b, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, base+path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", "t_demo")
	req.Header.Set("X-Role", "admin")
	return http.DefaultClient.Do(req)
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Create a small instance
	nodes := []map[string]any{{"id": "d", "x": 0, "y": 0, "depot": true}}
	for i := 1; i <= 30; i++ {
		nodes = append(nodes, map[string]any{
			"id": fmt.Sprintf("c%d", i), "x": float64(i % 7), "y": float64(i % 5), "demand": []float64{1},
		})
	}
	resp, err := post(base, "/v1/instances", map[string]any{
		"name":     "ws-demo",
		"nodes":    nodes,
		"vehicles": []map[string]any{{"id": "van", "capacity": []float64{12}, "count": 4}},
	})
	if err != nil {
		log.Fatal(err)
	}
	var inst struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&inst); err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()
	log.Printf("Instance ID: %s", inst.ID)

	// Kick off an async solve so events stream while it runs
	resp, err = post(base, "/v1/solve", map[string]any{
		"instanceId":     inst.ID,
		"async":          true,
		"metaheuristic":  "alns",
		"iterationLimit": 200000,
		"seed":           42,
	})
	if err != nil {
		log.Fatal(err)
	}
	var ack struct {
		RunIDs []string `json:"runIds"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()
	if len(ack.RunIDs) == 0 {
		log.Fatal("no run ids returned")
	}
	runID := ack.RunIDs[0]
	log.Printf("Run ID: %s", runID)

	// Connect WS and print events until the run finishes
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/runs/" + runID + "/ws"}
	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", "t_demo")
	hdr.Set("X-Role", "admin")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	deadline := time.Now().Add(60 * time.Second)
	_ = c.SetReadDeadline(deadline)
	for {
		var evt struct {
			Type string         `json:"type"`
			Data map[string]any `json:"data"`
		}
		if err := c.ReadJSON(&evt); err != nil {
			log.Printf("read: %v", err)
			return
		}
		b, _ := json.Marshal(evt.Data)
		log.Printf("WS <- %s: %s", evt.Type, string(b))
		if evt.Type == "solve.completed" || evt.Type == "solve.failed" {
			return
		}
	}
}
