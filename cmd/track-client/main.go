package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// track-client replays one scripted visit against a running
// ingest-service: a scroll progression with a repeated heartbeat in the
// middle, a pause, and a click. Useful for smoke-testing the pipeline
// end to end.

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "ingest-service base URL")
	siteURL := flag.String("site", "https://example.com", "registered site url")
	register := flag.Bool("register", false, "register the site first")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	if *register {
		resp, err := postJSON(client, *baseURL+"/v1/register", map[string]any{
			"site_url": *siteURL,
		})
		if err != nil {
			log.Fatalf("Failed to register site: %v", err)
		}
		fmt.Printf("Register: %s\n", resp)
	}

	sessionID := uuid.New().String()
	start := time.Now().UTC().Add(-2 * time.Minute)
	fmt.Printf("Session: %s\n", sessionID)

	type hb struct {
		offset  time.Duration
		scroll  float64
		sinceMS int64
	}
	heartbeats := []hb{
		{offset: 0, scroll: 10, sinceMS: 0},
		{offset: 30 * time.Second, scroll: 10, sinceMS: 30_000},
		{offset: 60 * time.Second, scroll: 40, sinceMS: 35_000},
	}

	for _, h := range heartbeats {
		resp, err := postJSON(client, *baseURL+"/v1/track", map[string]any{
			"session_id": sessionID,
			"site_url":   *siteURL,
			"event_type": "heartbeat",
			"event_time": start.Add(h.offset).Format(time.RFC3339Nano),
			"heartbeat": map[string]any{
				"scroll_percent":         h.scroll,
				"since_last_activity_ms": h.sinceMS,
			},
		})
		if err != nil {
			log.Fatalf("Failed to send heartbeat: %v", err)
		}
		fmt.Printf("Heartbeat scroll=%.0f: %s\n", h.scroll, resp)
	}

	resp, err := postJSON(client, *baseURL+"/v1/track", map[string]any{
		"session_id": sessionID,
		"site_url":   *siteURL,
		"event_type": "click",
		"event_time": start.Add(65 * time.Second).Format(time.RFC3339Nano),
		"action": map[string]any{
			"button_text": "Buy",
			"button_id":   "buy-btn",
		},
	})
	if err != nil {
		log.Fatalf("Failed to send click: %v", err)
	}
	fmt.Printf("Click: %s\n", resp)

	fmt.Println("Done. The visit will be summarized once it passes the inactivity timeout.")
}

func postJSON(client *http.Client, url string, body any) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	resp, err := client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return "", err
	}

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, buf.String())
	}

	return buf.String(), nil
}
