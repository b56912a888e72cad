package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"thawmark/internal/api"
	"thawmark/internal/daemon"
	"thawmark/internal/testsupport"
)

func startDaemon(t *testing.T, token string) (*daemon.Daemon, string) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Paths.APIToken = token
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedUIDs(t, store, "RTS-0007", "RTS-0042")

	d, err := daemon.New(cfg, store, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)
	return d, "http://" + d.Addr()
}

func postJSON(t *testing.T, url, token string, payload any) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestClaimCommitRoundTrip(t *testing.T) {
	_, base := startDaemon(t, "")

	resp := postJSON(t, base+"/api/claim", "", api.ClaimRequest{Labeler: "remote-labeler"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("claim status = %d", resp.StatusCode)
	}
	var entry api.EntryView
	if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
		t.Fatalf("decode claim response: %v", err)
	}
	if entry.UID != "RTS-0007" || entry.Assignee != "remote-labeler" {
		t.Fatalf("claimed %+v", entry)
	}

	resp = postJSON(t, base+"/api/commit", "", api.CommitRequest{
		UID:        entry.UID,
		Labeler:    "remote-labeler",
		Version:    entry.Version,
		Status:     "completed",
		OutputFile: entry.UID + ".geojson",
	})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("commit status = %d", resp.StatusCode)
	}

	statsResp, err := http.Get(base + "/api/stats")
	if err != nil {
		t.Fatalf("stats request: %v", err)
	}
	defer statsResp.Body.Close()
	var stats api.StatsResponse
	if err := json.NewDecoder(statsResp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Completed != 1 || stats.Unassigned != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestCommitWithStaleVersionConflicts(t *testing.T) {
	_, base := startDaemon(t, "")

	resp := postJSON(t, base+"/api/claim", "", api.ClaimRequest{Labeler: "a"})
	var entry api.EntryView
	if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
		t.Fatalf("decode claim response: %v", err)
	}

	// A release and rival claim bump the version past what labeler a holds.
	resp = postJSON(t, base+"/api/release", "", api.ReleaseRequest{UID: entry.UID, Labeler: "a"})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("release status = %d", resp.StatusCode)
	}
	resp = postJSON(t, base+"/api/claim", "", api.ClaimRequest{Labeler: "b"})
	var rival api.EntryView
	if err := json.NewDecoder(resp.Body).Decode(&rival); err != nil {
		t.Fatalf("decode rival claim: %v", err)
	}
	if rival.UID != entry.UID {
		t.Fatalf("rival claimed %s, want %s", rival.UID, entry.UID)
	}

	resp = postJSON(t, base+"/api/commit", "", api.CommitRequest{
		UID:     entry.UID,
		Labeler: "a",
		Version: entry.Version,
		Status:  "completed",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("stale commit status = %d, want 409", resp.StatusCode)
	}
}

func TestClaimDrainsToNoContent(t *testing.T) {
	_, base := startDaemon(t, "")

	for i := 0; i < 2; i++ {
		resp := postJSON(t, base+"/api/claim", "", api.ClaimRequest{Labeler: fmt.Sprintf("l%d", i)})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("claim %d status = %d", i, resp.StatusCode)
		}
	}
	resp := postJSON(t, base+"/api/claim", "", api.ClaimRequest{Labeler: "late"})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("drained claim status = %d, want 204", resp.StatusCode)
	}
}

func TestBearerTokenRequired(t *testing.T) {
	_, base := startDaemon(t, "sekrit")

	resp := postJSON(t, base+"/api/claim", "", api.ClaimRequest{Labeler: "x"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated claim status = %d, want 401", resp.StatusCode)
	}
	resp = postJSON(t, base+"/api/claim", "wrong", api.ClaimRequest{Labeler: "x"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong-token claim status = %d, want 401", resp.StatusCode)
	}
	resp = postJSON(t, base+"/api/claim", "sekrit", api.ClaimRequest{Labeler: "x"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authenticated claim status = %d", resp.StatusCode)
	}

	// Health stays open for probes.
	health, err := http.Get(base + "/api/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	defer health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", health.StatusCode)
	}
}

func TestSecondInstanceRefused(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = "127.0.0.1:0"
	store := testsupport.MustOpenStore(t, cfg)

	first, err := daemon.New(cfg, store, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer first.Stop()

	second, err := daemon.New(cfg, store, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second instance must fail to acquire the lock")
	}
}
