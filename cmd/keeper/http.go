package main

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"stablebond-keeper/internal/keeper"
	"stablebond-keeper/internal/observability"
)

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status  string       `json:"status"`
	Started time.Time    `json:"started"`
	Uptime  string       `json:"uptime"`
	Keepers []KeeperInfo `json:"keepers"`
}

// KeeperInfo is the last run of one keeper.
type KeeperInfo struct {
	Keeper     string    `json:"keeper"`
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Found      int       `json:"found"`
	Submitted  int       `json:"submitted"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Error      string    `json:"error,omitempty"`
}

func newMux(recorder *keeper.Recorder, started time.Time) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		resp := StatusResponse{
			Status:  "running",
			Started: started,
			Uptime:  time.Since(started).Truncate(time.Second).String(),
			Keepers: []KeeperInfo{},
		}
		for name, run := range recorder.Snapshot() {
			info := KeeperInfo{
				Keeper:     string(name),
				RunID:      run.RunID,
				StartedAt:  time.UnixMilli(run.StartedAt).UTC(),
				FinishedAt: time.UnixMilli(run.FinishedAt).UTC(),
				Found:      run.Found,
				Submitted:  run.Submitted,
				Failed:     run.Failed,
				Skipped:    run.Skipped,
			}
			if run.Err != nil {
				info.Error = *run.Err
			}
			resp.Keepers = append(resp.Keepers, info)
		}
		sort.Slice(resp.Keepers, func(i, j int) bool { return resp.Keepers[i].Keeper < resp.Keepers[j].Keeper })

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	return mux
}
