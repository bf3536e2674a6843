package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/mirrorgram/mirrorgram/internal/driver"
	"github.com/mirrorgram/mirrorgram/internal/offset"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Pairs   []driver.PairStatus `json:"pairs"`
	Offsets []offset.Entry      `json:"offsets"`
}

// handleStatus returns an http.HandlerFunc for GET /status. It combines the
// live per-pair worker snapshots with the persisted offset rows.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := StatusResponse{
			Pairs: g.source.Status(),
		}

		entries, err := g.store.All(r.Context())
		if err != nil {
			g.logger.Error("status: offset listing failed", "error", err)
			http.Error(w, "offset store unavailable", http.StatusInternalServerError)
			return
		}
		resp.Offsets = entries

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
