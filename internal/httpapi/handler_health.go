package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Check is one dependency probed by /health.
type Check struct {
	Name string
	Ping func(context.Context) error
}

type HealthResponse struct {
	OK     bool     `json:"ok"`
	Failed []string `json:"failed,omitempty"`
}

func HealthHandler(checks ...Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		res := HealthResponse{OK: true}
		for _, c := range checks {
			if err := c.Ping(ctx); err != nil {
				res.OK = false
				res.Failed = append(res.Failed, c.Name)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if !res.OK {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(res)
	}
}
