package httpapi

import (
	"encoding/json"
	"net/http"

	"monit-collector/internal/models"
)

type AgentsResponse struct {
	Items []models.Agent `json:"items"`
}

func AgentsHandler(agents AgentLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items := agents.List()
		if items == nil {
			items = []models.Agent{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(AgentsResponse{Items: items})
	}
}
