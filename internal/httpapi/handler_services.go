package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"monit-collector/internal/models"
	"monit-collector/internal/store"
)

type ServicesResponse struct {
	Items []models.ServiceStatus `json:"items"`
}

func ServicesHandler(q ServiceLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := r.URL.Query()

		f := store.ServiceFilter{
			MonitID:  v.Get("monit_id"),
			Hostname: v.Get("hostname"),
			Name:     v.Get("name"),
			Type:     v.Get("type"),
		}
		if s := v.Get("failing"); s != "" {
			failing, err := strconv.ParseBool(s)
			if err != nil {
				http.Error(w, "invalid failing", http.StatusBadRequest)
				return
			}
			f.Failing = failing
		}
		if s := v.Get("limit"); s != "" {
			limit, err := strconv.Atoi(s)
			if err != nil {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			f.Limit = limit
		}

		items, err := q.ListServices(r.Context(), f)
		if err != nil {
			http.Error(w, "query error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ServicesResponse{Items: items})
	}
}
