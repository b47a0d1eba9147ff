package httpapi

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"monit-collector/internal/store"
)

// RawReportHandler serves the body of a stored report as Monit sent it.
func RawReportHandler(q ReportReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		raw, err := q.RawReport(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrReportNotFound) {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			http.Error(w, "query error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/xml; charset=ISO-8859-1")
		http.ServeContent(w, r, id.String()+".xml", time.Time{}, bytes.NewReader(raw))
	}
}
