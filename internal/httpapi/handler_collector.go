package httpapi

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"monit-collector/internal/collector"
	"monit-collector/internal/config"
	"monit-collector/internal/metrics"
	"monit-collector/internal/xmlmap"
)

// CollectorHandler accepts one Monit status report per request and hands it
// to the dispatcher. Monit ignores the response body.
func CollectorHandler(cfg *config.Config, d *collector.Dispatcher, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics.ReportsReceived.Inc()

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, cfg.Collector.MaxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				metrics.ReportsMalformed.Inc()
				http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		id := uuid.New()
		ctx := collector.WithReportID(r.Context(), id)
		w.Header().Set("X-Report-Id", id.String())

		start := time.Now()
		err = d.Dispatch(ctx, body)
		metrics.DispatchDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			section := "parse"
			var se *collector.SectionError
			if errors.As(err, &se) {
				section = se.Section
			}
			metrics.DispatchFailures.WithLabelValues(section).Inc()

			if malformed(err) {
				metrics.ReportsMalformed.Inc()
				logger.Warn("rejected report", "report_id", id, "section", section, "remote", r.RemoteAddr, "error", err)
				http.Error(w, "malformed report", http.StatusBadRequest)
				return
			}
			logger.Error("failed to dispatch report", "report_id", id, "section", section, "error", err)
			http.Error(w, "failed to process report", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

func malformed(err error) bool {
	return errors.Is(err, collector.ErrMalformedPayload) ||
		errors.Is(err, xmlmap.ErrMissingField) ||
		errors.Is(err, xmlmap.ErrConversion)
}
