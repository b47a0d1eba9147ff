package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"monit-collector/internal/models"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// ServiceFilter narrows ListServices. Zero fields match everything.
type ServiceFilter struct {
	MonitID  string
	Hostname string
	Name     string
	Type     string
	// Failing keeps only services with a non-zero status.
	Failing bool
	Limit   int
}

// ListServices returns the most recent snapshot of every matching service.
func (s *Store) ListServices(ctx context.Context, f ServiceFilter) ([]models.ServiceStatus, error) {
	var (
		where []string
		args  []any
		idx   = 1
	)

	if f.MonitID != "" {
		where = append(where, "monit_id = $"+strconv.Itoa(idx))
		args = append(args, f.MonitID)
		idx++
	}
	if f.Hostname != "" {
		where = append(where, "hostname = $"+strconv.Itoa(idx))
		args = append(args, f.Hostname)
		idx++
	}
	if f.Name != "" {
		where = append(where, "name = $"+strconv.Itoa(idx))
		args = append(args, f.Name)
		idx++
	}
	if f.Type != "" {
		where = append(where, "type = $"+strconv.Itoa(idx))
		args = append(args, f.Type)
		idx++
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	query := "SELECT DISTINCT ON (monit_id, name) report_id, monit_id, hostname, name, type, status, status_hint, monitor, collected_at, pid, cpu_percent, memory_percent, memory_kilobyte FROM monit.service_status"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY monit_id, name, collected_at DESC"
	// DISTINCT ON must see every row before the status filter applies.
	query = "SELECT * FROM (" + query + ") latest"
	if f.Failing {
		query += " WHERE status <> 0"
	}
	query += " ORDER BY hostname, name LIMIT " + strconv.Itoa(limit)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query services: %w", err)
	}
	defer rows.Close()

	items := []models.ServiceStatus{}
	for rows.Next() {
		var st models.ServiceStatus
		if err := rows.Scan(
			&st.ReportID, &st.MonitID, &st.Hostname, &st.Name, &st.Type,
			&st.Status, &st.StatusHint, &st.Monitor, &st.CollectedAt,
			&st.PID, &st.CPUPercent, &st.MemoryPercent, &st.MemoryKilobyte,
		); err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		items = append(items, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query services: %w", err)
	}
	return items, nil
}

// RawReport returns the request body a report was parsed from.
func (s *Store) RawReport(ctx context.Context, id uuid.UUID) ([]byte, error) {
	var packed []byte
	err := s.db.QueryRow(ctx, `SELECT raw_zstd FROM monit.reports WHERE id = $1`, id).Scan(&packed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("query report: %w", err)
	}

	raw, err := s.dec.DecodeAll(packed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress report %s: %w", id, err)
	}
	return raw, nil
}
