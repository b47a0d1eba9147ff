// Package store persists Monit reports in Postgres.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/klauspost/compress/zstd"

	"monit-collector/internal/collector"
	"monit-collector/internal/models"
	"monit-collector/internal/monit"
)

// DB is the subset of a pgx pool the store needs.
type DB interface {
	BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

var (
	// ErrReportNotFound is returned by RawReport for an unknown id.
	ErrReportNotFound = errors.New("report not found")
	// ErrDuplicateReport is returned when a report id was already stored.
	ErrDuplicateReport = errors.New("duplicate report")
)

type Store struct {
	db     DB
	enc    *zstd.Encoder
	dec    *zstd.Decoder
	logger *slog.Logger
	now    func() time.Time
}

func New(db DB, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &Store{db: db, enc: enc, dec: dec, logger: logger, now: time.Now}, nil
}

func (s *Store) Close() {
	s.enc.Close()
	s.dec.Close()
}

// Handlers saves every report once its monit section has been dispatched.
func (s *Store) Handlers() collector.Handlers {
	return collector.Handlers{
		Monit: func(ctx context.Context, m monit.Monit) error {
			_, err := s.SaveReport(ctx, collector.ReportID(ctx), collector.Payload(ctx), m)
			return err
		},
	}
}

// SaveReport writes the report header, its service snapshots and its events
// in a single transaction. raw is stored zstd-compressed.
func (s *Store) SaveReport(ctx context.Context, id uuid.UUID, raw []byte, m monit.Monit) (rep models.Report, err error) {
	if id == uuid.Nil {
		id = uuid.New()
	}
	rep, err = collector.Snapshot(id, s.now(), m)
	if err != nil {
		return rep, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return rep, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				s.logger.Error("failed to rollback report transaction", "report_id", id, "error", rbErr)
			}
			return
		}

		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("commit tx: %w", commitErr)
		}
	}()

	tag, err := tx.Exec(ctx, `
        INSERT INTO monit.reports (
            id, monit_id, incarnation, version, hostname, uptime, poll,
            platform_name, platform_release, platform_machine,
            received_at, raw_zstd
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        ON CONFLICT (id) DO NOTHING
    `,
		rep.ID, rep.MonitID, rep.Incarnation, rep.Version, rep.Hostname, rep.Uptime, rep.Poll,
		rep.PlatformName, rep.PlatformRelease, rep.PlatformMachine,
		rep.ReceivedAt, s.enc.EncodeAll(raw, nil),
	)
	if err != nil {
		return rep, fmt.Errorf("insert report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		s.logger.Info("report already stored", "report_id", id)
		return rep, ErrDuplicateReport
	}

	for _, svc := range rep.Services {
		if _, err = tx.Exec(ctx, `
            INSERT INTO monit.service_status (
                report_id, monit_id, hostname, name, type,
                status, status_hint, monitor, collected_at,
                pid, cpu_percent, memory_percent, memory_kilobyte
            ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        `,
			svc.ReportID, svc.MonitID, svc.Hostname, svc.Name, svc.Type,
			svc.Status, svc.StatusHint, svc.Monitor, svc.CollectedAt,
			svc.PID, svc.CPUPercent, svc.MemoryPercent, svc.MemoryKilobyte,
		); err != nil {
			return rep, fmt.Errorf("insert service %q: %w", svc.Name, err)
		}
	}

	for _, ev := range rep.Events {
		if _, err = tx.Exec(ctx, `
            INSERT INTO monit.events (
                report_id, monit_id, service, type, event_id,
                state, action, message, collected_at
            ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        `,
			ev.ReportID, ev.MonitID, ev.Service, ev.Type, ev.EventID,
			ev.State, ev.Action, ev.Message, ev.CollectedAt,
		); err != nil {
			return rep, fmt.Errorf("insert event for %q: %w", ev.Service, err)
		}
	}

	s.logger.Info("stored report",
		"report_id", id,
		"monit_id", rep.MonitID,
		"hostname", rep.Hostname,
		"services", len(rep.Services),
		"events", len(rep.Events))
	return rep, nil
}
