// Package publish fans Monit events out over NATS.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"monit-collector/internal/collector"
	"monit-collector/internal/metrics"
	"monit-collector/internal/models"
	"monit-collector/internal/monit"
)

const (
	DefaultSubject = "monit.events"

	connectTimeout = 10 * time.Second
	reconnectWait  = 5 * time.Second
)

// Conn is satisfied by *nats.Conn.
type Conn interface {
	PublishMsg(*nats.Msg) error
}

type Publisher struct {
	conn    Conn
	subject string
	logger  *slog.Logger
	now     func() time.Time
}

func New(conn Conn, subject string, logger *slog.Logger) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, subject: subject, logger: logger, now: time.Now}
}

// Connect dials url and keeps reconnecting in the background for as long as
// the connection is open.
func Connect(url string, logger *slog.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("monitcollectord"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	return conn, nil
}

// Handlers publishes the events of every dispatched report.
func (p *Publisher) Handlers() collector.Handlers {
	return collector.Handlers{
		Monit: func(ctx context.Context, m monit.Monit) error {
			return p.PublishReport(ctx, collector.ReportID(ctx), m)
		},
	}
}

// PublishReport sends one message per event of m.
func (p *Publisher) PublishReport(ctx context.Context, reportID uuid.UUID, m monit.Monit) error {
	events := m.Events()
	if len(events) == 0 {
		return nil
	}

	rep, err := collector.Snapshot(reportID, p.now(), m)
	if err != nil {
		return err
	}

	for _, ev := range rep.Events {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, err := Message(p.subject, rep, ev)
		if err != nil {
			return err
		}
		if err := p.conn.PublishMsg(msg); err != nil {
			metrics.NATSPublishErrors.Inc()
			p.logger.Error("failed to publish event",
				"report_id", reportID, "service", ev.Service, "error", err)
			return fmt.Errorf("publish event: %w", err)
		}
		p.logger.Debug("event published", "subject", msg.Subject, "report_id", reportID)
	}
	return nil
}

// EventMessage is the JSON body of a published event.
type EventMessage struct {
	models.Event
	Hostname string `json:"hostname"`
}

// Message builds the NATS message for one event of rep. The subject is
// <subject>.<service> with the service name made safe as a single token.
func Message(subject string, rep models.Report, ev models.Event) (*nats.Msg, error) {
	data, err := json.Marshal(EventMessage{Event: ev, Hostname: rep.Hostname})
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	msg := nats.NewMsg(subject + "." + subjectToken(ev.Service))
	msg.Data = data
	msg.Header.Set("x-monit-id", rep.MonitID)
	msg.Header.Set("x-report-id", rep.ID.String())
	msg.Header.Set("x-hostname", rep.Hostname)
	msg.Header.Set("x-event-type", ev.Type)
	return msg, nil
}

func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}
