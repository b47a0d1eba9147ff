package collector

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"monit-collector/internal/monit"
)

// Handlers receives the sections of one report. A nil field is a no-op.
type Handlers struct {
	Raw          func(context.Context, []byte) error
	Monit        func(context.Context, monit.Monit) error
	Server       func(context.Context, monit.Server) error
	Httpd        func(context.Context, monit.Httpd) error
	Platform     func(context.Context, monit.Platform) error
	Servicegroup func(context.Context, monit.Servicegroup) error
	Service      func(context.Context, monit.Service) error
	Event        func(context.Context, monit.Event) error
}

// Chain runs each section through every set of handlers in order and stops
// at the first error.
func Chain(hs ...Handlers) Handlers {
	return Handlers{
		Raw:          chain(hs, func(h Handlers) func(context.Context, []byte) error { return h.Raw }),
		Monit:        chain(hs, func(h Handlers) func(context.Context, monit.Monit) error { return h.Monit }),
		Server:       chain(hs, func(h Handlers) func(context.Context, monit.Server) error { return h.Server }),
		Httpd:        chain(hs, func(h Handlers) func(context.Context, monit.Httpd) error { return h.Httpd }),
		Platform:     chain(hs, func(h Handlers) func(context.Context, monit.Platform) error { return h.Platform }),
		Servicegroup: chain(hs, func(h Handlers) func(context.Context, monit.Servicegroup) error { return h.Servicegroup }),
		Service:      chain(hs, func(h Handlers) func(context.Context, monit.Service) error { return h.Service }),
		Event:        chain(hs, func(h Handlers) func(context.Context, monit.Event) error { return h.Event }),
	}
}

func chain[T any](hs []Handlers, pick func(Handlers) func(context.Context, T) error) func(context.Context, T) error {
	var fns []func(context.Context, T) error
	for _, h := range hs {
		if fn := pick(h); fn != nil {
			fns = append(fns, fn)
		}
	}
	if len(fns) == 0 {
		return nil
	}
	return func(ctx context.Context, v T) error {
		for _, fn := range fns {
			if err := fn(ctx, v); err != nil {
				return err
			}
		}
		return nil
	}
}

// LogHandlers logs every section at debug level.
func LogHandlers(logger *slog.Logger) Handlers {
	return Handlers{
		Raw: func(ctx context.Context, raw []byte) error {
			logger.DebugContext(ctx, "raw report", "report_id", ReportID(ctx), "bytes", len(raw))
			return nil
		},
		Monit: func(ctx context.Context, m monit.Monit) error {
			id, _ := m.ID()
			inc, _ := m.Incarnation()
			version, _ := m.Version()
			logger.DebugContext(ctx, "monit", "report_id", ReportID(ctx), "id", id, "incarnation", inc, "version", version)
			return nil
		},
		Server: func(ctx context.Context, s monit.Server) error {
			host, _ := s.LocalHostname()
			uptime, _ := s.Uptime()
			poll, _ := s.Poll()
			logger.DebugContext(ctx, "server", "localhostname", host, "uptime", uptime, "poll", poll)
			return nil
		},
		Httpd: func(ctx context.Context, h monit.Httpd) error {
			addr, _ := h.Address()
			port, _ := h.Port()
			ssl, _ := h.SSL()
			logger.DebugContext(ctx, "httpd", "address", addr, "port", port, "ssl", ssl)
			return nil
		},
		Platform: func(ctx context.Context, p monit.Platform) error {
			name, _ := p.Name()
			release, _ := p.Release()
			machine, _ := p.Machine()
			logger.DebugContext(ctx, "platform", "name", name, "release", release, "machine", machine)
			return nil
		},
		Servicegroup: func(ctx context.Context, g monit.Servicegroup) error {
			name, _ := g.Name()
			logger.DebugContext(ctx, "servicegroup", "name", name, "services", g.Services())
			return nil
		},
		Service: func(ctx context.Context, s monit.Service) error {
			logger.DebugContext(ctx, "service", "service", s)
			return nil
		},
		Event: func(ctx context.Context, e monit.Event) error {
			svc, _ := e.Service()
			msg, _ := e.Message()
			state, _ := e.State()
			logger.DebugContext(ctx, "event", "service", svc, "state", state, "message", msg)
			return nil
		},
	}
}

type reportIDKey struct{}

// WithReportID tags ctx with the id of the report being dispatched.
func WithReportID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, reportIDKey{}, id)
}

// ReportID returns uuid.Nil when ctx carries no report id.
func ReportID(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(reportIDKey{}).(uuid.UUID)
	return id
}

type payloadKey struct{}

// Payload returns the raw request body of the report being dispatched.
func Payload(ctx context.Context) []byte {
	raw, _ := ctx.Value(payloadKey{}).([]byte)
	return raw
}
