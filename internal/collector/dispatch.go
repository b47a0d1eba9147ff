// Package collector turns raw Monit POST bodies into per-section callbacks.
package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"monit-collector/internal/monit"
)

// ErrMalformedPayload is returned when a request body has no <monit>...</monit> section.
var ErrMalformedPayload = errors.New("malformed payload")

var (
	declTag  = []byte("<?xml")
	openTag  = []byte("<monit")
	closeTag = []byte("</monit>")
)

// ExtractDocument returns the first <monit ...>...</monit> section of raw,
// together with the XML declaration in front of it when there is one.
// Monit posts the XML after a few bytes of framing on some versions, and the
// declaration carries the ISO-8859-1 encoding the parser needs.
func ExtractDocument(raw []byte) ([]byte, error) {
	start := bytes.Index(raw, openTag)
	end := bytes.Index(raw, closeTag)
	if start < 0 || end < 0 || end < start {
		return nil, ErrMalformedPayload
	}
	if decl := bytes.LastIndex(raw[:start], declTag); decl >= 0 {
		start = decl
	}
	return raw[start : end+len(closeTag)], nil
}

// Parse maps a raw request body onto a Monit view.
func Parse(raw []byte) (monit.Monit, error) {
	doc, err := ExtractDocument(raw)
	if err != nil {
		return monit.Monit{}, err
	}
	m, err := monit.Parse(bytes.NewReader(doc))
	if err != nil {
		return monit.Monit{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return m, nil
}

// Mode selects how concurrent requests are dispatched.
type Mode string

const (
	ModeConcurrent Mode = "concurrent"
	ModeSequential Mode = "sequential"
)

// Dispatcher hands every section of a report to its Handlers.
type Dispatcher struct {
	handlers Handlers
	logger   *slog.Logger

	// serial is non-nil in sequential mode.
	serial *sync.Mutex
}

func NewDispatcher(h Handlers, mode Mode, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{handlers: h, logger: logger}
	if mode == ModeSequential {
		d.serial = &sync.Mutex{}
	}
	return d
}

// SectionError names the section whose handler or mapping failed.
type SectionError struct {
	Section string
	Err     error
}

func (e *SectionError) Error() string { return e.Section + ": " + e.Err.Error() }
func (e *SectionError) Unwrap() error { return e.Err }

// Dispatch parses raw and calls the handlers in document order: raw, monit,
// server, httpd (only when present), platform, then every servicegroup,
// service and event. The first failure stops the request and is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte) error {
	if d.serial != nil {
		d.serial.Lock()
		defer d.serial.Unlock()
	}
	ctx = context.WithValue(ctx, payloadKey{}, raw)

	h := d.handlers
	if err := call(ctx, "raw", h.Raw, raw); err != nil {
		return err
	}

	m, err := Parse(raw)
	if err != nil {
		return err
	}
	if err := call(ctx, "monit", h.Monit, m); err != nil {
		return err
	}

	server, err := m.Server()
	if err != nil {
		return &SectionError{Section: "server", Err: err}
	}
	if err := call(ctx, "server", h.Server, server); err != nil {
		return err
	}

	httpd, err := server.Httpd()
	if err != nil {
		return &SectionError{Section: "httpd", Err: err}
	}
	if httpd != nil {
		if err := call(ctx, "httpd", h.Httpd, *httpd); err != nil {
			return err
		}
	}

	platform, err := m.Platform()
	if err != nil {
		return &SectionError{Section: "platform", Err: err}
	}
	if err := call(ctx, "platform", h.Platform, platform); err != nil {
		return err
	}

	for _, g := range m.Servicegroups() {
		if err := call(ctx, "servicegroup", h.Servicegroup, g); err != nil {
			return err
		}
	}
	var services, events int
	for _, s := range m.Services() {
		if err := call(ctx, "service", h.Service, s); err != nil {
			return err
		}
		services++
	}
	for _, e := range m.Events() {
		if err := call(ctx, "event", h.Event, e); err != nil {
			return err
		}
		events++
	}

	d.logger.Debug("report dispatched",
		"report_id", ReportID(ctx),
		"services", services,
		"events", events)
	return nil
}

func call[T any](ctx context.Context, section string, fn func(context.Context, T) error, v T) error {
	if fn == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return &SectionError{Section: section, Err: err}
	}
	if err := fn(ctx, v); err != nil {
		return &SectionError{Section: section, Err: err}
	}
	return nil
}
