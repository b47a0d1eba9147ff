// Package monit exposes a Monit status report as typed, read-only views
// over its XML tree.
//
// Every view holds one node and computes its fields on each call through
// the extractors in package xmlmap. Views are cheap to copy and safe to read
// from several goroutines as long as nobody mutates the tree.
package monit

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"

	"monit-collector/internal/xmlmap"
)

// ErrNotMonit is returned by Parse and New when the root element is not <monit>.
var ErrNotMonit = errors.New("root element is not <monit>")

// Monit is the document root of one status report.
type Monit struct{ node *xmlquery.Node }

var (
	monitID            = xmlmap.NewAttr("id", ".", xmlmap.String, xmlmap.Required[string]())
	monitIncarnation   = xmlmap.NewAttr("incarnation", ".", xmlmap.Int64, xmlmap.Required[int64]())
	monitVersion       = xmlmap.NewAttr("version", ".", xmlmap.String, xmlmap.Required[string]())
	monitServer        = xmlmap.NewChild("server", func(n *xmlquery.Node) Server { return Server{node: n} }, xmlmap.Required[Server]())
	monitPlatform      = xmlmap.NewChild("platform", func(n *xmlquery.Node) Platform { return Platform{node: n} }, xmlmap.Required[Platform]())
	monitServices      = xmlmap.NewChildren("services/service", func(n *xmlquery.Node) Service { return Service{node: n} })
	monitServicegroups = xmlmap.NewChildren("servicegroups/servicegroup", func(n *xmlquery.Node) Servicegroup { return Servicegroup{node: n} })
	monitEvents        = xmlmap.NewChildren("event", func(n *xmlquery.Node) Event { return Event{node: n} })
)

// New wraps a <monit> element.
func New(node *xmlquery.Node) (Monit, error) {
	if node == nil || node.Type != xmlquery.ElementNode || node.Data != "monit" {
		return Monit{}, ErrNotMonit
	}
	return Monit{node: node}, nil
}

// Parse reads a whole XML document and wraps its root element.
func Parse(r io.Reader) (Monit, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return Monit{}, fmt.Errorf("parse xml: %w", err)
	}
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode {
			return New(n)
		}
	}
	return Monit{}, ErrNotMonit
}

// ID is the unique id of the Monit instance.
func (m Monit) ID() (string, error) { return monitID.Get(m.node) }

// Incarnation is the start time of the Monit daemon; it changes on restart.
func (m Monit) Incarnation() (int64, error) { return monitIncarnation.Get(m.node) }

func (m Monit) Version() (string, error)      { return monitVersion.Get(m.node) }
func (m Monit) Server() (Server, error)       { return monitServer.Get(m.node) }
func (m Monit) Platform() (Platform, error)   { return monitPlatform.Get(m.node) }
func (m Monit) Services() []Service           { return monitServices.Get(m.node) }
func (m Monit) Servicegroups() []Servicegroup { return monitServicegroups.Get(m.node) }
func (m Monit) Events() []Event               { return monitEvents.Get(m.node) }

// Servicegroup names a set of services.
type Servicegroup struct{ node *xmlquery.Node }

var (
	servicegroupName     = xmlmap.NewAttr("name", ".", xmlmap.String, xmlmap.Required[string]())
	servicegroupServices = xmlmap.NewChildren("service", func(n *xmlquery.Node) string {
		return strings.TrimSpace(xmlmap.OwnText(n))
	})
)

func (g Servicegroup) Name() (string, error) { return servicegroupName.Get(g.node) }

// Services lists member service names in document order.
func (g Servicegroup) Services() []string { return servicegroupServices.Get(g.node) }

// Event is a state change notification.
type Event struct{ node *xmlquery.Node }

var (
	eventCollectedSec  = integer("collected_sec")
	eventCollectedUsec = integer("collected_usec")
	eventService       = xmlmap.NewText("service", xmlmap.String, xmlmap.Required[string]())
	eventType          = xmlmap.NewText("type", serviceType, xmlmap.Required[ServiceType]())
	eventID            = integer("id")
	eventState         = integer("state")
	eventAction        = integer("action")
	eventMessage       = text("message")
)

func (e Event) CollectedSec() (int64, error)  { return eventCollectedSec.Get(e.node) }
func (e Event) CollectedUsec() (int64, error) { return eventCollectedUsec.Get(e.node) }

// Service is the name of the service the event belongs to.
func (e Event) Service() (string, error) { return eventService.Get(e.node) }

// Type is the kind of that service.
func (e Event) Type() (ServiceType, error) { return eventType.Get(e.node) }

// ID is the Monit event id bitmask.
func (e Event) ID() (int64, error)          { return eventID.Get(e.node) }
func (e Event) State() (int64, error)       { return eventState.Get(e.node) }
func (e Event) Action() (int64, error)      { return eventAction.Get(e.node) }
func (e Event) Message() (string, error)    { return eventMessage.Get(e.node) }
func (e Event) Collected() (float64, error) { return joinCollected(e.CollectedSec, e.CollectedUsec) }

func (e Event) CollectedAt() (time.Time, error) {
	return collectedAt(e.CollectedSec, e.CollectedUsec)
}
