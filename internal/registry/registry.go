// Package registry remembers the last report of every Monit instance.
package registry

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"monit-collector/internal/collector"
	"monit-collector/internal/metrics"
	"monit-collector/internal/models"
	"monit-collector/internal/monit"
)

// Registry is a bounded map from Monit id to agent summary. The least
// recently reporting agent is evicted first.
type Registry struct {
	mu     sync.Mutex
	agents *lru.Cache[string, models.Agent]
	logger *slog.Logger
	now    func() time.Time
}

func New(size int, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	agents, err := lru.New[string, models.Agent](size)
	if err != nil {
		return nil, err
	}
	return &Registry{agents: agents, logger: logger, now: time.Now}, nil
}

// Observe folds one report into the registry. restarted is true when the
// agent was known and its incarnation changed.
func (r *Registry) Observe(reportID uuid.UUID, m monit.Monit) (agent models.Agent, restarted bool, err error) {
	id, err := m.ID()
	if err != nil {
		return agent, false, err
	}
	incarnation, err := m.Incarnation()
	if err != nil {
		return agent, false, err
	}
	version, err := m.Version()
	if err != nil {
		return agent, false, err
	}
	server, err := m.Server()
	if err != nil {
		return agent, false, err
	}
	hostname, err := server.LocalHostname()
	if err != nil {
		return agent, false, err
	}

	now := r.now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	agent, known := r.agents.Get(id)
	if !known {
		agent = models.Agent{MonitID: id, FirstSeen: now}
	} else if agent.Incarnation != incarnation {
		agent.Restarts++
		restarted = true
	}
	agent.Hostname = hostname
	agent.Version = version
	agent.Incarnation = incarnation
	agent.LastReportID = reportID
	agent.LastSeen = now
	agent.Reports++

	r.agents.Add(id, agent)
	metrics.AgentsKnown.Set(float64(r.agents.Len()))
	return agent, restarted, nil
}

func (r *Registry) Get(monitID string) (models.Agent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.agents.Peek(monitID)
}

// List returns every known agent ordered by hostname.
func (r *Registry) List() []models.Agent {
	r.mu.Lock()
	agents := r.agents.Values()
	r.mu.Unlock()

	sort.Slice(agents, func(i, j int) bool {
		if agents[i].Hostname != agents[j].Hostname {
			return agents[i].Hostname < agents[j].Hostname
		}
		return agents[i].MonitID < agents[j].MonitID
	})
	return agents
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.agents.Len()
}

func (r *Registry) Handlers() collector.Handlers {
	return collector.Handlers{
		Monit: func(ctx context.Context, m monit.Monit) error {
			agent, restarted, err := r.Observe(collector.ReportID(ctx), m)
			if err != nil {
				return err
			}
			if restarted {
				metrics.AgentRestarts.Inc()
				r.logger.WarnContext(ctx, "monit restarted",
					"monit_id", agent.MonitID,
					"hostname", agent.Hostname,
					"incarnation", agent.Incarnation,
					"restarts", agent.Restarts)
			}
			return nil
		},
	}
}
