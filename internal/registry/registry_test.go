package registry

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monit-collector/internal/collector"
	"monit-collector/internal/metrics"
	"monit-collector/internal/monit"
	"monit-collector/internal/xmlmap"
)

func report(id string, incarnation int64, host string) string {
	return fmt.Sprintf(`<monit id="%s" incarnation="%d" version="5.4">
<server><localhostname>%s</localhostname></server><platform/></monit>`, id, incarnation, host)
}

func parse(t *testing.T, doc string) monit.Monit {
	t.Helper()
	m, err := monit.Parse(bytes.NewReader([]byte(doc)))
	require.NoError(t, err)
	return m
}

func newRegistry(t *testing.T, size int) *Registry {
	t.Helper()
	r, err := New(size, nil)
	require.NoError(t, err)
	clock := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	r.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return r
}

func TestObserve(t *testing.T) {
	t.Parallel()

	r := newRegistry(t, 8)
	first, second, third := uuid.New(), uuid.New(), uuid.New()

	agent, restarted, err := r.Observe(first, parse(t, report("a", 100, "web1")))
	require.NoError(t, err)
	assert.False(t, restarted)
	assert.Equal(t, int64(1), agent.Reports)
	assert.Equal(t, "web1", agent.Hostname)
	assert.Equal(t, agent.FirstSeen, agent.LastSeen)

	agent, restarted, err = r.Observe(second, parse(t, report("a", 100, "web1")))
	require.NoError(t, err)
	assert.False(t, restarted)
	assert.Equal(t, int64(2), agent.Reports)
	assert.Equal(t, second, agent.LastReportID)
	assert.True(t, agent.LastSeen.After(agent.FirstSeen))

	agent, restarted, err = r.Observe(third, parse(t, report("a", 200, "web1")))
	require.NoError(t, err)
	assert.True(t, restarted)
	assert.Equal(t, int64(1), agent.Restarts)
	assert.Equal(t, int64(200), agent.Incarnation)

	got, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, agent, got)
}

func TestObserveRequiresHeader(t *testing.T) {
	t.Parallel()

	r := newRegistry(t, 8)
	_, _, err := r.Observe(uuid.New(), parse(t, `<monit incarnation="1" version="5.4"><server/><platform/></monit>`))
	assert.ErrorIs(t, err, xmlmap.ErrMissingField)
	assert.Zero(t, r.Len())
}

func TestListOrderAndEviction(t *testing.T) {
	t.Parallel()

	r := newRegistry(t, 2)
	for _, tc := range []struct {
		id   string
		host string
	}{
		{"c", "db1"},
		{"b", "web2"},
		{"a", "app1"},
	} {
		_, _, err := r.Observe(uuid.New(), parse(t, report(tc.id, 1, tc.host)))
		require.NoError(t, err)
	}

	agents := r.List()
	require.Len(t, agents, 2)
	assert.Equal(t, "app1", agents[0].Hostname)
	assert.Equal(t, "web2", agents[1].Hostname)

	_, ok := r.Get("c")
	assert.False(t, ok)
}

func TestHandlersCountRestarts(t *testing.T) {
	r := newRegistry(t, 8)
	d := collector.NewDispatcher(r.Handlers(), collector.ModeConcurrent, nil)

	before := testutil.ToFloat64(metrics.AgentRestarts)
	ctx := collector.WithReportID(context.Background(), uuid.New())
	require.NoError(t, d.Dispatch(ctx, []byte(report("z", 1, "h"))))
	require.NoError(t, d.Dispatch(ctx, []byte(report("z", 2, "h"))))

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.AgentRestarts))
	agent, ok := r.Get("z")
	require.True(t, ok)
	assert.Equal(t, collector.ReportID(ctx), agent.LastReportID)
}
