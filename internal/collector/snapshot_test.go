package collector

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monit-collector/internal/monit"
	"monit-collector/internal/xmlmap"
)

const statusReport = `<monit id="4e5402c4c2754f41485b929e27efbd5d" incarnation="1349390711" version="5.4">
<server><uptime>148</uptime><poll>60</poll><localhostname>centos63a</localhostname></server>
<platform><name>Linux</name><release>2.6.32</release><machine>x86_64</machine></platform>
<services>
<service name="httpd"><type>3</type><collected_sec>1349390831</collected_sec><collected_usec>733700</collected_usec>
<status>0</status><monitor>1</monitor><pid>966</pid>
<memory><percent>0.1</percent><kilobyte>1220</kilobyte></memory><cpu><percent>2.5</percent></cpu></service>
<service name="centos63a"><type>5</type><collected_sec>1349390831</collected_sec><status>512</status>
<system><cpu><user>13.7</user><system>1.5</system><wait>0.6</wait></cpu><memory><percent>35.3</percent><kilobyte>360668</kilobyte></memory></system></service>
<service name="monitrc"><type>2</type><collected_sec>1349390831</collected_sec><size>2826</size></service>
</services>
<event><collected_sec>1349390859</collected_sec><collected_usec>878383</collected_usec><service>Monit</service><type>5</type>
<id>65536</id><state>2</state><action>3</action><message>Monit stopped</message></event>
</monit>`

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func parseDoc(t *testing.T, doc string) monit.Monit {
	t.Helper()
	m, err := monit.Parse(bytes.NewReader([]byte(doc)))
	require.NoError(t, err)
	return m
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	rep, err := Snapshot(id, fixedNow, parseDoc(t, statusReport))
	require.NoError(t, err)

	assert.Equal(t, id, rep.ID)
	assert.Equal(t, "4e5402c4c2754f41485b929e27efbd5d", rep.MonitID)
	assert.Equal(t, int64(1349390711), rep.Incarnation)
	assert.Equal(t, "5.4", rep.Version)
	assert.Equal(t, "centos63a", rep.Hostname)
	assert.Equal(t, int64(148), rep.Uptime)
	assert.Equal(t, "x86_64", rep.PlatformMachine)

	require.Len(t, rep.Services, 3)

	httpd := rep.Services[0]
	assert.Equal(t, "httpd", httpd.Name)
	assert.Equal(t, "process", httpd.Type)
	assert.Equal(t, id, httpd.ReportID)
	assert.Equal(t, "centos63a", httpd.Hostname)
	require.NotNil(t, httpd.PID)
	assert.Equal(t, int64(966), *httpd.PID)
	require.NotNil(t, httpd.CPUPercent)
	assert.InDelta(t, 2.5, *httpd.CPUPercent, 1e-9)
	require.NotNil(t, httpd.MemoryKilobyte)
	assert.Equal(t, int64(1220), *httpd.MemoryKilobyte)
	assert.Equal(t, time.Unix(1349390831, 733700000).UTC(), httpd.CollectedAt)

	system := rep.Services[1]
	assert.Equal(t, "system", system.Type)
	assert.Equal(t, int64(512), system.Status)
	assert.Nil(t, system.PID)
	require.NotNil(t, system.CPUPercent)
	assert.InDelta(t, 15.8, *system.CPUPercent, 1e-9)
	require.NotNil(t, system.MemoryPercent)
	assert.InDelta(t, 35.3, *system.MemoryPercent, 1e-9)

	file := rep.Services[2]
	assert.Equal(t, "file", file.Type)
	assert.Nil(t, file.PID)
	assert.Nil(t, file.CPUPercent)
	assert.Nil(t, file.MemoryPercent)

	require.Len(t, rep.Events, 1)
	ev := rep.Events[0]
	assert.Equal(t, "Monit", ev.Service)
	assert.Equal(t, "system", ev.Type)
	assert.Equal(t, int64(65536), ev.EventID)
	assert.Equal(t, "Monit stopped", ev.Message)
}

func TestSnapshotErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{
			name:    "missing server",
			doc:     `<monit id="a" incarnation="1" version="5.4"><platform/></monit>`,
			wantErr: xmlmap.ErrMissingField,
		},
		{
			name:    "garbled incarnation",
			doc:     `<monit id="a" incarnation="soon" version="5.4"><server/><platform/></monit>`,
			wantErr: xmlmap.ErrConversion,
		},
		{
			name: "garbled pid",
			doc: `<monit id="a" incarnation="1" version="5.4"><server/><platform/>
<services><service name="p"><type>3</type><pid>x</pid></service></services></monit>`,
			wantErr: xmlmap.ErrConversion,
		},
		{
			name: "event without service",
			doc: `<monit id="a" incarnation="1" version="5.4"><server/><platform/>
<event><type>5</type></event></monit>`,
			wantErr: xmlmap.ErrMissingField,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Snapshot(uuid.New(), fixedNow, parseDoc(t, tc.doc))
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}
