package store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monit-collector/internal/collector"
	"monit-collector/internal/monit"
	"monit-collector/internal/xmlmap"
)

const report = `<monit id="4e5402c4c2754f41485b929e27efbd5d" incarnation="1349390711" version="5.4">
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

func parse(t *testing.T, doc string) monit.Monit {
	t.Helper()
	m, err := monit.Parse(bytes.NewReader([]byte(doc)))
	require.NoError(t, err)
	return m
}

func newStore(t *testing.T, db DB) *Store {
	t.Helper()
	s, err := New(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	s.now = func() time.Time { return fixedNow }
	t.Cleanup(s.Close)
	return s
}

func TestSaveReport(t *testing.T) {
	t.Parallel()

	id := uuid.MustParse("9b2f5a52-7a0e-4a4c-9f55-3c1d3f1e8a10")
	insertErr := errors.New("connection reset")

	tests := []struct {
		name      string
		setupMock func(pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name: "happy path",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO monit\.reports`).
					WithArgs(
						id,
						"4e5402c4c2754f41485b929e27efbd5d",
						int64(1349390711),
						"5.4",
						"centos63a",
						int64(148),
						int64(60),
						"Linux",
						"2.6.32",
						"x86_64",
						fixedNow,
						pgxmock.AnyArg(),
					).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				for _, name := range []string{"httpd", "centos63a", "monitrc"} {
					mock.ExpectExec(`INSERT INTO monit\.service_status`).
						WithArgs(
							id,
							"4e5402c4c2754f41485b929e27efbd5d",
							"centos63a",
							name,
							pgxmock.AnyArg(),
							pgxmock.AnyArg(),
							pgxmock.AnyArg(),
							pgxmock.AnyArg(),
							pgxmock.AnyArg(),
							pgxmock.AnyArg(),
							pgxmock.AnyArg(),
							pgxmock.AnyArg(),
							pgxmock.AnyArg(),
						).
						WillReturnResult(pgxmock.NewResult("INSERT", 1))
				}
				mock.ExpectExec(`INSERT INTO monit\.events`).
					WithArgs(
						id,
						"4e5402c4c2754f41485b929e27efbd5d",
						"Monit",
						"system",
						int64(65536),
						int64(2),
						int64(3),
						"Monit stopped",
						pgxmock.AnyArg(),
					).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "duplicate id",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO monit\.reports`).
					WithArgs(
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
					).
					WillReturnResult(pgxmock.NewResult("INSERT", 0))
				mock.ExpectRollback()
			},
			wantErr: ErrDuplicateReport,
		},
		{
			name: "service insert fails",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO monit\.reports`).
					WithArgs(
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
					).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectExec(`INSERT INTO monit\.service_status`).
					WillReturnError(insertErr)
				mock.ExpectRollback()
			},
			wantErr: insertErr,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tc.setupMock(mock)

			_, err = newStore(t, mock).SaveReport(context.Background(), id, []byte(report), parse(t, report))
			if tc.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tc.wantErr)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSaveReportSnapshotErrorSkipsTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	doc := `<monit id="a" incarnation="x" version="5.4"><server/><platform/></monit>`
	_, err = newStore(t, mock).SaveReport(context.Background(), uuid.New(), []byte(doc), parse(t, doc))
	assert.ErrorIs(t, err, xmlmap.ErrConversion)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlersUseDispatchContext(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO monit\.reports`).
		WithArgs(
			id, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	doc := `<monit id="a" incarnation="1" version="5.4"><server/><platform/></monit>`
	d := collector.NewDispatcher(newStore(t, mock).Handlers(), collector.ModeConcurrent, nil)
	require.NoError(t, d.Dispatch(collector.WithReportID(context.Background(), id), []byte(doc)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
