package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacksonchui/Social-Media-Intervention/internal/session"
)

func sampleModel(id string, date time.Time) session.Model {
	return session.Model{
		ID:              id,
		Date:            date,
		DurationSeconds: 185.5,
		Periods: []session.PeriodRecord{
			{ProgressPerInterval: []float64{0.5, 0.75}, DurationSeconds: 120},
			{ProgressPerInterval: []float64{0.8}, DurationSeconds: 60},
		},
		SocialMediaVisited: []string{"twitter", "reddit"},
	}
}

func assertSameModel(t *testing.T, want, got session.Model) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.True(t, want.Date.Equal(got.Date), "date: want %s, got %s", want.Date, got.Date)
	assert.Equal(t, want.DurationSeconds, got.DurationSeconds)
	assert.Equal(t, want.Periods, got.Periods)
	assert.Equal(t, want.SocialMediaVisited, got.SocialMediaVisited)
}

var day = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    Backend
		wantErr bool
	}{
		{"sqlite", SQLiteBackend, false},
		{"PostgreSQL", PostgreSQLBackend, false},
		{" mysql ", MySQLBackend, false},
		{"", NoneBackend, false},
		{"none", NoneBackend, false},
		{"oracle", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBackend(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBind(t *testing.T) {
	q := `INSERT INTO t (a, b) VALUES (?, ?)`
	assert.Equal(t, q, bind(SQLiteBackend, q))
	assert.Equal(t, q, bind(MySQLBackend, q))
	assert.Equal(t, `INSERT INTO t (a, b) VALUES ($1, $2)`, bind(PostgreSQLBackend, q))
}

func TestSQLStore_NoneBackend(t *testing.T) {
	s, err := NewSQLStore(context.Background(), NoneBackend, "")
	require.NoError(t, err)

	assert.NoError(t, s.Save(context.Background(), sampleModel("a", day)))
	models, err := s.List(context.Background(), 0)
	assert.NoError(t, err)
	assert.Empty(t, models)
	_, err = s.Get(context.Background(), "a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Close())
}

func TestSQLStore_SQLite(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLStore(ctx, SQLiteBackend, filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	older := sampleModel("older", day)
	newer := sampleModel("newer", day.Add(time.Hour))
	newer.Periods = newer.Periods[:1]
	require.NoError(t, s.Save(ctx, older))
	require.NoError(t, s.Save(ctx, newer))

	got, err := s.Get(ctx, "older")
	require.NoError(t, err)
	assertSameModel(t, older, got)

	models, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "newer", models[0].ID)
	assertSameModel(t, newer, models[0])

	limited, err := s.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStore_SaveReplacesResumedSession(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLStore(ctx, SQLiteBackend, filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	first := sampleModel("sess", day)
	first.Periods = first.Periods[:1]
	require.NoError(t, s.Save(ctx, first))

	resumed := sampleModel("sess", day.Add(time.Hour))
	require.NoError(t, s.Save(ctx, resumed))

	models, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, models, 1)
	assertSameModel(t, resumed, models[0])
}

func TestSQLStore_RequiresDSN(t *testing.T) {
	_, err := NewSQLStore(context.Background(), SQLiteBackend, "")
	assert.Error(t, err)

	_, err = NewSQLStore(context.Background(), Backend("oracle"), "x")
	assert.Error(t, err)
}

func TestYAMLStore(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "export")
	s, err := NewYAMLStore(dir)
	require.NoError(t, err)

	older := sampleModel("older", day)
	newer := sampleModel("newer", day.Add(time.Hour))
	require.NoError(t, s.Save(ctx, older))
	require.NoError(t, s.Save(ctx, newer))
	assert.FileExists(t, filepath.Join(dir, "older.yaml"))

	got, err := s.Get(ctx, "older")
	require.NoError(t, err)
	assertSameModel(t, older, got)

	models, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, []string{"newer", "older"}, []string{models[0].ID, models[1].ID})

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, s.Save(ctx, sampleModel("../escape", day)))
}

type doneToken struct {
	err error
}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (d doneToken) Error() error { return d.err }

type fakePublisher struct {
	topic    string
	qos      byte
	payloads [][]byte
	err      error
}

func (f *fakePublisher) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	f.topic = topic
	f.qos = qos
	f.payloads = append(f.payloads, payload.([]byte))
	return doneToken{err: f.err}
}

func TestMQTTSink(t *testing.T) {
	pub := &fakePublisher{}
	s := &MQTTSink{client: pub, topic: "intervention/session", timeout: time.Second}

	require.NoError(t, s.Save(context.Background(), sampleModel("sess", day)))

	assert.Equal(t, "intervention/session", pub.topic)
	assert.Equal(t, byte(1), pub.qos)
	require.Len(t, pub.payloads, 1)
	assert.Contains(t, string(pub.payloads[0]), `"id":"sess"`)
	assert.Contains(t, string(pub.payloads[0]), `"social_media_visited":["twitter","reddit"]`)

	boom := errors.New("not connected")
	pub.err = boom
	assert.ErrorIs(t, s.Save(context.Background(), sampleModel("sess", day)), boom)
}

type recordingSink struct {
	saved []string
	err   error
}

func (r *recordingSink) Save(_ context.Context, m session.Model) error {
	r.saved = append(r.saved, m.ID)
	return r.err
}

func TestMultiSinkSavesEverywhere(t *testing.T) {
	boom := errors.New("broker down")
	a := &recordingSink{err: boom}
	b := &recordingSink{}

	err := MultiSink{a, b}.Save(context.Background(), sampleModel("sess", day))

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"sess"}, a.saved)
	assert.Equal(t, []string{"sess"}, b.saved)
	assert.NoError(t, MultiSink{}.Save(context.Background(), sampleModel("sess", day)))
}

func TestPeriodRows(t *testing.T) {
	rows := periodRows(sampleModel("sess", day))

	require.Len(t, rows, 2)
	assert.Equal(t, []any{day, "sess", uint32(1), []float64{0.8}, 60.0, 185.5, []string{"twitter", "reddit"}}, rows[1])
}
