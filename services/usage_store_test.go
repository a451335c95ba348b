package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// -------- test fakes --------

type memStore struct {
	mu      sync.Mutex
	data    map[string]float64
	loadErr error
	saveErr error
	saves   int
}

func (m *memStore) Load(ctx context.Context) (map[string]float64, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := map[string]float64{}
	for k, v := range m.data {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) Save(ctx context.Context, usage map[string]float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data = usage
	return nil
}

// -------- JSON file store --------

func TestJSONFileStore_LoadMissingTwice(t *testing.T) {
	s := NewJSONFileStore(filepath.Join(t.TempDir(), "daily_usage.json"), quietLogger())

	for i := 0; i < 2; i++ {
		usage, err := s.Load(context.Background())
		require.NoError(t, err)
		assert.Empty(t, usage)
		assert.NotNil(t, usage)
	}
}

func TestJSONFileStore_LoadCorruptTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daily_usage.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	s := NewJSONFileStore(path, quietLogger())

	for i := 0; i < 2; i++ {
		usage, err := s.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, map[string]float64{}, usage)
	}
}

func TestJSONFileStore_LoadNullDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daily_usage.json")
	require.NoError(t, os.WriteFile(path, []byte("null"), 0o600))

	usage, err := NewJSONFileStore(path, quietLogger()).Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, usage)
}

func TestJSONFileStore_SaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daily_usage.json")
	s := NewJSONFileStore(path, quietLogger())
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, map[string]float64{"2025-01-01": 0.5, "2025-01-02": 0.25}))
	require.NoError(t, s.Save(ctx, map[string]float64{"2025-01-03": 0.125}))

	usage, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"2025-01-03": 0.125}, usage)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"2025-01-03":0.125}`, string(raw))
}

func TestJSONFileStore_SaveIntoMissingDir(t *testing.T) {
	s := NewJSONFileStore(filepath.Join(t.TempDir(), "nope", "usage.json"), quietLogger())
	assert.Error(t, s.Save(context.Background(), map[string]float64{"d": 1}))
}

// -------- SQL store --------

func setupSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLStore_SQLiteRoundTrip(t *testing.T) {
	db := setupSQLite(t)
	s := NewSQLStore(db, "sqlite")
	ctx := context.Background()
	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.Init(ctx), "init is idempotent")

	usage, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, usage)

	require.NoError(t, s.Save(ctx, map[string]float64{"2025-01-01": 0.01, "2025-01-02": 0.02}))
	require.NoError(t, s.Save(ctx, map[string]float64{"2025-01-02": 0.05}))

	usage, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"2025-01-01": 0.01, "2025-01-02": 0.05}, usage)
}

func TestSQLStore_PostgresSave(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO daily_usage \(day, usd\) VALUES \(\$1, \$2\)`).
		WithArgs("2025-01-01", 0.5).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	s := NewSQLStore(db, "postgres")
	require.NoError(t, s.Save(context.Background(), map[string]float64{"2025-01-01": 0.5}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_PostgresSaveRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO daily_usage`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	s := NewSQLStore(db, "postgres")
	err = s.Save(context.Background(), map[string]float64{"2025-01-01": 0.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_PostgresLoad(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT day, usd FROM daily_usage`).
		WillReturnRows(sqlmock.NewRows([]string{"day", "usd"}).
			AddRow("2025-01-01", 0.5).
			AddRow("2025-01-02", 0.75))

	usage, err := NewSQLStore(db, "postgres").Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"2025-01-01": 0.5, "2025-01-02": 0.75}, usage)
	require.NoError(t, mock.ExpectationsWereMet())
}

// -------- ledger --------

func TestUsageLedger_LoadFailureStartsEmpty(t *testing.T) {
	l := NewUsageLedger(context.Background(), &memStore{loadErr: errors.New("boom")}, quietLogger())
	assert.Equal(t, 0.0, l.Spent("2025-01-01"))
	assert.Empty(t, l.Snapshot())
}

func TestUsageLedger_ChargeRefundExact(t *testing.T) {
	store := &memStore{data: map[string]float64{"2025-01-01": 0.1}}
	l := NewUsageLedger(context.Background(), store, quietLogger())

	after := l.Charge("2025-01-01", 0.02)
	assert.Equal(t, 0.12, after)

	back := l.Refund("2025-01-01", 0.02)
	assert.Equal(t, 0.1, back)
	assert.Equal(t, 0.1, l.Spent("2025-01-01"))

	l.Charge("2025-01-02", 0.003)
	l.Refund("2025-01-02", 0.003)
	_, present := l.Snapshot()["2025-01-02"]
	assert.False(t, present)
}

func TestUsageLedger_History(t *testing.T) {
	store := &memStore{data: map[string]float64{"2025-01-03": 0.123456, "2025-01-01": 0.5}}
	l := NewUsageLedger(context.Background(), store, quietLogger())

	h := l.History()
	require.Len(t, h, 2)
	assert.Equal(t, "2025-01-01", h[0].Day)
	assert.Equal(t, "2025-01-03", h[1].Day)
	assert.Equal(t, 0.1235, h[1].USD)
}

func TestUsageLedger_Flush(t *testing.T) {
	store := &memStore{}
	l := NewUsageLedger(context.Background(), store, quietLogger())
	l.Charge("2025-01-01", 0.01)

	require.NoError(t, l.Flush(context.Background()))
	assert.Equal(t, map[string]float64{"2025-01-01": 0.01}, store.data)

	store.saveErr = errors.New("read-only")
	err := l.Flush(context.Background())
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 0.01, l.Spent("2025-01-01"), "failed save keeps in-memory state")
}

func TestUsageLedger_ConcurrentCharges(t *testing.T) {
	l := NewUsageLedger(context.Background(), &memStore{}, quietLogger())

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Charge("2025-01-01", 0.0001)
			_ = l.Flush(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, 0.01, l.Spent("2025-01-01"))
}
