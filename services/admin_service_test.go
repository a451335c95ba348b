package services

import (
	"context"
	"testing"
	"time"

	"chat-meter/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adminFixture(t *testing.T) (*AdminService, *SessionRegistry) {
	t.Helper()
	reg := NewSessionRegistry()
	ledger := NewUsageLedger(context.Background(), &memStore{data: map[string]float64{
		"2026-10-18": 1.5,
		testDay:      0.01234,
	}}, quietLogger())

	base := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	alice := reg.Open(models.Account{Name: "alice"})
	alice.appendTurn(models.Turn{Question: "first", Tokens: 10, Timestamp: base})
	alice.appendTurn(models.Turn{Question: "broken", Failed: true, Timestamp: base.Add(2 * time.Minute)})
	bob := reg.Open(models.Account{Name: "bob"})
	bob.appendTurn(models.Turn{Question: "second", Tokens: 20, Timestamp: base.Add(time.Minute)})
	bob.setUpload(&models.PendingUpload{FileName: "a.txt"})

	return &AdminService{
		Sessions: reg,
		Ledger:   ledger,
		Now:      func() time.Time { return base },
	}, reg
}

func TestAdminService_Metrics(t *testing.T) {
	svc, _ := adminFixture(t)

	m, err := svc.Metrics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, testDay, m.Day)
	assert.Equal(t, int64(2), m.OpenAccounts)
	assert.Equal(t, int64(3), m.TotalTurns)
	assert.Equal(t, int64(1), m.FailedTurns)
	assert.Equal(t, int64(1), m.PendingUploads)
	assert.Equal(t, int64(2), m.DaysRecorded)
	assert.Equal(t, 0.0123, m.TodayUSD)
	assert.Nil(t, m.ArchivedTurns)
}

func TestAdminService_MetricsWithArchive(t *testing.T) {
	svc, _ := adminFixture(t)
	svc.Turns = &fakeTurnArchive{saved: make([]models.ArchivedTurn, 7)}

	m, err := svc.Metrics(context.Background())
	require.NoError(t, err)
	require.NotNil(t, m.ArchivedTurns)
	assert.Equal(t, int64(7), *m.ArchivedTurns)
}

func TestAdminService_RecentFromLiveLogs(t *testing.T) {
	svc, _ := adminFixture(t)

	out, err := svc.RecentConversations(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "broken", out[0].Question)
	assert.Equal(t, "bob", out[1].Account)

	all, err := svc.RecentConversations(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestAdminService_RecentFromArchive(t *testing.T) {
	svc, _ := adminFixture(t)
	archive := &fakeTurnArchive{}
	svc.Turns = archive
	require.NoError(t, archive.SaveTurn(context.Background(), "carol", testDay, models.Turn{Question: "old"}))
	require.NoError(t, archive.SaveTurn(context.Background(), "carol", testDay, models.Turn{Question: "new"}))

	out, err := svc.RecentConversations(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "new", out[0].Question)
	assert.Equal(t, "carol", out[0].Account)
}

func TestAdminService_RecentEmpty(t *testing.T) {
	svc := &AdminService{
		Sessions: NewSessionRegistry(),
		Ledger:   NewUsageLedger(context.Background(), &memStore{}, quietLogger()),
	}
	out, err := svc.RecentConversations(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}
