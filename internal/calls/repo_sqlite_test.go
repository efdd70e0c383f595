package calls

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ivr-gateway/internal/migrations"
	"ivr-gateway/pkg/utils"
)

func newSQLiteRepo(t *testing.T, clock func() time.Time) *SQLRepo {
	t.Helper()
	ctx := context.Background()
	db, err := utils.OpenDB(ctx, utils.DialectSQLite, ":memory:", utils.PoolConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Run(ctx, db, utils.DialectSQLite))
	return NewSQLRepo(db, utils.DialectSQLite).WithClock(clock)
}

func TestSQLiteRepo_CallLifecycle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := newSQLiteRepo(t, func() time.Time { return now })

	c, err := repo.Create(ctx, Call{SessionID: "CA1", From: "+15551234567", Status: CallStatusRinging})
	require.NoError(t, err)
	require.NotEmpty(t, c.ID)

	again, err := repo.Create(ctx, Call{SessionID: "CA1", From: "+10000000000"})
	require.NoError(t, err)
	assert.Equal(t, c.ID, again.ID)
	assert.Equal(t, "+15551234567", again.From)

	now = now.Add(45 * time.Second)
	c.Status = CallStatusCompleted
	c.Forwarding = ForwardingVoicemail
	c.DurationSeconds = ElapsedSeconds(c.CreatedAt, now)
	require.NoError(t, repo.Update(ctx, c))

	got, err := repo.FindBySessionID(ctx, "CA1")
	require.NoError(t, err)
	assert.Equal(t, CallStatusCompleted, got.Status)
	assert.Equal(t, ForwardingVoicemail, got.Forwarding)
	assert.Equal(t, 45, got.DurationSeconds)
}

func TestSQLiteRepo_UpdateKeepsForwardingWhenEmpty(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t, time.Now)

	c, err := repo.Create(ctx, Call{SessionID: "CA2", Forwarding: ForwardingLiveTransfer})
	require.NoError(t, err)

	require.NoError(t, repo.Update(ctx, Call{SessionID: "CA2", Status: CallStatusCompleted}))
	got, err := repo.FindBySessionID(ctx, c.SessionID)
	require.NoError(t, err)
	assert.Equal(t, ForwardingLiveTransfer, got.Forwarding)
}

func TestSQLiteRepo_RecordingOncePerProviderID(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t, time.Now)

	c, err := repo.Create(ctx, Call{SessionID: "CA1"})
	require.NoError(t, err)

	_, created, err := repo.CreateRecording(ctx, Recording{CallID: c.ID, ProviderRecordingID: "RE1", DurationSeconds: 12, URL: "https://example.test/RE1.mp3"})
	require.NoError(t, err)
	assert.True(t, created)

	rec, created, err := repo.CreateRecording(ctx, Recording{CallID: c.ID, ProviderRecordingID: "RE1", DurationSeconds: 12})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "https://example.test/RE1.mp3", rec.URL)

	list, err := repo.ListRecordings(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSQLiteRepo_RecordingOncePerCall(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t, time.Now)

	c, err := repo.Create(ctx, Call{SessionID: "CA1"})
	require.NoError(t, err)

	first, created, err := repo.CreateRecording(ctx, Recording{CallID: c.ID, ProviderRecordingID: "RE1", DurationSeconds: 12})
	require.NoError(t, err)
	require.True(t, created)

	got, created, err := repo.CreateRecording(ctx, Recording{CallID: c.ID, ProviderRecordingID: "RE2", DurationSeconds: 40})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "RE1", got.ProviderRecordingID)

	list, err := repo.ListRecordings(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSQLiteRepo_RecordingRequiresCall(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t, time.Now)

	_, _, err := repo.CreateRecording(ctx, Recording{CallID: "no-such-call", ProviderRecordingID: "RE9"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteRepo_FindMissing(t *testing.T) {
	repo := newSQLiteRepo(t, time.Now)
	_, err := repo.FindBySessionID(context.Background(), "CA404")
	assert.ErrorIs(t, err, ErrNotFound)
}
