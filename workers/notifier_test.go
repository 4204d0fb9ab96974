package workers

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"simpus/models"
	"simpus/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifierCheck(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open("sqlite3", filepath.Join(t.TempDir(), "simpus.db"))
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.InitSchema(ctx))

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	st.Now = func() time.Time { return now }

	u, err := st.CreateUser(ctx, "Sari", "sari@example.com", "hash", models.RoleMember)
	require.NoError(t, err)
	b, err := st.CreateBook(ctx, models.BookRequest{Title: "Negeri 5 Menara", Author: "A. Fuadi", TotalCopies: 3})
	require.NoError(t, err)

	due, err := st.BorrowBook(ctx, b.ID, u.ID, 14, "")
	require.NoError(t, err)
	_, err = st.BorrowBook(ctx, b.ID, u.ID, 30, "")
	require.NoError(t, err)
	returned, err := st.BorrowBook(ctx, b.ID, u.ID, 1, "")
	require.NoError(t, err)
	_, err = st.ReturnBorrow(ctx, returned.ID, "")
	require.NoError(t, err)

	n := NewNotifier(st, nil, 0)
	assert.Equal(t, 24*time.Hour, n.Interval)

	assert.Equal(t, 0, n.Check(ctx), "nothing is due yet")

	now = due.DueAt.Add(-12 * time.Hour)
	assert.Equal(t, 1, n.Check(ctx))
	assert.Equal(t, 0, n.Check(ctx), "the same reminder is not sent twice")

	now = due.DueAt.Add(50 * time.Hour)
	assert.Equal(t, 1, n.Check(ctx))

	notifs, err := st.GetNotifications(ctx, u.ID)
	require.NoError(t, err)
	var msgs []string
	for _, x := range notifs {
		msgs = append(msgs, x.Message)
	}
	assert.ElementsMatch(t, []string{
		"PENGINGAT: Buku 'Negeri 5 Menara' harus dikembalikan besok (15 Mar 2025).",
		"PERINGATAN: Buku 'Negeri 5 Menara' terlambat 2 hari. Segera kembalikan!",
	}, msgs)

	// The worker never changes the stored status.
	got, err := st.GetBorrow(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusBorrowed, got.Status)
}

func TestNotifierStartStopsWithContext(t *testing.T) {
	st, err := store.Open("sqlite3", filepath.Join(t.TempDir(), "simpus.db"))
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.InitSchema(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	NewNotifier(st, nil, time.Millisecond).Start(ctx)
	time.Sleep(10 * time.Millisecond)
	cancel()
}
