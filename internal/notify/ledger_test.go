package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLedgerDeliversOnce(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	at := time.Now()

	first, err := l.Deliver(ctx, 1, at)
	require.NoError(t, err)
	assert.True(t, first)

	first, err = l.Deliver(ctx, 1, at.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, first)

	first, err = l.Deliver(ctx, 2, at)
	require.NoError(t, err)
	assert.True(t, first)
	assert.Equal(t, 2, l.Len())
}

func TestMemoryLedgerConcurrentDeliver(t *testing.T) {
	l := NewMemoryLedger()
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		first int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _ := l.Deliver(context.Background(), 9, time.Now())
			if ok {
				mu.Lock()
				first++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, l.Len())
}

type fakeDB struct {
	rows map[[2]int64]time.Time
	err  error
}

func (d *fakeDB) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	if d.err != nil {
		return pgconn.CommandTag{}, d.err
	}
	key := [2]int64{args[0].(int64), args[1].(int64)}
	if _, ok := d.rows[key]; ok {
		return pgconn.NewCommandTag("INSERT 0 0"), nil
	}
	d.rows[key] = args[2].(time.Time)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestPostgresLedger(t *testing.T) {
	ctx := context.Background()
	db := &fakeDB{rows: make(map[[2]int64]time.Time)}
	alice := NewPostgresLedger(db, 1)
	bob := NewPostgresLedger(db, 2)
	at := time.Now()

	first, err := alice.Deliver(ctx, 10, at)
	require.NoError(t, err)
	assert.True(t, first)

	first, err = alice.Deliver(ctx, 10, at)
	require.NoError(t, err)
	assert.False(t, first)

	first, err = bob.Deliver(ctx, 10, at)
	require.NoError(t, err)
	assert.True(t, first, "ledgers are scoped per user")

	assert.Equal(t, at, db.rows[[2]int64{1, 10}], "first delivery time is kept")
}

func TestPostgresLedgerPropagatesErrors(t *testing.T) {
	l := NewPostgresLedger(&fakeDB{err: errors.New("conn refused")}, 1)
	_, err := l.Deliver(context.Background(), 1, time.Now())
	assert.Error(t, err)
}
