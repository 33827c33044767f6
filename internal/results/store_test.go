package results

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ksred/gmedchain-web/internal/database"
	"github.com/ksred/gmedchain-web/internal/gmedchain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.NewDatabase(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New()), &Record{})
	require.NoError(t, err)
	return NewStore(db)
}

func TestStore_Lifecycle(t *testing.T) {
	store := newTestStore(t)

	rec, err := store.Open("create-order")
	require.NoError(t, err)
	assert.True(t, rec.Pending)
	assert.NotEmpty(t, rec.ResultID)

	got, err := store.Get(rec.ResultID)
	require.NoError(t, err)
	assert.True(t, got.Pending)
	assert.Equal(t, "create-order", got.Command)

	err = store.Deliver(rec.ResultID, gmedchain.Message{StatusCode: http.StatusCreated, Data: "Transaction id 1 committed to ledger.\n"})
	require.NoError(t, err)

	got, err = store.Get(rec.ResultID)
	require.NoError(t, err)
	assert.False(t, got.Pending)
	assert.Equal(t, http.StatusCreated, got.StatusCode)
	assert.Equal(t, "Transaction id 1 committed to ledger.\n", got.Message)

	require.NoError(t, store.Dismiss(rec.ResultID))
	require.NoError(t, store.Dismiss(rec.ResultID))

	_, err = store.Get(rec.ResultID)
	assert.True(t, errors.Is(err, ErrResultNotFound))
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestStore_DeliverAfterDismiss(t *testing.T) {
	store := newTestStore(t)

	rec, err := store.Open("ship-order")
	require.NoError(t, err)
	require.NoError(t, store.Dismiss(rec.ResultID))

	err = store.Deliver(rec.ResultID, gmedchain.Message{StatusCode: http.StatusCreated})
	assert.True(t, errors.Is(err, ErrResultNotFound))
}

func TestSweeper_DropsStaleResults(t *testing.T) {
	store := newTestStore(t)
	sweeper := NewSweeper(store, time.Hour)

	stale, err := store.Open("create-order")
	require.NoError(t, err)
	fresh, err := store.Open("create-order")
	require.NoError(t, err)

	require.NoError(t, store.db.Model(&Record{}).
		Where("result_id = ?", stale.ResultID).
		Update("opened_at", time.Now().Add(-2*time.Hour)).Error)

	require.NoError(t, sweeper.sweep(time.Now()))

	_, err = store.Get(stale.ResultID)
	assert.True(t, errors.Is(err, ErrResultNotFound))
	_, err = store.Get(fresh.ResultID)
	assert.NoError(t, err)
}
