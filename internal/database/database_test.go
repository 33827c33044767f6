package database_test

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksred/gmedchain-web/internal/database"
	"github.com/ksred/gmedchain-web/internal/database/migrations"
)

type ledgerOrder struct {
	ID     uint
	Buyer  string
	Status int
}

func (ledgerOrder) TableName() string {
	return "ledger_orders"
}

func TestNewDatabase_MigratesAndIndexes(t *testing.T) {
	db, err := database.NewDatabase(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New()), &ledgerOrder{})
	require.NoError(t, err)

	require.NoError(t, migrations.AddOrderIndexes(db))
	// indexes are created only once
	require.NoError(t, migrations.AddOrderIndexes(db))

	var names []string
	require.NoError(t, db.Raw(`SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = 'ledger_orders'`).Scan(&names).Error)
	assert.Contains(t, names, "idx_ledger_orders_buyer")
	assert.Contains(t, names, "idx_ledger_orders_status")
}

func TestAddOrderIndexes_RequiresTable(t *testing.T) {
	db, err := database.NewDatabase(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New()))
	require.NoError(t, err)

	assert.Error(t, migrations.AddOrderIndexes(db))
}
