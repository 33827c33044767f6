package devnode

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ksred/gmedchain-web/internal/database"
	"github.com/ksred/gmedchain-web/internal/database/migrations"
)

// Open migrates the ledger at path and returns a node service over it
func Open(path string, cfg Config) (*Service, error) {
	db, err := database.NewDatabase(path, &LedgerOrder{})
	if err != nil {
		return nil, err
	}
	if err := migrations.AddOrderIndexes(db); err != nil {
		return nil, fmt.Errorf("failed to add order indexes: %w", err)
	}
	return NewService(db, cfg), nil
}

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) CreateOrder(order *LedgerOrder) error {
	return d.db.Create(order).Error
}

func (d *Database) GetOrder(linearID string) (*LedgerOrder, error) {
	var order LedgerOrder
	if err := d.db.Where("linear_id = ?", linearID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// AdvanceOrder moves an order from one status to the next only if it is
// still at from. It reports whether a row was changed.
func (d *Database) AdvanceOrder(linearID string, from, to int, txHash string) (bool, error) {
	res := d.db.Model(&LedgerOrder{}).
		Where("linear_id = ? AND status = ?", linearID, from).
		Updates(map[string]interface{}{"status": to, "tx_hash": txHash})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListOrders returns every order in insertion order
func (d *Database) ListOrders() ([]LedgerOrder, error) {
	var orders []LedgerOrder
	if err := d.db.Order("id ASC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListOrdersByBuyer returns the orders bought by buyer in insertion order
func (d *Database) ListOrdersByBuyer(buyer string) ([]LedgerOrder, error) {
	var orders []LedgerOrder
	if err := d.db.Where("buyer = ?", buyer).Order("id ASC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
