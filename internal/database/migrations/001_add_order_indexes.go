package migrations

import (
	"gorm.io/gorm"
)

// AddOrderIndexes creates the lookup indexes on the dev node's order table
func AddOrderIndexes(db *gorm.DB) error {
	indexes := []string{
		// my-orders filters on the buyer
		`CREATE INDEX IF NOT EXISTS idx_ledger_orders_buyer
		 ON ledger_orders(buyer)`,

		`CREATE INDEX IF NOT EXISTS idx_ledger_orders_status
		 ON ledger_orders(status)`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}
