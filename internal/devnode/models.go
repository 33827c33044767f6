package devnode

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ksred/gmedchain-web/internal/gmedchain"
)

// LedgerOrder is an order state as the dev node stores it
type LedgerOrder struct {
	gorm.Model    `json:"-"`
	LinearID      string          `gorm:"uniqueIndex" json:"linear_id"`
	TxHash        string          `json:"tx_hash"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `gorm:"type:text" json:"price"`
	Qty           int             `json:"qty"`
	ShippingCost  decimal.Decimal `gorm:"type:text" json:"shipping_cost"`
	Status        int             `json:"status"`
	BuyerAddress  string          `json:"buyer_address"`
	SellerAddress string          `json:"seller_address"`
	Buyer         string          `json:"buyer"`
	Seller        string          `json:"seller"`
	Shipper       string          `json:"shipper"`
}

func (LedgerOrder) TableName() string {
	return "ledger_orders"
}

func (o LedgerOrder) state() gmedchain.OrderState {
	return gmedchain.OrderState{
		Order: gmedchain.Order{
			SKU:           o.SKU,
			Name:          o.Name,
			Price:         o.Price,
			Qty:           o.Qty,
			ShippingCost:  o.ShippingCost,
			Status:        gmedchain.Status(o.Status),
			BuyerAddress:  o.BuyerAddress,
			SellerAddress: o.SellerAddress,
		},
		Buyer:    o.Buyer,
		Seller:   o.Seller,
		Shipper:  o.Shipper,
		LinearID: gmedchain.LinearID{ID: o.LinearID},
	}
}

// vaultEntry is the wire shape of one entry in an order list
type vaultEntry struct {
	State struct {
		Data     gmedchain.OrderState `json:"data"`
		Contract string               `json:"contract"`
		Notary   string               `json:"notary"`
	} `json:"state"`
	Ref struct {
		TxHash string `json:"txhash"`
		Index  int    `json:"index"`
	} `json:"ref"`
}

// CreateOrderRequest is a parsed create-order form
type CreateOrderRequest struct {
	PartyName     string
	SKU           string
	Name          string
	Price         decimal.Decimal
	Qty           int
	Status        int
	ShippingCost  decimal.Decimal
	BuyerAddress  string
	SellerAddress string
}
