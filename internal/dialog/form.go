package dialog

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/ksred/gmedchain-web/internal/gmedchain"
)

var (
	ErrInvalidPrice        = errors.New("price must be a positive number")
	ErrMissingCounterparty = errors.New("counterparty must be selected")
)

var validate = validator.New()

// Form is the model bound to the order creation dialog. Price is nullable
// so that an empty or non-numeric entry can be told apart from zero. Qty
// and ShippingCost stay as typed.
type Form struct {
	Counterparty  string `validate:"required"`
	SKU           string
	Price         decimal.NullDecimal
	Name          string
	Qty           string
	ShippingCost  string
	BuyerAddress  string
	SellerAddress string
}

// PriceValid reports whether the price is present and positive. It is the
// only check applied before submission.
func (f Form) PriceValid() bool {
	return f.Price.Valid && f.Price.Decimal.IsPositive()
}

// Strict applies the stricter check: a valid price and a selected
// counterparty. Dialogs only enforce it when opened in strict mode.
func (f Form) Strict() error {
	if !f.PriceValid() {
		return ErrInvalidPrice
	}
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("%w: %v", ErrMissingCounterparty, err)
	}
	return nil
}

func (f Form) orderForm() gmedchain.OrderForm {
	return gmedchain.OrderForm{
		Counterparty:  f.Counterparty,
		SKU:           f.SKU,
		Price:         f.Price.Decimal,
		Name:          f.Name,
		Qty:           f.Qty,
		ShippingCost:  f.ShippingCost,
		BuyerAddress:  f.BuyerAddress,
		SellerAddress: f.SellerAddress,
	}
}
