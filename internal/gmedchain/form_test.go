package gmedchain

import (
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleBody = "partyName=Bob&sku=X1&price=10&name=Widget&qty=3&status=0&shippingCost=2&buyerAddress=A1&sellerAddress=A2"

func exampleForm() OrderForm {
	return OrderForm{
		Counterparty:  "Bob",
		SKU:           "X1",
		Price:         decimal.NewFromInt(10),
		Name:          "Widget",
		Qty:           "3",
		ShippingCost:  "2",
		BuyerAddress:  "A1",
		SellerAddress: "A2",
	}
}

func TestOrderForm_Encode(t *testing.T) {
	assert.Equal(t, exampleBody, exampleForm().Encode())
}

func TestOrderForm_EncodeEscapesValues(t *testing.T) {
	form := exampleForm()
	form.Counterparty = "O=PartyB,L=New York,C=US"
	form.BuyerAddress = "1 Main St & 2nd"
	form.Price = decimal.RequireFromString("12.50")

	values, err := url.ParseQuery(form.Encode())
	require.NoError(t, err)
	assert.Equal(t, "O=PartyB,L=New York,C=US", values.Get("partyName"))
	assert.Equal(t, "1 Main St & 2nd", values.Get("buyerAddress"))
	assert.Equal(t, "12.5", values.Get("price"))
	assert.Equal(t, "0", values.Get("status"))
}

func TestOrderForm_EncodeKeepsQtyAndShippingAsTyped(t *testing.T) {
	form := exampleForm()
	form.Qty = "abc"
	form.ShippingCost = ""

	assert.Equal(t,
		"partyName=Bob&sku=X1&price=10&name=Widget&qty=abc&status=0&shippingCost=&buyerAddress=A1&sellerAddress=A2",
		form.Encode())
}

func TestNextTransition(t *testing.T) {
	tests := []struct {
		current Status
		want    Transition
		ok      bool
	}{
		{StatusCreated, ConfirmOrder, true},
		{StatusConfirmed, ConfirmPickup, true},
		{StatusReadyForPickup, ShipOrder, true},
		{StatusShipped, DeliverOrder, true},
		{StatusDelivered, ConfirmDelivery, true},
		{StatusDeliveryConfirmed, Transition{}, false},
	}

	for _, tt := range tests {
		got, ok := NextTransition(tt.current)
		assert.Equal(t, tt.ok, ok, tt.current.String())
		assert.Equal(t, tt.want, got, tt.current.String())
	}
}

func TestTransitionByEndpoint(t *testing.T) {
	got, ok := TransitionByEndpoint("delivery-order")
	assert.True(t, ok)
	assert.Equal(t, DeliverOrder, got)

	_, ok = TransitionByEndpoint("cancel-order")
	assert.False(t, ok)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "ReadyForPickup", StatusReadyForPickup.String())
	assert.Equal(t, "Status(9)", Status(9).String())
}
