package gmedchain

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FormContentType is the content type every command endpoint requires
const FormContentType = "application/x-www-form-urlencoded"

// OrderForm is the create-order request as entered in the creation dialog.
// Qty and ShippingCost are sent exactly as typed; the node parses them.
type OrderForm struct {
	Counterparty  string
	SKU           string
	Price         decimal.Decimal
	Name          string
	Qty           string
	ShippingCost  string
	BuyerAddress  string
	SellerAddress string
}

// Encode serializes the form into the create-order body. Field order is
// fixed and status is always Created.
func (f OrderForm) Encode() string {
	return encodePairs([][2]string{
		{"partyName", f.Counterparty},
		{"sku", f.SKU},
		{"price", f.Price.String()},
		{"name", f.Name},
		{"qty", f.Qty},
		{"status", strconv.Itoa(int(StatusCreated))},
		{"shippingCost", f.ShippingCost},
		{"buyerAddress", f.BuyerAddress},
		{"sellerAddress", f.SellerAddress},
	})
}

// Transition is a status update command exposed by the node
type Transition struct {
	Endpoint string
	Status   Status
}

var (
	ConfirmOrder    = Transition{Endpoint: "confirm-order", Status: StatusConfirmed}
	ConfirmPickup   = Transition{Endpoint: "confirm-pickup", Status: StatusReadyForPickup}
	ShipOrder       = Transition{Endpoint: "ship-order", Status: StatusShipped}
	DeliverOrder    = Transition{Endpoint: "delivery-order", Status: StatusDelivered}
	ConfirmDelivery = Transition{Endpoint: "confirm-delivery", Status: StatusDeliveryConfirmed}
)

var transitions = []Transition{ConfirmOrder, ConfirmPickup, ShipOrder, DeliverOrder, ConfirmDelivery}

// NextTransition returns the transition that moves an order out of current.
// The second result is false once the order is delivery-confirmed.
func NextTransition(current Status) (Transition, bool) {
	for _, t := range transitions {
		if t.Status == current+1 {
			return t, true
		}
	}
	return Transition{}, false
}

// TransitionByEndpoint looks a transition up by its endpoint name
func TransitionByEndpoint(endpoint string) (Transition, bool) {
	for _, t := range transitions {
		if t.Endpoint == endpoint {
			return t, true
		}
	}
	return Transition{}, false
}

func (t Transition) encode(linearID string) string {
	return encodePairs([][2]string{
		{"linearId", linearID},
		{"status", strconv.Itoa(int(t.Status))},
	})
}

// encodePairs keeps insertion order; url.Values.Encode sorts by key.
func encodePairs(pairs [][2]string) string {
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p[0]))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p[1]))
	}
	return b.String()
}
