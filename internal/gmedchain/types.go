package gmedchain

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle code a node stores on every order
type Status int

const (
	StatusCreated Status = iota
	StatusConfirmed
	StatusReadyForPickup
	StatusShipped
	StatusDelivered
	StatusDeliveryConfirmed
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "Created"
	case StatusConfirmed:
		return "Confirmed"
	case StatusReadyForPickup:
		return "ReadyForPickup"
	case StatusShipped:
		return "Shipped"
	case StatusDelivered:
		return "Delivered"
	case StatusDeliveryConfirmed:
		return "DeliveryConfirmed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Order is the product line carried by an order state
type Order struct {
	SKU           string          `json:"productSku"`
	Name          string          `json:"productName"`
	Price         decimal.Decimal `json:"productPrice"`
	Qty           int             `json:"qty"`
	ShippingCost  decimal.Decimal `json:"shippingCost"`
	Status        Status          `json:"status"`
	BuyerAddress  string          `json:"buyerAddress"`
	SellerAddress string          `json:"sellerAddress"`
}

// LinearID identifies an order state across its transitions
type LinearID struct {
	ExternalID *string `json:"externalId"`
	ID         string  `json:"id"`
}

func (l LinearID) String() string {
	if l.ExternalID != nil && *l.ExternalID != "" {
		return *l.ExternalID + "_" + l.ID
	}
	return l.ID
}

// OrderState is the payload nested under state.data in order list responses
type OrderState struct {
	Order    Order    `json:"order"`
	Buyer    string   `json:"buyer"`
	Seller   string   `json:"seller"`
	Shipper  string   `json:"shipper"`
	LinearID LinearID `json:"linearId"`
}

// Counterparty returns the party the buyer placed the order with.
func (s OrderState) Counterparty() string {
	return s.Seller
}

// Message is the opaque result of a command (create-order, status updates).
// Success and failure responses share this shape.
type Message struct {
	StatusCode int    `json:"status_code"`
	Data       string `json:"data"`
}

func (m Message) OK() bool {
	return m.StatusCode >= http.StatusOK && m.StatusCode < http.StatusMultipleChoices
}

// stateAndRef is the wrapper the node returns for each vault entry
type stateAndRef struct {
	State struct {
		Data OrderState `json:"data"`
	} `json:"state"`
}

type meResponse struct {
	Me string `json:"me"`
}

type peersResponse struct {
	Peers []string `json:"peers"`
}
