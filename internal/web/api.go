package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/ksred/gmedchain-web/internal/dialog"
	"github.com/ksred/gmedchain-web/internal/view"
	"github.com/ksred/gmedchain-web/pkg/middleware"
	"github.com/ksred/gmedchain-web/pkg/response"
)

type viewResponse struct {
	View view.Snapshot `json:"view"`
	// DialogToken opens a create dialog over this snapshot; send it back
	// in the X-Dialog-Token header
	DialogToken string `json:"dialog_token"`
}

type createOrderRequest struct {
	Counterparty string `json:"counterparty"`
	SKU          string `json:"sku"`
	// Numbers are kept raw so a missing or non-numeric price is a form
	// error instead of a decode error. Qty and shipping cost go to the node
	// as sent.
	Price         json.RawMessage `json:"price"`
	Name          string          `json:"name"`
	Qty           json.RawMessage `json:"qty"`
	ShippingCost  json.RawMessage `json:"shipping_cost"`
	BuyerAddress  string          `json:"buyer_address"`
	SellerAddress string          `json:"seller_address"`
}

func (r createOrderRequest) form() dialog.Form {
	f := dialog.Form{
		Counterparty:  r.Counterparty,
		SKU:           r.SKU,
		Name:          r.Name,
		Qty:           rawText(r.Qty),
		ShippingCost:  rawText(r.ShippingCost),
		BuyerAddress:  r.BuyerAddress,
		SellerAddress: r.SellerAddress,
	}
	if price, err := decimal.NewFromString(rawText(r.Price)); err == nil {
		f.Price = decimal.NewNullDecimal(price)
	}
	return f
}

// rawText returns a JSON scalar as text: strings unquoted, null as empty
func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

type acceptedResponse struct {
	ResultID string `json:"result_id"`
}

// APIViewHandler returns the main view state and a token for its create
// dialog
func (s *Server) APIViewHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctrl := s.newView()
		ctrl.Init(c.Request.Context())

		token, err := s.issue(ctrl.OpenCreateDialog())
		if err != nil {
			response.InternalError(c, err.Error())
			return
		}

		response.Success(c, viewResponse{
			View:        ctrl.Snapshot(),
			DialogToken: token,
		})
	}
}

// APICreateOrderHandler submits a create dialog. It answers 202 with the
// result dialog id as soon as the request has been started.
func (s *Server) APICreateOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, _ := middleware.Dialog(c)

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		d := s.restore(snap)
		d.Form = req.form()

		pending, err := d.Create(context.WithoutCancel(c.Request.Context()))
		if err != nil {
			if errors.Is(err, dialog.ErrInvalidPrice) || errors.Is(err, dialog.ErrMissingCounterparty) {
				response.ValidationFailed(c, formErrorText(err))
				return
			}
			response.BadRequest(c, err.Error())
			return
		}

		rec, err := s.track("create-order", pending)
		if err != nil {
			response.InternalError(c, "Failed to open result dialog")
			return
		}

		response.Accepted(c, acceptedResponse{ResultID: rec.ResultID})
	}
}

func (s *Server) APIResultHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := s.results.Get(c.Param("id"))
		response.Handle(c, rec, err)
	}
}

func (s *Server) APIDismissResultHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := s.results.Dismiss(c.Param("id"))
		response.Handle(c, acceptedResponse{ResultID: c.Param("id")}, err)
	}
}

// HealthHandler reports whether the node answers its status endpoint
func (s *Server) HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := s.node.Status(c.Request.Context())
		if err != nil {
			s.logger.Debug().Err(err).Msg("node status check failed")
			response.ServiceUnavailable(c, "Node is not reachable")
			return
		}
		response.Success(c, gin.H{"node": status})
	}
}
