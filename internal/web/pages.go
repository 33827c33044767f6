package web

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/ksred/gmedchain-web/internal/dialog"
	"github.com/ksred/gmedchain-web/internal/gmedchain"
	"github.com/ksred/gmedchain-web/internal/results"
	"github.com/ksred/gmedchain-web/internal/view"
	"github.com/ksred/gmedchain-web/pkg/middleware"
)

// layout is the data every page passes to the shared header
type layout struct {
	Refresh bool
}

type indexPage struct {
	layout
	View   view.Snapshot
	Dialog *createPage
}

type createPage struct {
	Token     string
	Identity  string
	Peers     []string
	Form      formValues
	FormError bool
	ErrorText string
}

type resultPage struct {
	layout
	ResultID string
	Command  string
	Pending  bool
	Text     string
}

type errorPage struct {
	layout
	Title   string
	Message string
}

// formValues are the create dialog inputs as typed, so a rejected form
// renders again unchanged
type formValues struct {
	PartyName     string `form:"partyName"`
	SKU           string `form:"sku"`
	Price         string `form:"price"`
	Name          string `form:"name"`
	Qty           string `form:"qty"`
	ShippingCost  string `form:"shippingCost"`
	BuyerAddress  string `form:"buyerAddress"`
	SellerAddress string `form:"sellerAddress"`
}

// form converts the inputs. A price that is not a number stays null;
// everything else is passed on as typed.
func (v formValues) form() dialog.Form {
	f := dialog.Form{
		Counterparty:  v.PartyName,
		SKU:           v.SKU,
		Name:          v.Name,
		Qty:           v.Qty,
		ShippingCost:  v.ShippingCost,
		BuyerAddress:  v.BuyerAddress,
		SellerAddress: v.SellerAddress,
	}
	if price, err := decimal.NewFromString(strings.TrimSpace(v.Price)); err == nil {
		f.Price = decimal.NewNullDecimal(price)
	}
	return f
}

// IndexHandler renders the main view. With ?dialog=create the order
// creation dialog is open on top of it.
func (s *Server) IndexHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctrl := s.newView()
		ctrl.Init(c.Request.Context())

		page := indexPage{View: ctrl.Snapshot()}
		if c.Query("dialog") == "create" {
			d := ctrl.OpenCreateDialog()
			token, err := s.issue(d)
			if err != nil {
				s.renderError(c, http.StatusInternalServerError, "Something went wrong", "The order dialog could not be opened.")
				return
			}
			page.Dialog = &createPage{
				Token:    token,
				Identity: d.Identity(),
				Peers:    d.Peers(),
			}
		}

		c.HTML(http.StatusOK, "index.tmpl", page)
	}
}

// CreateOrderHandler submits the create dialog. A rejected price renders
// the dialog again with the error; otherwise the dialog closes and the
// browser is sent to the result dialog before the node has answered.
func (s *Server) CreateOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, _ := middleware.Dialog(c)
		d := s.restore(snap)

		var values formValues
		if err := c.ShouldBind(&values); err != nil {
			s.renderError(c, http.StatusBadRequest, "Bad request", err.Error())
			return
		}
		d.Form = values.form()

		pending, err := d.Create(context.WithoutCancel(c.Request.Context()))
		if err != nil {
			ctrl := s.newView()
			ctrl.Init(c.Request.Context())
			c.HTML(http.StatusUnprocessableEntity, "index.tmpl", indexPage{
				View: ctrl.Snapshot(),
				Dialog: &createPage{
					Token:     c.PostForm("dialog_token"),
					Identity:  d.Identity(),
					Peers:     d.Peers(),
					Form:      values,
					FormError: d.FormError,
					ErrorText: formErrorText(err),
				},
			})
			return
		}

		rec, err := s.track("create-order", pending)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to open result dialog")
			s.renderError(c, http.StatusInternalServerError, "Something went wrong", "The order was sent but its result cannot be shown.")
			return
		}

		c.Redirect(http.StatusSeeOther, "/results/"+rec.ResultID)
	}
}

// UpdateStatusHandler sends the status transition named in the form and
// shows its outcome in a result dialog
func (s *Server) UpdateStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		t, ok := gmedchain.TransitionByEndpoint(c.PostForm("transition"))
		if !ok {
			s.renderError(c, http.StatusBadRequest, "Bad request", "Unknown status transition.")
			return
		}

		pending := dialog.SubmitTransition(context.WithoutCancel(c.Request.Context()), s.node, t, c.Param("linearId"))
		rec, err := s.track(t.Endpoint, pending)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to open result dialog")
			s.renderError(c, http.StatusInternalServerError, "Something went wrong", "The command was sent but its result cannot be shown.")
			return
		}

		c.Redirect(http.StatusSeeOther, "/results/"+rec.ResultID)
	}
}

// ResultHandler renders a result dialog. While the command is in flight
// the page reloads itself.
func (s *Server) ResultHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := s.results.Get(c.Param("id"))
		if err != nil {
			if errors.Is(err, results.ErrResultNotFound) {
				s.renderError(c, http.StatusNotFound, "Not found", "This result has been closed.")
				return
			}
			s.renderError(c, http.StatusInternalServerError, "Something went wrong", "The result could not be loaded.")
			return
		}

		page := resultPage{
			layout:   layout{Refresh: rec.Pending},
			ResultID: rec.ResultID,
			Command:  rec.Command,
			Pending:  rec.Pending,
		}
		if !rec.Pending {
			page.Text = dialog.NewResultDialog(gmedchain.Message{StatusCode: rec.StatusCode, Data: rec.Message}).Text()
		}
		c.HTML(http.StatusOK, "result.tmpl", page)
	}
}

// DismissResultHandler closes a result dialog and goes back to the main
// view. The view is not refreshed on the way.
func (s *Server) DismissResultHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.results.Dismiss(c.Param("id")); err != nil {
			s.logger.Error().Err(err).Msg("failed to dismiss result dialog")
		}
		c.Redirect(http.StatusSeeOther, "/")
	}
}

func (s *Server) expiredDialogPage(c *gin.Context, err error) {
	s.renderError(c, http.StatusUnauthorized, "Dialog expired", "Open the order dialog again.")
}

func (s *Server) renderError(c *gin.Context, status int, title, message string) {
	c.HTML(status, "error.tmpl", errorPage{Title: title, Message: message})
}

func formErrorText(err error) string {
	switch {
	case errors.Is(err, dialog.ErrInvalidPrice):
		return "Price must be a positive number."
	case errors.Is(err, dialog.ErrMissingCounterparty):
		return "Select a counterparty."
	default:
		return err.Error()
	}
}
