package dialog

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ksred/gmedchain-web/internal/gmedchain"
	"github.com/ksred/gmedchain-web/internal/metrics"
)

var ErrDialogClosed = errors.New("dialog is closed")

// State of a modal dialog
type State int

const (
	Editing State = iota
	Closed
)

func (s State) String() string {
	if s == Closed {
		return "closed"
	}
	return "editing"
}

// Submitter sends a create-order command to the node
type Submitter interface {
	CreateOrder(ctx context.Context, form gmedchain.OrderForm) (gmedchain.Message, error)
}

// Params are the construction parameters of a create dialog. Identity and
// Peers are the snapshot taken by the view when the dialog was opened.
type Params struct {
	Identity  string
	Peers     []string
	Submitter Submitter
	Strict    bool
}

// CreateDialog is the order creation modal
type CreateDialog struct {
	Form      Form
	FormError bool

	identity  string
	peers     []string
	submitter Submitter
	strict    bool

	mu    sync.Mutex
	state State
}

func NewCreateDialog(p Params) *CreateDialog {
	return &CreateDialog{
		identity:  p.Identity,
		peers:     append([]string(nil), p.Peers...),
		submitter: p.Submitter,
		strict:    p.Strict,
		state:     Editing,
	}
}

// Identity is the node identity captured when the dialog opened
func (d *CreateDialog) Identity() string {
	return d.identity
}

// Peers returns a copy of the counterparty choices
func (d *CreateDialog) Peers() []string {
	return append([]string(nil), d.peers...)
}

func (d *CreateDialog) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Create validates the form and submits it.
//
// A non-positive price sets FormError, keeps the dialog editing and returns
// ErrInvalidPrice without touching the node. Otherwise the dialog is closed
// before this method returns and the create-order request runs in the
// background; its outcome arrives as exactly one ResultDialog on the
// returned channel, whatever the HTTP status.
func (d *CreateDialog) Create(ctx context.Context) (<-chan *ResultDialog, error) {
	d.mu.Lock()
	if d.state == Closed {
		d.mu.Unlock()
		return nil, ErrDialogClosed
	}
	if err := d.validate(); err != nil {
		d.FormError = true
		d.mu.Unlock()
		return nil, err
	}
	d.FormError = false
	d.state = Closed
	form := d.Form.orderForm()
	d.mu.Unlock()

	return submit(func() (gmedchain.Message, error) {
		return d.submitter.CreateOrder(ctx, form)
	}), nil
}

// Cancel dismisses the dialog without any request
func (d *CreateDialog) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = Closed
}

func (d *CreateDialog) validate() error {
	if !d.Form.PriceValid() {
		metrics.FormRejections.WithLabelValues("price").Inc()
		return ErrInvalidPrice
	}
	if d.strict {
		if err := d.Form.Strict(); err != nil {
			metrics.FormRejections.WithLabelValues("counterparty").Inc()
			return err
		}
	}
	return nil
}

// StatusUpdater sends a status transition command to the node
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, t gmedchain.Transition, linearID string) (gmedchain.Message, error)
}

// SubmitTransition runs a status transition in the background and routes
// its outcome to a result dialog the same way Create does.
func SubmitTransition(ctx context.Context, updater StatusUpdater, t gmedchain.Transition, linearID string) <-chan *ResultDialog {
	return submit(func() (gmedchain.Message, error) {
		return updater.UpdateStatus(ctx, t, linearID)
	})
}

// submit runs send once and delivers a single result dialog. A transport
// failure is shown the same way as a response body.
func submit(send func() (gmedchain.Message, error)) <-chan *ResultDialog {
	results := make(chan *ResultDialog, 1)
	go func() {
		defer close(results)
		msg, err := send()
		if err != nil {
			log.Debug().Err(err).Str("component", "dialog").Msg("command failed")
			msg = gmedchain.Message{Data: err.Error()}
		}
		results <- NewResultDialog(msg)
	}()
	return results
}
