package view

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ksred/gmedchain-web/internal/dialog"
	"github.com/ksred/gmedchain-web/internal/gmedchain"
)

// Backend is the read side of the node API the main view needs
type Backend interface {
	Me(ctx context.Context) (string, error)
	Peers(ctx context.Context) ([]string, error)
	Orders(ctx context.Context) ([]gmedchain.OrderState, error)
	MyOrders(ctx context.Context) ([]gmedchain.OrderState, error)
}

type Config struct {
	Backend   Backend
	Submitter dialog.Submitter
	// StrictForm makes opened create dialogs also require a counterparty
	StrictForm bool
}

// Loaded tells which parts of the view have been fetched successfully
type Loaded struct {
	Me       bool `json:"me"`
	Peers    bool `json:"peers"`
	Orders   bool `json:"orders"`
	MyOrders bool `json:"my_orders"`
}

// Snapshot is a read-only copy of the view state
type Snapshot struct {
	Me       string                 `json:"me,omitempty"`
	Peers    []string               `json:"peers"`
	Orders   []gmedchain.OrderState `json:"orders"`
	MyOrders []gmedchain.OrderState `json:"my_orders"`
	Loaded   Loaded                 `json:"loaded"`
}

// Controller backs the main view: node identity, peers and both order lists
type Controller struct {
	backend    Backend
	submitter  dialog.Submitter
	strictForm bool
	logger     zerolog.Logger

	mu       sync.RWMutex
	me       string
	peers    []string
	orders   []gmedchain.OrderState
	myOrders []gmedchain.OrderState
	loaded   Loaded
}

func NewController(cfg Config) *Controller {
	return &Controller{
		backend:    cfg.Backend,
		submitter:  cfg.Submitter,
		strictForm: cfg.StrictForm,
		logger:     log.With().Str("component", "view").Logger(),
	}
}

// Init fetches identity, peers and both order lists. The four requests are
// independent and run concurrently; Init returns once all have resolved.
// A failed fetch leaves its part of the view unset.
func (c *Controller) Init(ctx context.Context) {
	var wg sync.WaitGroup
	for _, fetch := range []func(context.Context){
		c.fetchMe,
		c.fetchPeers,
		c.FetchOrders,
		c.FetchMyOrders,
	} {
		wg.Add(1)
		go func(fetch func(context.Context)) {
			defer wg.Done()
			fetch(ctx)
		}(fetch)
	}
	wg.Wait()
}

// FetchOrders replaces the list of all orders with a fresh copy
func (c *Controller) FetchOrders(ctx context.Context) {
	orders, err := c.backend.Orders(ctx)
	if err != nil {
		c.logger.Debug().Err(err).Msg("failed to fetch orders")
		return
	}
	c.mu.Lock()
	c.orders = orders
	c.loaded.Orders = true
	c.mu.Unlock()
}

// FetchMyOrders replaces the list of own orders with a fresh copy
func (c *Controller) FetchMyOrders(ctx context.Context) {
	orders, err := c.backend.MyOrders(ctx)
	if err != nil {
		c.logger.Debug().Err(err).Msg("failed to fetch own orders")
		return
	}
	c.mu.Lock()
	c.myOrders = orders
	c.loaded.MyOrders = true
	c.mu.Unlock()
}

func (c *Controller) fetchMe(ctx context.Context) {
	me, err := c.backend.Me(ctx)
	if err != nil {
		c.logger.Debug().Err(err).Msg("failed to fetch identity")
		return
	}
	c.mu.Lock()
	c.me = me
	c.loaded.Me = true
	c.mu.Unlock()
}

func (c *Controller) fetchPeers(ctx context.Context) {
	peers, err := c.backend.Peers(ctx)
	if err != nil {
		c.logger.Debug().Err(err).Msg("failed to fetch peers")
		return
	}
	c.mu.Lock()
	c.peers = peers
	c.loaded.Peers = true
	c.mu.Unlock()
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		Me:       c.me,
		Peers:    clone(c.peers),
		Orders:   clone(c.orders),
		MyOrders: clone(c.myOrders),
		Loaded:   c.loaded,
	}
}

// clone copies s into a non-nil slice so empty lists encode as []
func clone[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}

// OpenCreateDialog opens the order creation dialog with the peers and
// identity known right now. Later fetches do not reach an open dialog.
func (c *Controller) OpenCreateDialog() *dialog.CreateDialog {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return dialog.NewCreateDialog(dialog.Params{
		Identity:  c.me,
		Peers:     c.peers,
		Submitter: c.submitter,
		Strict:    c.strictForm,
	})
}
