package devnode

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ksred/gmedchain-web/internal/gmedchain"
)

var (
	ErrUnknownParty      = errors.New("unknown party")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Config is the dev network as seen from this node
type Config struct {
	Me      string
	Peers   []string
	Shipper string
}

// DefaultConfig is the three-party network the frontend is developed against
func DefaultConfig() Config {
	return Config{
		Me:      "O=PartyA,L=London,C=GB",
		Peers:   []string{"O=PartyB,L=New York,C=US", "O=PartyC,L=Paris,C=FR"},
		Shipper: "O=PartyC,L=Paris,C=FR",
	}
}

// Service records orders and their status transitions
type Service struct {
	cfg Config
	db  *Database
}

func NewService(gormDB *gorm.DB, cfg Config) *Service {
	return &Service{
		cfg: cfg,
		db:  NewDatabase(gormDB),
	}
}

func (s *Service) Me() string {
	return s.cfg.Me
}

func (s *Service) Peers() []string {
	return append([]string(nil), s.cfg.Peers...)
}

func (s *Service) knows(party string) bool {
	for _, p := range s.cfg.Peers {
		if p == party {
			return true
		}
	}
	return false
}

// CreateOrder records a new order bought by this node from req.PartyName
func (s *Service) CreateOrder(req CreateOrderRequest) (*LedgerOrder, error) {
	if !s.knows(req.PartyName) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownParty, req.PartyName)
	}

	order := &LedgerOrder{
		LinearID:      uuid.New().String(),
		TxHash:        txHash(),
		SKU:           req.SKU,
		Name:          req.Name,
		Price:         req.Price,
		Qty:           req.Qty,
		ShippingCost:  req.ShippingCost,
		Status:        req.Status,
		BuyerAddress:  req.BuyerAddress,
		SellerAddress: req.SellerAddress,
		Buyer:         s.cfg.Me,
		Seller:        req.PartyName,
		Shipper:       s.cfg.Shipper,
	}
	if err := s.db.CreateOrder(order); err != nil {
		return nil, err
	}
	return order, nil
}

// Transition moves an order to status. Orders only advance one step at a
// time.
func (s *Service) Transition(linearID string, status gmedchain.Status) (*LedgerOrder, error) {
	order, err := s.db.GetOrder(linearID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, linearID)
	}
	if gmedchain.Status(order.Status) != status-1 {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, gmedchain.Status(order.Status), status)
	}

	hash := txHash()
	ok, err := s.db.AdvanceOrder(linearID, int(status-1), int(status), hash)
	if err != nil {
		return nil, err
	}
	// another transition got there first
	if !ok {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, gmedchain.Status(order.Status), status)
	}

	order.Status = int(status)
	order.TxHash = hash
	return order, nil
}

func (s *Service) Orders() ([]LedgerOrder, error) {
	return s.db.ListOrders()
}

// MyOrders returns the orders this node bought
func (s *Service) MyOrders() ([]LedgerOrder, error) {
	return s.db.ListOrdersByBuyer(s.cfg.Me)
}

func txHash() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
}

// GinHandlers serves the node REST API
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// NewRouter mounts the node API under /api/gmedchain
func NewRouter(service *Service) *gin.Engine {
	h := NewGinHandlers(service)

	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api/gmedchain")
	{
		api.GET("/me", h.MeHandler())
		api.GET("/peers", h.PeersHandler())
		api.GET("/orders", h.OrdersHandler())
		api.GET("/my-orders", h.MyOrdersHandler())
		api.GET("/status", h.StatusHandler())
		api.GET("/servertime", h.ServerTimeHandler())

		api.POST("/create-order", requireForm(), h.CreateOrderHandler())
		for _, t := range []gmedchain.Transition{
			gmedchain.ConfirmOrder,
			gmedchain.ConfirmPickup,
			gmedchain.ShipOrder,
			gmedchain.DeliverOrder,
			gmedchain.ConfirmDelivery,
		} {
			api.POST("/"+t.Endpoint, requireForm(), h.TransitionHandler(t))
		}
	}

	return r
}

func (h *GinHandlers) MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"me": h.service.Me()})
	}
}

func (h *GinHandlers) PeersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"peers": h.service.Peers()})
	}
}

func (h *GinHandlers) OrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := h.service.Orders()
		writeOrders(c, orders, err)
	}
}

func (h *GinHandlers) MyOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := h.service.MyOrders()
		writeOrders(c, orders, err)
	}
}

func (h *GinHandlers) StatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, "200")
	}
}

func (h *GinHandlers) ServerTimeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, time.Now().UTC().Format("2006-01-02T15:04:05.000000"))
	}
}

// CreateOrderHandler handles POST create-order. Replies are plain text:
// 201 with the committed transaction, 400 with the reason otherwise.
func (h *GinHandlers) CreateOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		req, msg := parseCreateOrder(c)
		if msg != "" {
			c.String(http.StatusBadRequest, msg)
			return
		}

		order, err := h.service.CreateOrder(req)
		if err != nil {
			log.Debug().Str("component", "devnode").Err(err).Msg("create-order rejected")
			c.String(http.StatusBadRequest, err.Error())
			return
		}

		c.String(http.StatusCreated, "Transaction id %s committed to ledger.\n %s", order.LinearID, order.LinearID)
	}
}

// statusMessages are the rejections for a status that does not match the
// endpoint
var statusMessages = map[gmedchain.Status]string{
	gmedchain.StatusConfirmed:         "Query parameter 'status' must be equals 1.\n",
	gmedchain.StatusReadyForPickup:    "Query parameter 'status' must be equals 1 (ReadyForPickup).\n",
	gmedchain.StatusShipped:           "Query parameter 'status' must be equals 3(Shipped).\n",
	gmedchain.StatusDelivered:         "Query parameter 'status' must be equals 4(Delivered).\n",
	gmedchain.StatusDeliveryConfirmed: "Query parameter 'status' must be equals 5(ConfirmDelivery).\n",
}

// TransitionHandler handles the POST endpoint of t
func (h *GinHandlers) TransitionHandler(t gmedchain.Transition) gin.HandlerFunc {
	return func(c *gin.Context) {
		linearID := c.PostForm("linearId")
		if linearID == "" {
			c.String(http.StatusBadRequest, "Query parameter 'linearId' must be provided.\n")
			return
		}
		status, err := strconv.Atoi(c.PostForm("status"))
		if err != nil || gmedchain.Status(status) != t.Status {
			c.String(http.StatusBadRequest, statusMessages[t.Status])
			return
		}

		order, err := h.service.Transition(linearID, t.Status)
		if err != nil {
			log.Debug().Str("component", "devnode").Str("endpoint", t.Endpoint).Err(err).Msg("transition rejected")
			c.String(http.StatusBadRequest, err.Error())
			return
		}

		c.String(http.StatusCreated, "Transaction id %s committed to ledger.\n SignedTransaction(id=%s)", order.TxHash, order.TxHash)
	}
}

// requireForm rejects commands that are not form encoded
func requireForm() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.ContentType() != gmedchain.FormContentType {
			c.String(http.StatusUnsupportedMediaType, "Content-Type must be %s\n", gmedchain.FormContentType)
			c.Abort()
			return
		}
		c.Next()
	}
}

func parseCreateOrder(c *gin.Context) (CreateOrderRequest, string) {
	req := CreateOrderRequest{
		PartyName:     c.PostForm("partyName"),
		SKU:           c.PostForm("sku"),
		Name:          c.PostForm("name"),
		BuyerAddress:  c.PostForm("buyerAddress"),
		SellerAddress: c.PostForm("sellerAddress"),
	}

	var err error
	if req.Price, err = decimal.NewFromString(c.PostForm("price")); err != nil {
		return req, "Query parameter 'price' must be a number.\n"
	}
	if req.Qty, err = strconv.Atoi(c.PostForm("qty")); err != nil {
		return req, "Query parameter 'qty' must be a number.\n"
	}
	if req.Status, err = strconv.Atoi(c.PostForm("status")); err != nil {
		return req, "Query parameter 'status' must be a number.\n"
	}
	if req.ShippingCost, err = decimal.NewFromString(c.PostForm("shippingCost")); err != nil {
		return req, "Query parameter 'shippingCost' must be a number.\n"
	}

	switch {
	case req.SKU == "":
		return req, "Query parameter 'sku' must be provided.\n"
	case req.Name == "":
		return req, "Query parameter 'productName' must be provided.\n"
	case !req.Price.IsPositive():
		return req, "Query parameter 'productPrice' must be non-negative.\n"
	case req.Qty <= 0:
		return req, "Query parameter 'qty' must be non-negative.\n"
	case req.ShippingCost.IsNegative():
		return req, "Query parameter 'ShippingCost' must be provided.\n"
	case req.BuyerAddress == "":
		return req, "Query parameter 'BuyerAddress' must be provided.\n"
	case req.SellerAddress == "":
		return req, "Query parameter 'sellerAddress' must be provided.\n"
	}
	return req, ""
}

func writeOrders(c *gin.Context, orders []LedgerOrder, err error) {
	if err != nil {
		log.Error().Str("component", "devnode").Err(err).Msg("failed to list orders")
		c.String(http.StatusInternalServerError, "failed to query vault\n")
		return
	}

	entries := make([]vaultEntry, 0, len(orders))
	for _, o := range orders {
		var e vaultEntry
		e.State.Data = o.state()
		e.State.Contract = "com.gmedchain.contract.OrderContract"
		e.State.Notary = "O=Notary,L=London,C=GB"
		e.Ref.TxHash = o.TxHash
		entries = append(entries, e)
	}
	c.JSON(http.StatusOK, entries)
}
