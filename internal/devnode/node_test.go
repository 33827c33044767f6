package devnode

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksred/gmedchain-web/internal/gmedchain"
)

func newTestNode(t *testing.T) (*Service, *gmedchain.Client) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New()), DefaultConfig())
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(svc))
	t.Cleanup(srv.Close)

	return svc, gmedchain.NewClient(gmedchain.Config{BaseURL: srv.URL + "/api/gmedchain"})
}

func widget(counterparty, sku string) gmedchain.OrderForm {
	return gmedchain.OrderForm{
		Counterparty:  counterparty,
		SKU:           sku,
		Price:         decimal.NewFromInt(10),
		Name:          "Widget",
		Qty:           "3",
		ShippingCost:  "2",
		BuyerAddress:  "1 Buyer St",
		SellerAddress: "2 Seller Rd",
	}
}

func TestNode_Identity(t *testing.T) {
	_, client := newTestNode(t)
	ctx := context.Background()

	me, err := client.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "O=PartyA,L=London,C=GB", me)

	peers, err := client.Peers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"O=PartyB,L=New York,C=US", "O=PartyC,L=Paris,C=FR"}, peers)

	status, err := client.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "200", status)

	_, err = client.ServerTime(ctx)
	assert.NoError(t, err)
}

func TestNode_CreateOrder(t *testing.T) {
	_, client := newTestNode(t)
	ctx := context.Background()

	orders, err := client.Orders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)

	for _, sku := range []string{"A1", "B2"} {
		msg, err := client.CreateOrder(ctx, widget("O=PartyB,L=New York,C=US", sku))
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, msg.StatusCode)
		assert.True(t, strings.HasPrefix(msg.Data, "Transaction id "))
		assert.Contains(t, msg.Data, "committed to ledger.\n")
	}

	orders, err = client.Orders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "B2", orders[0].Order.SKU)
	assert.Equal(t, "A1", orders[1].Order.SKU)

	got := orders[1]
	assert.Equal(t, "O=PartyA,L=London,C=GB", got.Buyer)
	assert.Equal(t, "O=PartyB,L=New York,C=US", got.Seller)
	assert.Equal(t, "O=PartyC,L=Paris,C=FR", got.Shipper)
	assert.Equal(t, gmedchain.StatusCreated, got.Order.Status)
	assert.True(t, decimal.NewFromInt(10).Equal(got.Order.Price))
	assert.NotEmpty(t, got.LinearID.ID)

	mine, err := client.MyOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestNode_CreateOrderRejections(t *testing.T) {
	_, client := newTestNode(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*gmedchain.OrderForm)
		want   string
	}{
		{"missing sku", func(f *gmedchain.OrderForm) { f.SKU = "" }, "Query parameter 'sku' must be provided.\n"},
		{"missing name", func(f *gmedchain.OrderForm) { f.Name = "" }, "Query parameter 'productName' must be provided.\n"},
		{"zero price", func(f *gmedchain.OrderForm) { f.Price = decimal.Zero }, "Query parameter 'productPrice' must be non-negative.\n"},
		{"zero qty", func(f *gmedchain.OrderForm) { f.Qty = "0" }, "Query parameter 'qty' must be non-negative.\n"},
		{"blank qty", func(f *gmedchain.OrderForm) { f.Qty = "" }, "Query parameter 'qty' must be a number.\n"},
		{"garbage qty", func(f *gmedchain.OrderForm) { f.Qty = "abc" }, "Query parameter 'qty' must be a number.\n"},
		{"blank shipping", func(f *gmedchain.OrderForm) { f.ShippingCost = "" }, "Query parameter 'shippingCost' must be a number.\n"},
		{"negative shipping", func(f *gmedchain.OrderForm) { f.ShippingCost = "-1" }, "Query parameter 'ShippingCost' must be provided.\n"},
		{"missing buyer address", func(f *gmedchain.OrderForm) { f.BuyerAddress = "" }, "Query parameter 'BuyerAddress' must be provided.\n"},
		{"missing seller address", func(f *gmedchain.OrderForm) { f.SellerAddress = "" }, "Query parameter 'sellerAddress' must be provided.\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := widget("O=PartyB,L=New York,C=US", "X1")
			tt.mutate(&form)

			msg, err := client.CreateOrder(ctx, form)
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, msg.StatusCode)
			assert.Equal(t, tt.want, msg.Data)
		})
	}

	t.Run("unknown party", func(t *testing.T) {
		msg, err := client.CreateOrder(ctx, widget("O=Nobody,L=Nowhere,C=XX", "X1"))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, msg.StatusCode)
		assert.Contains(t, msg.Data, "unknown party")
	})
}

func TestNode_Transitions(t *testing.T) {
	svc, client := newTestNode(t)
	ctx := context.Background()

	_, err := client.CreateOrder(ctx, widget("O=PartyB,L=New York,C=US", "X1"))
	require.NoError(t, err)
	orders, err := client.Orders(ctx)
	require.NoError(t, err)
	linearID := orders[0].LinearID.String()

	msg, err := client.UpdateStatus(ctx, gmedchain.ShipOrder, linearID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, msg.StatusCode)
	assert.Contains(t, msg.Data, "invalid status transition")

	status := gmedchain.StatusCreated
	for {
		next, ok := gmedchain.NextTransition(status)
		if !ok {
			break
		}
		msg, err := client.UpdateStatus(ctx, next, linearID)
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, msg.StatusCode, msg.Data)
		status = next.Status
	}

	order, err := svc.db.GetOrder(linearID)
	require.NoError(t, err)
	assert.Equal(t, int(gmedchain.StatusDeliveryConfirmed), order.Status)

	msg, err = client.UpdateStatus(ctx, gmedchain.ConfirmOrder, "missing")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, msg.StatusCode)
	assert.Contains(t, msg.Data, "order not found")
}

func TestNode_ConcurrentTransitionAppliesOnce(t *testing.T) {
	svc, _ := newTestNode(t)

	order, err := svc.CreateOrder(CreateOrderRequest{
		PartyName: "O=PartyB,L=New York,C=US", SKU: "X1", Name: "Widget",
		Price: decimal.NewFromInt(10), Qty: 3, BuyerAddress: "a", SellerAddress: "b",
	})
	require.NoError(t, err)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Transition(order.LinearID, gmedchain.StatusConfirmed)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if assert.ErrorIs(t, err, ErrInvalidTransition) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, rejected)

	got, err := svc.db.GetOrder(order.LinearID)
	require.NoError(t, err)
	assert.Equal(t, int(gmedchain.StatusConfirmed), got.Status)
}

func TestNode_TransitionStatusMismatch(t *testing.T) {
	_, client := newTestNode(t)

	// confirm-order body carrying the ship-order status
	msg, err := client.UpdateStatus(context.Background(), gmedchain.Transition{Endpoint: "confirm-order", Status: gmedchain.StatusShipped}, "abc")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, msg.StatusCode)
	assert.Equal(t, "Query parameter 'status' must be equals 1.\n", msg.Data)
}

func TestNode_RequiresFormContentType(t *testing.T) {
	svc, _ := newTestNode(t)
	router := NewRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/gmedchain/create-order", strings.NewReader(`{"sku":"X1"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestNode_EmptyListIsArray(t *testing.T) {
	svc, _ := newTestNode(t)
	router := NewRouter(svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/gmedchain/my-orders", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}
