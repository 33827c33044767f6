package gmedchain

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNode(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/api/gmedchain"})
}

func TestClient_MeAndPeers(t *testing.T) {
	client := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		switch r.URL.Path {
		case "/api/gmedchain/me":
			io.WriteString(w, `{"me":"O=PartyA,L=London,C=GB"}`)
		case "/api/gmedchain/peers":
			io.WriteString(w, `{"peers":["O=PartyB,L=New York,C=US","O=PartyC,L=Paris,C=FR"]}`)
		default:
			http.NotFound(w, r)
		}
	})

	me, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "O=PartyA,L=London,C=GB", me)

	peers, err := client.Peers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"O=PartyB,L=New York,C=US", "O=PartyC,L=Paris,C=FR"}, peers)
}

func TestClient_OrdersAreNewestFirst(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "object keyed response keeps arrival order reversed",
			body: `{
				"z": {"state": {"data": {"order": {"productSku": "first"}}}},
				"a": {"state": {"data": {"order": {"productSku": "second"}}}},
				"m": {"state": {"data": {"order": {"productSku": "third"}}}}
			}`,
			want: []string{"third", "second", "first"},
		},
		{
			name: "array response",
			body: `[
				{"state": {"data": {"order": {"productSku": "first"}}}, "ref": {"txhash": "AA", "index": 0}},
				{"state": {"data": {"order": {"productSku": "second"}}}, "ref": {"txhash": "BB", "index": 0}}
			]`,
			want: []string{"second", "first"},
		},
		{
			name: "duplicates are kept",
			body: `[
				{"state": {"data": {"order": {"productSku": "same"}}}},
				{"state": {"data": {"order": {"productSku": "same"}}}}
			]`,
			want: []string{"same", "same"},
		},
		{
			name: "empty list",
			body: `{}`,
			want: []string{},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			client := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			})

			for _, fetch := range []func(context.Context) ([]OrderState, error){client.Orders, client.MyOrders} {
				states, err := fetch(context.Background())
				require.NoError(t, err)

				got := make([]string, 0, len(states))
				for _, s := range states {
					got = append(got, s.Order.SKU)
				}
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestClient_OrderStatePayload(t *testing.T) {
	client := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"state":{"data":{
			"order":{"productSku":"X1","productName":"Widget","productPrice":10.5,"qty":3,
				"shippingCost":2.0,"status":3,"buyerAddress":"A1","sellerAddress":"A2"},
			"buyer":"O=PartyA,L=London,C=GB","seller":"O=PartyB,L=New York,C=US",
			"shipper":"O=PartyC,L=Paris,C=FR",
			"linearId":{"externalId":null,"id":"4c5d6a1e-0000-4000-8000-000000000001"}}}}]`)
	})

	states, err := client.MyOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, states, 1)

	s := states[0]
	assert.Equal(t, "Widget", s.Order.Name)
	assert.True(t, decimal.RequireFromString("10.5").Equal(s.Order.Price))
	assert.Equal(t, 3, s.Order.Qty)
	assert.Equal(t, StatusShipped, s.Order.Status)
	assert.Equal(t, "O=PartyB,L=New York,C=US", s.Counterparty())
	assert.Equal(t, "4c5d6a1e-0000-4000-8000-000000000001", s.LinearID.String())
}

func TestClient_GetFailures(t *testing.T) {
	t.Run("non 200 status", func(t *testing.T) {
		client := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "vault unavailable", http.StatusInternalServerError)
		})
		_, err := client.Orders(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnexpectedStatus))
		assert.Contains(t, err.Error(), "vault unavailable")
	})

	t.Run("malformed list", func(t *testing.T) {
		client := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `"not a list"`)
		})
		_, err := client.Orders(context.Background())
		assert.True(t, errors.Is(err, ErrMalformedResponse))
	})

	t.Run("malformed identity", func(t *testing.T) {
		client := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"me":`)
		})
		_, err := client.Me(context.Background())
		assert.True(t, errors.Is(err, ErrMalformedResponse))
	})
}

func TestClient_CreateOrder(t *testing.T) {
	var gotBody, gotContentType string
	requests := 0
	client := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/gmedchain/create-order", r.URL.Path)
		gotContentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, "Transaction id 42 committed to ledger.\n")
	})

	msg, err := client.CreateOrder(context.Background(), exampleForm())
	require.NoError(t, err)
	assert.Equal(t, 1, requests)
	assert.Equal(t, FormContentType, gotContentType)
	assert.Equal(t, exampleBody, gotBody)
	assert.Equal(t, http.StatusCreated, msg.StatusCode)
	assert.True(t, msg.OK())
	assert.Equal(t, "Transaction id 42 committed to ledger.\n", msg.Data)
}

func TestClient_CreateOrderFailureIsAMessage(t *testing.T) {
	client := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, "Query parameter 'qty' must be non-negative.\n")
	})

	msg, err := client.CreateOrder(context.Background(), exampleForm())
	require.NoError(t, err)
	assert.False(t, msg.OK())
	assert.Equal(t, http.StatusBadRequest, msg.StatusCode)
	assert.Equal(t, "Query parameter 'qty' must be non-negative.\n", msg.Data)
}

func TestClient_CreateOrderTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := NewClient(Config{BaseURL: srv.URL})

	_, err := client.CreateOrder(context.Background(), exampleForm())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create-order")
}

func TestClient_UpdateStatus(t *testing.T) {
	var gotPath, gotBody string
	client := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusCreated)
	})

	msg, err := client.UpdateStatus(context.Background(), ShipOrder, "abc-123")
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, msg.StatusCode)
	assert.Equal(t, "/api/gmedchain/ship-order", gotPath)
	assert.Equal(t, "linearId=abc-123&status=3", gotBody)
}

func TestClient_StatusAndServerTime(t *testing.T) {
	client := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/status"):
			io.WriteString(w, "200")
		case strings.HasSuffix(r.URL.Path, "/servertime"):
			io.WriteString(w, "2026-10-15T09:30:00\n")
		}
	})

	status, err := client.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "200", status)

	ts, err := client.ServerTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2026-10-15T09:30:00", ts)
}
