package razorpay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_CreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/orders", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key_id", user)
		assert.Equal(t, "key_secret", pass)

		var req CreateOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(299900), req.Amount)
		assert.Equal(t, "INR", req.Currency)

		json.NewEncoder(w).Encode(Order{
			ID: "order_1", Amount: req.Amount, Currency: req.Currency,
			Receipt: req.Receipt, Status: "created",
		})
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{APIBase: srv.URL, KeyID: "key_id", KeySecret: "key_secret"})
	order, err := c.CreateOrder(context.Background(), &CreateOrderRequest{
		Amount: 299900, Currency: "INR", Receipt: "cfa_u_1",
	})
	require.NoError(t, err)
	assert.Equal(t, "order_1", order.ID)
	assert.Equal(t, "created", order.Status)
}

func TestClient_CreateOrder_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"description":"amount missing"}}`))
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{APIBase: srv.URL, KeyID: "key_id", KeySecret: "key_secret"})
	_, err := c.CreateOrder(context.Background(), &CreateOrderRequest{Currency: "INR"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=400")
}
