package cryptocloud

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInvoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/invoice/create", r.URL.Path)
		assert.Equal(t, "Token test-key", r.Header.Get("Authorization"))

		var req CreateInvoiceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "shop-1", req.ShopID)
		assert.Equal(t, 5.0, req.Amount)
		assert.Equal(t, "tg_12345_abcdef01", req.OrderID)
		assert.Equal(t, 500.0, req.AddFields["coin_amount"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success",
			"result": map[string]interface{}{
				"uuid":     "INV-1",
				"link":     "https://pay.example/INV-1",
				"amount":   5.0,
				"status":   "created",
				"order_id": req.OrderID,
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "shop-1", "test-key")
	invoice, err := client.CreateInvoice(context.Background(), 5.0, "tg_12345_abcdef01", 500)
	require.NoError(t, err)
	assert.Equal(t, "INV-1", invoice.UUID)
	assert.Equal(t, "https://pay.example/INV-1", invoice.Link)
}

func TestGetInvoiceStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/invoice/merchant/info", r.URL.Path)

		var req map[string][]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"INV-1"}, req["uuids"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success",
			"result": []map[string]interface{}{{
				"uuid":     "INV-1",
				"status":   "paid",
				"amount":   5.0,
				"order_id": "tg_12345_abcdef01",
			}},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "shop-1", "test-key")
	status, err := client.GetInvoiceStatus(context.Background(), "INV-1")
	require.NoError(t, err)
	assert.Equal(t, "paid", status.Status)
	assert.Equal(t, 5.0, status.Amount)
	assert.Equal(t, "tg_12345_abcdef01", status.OrderID)
	assert.True(t, IsPaidStatus(status.Status))
}

func TestGetInvoiceStatusNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success",
			"result": []map[string]interface{}{},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "shop-1", "test-key")
	_, err := client.GetInvoiceStatus(context.Background(), "INV-404")
	assert.Error(t, err)
}
