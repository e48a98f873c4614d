package cryptocloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client представляет клиент для работы с API CryptoCloud
type Client struct {
	httpClient *http.Client
	baseURL    string
	shopId     string
	apiKey     string
}

// NewClient создает новый клиент CryptoCloud
func NewClient(baseURL, shopId, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: baseURL,
		shopId:  shopId,
		apiKey:  apiKey,
	}
}

// CreateInvoice выставляет счёт на оплату пакета монет. В add_fields
// передаётся число монет, чтобы вебхук мог начислить их без обращения
// к таблице пакетов.
func (c *Client) CreateInvoice(ctx context.Context, amountUSD float64, orderId string, coinAmount float64) (*Invoice, error) {
	request := CreateInvoiceRequest{
		ShopID:   c.shopId,
		Amount:   amountUSD,
		Currency: "USD",
		OrderID:  orderId,
		AddFields: map[string]interface{}{
			"coin_amount": coinAmount,
		},
	}

	reqBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invoice request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/invoice/create", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("error reading response body: %w", readErr)
		}
		return nil, fmt.Errorf("invoice create failed with status %d: %s", resp.StatusCode, string(body))
	}

	var invoiceResp createInvoiceResponse
	if err := json.NewDecoder(resp.Body).Decode(&invoiceResp); err != nil {
		return nil, fmt.Errorf("failed to decode invoice response: %w", err)
	}
	if invoiceResp.Status != "success" {
		return nil, fmt.Errorf("invoice create returned status %q", invoiceResp.Status)
	}

	return &invoiceResp.Result, nil
}

// GetInvoiceStatus возвращает состояние счёта по его идентификатору.
// Используется ручной проверкой оплаты из бота.
func (c *Client) GetInvoiceStatus(ctx context.Context, invoiceUUID string) (*InvoiceStatus, error) {
	reqBody, err := json.Marshal(map[string][]string{"uuids": {invoiceUUID}})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal status request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/invoice/merchant/info", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("error reading response body: %w", readErr)
		}
		return nil, fmt.Errorf("invoice status failed with status %d: %s", resp.StatusCode, string(body))
	}

	var infoResp invoiceInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&infoResp); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}
	if len(infoResp.Result) == 0 {
		return nil, fmt.Errorf("invoice %s not found", invoiceUUID)
	}

	return &infoResp.Result[0], nil
}
