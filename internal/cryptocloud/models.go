package cryptocloud

// CreateInvoiceRequest — запрос на выставление счёта.
type CreateInvoiceRequest struct {
	ShopID    string                 `json:"shop_id"`
	Amount    float64                `json:"amount"`
	Currency  string                 `json:"currency"`
	OrderID   string                 `json:"order_id"`
	AddFields map[string]interface{} `json:"add_fields,omitempty"`
}

// Invoice — выставленный счёт.
type Invoice struct {
	UUID    string  `json:"uuid"`
	Link    string  `json:"link"`
	Amount  float64 `json:"amount"`
	Status  string  `json:"status"`
	OrderID string  `json:"order_id"`
}

type createInvoiceResponse struct {
	Status string  `json:"status"`
	Result Invoice `json:"result"`
}

// InvoiceStatus — текущее состояние счёта при проверке оплаты.
// OrderID нужен ручной проверке: по нему устанавливается владелец счёта.
type InvoiceStatus struct {
	UUID    string  `json:"uuid"`
	Status  string  `json:"status"`
	Amount  float64 `json:"amount"`
	OrderID string  `json:"order_id"`
}

type invoiceInfoResponse struct {
	Status string          `json:"status"`
	Result []InvoiceStatus `json:"result"`
}

// Статусы счёта, которые считаются оплаченными.
func IsPaidStatus(status string) bool {
	return status == "paid" || status == "overpaid" || status == "success"
}
