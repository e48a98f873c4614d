package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinshop-tg-bot/internal/database"
)

type fakeCreditor struct {
	mu       sync.Mutex
	balances map[int64]float64
	credits  []float64
}

func (f *fakeCreditor) Credit(_ context.Context, telegramId int64, amount float64) (*database.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.balances[telegramId]; !ok {
		return nil, database.ErrUserNotFound
	}
	f.balances[telegramId] += amount
	f.credits = append(f.credits, amount)
	return &database.User{TelegramID: telegramId, Balance: f.balances[telegramId]}, nil
}

type fakeInvoices struct {
	mu       sync.Mutex
	reserved map[string]bool
}

func (f *fakeInvoices) Reserve(_ context.Context, invoiceId string, _ int64, _ float64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reserved[invoiceId] {
		return false, nil
	}
	f.reserved[invoiceId] = true
	return true, nil
}

func (f *fakeInvoices) Release(_ context.Context, invoiceId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.reserved, invoiceId)
	return nil
}

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(context.Context) error {
	return f.err
}

func newTestServer(secret string) (*Server, *fakeCreditor, *fakeInvoices) {
	creditor := &fakeCreditor{balances: map[int64]float64{12345: 0}}
	invoices := &fakeInvoices{reserved: make(map[string]bool)}
	return NewServer(creditor, invoices, fakePinger{}, nil, secret), creditor, invoices
}

func signToken(t *testing.T, secret, invoiceId string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": invoiceId}).
		SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func postForm(server *Server, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/payment/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	return rec
}

func TestWebhookRejectsNonSuccessStatus(t *testing.T) {
	server, creditor, _ := newTestServer("secret")

	rec := postForm(server, url.Values{
		"status":     {"created"},
		"invoice_id": {"INV-1"},
		"order_id":   {"tg_12345_abcdef01"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, creditor.credits)
	assert.Equal(t, 0.0, creditor.balances[12345])
}

func TestWebhookCreditsUser(t *testing.T) {
	server, creditor, invoices := newTestServer("secret")

	rec := postForm(server, url.Values{
		"status":     {"success"},
		"invoice_id": {"INV-1"},
		"order_id":   {"tg_12345_abcdef01"},
		"token":      {signToken(t, "secret", "INV-1")},
		"add_fields": {`{"coin_amount": 500}`},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 500.0, creditor.balances[12345])
	assert.True(t, invoices.reserved["INV-1"])
	assert.Contains(t, rec.Body.String(), "credited")
}

func TestWebhookRejectsBadToken(t *testing.T) {
	server, creditor, _ := newTestServer("secret")

	rec := postForm(server, url.Values{
		"status":     {"success"},
		"invoice_id": {"INV-1"},
		"order_id":   {"tg_12345_abcdef01"},
		"token":      {signToken(t, "wrong-secret", "INV-1")},
		"add_fields": {`{"coin_amount": 500}`},
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, creditor.credits)
}

func TestWebhookRejectsMismatchedTokenId(t *testing.T) {
	server, creditor, _ := newTestServer("secret")

	rec := postForm(server, url.Values{
		"status":     {"success"},
		"invoice_id": {"INV-1"},
		"order_id":   {"tg_12345_abcdef01"},
		"token":      {signToken(t, "secret", "INV-2")},
		"add_fields": {`{"coin_amount": 500}`},
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, creditor.credits)
}

func TestWebhookReplayIsNoOp(t *testing.T) {
	server, creditor, _ := newTestServer("secret")

	form := url.Values{
		"status":     {"success"},
		"invoice_id": {"INV-1"},
		"order_id":   {"tg_12345_abcdef01"},
		"token":      {signToken(t, "secret", "INV-1")},
		"add_fields": {`{"coin_amount": 500}`},
	}

	first := postForm(server, form)
	second := postForm(server, form)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, 500.0, creditor.balances[12345])
	assert.Len(t, creditor.credits, 1)
}

func TestWebhookConcurrentDeliveriesCreditOnce(t *testing.T) {
	server, creditor, invoices := newTestServer("secret")

	form := url.Values{
		"status":     {"success"},
		"invoice_id": {"INV-1"},
		"order_id":   {"tg_12345_abcdef01"},
		"token":      {signToken(t, "secret", "INV-1")},
		"add_fields": {`{"coin_amount": 500}`},
	}

	codes := make([]int, 4)
	var wg sync.WaitGroup
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = postForm(server, form).Code
		}(i)
	}
	wg.Wait()

	for _, code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
	assert.Equal(t, 500.0, creditor.balances[12345])
	assert.Len(t, creditor.credits, 1)
	assert.True(t, invoices.reserved["INV-1"])
}

func TestWebhookFailedCreditReleasesReservation(t *testing.T) {
	server, creditor, invoices := newTestServer("")

	form := url.Values{
		"status":     {"success"},
		"invoice_id": {"INV-9"},
		"order_id":   {"tg_99999_abcdef01"},
		"add_fields": {`{"coin_amount": 500}`},
	}

	rec := postForm(server, form)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unresolvable_user")
	assert.False(t, invoices.reserved["INV-9"])

	// пользователь появился, повторная доставка доводит начисление до конца
	creditor.balances[99999] = 0
	rec = postForm(server, form)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 500.0, creditor.balances[99999])
	assert.True(t, invoices.reserved["INV-9"])
}

func TestWebhookHealthcheck(t *testing.T) {
	server, _, _ := newTestServer("")

	req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookHealthcheckDatabaseDown(t *testing.T) {
	creditor := &fakeCreditor{balances: map[int64]float64{12345: 0}}
	invoices := &fakeInvoices{reserved: make(map[string]bool)}
	server := NewServer(creditor, invoices, fakePinger{err: context.DeadlineExceeded}, nil, "")

	req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "database unreachable")
}

func TestWebhookEmptySecretSkipsVerification(t *testing.T) {
	server, creditor, _ := newTestServer("")

	rec := postForm(server, url.Values{
		"status":     {"success"},
		"invoice_id": {"INV-1"},
		"order_id":   {"tg_12345_abcdef01"},
		"token":      {"garbage"},
		"add_fields": {`{"coin_amount": 500}`},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 500.0, creditor.balances[12345])
}

func TestWebhookLegacyOrderIdCarriesAmount(t *testing.T) {
	server, creditor, _ := newTestServer("")

	rec := postForm(server, url.Values{
		"status":     {"success"},
		"invoice_id": {"INV-2"},
		"order_id":   {"user_12345_1000"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1000.0, creditor.balances[12345])
}

func TestWebhookResolvesAmountFromPackagePrice(t *testing.T) {
	server, creditor, _ := newTestServer("")

	rec := postForm(server, url.Values{
		"status":        {"success"},
		"invoice_id":    {"INV-3"},
		"order_id":      {"tg_12345_abcdef01"},
		"amount_crypto": {"150"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3000.0, creditor.balances[12345])
}

func TestWebhookUnresolvableUser(t *testing.T) {
	server, creditor, _ := newTestServer("")

	rec := postForm(server, url.Values{
		"status":     {"success"},
		"invoice_id": {"INV-4"},
		"order_id":   {"nonsense"},
		"add_fields": {`{"coin_amount": 500}`},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unresolvable_user")
	assert.Empty(t, creditor.credits)
}

func TestWebhookUnresolvableAmount(t *testing.T) {
	server, creditor, _ := newTestServer("")

	rec := postForm(server, url.Values{
		"status":        {"success"},
		"invoice_id":    {"INV-5"},
		"order_id":      {"tg_12345_abcdef01"},
		"amount_crypto": {"13.37"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unresolvable_amount")
	assert.Empty(t, creditor.credits)
}

func TestWebhookJSONBody(t *testing.T) {
	server, creditor, _ := newTestServer("")

	body := `{"status":"success","invoice_id":"INV-6","order_id":"tg_12345_abcdef01","add_fields":"{\"coin_amount\": 500}"}`
	req := httptest.NewRequest(http.MethodPost, "/payment/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 500.0, creditor.balances[12345])
}

func TestWebhookTestEndpoint(t *testing.T) {
	server, _, _ := newTestServer("")

	req := httptest.NewRequest(http.MethodGet, "/webhook/test", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "reachable")
}
