package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"coinshop-tg-bot/internal/database"
	"coinshop-tg-bot/internal/metrics"
	"coinshop-tg-bot/internal/payment"
)

// Notification — платёжное уведомление от CryptoCloud. Приходит либо
// формой, либо JSON-телом в зависимости от настроек кабинета.
type Notification struct {
	Status       string `json:"status"`
	InvoiceID    string `json:"invoice_id"`
	OrderID      string `json:"order_id"`
	Token        string `json:"token"`
	AmountCrypto string `json:"amount_crypto"`
	Currency     string `json:"currency"`
	AddFields    string `json:"add_fields"`
}

type response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type creditor interface {
	Credit(ctx context.Context, telegramId int64, amount float64) (*database.User, error)
}

type invoiceStore interface {
	Reserve(ctx context.Context, invoiceId string, telegramId int64, coinAmount float64) (bool, error)
	Release(ctx context.Context, invoiceId string) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

// NotifyFunc сообщает пользователю в Telegram о зачислении монет.
type NotifyFunc func(ctx context.Context, telegramId int64, coinAmount, newBalance float64)

// Server обрабатывает платёжные уведомления и начисляет монеты.
type Server struct {
	balance  creditor
	invoices invoiceStore
	db       pinger
	notify   NotifyFunc
	secret   string
}

func NewServer(balance creditor, invoices invoiceStore, db pinger, notify NotifyFunc, secret string) *Server {
	return &Server{balance: balance, invoices: invoices, db: db, notify: notify, secret: secret}
}

// Router собирает маршруты сервиса уведомлений.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Post("/payment/webhook", s.handleNotification)
	r.Get("/webhook/test", s.handleTest)
	r.Get("/healthcheck", s.handleHealthcheck)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{Status: "ok", Message: "webhook endpoint is reachable"})
}

func (s *Server) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		slog.Error("healthcheck database ping failed", "error", err)
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response{Status: "error", Message: "database unreachable"})
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{Status: "ok", Message: "healthy"})
}

func (s *Server) handleNotification(w http.ResponseWriter, r *http.Request) {
	notification, err := parseNotification(r)
	if err != nil {
		metrics.WebhookRequests.WithLabelValues("bad_request").Inc()
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response{Status: "error", Message: "malformed notification body"})
		return
	}

	log := slog.With("invoiceId", notification.InvoiceID, "orderId", notification.OrderID)

	if !strings.EqualFold(notification.Status, "success") {
		log.Info("rejecting notification with non-success status", "status", notification.Status)
		metrics.WebhookRequests.WithLabelValues("invalid_status").Inc()
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response{Status: "error", Message: "invalid_status"})
		return
	}

	if err := VerifyToken(notification.Token, s.secret, notification.InvoiceID); err != nil {
		log.Warn("notification token rejected", "error", err)
		metrics.WebhookRequests.WithLabelValues("invalid_token").Inc()
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response{Status: "error", Message: "invalid token"})
		return
	}

	order, err := payment.ParseOrderId(notification.OrderID)
	if err != nil {
		log.Warn("cannot resolve user from order id", "error", err)
		metrics.WebhookRequests.WithLabelValues("unresolvable_user").Inc()
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response{Status: "error", Message: "unresolvable_user"})
		return
	}

	coinAmount := resolveCoinAmount(notification, order)
	if coinAmount <= 0 {
		log.Warn("cannot resolve coin amount")
		metrics.WebhookRequests.WithLabelValues("unresolvable_amount").Inc()
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response{Status: "error", Message: "unresolvable_amount"})
		return
	}

	// Счёт резервируется до начисления: при гонке двух доставок одного
	// уведомления вставку выигрывает ровно одна, вторая отвечает no-op.
	reserved, err := s.invoices.Reserve(r.Context(), notification.InvoiceID, order.TelegramID, coinAmount)
	if err != nil {
		log.Error("failed to reserve invoice", "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response{Status: "error", Message: "internal error"})
		return
	}
	if !reserved {
		log.Info("duplicate notification, invoice already processed")
		metrics.WebhookRequests.WithLabelValues("duplicate").Inc()
		render.Status(r, http.StatusOK)
		render.JSON(w, r, response{Status: "ok", Message: "already processed"})
		return
	}

	user, err := s.balance.Credit(r.Context(), order.TelegramID, coinAmount)
	if err != nil {
		// Резерв снимается, чтобы повторная доставка провайдера смогла
		// довести начисление до конца.
		if releaseErr := s.invoices.Release(r.Context(), notification.InvoiceID); releaseErr != nil {
			log.Error("failed to release invoice reservation", "error", releaseErr)
		}
		if errors.Is(err, database.ErrUserNotFound) {
			log.Warn("order refers to unknown user", "telegramId", order.TelegramID)
			metrics.WebhookRequests.WithLabelValues("unresolvable_user").Inc()
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response{Status: "error", Message: "unresolvable_user"})
			return
		}
		log.Error("failed to credit balance", "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response{Status: "error", Message: "internal error"})
		return
	}

	metrics.WebhookRequests.WithLabelValues("credited").Inc()
	metrics.CoinsCredited.Add(coinAmount)
	log.Info("payment processed", "telegramId", order.TelegramID, "coinAmount", coinAmount)

	if s.notify != nil {
		s.notify(r.Context(), order.TelegramID, coinAmount, user.Balance)
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{Status: "ok", Message: "credited"})
}

// parseNotification принимает уведомление формой или JSON-телом.
func parseNotification(r *http.Request) (*Notification, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		var n Notification
		if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
			return nil, err
		}
		return &n, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	return &Notification{
		Status:       r.PostFormValue("status"),
		InvoiceID:    r.PostFormValue("invoice_id"),
		OrderID:      r.PostFormValue("order_id"),
		Token:        r.PostFormValue("token"),
		AmountCrypto: r.PostFormValue("amount_crypto"),
		Currency:     r.PostFormValue("currency"),
		AddFields:    r.PostFormValue("add_fields"),
	}, nil
}

// resolveCoinAmount определяет число монет к зачислению: сначала из
// add_fields счёта, затем из устаревшего формата заказа, в последнюю
// очередь по сумме оплаты через таблицу пакетов.
func resolveCoinAmount(n *Notification, order payment.OrderInfo) float64 {
	if n.AddFields != "" {
		var fields map[string]interface{}
		if err := json.Unmarshal([]byte(n.AddFields), &fields); err == nil {
			switch v := fields["coin_amount"].(type) {
			case float64:
				if v > 0 {
					return v
				}
			case string:
				if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
					return parsed
				}
			}
		}
	}

	if order.CoinAmount > 0 {
		return order.CoinAmount
	}

	if amountUSD, err := strconv.ParseFloat(n.AmountCrypto, 64); err == nil {
		if pkg, ok := payment.PackageByUSD(amountUSD); ok {
			return pkg.Coins
		}
	}
	return 0
}
