package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookRequests считает обработанные платёжные уведомления по исходу.
	WebhookRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_requests_total",
		Help: "Payment webhook notifications by outcome.",
	}, []string{"outcome"})

	// CoinsCredited — монеты, начисленные через платёжные уведомления.
	CoinsCredited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coins_credited_total",
		Help: "Total coins credited via payment notifications.",
	})

	// NewsletterSent считает отправленные сообщения рассылок по результату.
	NewsletterSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsletter_messages_total",
		Help: "Newsletter messages by delivery result.",
	}, []string{"result"})
)
