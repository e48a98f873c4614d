package payment

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// OrderInfo — данные, извлечённые из идентификатора заказа.
// CoinAmount больше нуля только для устаревшего формата, где число монет
// зашито в сам идентификатор.
type OrderInfo struct {
	TelegramID int64
	CoinAmount float64
}

// NewOrderId строит идентификатор заказа вида tg_<telegramID>_<суффикс>.
// Случайный суффикс делает идентификатор уникальным даже при повторной
// покупке одного пакета.
func NewOrderId(telegramId int64) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("tg_%d_%s", telegramId, suffix)
}

// ParseOrderId разбирает идентификатор заказа. Поддерживаются текущий формат
// tg_<id>_<суффикс> и устаревший user_<id>_<монеты>, заказы которого могли
// быть оплачены до обновления.
func ParseOrderId(orderId string) (OrderInfo, error) {
	parts := strings.Split(orderId, "_")
	if len(parts) != 3 {
		return OrderInfo{}, fmt.Errorf("unrecognized order id format: %q", orderId)
	}

	switch parts[0] {
	case "tg":
		telegramId, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return OrderInfo{}, fmt.Errorf("invalid telegram id in order %q: %w", orderId, err)
		}
		return OrderInfo{TelegramID: telegramId}, nil
	case "user":
		telegramId, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return OrderInfo{}, fmt.Errorf("invalid telegram id in order %q: %w", orderId, err)
		}
		coins, err := strconv.ParseFloat(parts[2], 64)
		if err != nil || coins <= 0 {
			return OrderInfo{}, fmt.Errorf("invalid coin amount in order %q", orderId)
		}
		return OrderInfo{TelegramID: telegramId, CoinAmount: coins}, nil
	default:
		return OrderInfo{}, fmt.Errorf("unrecognized order id format: %q", orderId)
	}
}
