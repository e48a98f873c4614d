package payment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderIdFormat(t *testing.T) {
	orderId := NewOrderId(12345)

	parts := strings.Split(orderId, "_")
	require.Len(t, parts, 3)
	assert.Equal(t, "tg", parts[0])
	assert.Equal(t, "12345", parts[1])
	assert.Len(t, parts[2], 8)
}

func TestNewOrderIdUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		orderId := NewOrderId(12345)
		assert.False(t, seen[orderId], "duplicate order id %s", orderId)
		seen[orderId] = true
	}
}

func TestParseOrderIdCurrent(t *testing.T) {
	info, err := ParseOrderId("tg_12345_abcdef01")

	require.NoError(t, err)
	assert.Equal(t, int64(12345), info.TelegramID)
	assert.Equal(t, 0.0, info.CoinAmount)
}

func TestParseOrderIdLegacy(t *testing.T) {
	info, err := ParseOrderId("user_12345_500")

	require.NoError(t, err)
	assert.Equal(t, int64(12345), info.TelegramID)
	assert.Equal(t, 500.0, info.CoinAmount)
}

func TestParseOrderIdRoundTrip(t *testing.T) {
	info, err := ParseOrderId(NewOrderId(987654321))

	require.NoError(t, err)
	assert.Equal(t, int64(987654321), info.TelegramID)
}

func TestParseOrderIdInvalid(t *testing.T) {
	for _, orderId := range []string{
		"",
		"12345",
		"tg_12345",
		"tg_abc_def",
		"user_12345_0",
		"user_12345_abc",
		"inv_12345_500",
		"tg_12345_abc_extra",
	} {
		_, err := ParseOrderId(orderId)
		assert.Errorf(t, err, "expected error for %q", orderId)
	}
}

func TestPackageLookup(t *testing.T) {
	p, ok := PackageByCoins(500)
	require.True(t, ok)
	assert.Equal(t, 25.0, p.PriceUSD)

	p, ok = PackageByUSD(150)
	require.True(t, ok)
	assert.Equal(t, 3000.0, p.Coins)

	_, ok = PackageByCoins(42)
	assert.False(t, ok)
	_, ok = PackageByUSD(42)
	assert.False(t, ok)
}
