package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type config struct {
	telegramToken      string
	databaseURL        string
	redisAddr          string
	adminTelegramIds   map[int64]struct{}
	adminContact       string
	cryptoCloudURL     string
	cryptoCloudShopId  string
	cryptoCloudApiKey  string
	cryptoCloudSecret  string
	defaultRecipientId int64
	webhookHost        string
	webhookPort        int
	healthCheckPort    int
	botURL             string
}

var conf config

// InitConfig загружает конфигурацию из переменных окружения.
// Файл .env подхватывается, если присутствует рядом с бинарником.
func InitConfig() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	conf.telegramToken = mustEnv("TELEGRAM_TOKEN")
	conf.databaseURL = mustEnv("DATABASE_URL")
	conf.redisAddr = os.Getenv("REDIS_ADDR")

	conf.adminTelegramIds = parseAdminIds(os.Getenv("ADMIN_TELEGRAM_IDS"))
	if len(conf.adminTelegramIds) == 0 {
		slog.Warn("ADMIN_TELEGRAM_IDS is empty, admin features are disabled")
	}
	conf.adminContact = os.Getenv("ADMIN_CONTACT")

	conf.cryptoCloudURL = getEnvDefault("CRYPTOCLOUD_URL", "https://api.cryptocloud.plus/v2")
	conf.cryptoCloudShopId = os.Getenv("CRYPTOCLOUD_SHOP_ID")
	conf.cryptoCloudApiKey = os.Getenv("CRYPTOCLOUD_API_KEY")
	conf.cryptoCloudSecret = os.Getenv("CRYPTOCLOUD_SECRET_KEY")
	if conf.cryptoCloudSecret == "" {
		slog.Warn("CRYPTOCLOUD_SECRET_KEY is not set, webhook token verification is DISABLED")
	}

	conf.defaultRecipientId = parseInt64(os.Getenv("DEFAULT_RECIPIENT_ID"))
	conf.webhookHost = getEnvDefault("WEBHOOK_HOST", "0.0.0.0")
	conf.webhookPort = parseInt(getEnvDefault("WEBHOOK_PORT", "8000"))
	conf.healthCheckPort = parseInt(getEnvDefault("HEALTH_CHECK_PORT", "8080"))
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic("required environment variable " + key + " is not set")
	}
	return v
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		panic("invalid numeric value: " + s)
	}
	return v
}

func parseInt64(s string) int64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		panic("invalid numeric value: " + s)
	}
	return v
}

// parseAdminIds разбирает список ID через запятую в неизменяемое множество.
// Множество строится один раз на старте, обработчики проверяют его через IsAdmin.
func parseAdminIds(raw string) map[int64]struct{} {
	ids := make(map[int64]struct{})
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			slog.Warn("skipping invalid admin id", "value", part)
			continue
		}
		ids[id] = struct{}{}
	}
	return ids
}

func TelegramToken() string { return conf.telegramToken }

func DatabaseUrl() string { return conf.databaseURL }

func RedisAddr() string { return conf.redisAddr }

// IsAdmin проверяет, входит ли пользователь в список администраторов.
func IsAdmin(telegramId int64) bool {
	_, ok := conf.adminTelegramIds[telegramId]
	return ok
}

// GetAdminTelegramIds возвращает копию списка администраторов.
func GetAdminTelegramIds() []int64 {
	ids := make([]int64, 0, len(conf.adminTelegramIds))
	for id := range conf.adminTelegramIds {
		ids = append(ids, id)
	}
	return ids
}

func AdminContact() string { return conf.adminContact }

func CryptoCloudUrl() string { return conf.cryptoCloudURL }

func CryptoCloudShopId() string { return conf.cryptoCloudShopId }

func CryptoCloudApiKey() string { return conf.cryptoCloudApiKey }

func CryptoCloudSecret() string { return conf.cryptoCloudSecret }

func IsCryptoCloudEnabled() bool {
	return conf.cryptoCloudShopId != "" && conf.cryptoCloudApiKey != ""
}

// DefaultRecipientId - получатель дублирующих уведомлений об обработанных
// платежах, обычно администратор.
func DefaultRecipientId() int64 { return conf.defaultRecipientId }

func WebhookHost() string { return conf.webhookHost }

func WebhookPort() int { return conf.webhookPort }

func GetHealthCheckPort() int { return conf.healthCheckPort }

func SetBotURL(url string) { conf.botURL = url }

func GetBotURL() string { return conf.botURL }
