package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"coinshop-tg-bot/internal/balance"
	"coinshop-tg-bot/internal/config"
	"coinshop-tg-bot/internal/cryptocloud"
	"coinshop-tg-bot/internal/database"
	"coinshop-tg-bot/internal/handler"
	"coinshop-tg-bot/internal/session"
	"coinshop-tg-bot/internal/wizard"
)

// main инициализирует все компоненты бота и запускает его.
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	config.InitConfig()

	pool, err := database.NewPool(ctx, config.DatabaseUrl())
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	err = database.RunMigrations(&database.MigrationConfig{Direction: "up", MigrationsPath: "./db/migrations"}, config.DatabaseUrl())
	if err != nil {
		panic(err)
	}

	// Хранилище сессий мастеров: Redis, либо память процесса, если Redis
	// не сконфигурирован.
	var sessionStore session.Store
	if config.RedisAddr() != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: config.RedisAddr()})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			panic(fmt.Errorf("redis is not reachable: %w", err))
		}
		sessionStore = session.NewRedisStore(redisClient)
		slog.Info("using redis session store", "addr", config.RedisAddr())
	} else {
		sessionStore = session.NewMemoryStore()
		slog.Warn("REDIS_ADDR is not set, wizard sessions are kept in memory")
	}

	userRepository := database.NewUserRepository(pool)
	categoryRepository := database.NewCategoryRepository(pool)
	productRepository := database.NewProductRepository(pool)
	purchaseRepository := database.NewPurchaseRepository(pool)
	newsletterRepository := database.NewNewsletterRepository(pool)
	invoiceRepository := database.NewInvoiceRepository(pool)
	balanceRepository := database.NewBalanceRepository(pool)

	balanceService := balance.NewService(balanceRepository, productRepository)
	cryptoClient := cryptocloud.NewClient(config.CryptoCloudUrl(), config.CryptoCloudShopId(), config.CryptoCloudApiKey())
	wizardEngine := wizard.NewEngine(sessionStore)

	b, err := bot.New(config.TelegramToken(), bot.WithWorkers(3))
	if err != nil {
		panic(err)
	}

	h := handler.NewHandler(balanceService, userRepository, categoryRepository,
		productRepository, purchaseRepository, newsletterRepository,
		invoiceRepository, cryptoClient, wizardEngine)

	me, err := b.GetMe(ctx)
	if err != nil {
		panic(err)
	}
	config.SetBotURL(fmt.Sprintf("https://t.me/%s", me.Username))

	_, err = b.SetChatMenuButton(ctx, &bot.SetChatMenuButtonParams{
		MenuButton: &models.MenuButtonCommands{
			Type: models.MenuButtonTypeCommands,
		},
	})
	if err != nil {
		panic(err)
	}

	_, err = b.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: []models.BotCommand{
			{Command: "start", Description: "Начать работу с ботом"},
			{Command: "catalog", Description: "Каталог товаров"},
			{Command: "profile", Description: "Профиль"},
			{Command: "balance", Description: "Баланс монет"},
			{Command: "purchases", Description: "Мои покупки"},
			{Command: "topup", Description: "Пополнить баланс"},
			{Command: "help", Description: "Как пользоваться магазином"},
			{Command: "support", Description: "Связаться с поддержкой"},
		},
		LanguageCode: "ru",
	})
	if err != nil {
		slog.Error("error setting bot commands", "error", err)
	}

	// Ежедневная сводка администраторам в 09:00.
	digestScheduler := cron.New()
	_, err = digestScheduler.AddFunc("0 9 * * *", func() {
		h.SendDailyDigest(b)
	})
	if err != nil {
		panic(err)
	}
	digestScheduler.Start()
	defer digestScheduler.Stop()

	// Данные callback-кнопок подобраны так, что ни один префикс не
	// является префиксом другого, поэтому порядок регистрации не важен.

	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.StartCommandHandler)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, h.HelpCommandHandler, h.CreateUserIfNotExistMiddleware)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/catalog", bot.MatchTypeExact, h.CatalogCommandHandler, h.CreateUserIfNotExistMiddleware)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/profile", bot.MatchTypeExact, h.ProfileCommandHandler, h.CreateUserIfNotExistMiddleware)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/balance", bot.MatchTypeExact, h.BalanceCommandHandler, h.CreateUserIfNotExistMiddleware)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/purchases", bot.MatchTypeExact, h.PurchasesCommandHandler, h.CreateUserIfNotExistMiddleware)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/topup", bot.MatchTypeExact, h.TopupCommandHandler, h.CreateUserIfNotExistMiddleware)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/check_payment", bot.MatchTypePrefix, h.CheckPaymentCommandHandler, h.CreateUserIfNotExistMiddleware)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/admin", bot.MatchTypeExact, h.AdminCommandHandler, handler.IsAdminMiddleware)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/support", bot.MatchTypeExact, h.SupportCommandHandler, h.CreateUserIfNotExistMiddleware)

	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, handler.CallbackStart, bot.MatchTypeExact, h.StartCallbackHandler, h.CreateUserIfNotExistMiddleware)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, handler.CallbackHelp, bot.MatchTypeExact, h.HelpCallbackHandler, h.CreateUserIfNotExistMiddleware)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, handler.CallbackCatalog, bot.MatchTypeExact, h.CatalogCallbackHandler, h.CreateUserIfNotExistMiddleware)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, handler.CallbackProductsPrefix, bot.MatchTypePrefix, h.ProductsPageCallbackHandler, h.CreateUserIfNotExistMiddleware)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, handler.CallbackProfile, bot.MatchTypeExact, h.ProfileCallbackHandler, h.CreateUserIfNotExistMiddleware)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, handler.CallbackPurchases, bot.MatchTypeExact, h.PurchasesCallbackHandler, h.CreateUserIfNotExistMiddleware)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, handler.CallbackTopup, bot.MatchTypeExact, h.TopupCallbackHandler, h.CreateUserIfNotExistMiddleware)

	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, handler.CallbackBuyConfirmPrefix, bot.MatchTypePrefix, h.BuyConfirmCallbackHandler, h.CreateUserIfNotExistMiddleware)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, handler.CallbackBuyPrefix, bot.MatchTypePrefix, h.BuyCallbackHandler, h.CreateUserIfNotExistMiddleware)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, handler.CallbackTopupConfirmPrefix, bot.MatchTypePrefix, h.TopupInvoiceCallbackHandler, h.CreateUserIfNotExistMiddleware)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, handler.CallbackTopupPrefix, bot.MatchTypePrefix, h.TopupPackageCallbackHandler, h.CreateUserIfNotExistMiddleware)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, handler.CallbackCheckPrefix, bot.MatchTypePrefix, h.CheckPaymentCallbackHandler, h.CreateUserIfNotExistMiddleware)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, handler.CallbackProductPrefix, bot.MatchTypePrefix, h.ProductCallbackHandler, h.CreateUserIfNotExistMiddleware)

	// Админ-панель.
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, handler.CallbackAdminProducts, bot.MatchTypeExact, h.AdminProductsCallbackHandler, handler.IsAdminMiddleware)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, handler.CallbackAdminAddProduct, bot.MatchTypeExact, h.AdminAddProductCallbackHandler, handler.IsAdminMiddleware)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, handler.CallbackAdminTogglePrefix, bot.MatchTypePrefix, h.AdminToggleProductCallbackHandler, handler.IsAdminMiddleware)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, handler.CallbackAdminEditPrefix, bot.MatchTypePrefix, h.AdminEditProductCallbackHandler, handler.IsAdminMiddleware)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, handler.CallbackAdminDelCatPrefix, bot.MatchTypePrefix, h.AdminDeleteCategoryCallbackHandler, handler.IsAdminMiddleware)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, handler.CallbackAdminDeletePrefix, bot.MatchTypePrefix, h.AdminDeleteProductCallbackHandler, handler.IsAdminMiddleware)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, handler.CallbackAdminCategories, bot.MatchTypeExact, h.AdminCategoriesCallbackHandler, handler.IsAdminMiddleware)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, handler.CallbackAdminAddCategory, bot.MatchTypeExact, h.AdminAddCategoryCallbackHandler, handler.IsAdminMiddleware)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, handler.CallbackAdminBalance, bot.MatchTypeExact, h.AdminBalanceCallbackHandler, handler.IsAdminMiddleware)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, handler.CallbackAdminStats, bot.MatchTypeExact, h.AdminStatsCallbackHandler, handler.IsAdminMiddleware)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, handler.CallbackAdminNewsletters, bot.MatchTypeExact, h.AdminNewslettersCallbackHandler, handler.IsAdminMiddleware)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, handler.CallbackNewsletterCreate, bot.MatchTypeExact, h.NewsletterCreateCallbackHandler, handler.IsAdminMiddleware)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, handler.CallbackNewsletterViewPrefix, bot.MatchTypePrefix, h.NewsletterViewCallbackHandler, handler.IsAdminMiddleware)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, handler.CallbackNewsletterSendPrefix, bot.MatchTypePrefix, h.NewsletterSendCallbackHandler, handler.IsAdminMiddleware)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, handler.CallbackNewsletterDelPrefix, bot.MatchTypePrefix, h.NewsletterDeleteCallbackHandler, handler.IsAdminMiddleware)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, handler.CallbackAdmin, bot.MatchTypeExact, h.AdminCallbackHandler, handler.IsAdminMiddleware)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, handler.CallbackWizardCancel, bot.MatchTypeExact, h.WizardCancelCallbackHandler, handler.IsAdminMiddleware)

	// Катч-олл для шагов мастеров: любое сообщение без команды.
	b.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		return update.Message != nil &&
			(update.Message.Text == "" || update.Message.Text[0] != '/')
	}, h.WizardMessageHandler, h.CreateUserIfNotExistMiddleware)

	// HTTP сервер для healthcheck.
	mux := http.NewServeMux()
	mux.Handle("/healthcheck", healthHandler(pool))
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.GetHealthCheckPort()),
		Handler: mux,
	}
	go func() {
		log.Printf("Health server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Health server error: %v", err)
		}
	}()

	slog.Info("Bot is starting...")
	b.Start(ctx)

	log.Println("Shutting down health server…")
	shutdownCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Health server shutdown error: %v", err)
	}
}

// healthHandler проверяет доступность базы данных.
func healthHandler(pool *pgxpool.Pool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		db := "ok"

		dbCtx, dbCancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer dbCancel()
		if err := pool.Ping(dbCtx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			status = "fail"
			db = "error: " + err.Error()
		} else {
			w.WriteHeader(http.StatusOK)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"%s","db":"%s","time":"%s"}`,
			status, db, time.Now().Format(time.RFC3339))
	})
}
