package handler

const (
	CallbackStart     = "start"
	CallbackHelp      = "help"
	CallbackCatalog   = "catalog"
	CallbackProfile   = "profile"
	CallbackPurchases = "purchases"
	CallbackTopup     = "topup"

	// Постраничный список товаров: products:<categoryId>:<page>.
	// Нулевая категория — товары без категории.
	CallbackProductsPrefix = "products:"

	// Префиксы не пересекаются друг с другом: подбор обработчика в
	// go-telegram/bot не гарантирует порядок, и buy_ как префикс
	// buy_confirm_ перехватывал бы подтверждения покупки.
	CallbackProductPrefix      = "product_"
	CallbackBuyPrefix          = "buy_"
	CallbackBuyConfirmPrefix   = "confirm_buy_"
	CallbackTopupPrefix        = "topup_"
	CallbackTopupConfirmPrefix = "confirm_topup_"
	CallbackCheckPrefix        = "check_"

	CallbackAdmin                = "admin"
	CallbackAdminProducts        = "admin_products"
	CallbackAdminAddProduct      = "admin_add_product"
	CallbackAdminTogglePrefix    = "admin_toggle_"
	CallbackAdminEditPrefix      = "admin_edit_"
	CallbackAdminDeletePrefix    = "admin_delete_"
	CallbackAdminCategories      = "admin_categories"
	CallbackAdminAddCategory     = "admin_add_category"
	CallbackAdminDelCatPrefix    = "admin_delcat_"
	CallbackAdminBalance         = "admin_balance"
	CallbackAdminStats           = "admin_stats"
	CallbackAdminNewsletters     = "admin_newsletters"
	CallbackNewsletterCreate     = "newsletter_create"
	CallbackNewsletterViewPrefix = "newsletter_view_"
	CallbackNewsletterSendPrefix = "newsletter_send_"
	CallbackNewsletterDelPrefix  = "newsletter_delete_"
	CallbackWizardCancel         = "wizard_cancel"
)
