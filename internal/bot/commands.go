package bot

// Command constants for Telegram bot commands.
const (
	CommandStart        = "/start"
	CommandSetCurrency  = "/set_currency"
	CommandSetInterval  = "/set_interval"
	CommandSetThreshold = "/set_threshold"
	CommandGetRate      = "/get_rate"
	CommandForecast     = "/forecast"
	CommandCancel       = "/cancel"
)

// Callback data constants for the inline main menu buttons.
const (
	CallbackMenuCurrency  = "menu_currency"
	CallbackMenuInterval  = "menu_interval"
	CallbackMenuThreshold = "menu_threshold"
	CallbackMenuRate      = "menu_rate"
	CallbackMenuForecast  = "menu_forecast"
)
