package bot

import kit "agroguru/internal/transport"

// MenuCommands is the command list shown in Telegram's "/" menu.
func MenuCommands() []kit.BotCommand {
	return []kit.BotCommand{
		{Command: "start", Description: "Главное меню"},
		{Command: "calendar", Description: "Работы на ближайшие дни: /calendar [дней]"},
		{Command: "season", Description: "Календарь на весь сезон"},
		{Command: "checklist", Description: "Чек-листы по этапам"},
		{Command: "dose", Description: "Калькулятор удобрений: /dose [этап]"},
		{Command: "settings", Description: "Мои параметры"},
		{Command: "setdate", Description: "Дата посадки: /setdate ГГГГ-ММ-ДД"},
		{Command: "setarea", Description: "Площадь: /setarea м²"},
		{Command: "reset", Description: "Сбросить параметры"},
		{Command: "help", Description: "Справка"},
	}
}
