package conversation

import "fmt"

// ReportCallback is the callback payload of the report button.
const ReportCallback = "new_violation"

// ReportButtonText labels the inline report button.
const ReportButtonText = "🚨 Сообщить о нарушении"

const welcomeText = `🔍 **Привет, инспектор!**

Я помогу проанализировать нарушения и найти соответствующие нормативные документы.

💡 **Как использовать:**
1. Нажмите кнопку "Сообщить о нарушении"
2. Отправьте голосовое сообщение с описанием нарушения
3. Получите анализ с корректировкой формулировки и ссылками на нормативные документы

❗ **Поддерживаемые форматы:**
• Голосовые сообщения (до %d секунд)
• Текстовые сообщения

Нажмите кнопку ниже, чтобы начать:`

const helpText = `📋 **Справка по использованию бота**

**Основные команды:**
/start - Запуск бота
/help - Показать эту справку

**Процесс работы:**
1. **Отправка нарушения** - Нажмите "Сообщить о нарушении" и отправьте голосовое сообщение
2. **Обработка** - Бот преобразует речь в текст и проанализирует нарушение
3. **Результат** - Вы получите:
   • Скорректированное описание нарушения
   • Ссылку на нормативный документ
   • Предложения по устранению

**Требования к голосовым сообщениям:**
• Длительность: до %d секунд
• Язык: русский
• Качество: четкая речь

**Примеры нарушений:**
• "Отсутствие огнетушителя в помещении"
• "Неисправная электропроводка"
• "Отсутствие знаков безопасности"

Если возникли проблемы, попробуйте отправить сообщение заново.`

const instructionText = `🎤 **Отправьте голосовое сообщение**

Опишите нарушение голосовым сообщением.

❗**Рекомендации:**
• Говорите четко и понятно
• Опишите конкретное нарушение
• Укажите место и обстоятельства

**Примеры:**
• "В цехе отсутствует огнетушитель"
• "На лестнице нет перил"
• "Электропроводка не изолирована"

⏱️ **Максимальная длительность:** %d секунд`

const (
	msgProcessingVoice = "🔄 Обрабатываю голосовое сообщение..."
	msgAnalyzingVoice  = "🔍 Анализирую нарушение..."
	msgAnalyzingText   = "🔄 Анализирую нарушение..."

	msgVoiceInvalid  = "❌ %s\n\nПопробуйте отправить голосовое сообщение заново."
	msgSpeechFailed  = "❌ Ошибка распознавания речи: %s\n\nПопробуйте отправить сообщение заново или используйте текстовый ввод."
	msgSpeechTooPoor = "❌ Распознанный текст слишком короткий или неполный: %s\n\nПопробуйте отправить более четкое голосовое сообщение."
	msgTextInvalid   = "❌ %s\n\nПожалуйста, отправьте голосовое сообщение или более подробное текстовое описание."
	msgTurnFailed    = "❌ Произошла ошибка при обработке: %s\n\nПопробуйте позже."
	msgOtherInput    = "❌ Пожалуйста, отправьте голосовое сообщение или текстовое описание нарушения."
)

// TurnFailedMessage is the plain-text reply sent when a report turn fails.
func TurnFailedMessage(reason string) string {
	return fmt.Sprintf(msgTurnFailed, reason)
}
