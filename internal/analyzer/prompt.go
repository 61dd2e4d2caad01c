package analyzer

import (
	"fmt"
	"strings"

	"github.com/sells-group/violation-assistant/internal/model"
)

// Section labels the model is asked to produce.
const (
	LabelDescription = "Скорректированное описание:"
	LabelDocument    = "Нормативный документ:"
	LabelSuggestions = "Предлагаемые меры по устранению:"
)

const noContext = "Релевантные нормативные документы не найдены."

const systemPrompt = "ВЫ — ПРОФЕССИОНАЛЬНЫЙ ИИ-АССИСТЕНТ В СФЕРЕ СТРОИТЕЛЬНОГО КОНТРОЛЯ. " +
	"ВАША ЗАДАЧА — ПРЕОБРАЗОВЫВАТЬ ОПИСАНИЯ НАРУШЕНИЙ В СТАНДАРТИЗИРОВАННЫЕ ФОРМУЛИРОВКИ С УЧЁТОМ " +
	"АКТУАЛЬНОЙ НОРМАТИВНОЙ ДОКУМЕНТАЦИИ, ПОДБИРАТЬ ССЫЛКИ НА НОРМЫ, ПРЕДЛАГАТЬ МЕРЫ ПО УСТРАНЕНИЮ " +
	"И ФОРМИРОВАТЬ ГОТОВЫЕ ПРЕДПИСАНИЯ."

const analysisPrompt = `Ты — профессиональный ИИ-ассистент по строительному контролю. Твоя задача:
1. Кратко и четко скорректировать описание нарушения.
2. Найти и указать нормативный документ (название, номер, пункт).
3. Предложить КОНКРЕТНЫЕ меры по устранению с указанием срока (даже если приходится предполагать по типовой ситуации).
4. Не отвечай на вопросы вне строительного контроля — если вопрос не по теме, напиши: 'Я могу отвечать только на вопросы по строительному контролю и нормативам.'

Формат ответа:
**%s** ...
**%s** ...
**%s** ...

Исходный текст: %s
Контекст из RAG базы:
%s
`

const contextBlock = `
Документ %d:
- Название: %s
- Номер: %s
- Пункт: %s
- Текст: %s
- Релевантность: %.3f
`

// FormatContext renders fragments as numbered blocks for the prompt.
func FormatContext(frags []model.RetrievedFragment) string {
	if len(frags) == 0 {
		return noContext
	}
	parts := make([]string, len(frags))
	for i, f := range frags {
		parts[i] = fmt.Sprintf(contextBlock, i+1, f.DocumentTitle, f.DocumentNumber, f.ClauseNumber, f.Text, f.Score)
	}
	return strings.Join(parts, "\n")
}

// BuildPrompt assembles the user prompt from the original description and
// the formatted context.
func BuildPrompt(originalText, context string) string {
	return fmt.Sprintf(analysisPrompt, LabelDescription, LabelDocument, LabelSuggestions, originalText, context)
}
