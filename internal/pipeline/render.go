package pipeline

import (
	"fmt"

	"github.com/sells-group/violation-assistant/internal/model"
)

const successTemplate = `✅ **Анализ нарушения завершен**

📝 **Исходный текст:**
` + "`%s`" + `

✍️ **Скорректированное описание:**
%s

📖 **Нормативный документ:**
_%s_

❗ **Предлагаемые меры по устранению:**
%s

---
Нажмите кнопку ниже для нового нарушения:`

const failureTemplate = `❌ **Ошибка анализа нарушения**

**Исходный текст:** %s

**Ошибка:** %s

Попробуйте отправить более подробное описание нарушения.`

// RenderResponse formats an analysis as the Markdown reply shown to the user.
func RenderResponse(res model.AnalysisResult, originalText string) string {
	if !res.Success {
		return fmt.Sprintf(failureTemplate, originalText, res.ErrorMessage)
	}
	return fmt.Sprintf(successTemplate, originalText, res.CorrectedDescription, res.DocumentInfo, res.Suggestions)
}
