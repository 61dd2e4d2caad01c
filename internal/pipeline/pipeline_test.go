package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/violation-assistant/internal/model"
)

type mockSearcher struct{ mock.Mock }

func (m *mockSearcher) Search(ctx context.Context, query string, topK int) []model.RetrievedFragment {
	args := m.Called(ctx, query, topK)
	return args.Get(0).([]model.RetrievedFragment)
}

type mockAnalyst struct{ mock.Mock }

func (m *mockAnalyst) Analyze(ctx context.Context, text string, frags []model.RetrievedFragment) model.AnalysisResult {
	args := m.Called(ctx, text, frags)
	return args.Get(0).(model.AnalysisResult)
}

func (m *mockAnalyst) Model() string { return "claude-sonnet-4-5-20250929" }

type mockLogger struct{ mock.Mock }

func (m *mockLogger) LogViolation(ctx context.Context, rec *model.ViolationRecord, resp, modelID string) bool {
	return m.Called(ctx, rec, resp, modelID).Bool(0)
}

func (m *mockLogger) LogError(ctx context.Context, message string, userID *int64) bool {
	return m.Called(ctx, message, userID).Bool(0)
}

func topFragment() model.RetrievedFragment {
	return model.RetrievedFragment{
		ID: "1", DocumentTitle: "СП 9.13130.2009", DocumentNumber: "9.13130.2009",
		ClauseNumber: "4.1.3", Text: "Огнетушители...", Score: 0.95,
	}
}

func successResult() model.AnalysisResult {
	return model.AnalysisResult{
		CorrectedDescription: "Отсутствует огнетушитель",
		DocumentInfo:         "СП 9.13130.2009, 9.13130.2009, 4.1.3",
		Suggestions:          "Установить огнетушитель",
		Success:              true,
	}
}

func TestRun_Success(t *testing.T) {
	frags := []model.RetrievedFragment{topFragment()}
	s := &mockSearcher{}
	s.On("Search", mock.Anything, "отсутствие огнетушителя", 3).Return(frags)
	a := &mockAnalyst{}
	a.On("Analyze", mock.Anything, "отсутствие огнетушителя", frags).Return(successResult())
	l := &mockLogger{}
	l.On("LogViolation", mock.Anything, mock.MatchedBy(func(rec *model.ViolationRecord) bool {
		return rec.OriginalText == "отсутствие огнетушителя" &&
			len(rec.Fragments) == 1 &&
			rec.DocumentTitle == "СП 9.13130.2009" &&
			rec.ClauseNumber == "4.1.3"
	}), mock.AnythingOfType("string"), "claude-sonnet-4-5-20250929").Return(true)

	out, err := New(s, a, l, 3).Run(context.Background(), "  отсутствие огнетушителя ")
	require.NoError(t, err)
	assert.True(t, out.Logged)
	assert.True(t, out.Result.Success)
	assert.Contains(t, out.Response, "✅ **Анализ нарушения завершен**")
	assert.Contains(t, out.Response, "_СП 9.13130.2009, 9.13130.2009, 4.1.3_")
	require.Len(t, out.Phases, 3)
	assert.Equal(t, "retrieve", out.Phases[0].Name)
	assert.Equal(t, "log", out.Phases[2].Name)
	l.AssertExpectations(t)
}

func TestRun_LoggingFailureDoesNotFailTurn(t *testing.T) {
	s := &mockSearcher{}
	s.On("Search", mock.Anything, mock.Anything, mock.Anything).Return([]model.RetrievedFragment{})
	a := &mockAnalyst{}
	a.On("Analyze", mock.Anything, mock.Anything, mock.Anything).Return(successResult())
	l := &mockLogger{}
	l.On("LogViolation", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false)

	out, err := New(s, a, l, 3).Run(context.Background(), "нет перил")
	require.NoError(t, err)
	assert.False(t, out.Logged)
	assert.True(t, out.Result.Success)
}

func TestRun_FailedAnalysisStillLogged(t *testing.T) {
	s := &mockSearcher{}
	s.On("Search", mock.Anything, mock.Anything, mock.Anything).Return([]model.RetrievedFragment{topFragment()})
	a := &mockAnalyst{}
	a.On("Analyze", mock.Anything, mock.Anything, mock.Anything).Return(model.AnalysisResult{
		CorrectedDescription: "Ошибка анализа нарушения",
		DocumentInfo:         "Не удалось определить нормативный документ",
		Suggestions:          "Попробуйте повторить описание нарушения",
		ErrorMessage:         "timeout",
	})
	l := &mockLogger{}
	l.On("LogViolation", mock.Anything, mock.MatchedBy(func(rec *model.ViolationRecord) bool {
		return rec.Error == "timeout" && rec.DocumentTitle == ""
	}), mock.Anything, mock.Anything).Return(true)

	out, err := New(s, a, l, 3).Run(context.Background(), "нет перил")
	require.NoError(t, err)
	assert.Contains(t, out.Response, "❌ **Ошибка анализа нарушения**")
	assert.Contains(t, out.Response, "**Ошибка:** timeout")
	l.AssertExpectations(t)
}

func TestRun_NilLogger(t *testing.T) {
	s := &mockSearcher{}
	s.On("Search", mock.Anything, mock.Anything, mock.Anything).Return([]model.RetrievedFragment{})
	a := &mockAnalyst{}
	a.On("Analyze", mock.Anything, mock.Anything, mock.Anything).Return(successResult())

	p := New(s, a, nil, 3)
	out, err := p.Run(context.Background(), "нет перил")
	require.NoError(t, err)
	assert.False(t, out.Logged)
	assert.Len(t, out.Phases, 2)
	assert.False(t, p.LogError(context.Background(), "x", nil))
}

func TestRun_EmptyAndCancelled(t *testing.T) {
	p := New(&mockSearcher{}, &mockAnalyst{}, nil, 3)

	_, err := p.Run(context.Background(), "   ")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Run(ctx, "нет перил")
	assert.Error(t, err)
}

func TestLogError_Forwards(t *testing.T) {
	l := &mockLogger{}
	uid := int64(5)
	l.On("LogError", mock.Anything, "boom", &uid).Return(true)

	assert.True(t, New(&mockSearcher{}, &mockAnalyst{}, l, 3).LogError(context.Background(), "boom", &uid))
}

func TestRenderResponse(t *testing.T) {
	got := RenderResponse(successResult(), "нет огнетушителя")
	assert.Contains(t, got, "📝 **Исходный текст:**\n`нет огнетушителя`")
	assert.Contains(t, got, "✍️ **Скорректированное описание:**\nОтсутствует огнетушитель")
	assert.Contains(t, got, "❗ **Предлагаемые меры по устранению:**\nУстановить огнетушитель")
	assert.NotContains(t, got, "%!")

	got = RenderResponse(model.AnalysisResult{ErrorMessage: "boom"}, "x")
	assert.Contains(t, got, "**Исходный текст:** x")
	assert.Contains(t, got, "**Ошибка:** boom")
}
