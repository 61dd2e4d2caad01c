package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/violation-assistant/internal/store"
)

type mockQuerier struct {
	mock.Mock
}

func (m *mockQuerier) Query(ctx context.Context, req store.QueryRequest) (*store.QueryResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.QueryResult), args.Error(1)
}

func TestSearch_MapsMetadataAndScore(t *testing.T) {
	q := &mockQuerier{}
	q.On("Query", mock.Anything, store.QueryRequest{Texts: []string{"отсутствие огнетушителя"}, NResults: 3}).
		Return(&store.QueryResult{
			IDs: [][]string{{"a", "b"}},
			Metadatas: [][]map[string]string{{
				{"document_title": "СП 9.13130.2009", "document_number": "9.13130.2009", "clause_number": "4.1.3", "keywords": "огнетушитель"},
				{"document_title": "СП 1.13130.2020"},
			}},
			Documents: [][]string{{"Огнетушители должны размещаться", "Эвакуационные пути"}},
			Distances: [][]float64{{0.05, 0.4}},
		}, nil)

	frags := New(q).Search(context.Background(), "отсутствие огнетушителя", 0)

	require.Len(t, frags, 2)
	assert.Equal(t, "a", frags[0].ID)
	assert.Equal(t, "СП 9.13130.2009", frags[0].DocumentTitle)
	assert.Equal(t, "9.13130.2009", frags[0].DocumentNumber)
	assert.Equal(t, "4.1.3", frags[0].ClauseNumber)
	assert.Equal(t, "огнетушитель", frags[0].Keywords)
	assert.Equal(t, "Огнетушители должны размещаться", frags[0].Text)
	assert.InDelta(t, 0.95, frags[0].Score, 1e-9)

	assert.Equal(t, "СП 1.13130.2020", frags[1].DocumentTitle)
	assert.Empty(t, frags[1].DocumentNumber)
	assert.Empty(t, frags[1].ClauseNumber)
	assert.InDelta(t, 0.6, frags[1].Score, 1e-9)
	q.AssertExpectations(t)
}

func TestSearch_ScoreClampedToUnitRange(t *testing.T) {
	q := &mockQuerier{}
	q.On("Query", mock.Anything, mock.Anything).
		Return(&store.QueryResult{
			IDs:       [][]string{{"near", "opposite"}},
			Distances: [][]float64{{0, 1.4}},
		}, nil)

	frags := New(q).Search(context.Background(), "нет перил", 3)

	require.Len(t, frags, 2)
	assert.Equal(t, "near", frags[0].ID)
	assert.InDelta(t, 1.0, frags[0].Score, 1e-9)
	assert.Equal(t, "opposite", frags[1].ID)
	assert.Zero(t, frags[1].Score)
}

func TestSearch_ZeroResults(t *testing.T) {
	q := &mockQuerier{}
	q.On("Query", mock.Anything, mock.Anything).
		Return(&store.QueryResult{IDs: [][]string{{}}, Metadatas: [][]map[string]string{{}}, Documents: [][]string{{}}, Distances: [][]float64{{}}}, nil)

	frags := New(q).Search(context.Background(), "query", 3)
	assert.NotNil(t, frags)
	assert.Empty(t, frags)
}

func TestSearch_QueryErrorFailsSoft(t *testing.T) {
	q := &mockQuerier{}
	q.On("Query", mock.Anything, mock.Anything).Return(nil, errors.New("database is locked"))

	frags := New(q).Search(context.Background(), "query", 5)
	assert.NotNil(t, frags)
	assert.Empty(t, frags)
}

func TestSearch_StableDescendingOrder(t *testing.T) {
	q := &mockQuerier{}
	q.On("Query", mock.Anything, store.QueryRequest{Texts: []string{"q"}, NResults: 4}).
		Return(&store.QueryResult{
			IDs:       [][]string{{"low", "tie1", "high", "tie2"}},
			Distances: [][]float64{{0.9, 0.3, 0.1, 0.3}},
		}, nil)

	frags := New(q).Search(context.Background(), "q", 4)

	ids := make([]string, len(frags))
	for i, f := range frags {
		ids[i] = f.ID
		assert.Empty(t, f.Text)
		assert.Empty(t, f.DocumentTitle)
	}
	assert.Equal(t, []string{"high", "tie1", "tie2", "low"}, ids)
}

func TestSearch_NilResult(t *testing.T) {
	q := &mockQuerier{}
	q.On("Query", mock.Anything, mock.Anything).Return(nil, nil)

	frags := New(q).Search(context.Background(), "q", 1)
	assert.NotNil(t, frags)
	assert.Empty(t, frags)
}
