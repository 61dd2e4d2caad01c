// Package retrieval finds the normative-document fragments most similar to a
// violation description.
package retrieval

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/violation-assistant/internal/model"
	"github.com/sells-group/violation-assistant/internal/store"
)

// DefaultTopK is the number of fragments returned when the caller passes
// a non-positive topK.
const DefaultTopK = 3

// Metadata keys stored alongside every indexed fragment.
const (
	MetaDocumentTitle  = "document_title"
	MetaDocumentNumber = "document_number"
	MetaClauseNumber   = "clause_number"
	MetaKeywords       = "keywords"
)

// Querier is the part of a vector-index collection the retriever needs.
type Querier interface {
	Query(ctx context.Context, req store.QueryRequest) (*store.QueryResult, error)
}

// Retriever searches one collection of the vector index.
type Retriever struct {
	collection Querier
}

// New creates a Retriever over the given collection.
func New(collection Querier) *Retriever {
	return &Retriever{collection: collection}
}

// Search returns up to topK fragments ordered by descending score. It never
// fails: index errors are logged and yield an empty slice.
func (r *Retriever) Search(ctx context.Context, query string, topK int) []model.RetrievedFragment {
	if topK <= 0 {
		topK = DefaultTopK
	}
	log := zap.L().With(zap.String("component", "retrieval"), zap.Int("top_k", topK))

	res, err := r.collection.Query(ctx, store.QueryRequest{
		Texts:    []string{query},
		NResults: topK,
	})
	if err != nil {
		log.Warn("retrieval: index query failed", zap.Error(err))
		return []model.RetrievedFragment{}
	}

	frags := toFragments(res)
	sort.SliceStable(frags, func(i, j int) bool {
		return frags[i].Score > frags[j].Score
	})
	if len(frags) > topK {
		frags = frags[:topK]
	}

	log.Debug("retrieval: fragments found", zap.Int("fragments", len(frags)))
	for i, f := range frags {
		log.Debug("retrieval: fragment",
			zap.Int("rank", i+1),
			zap.String("id", f.ID),
			zap.String("citation", f.Citation()),
			zap.Float64("score", f.Score),
		)
	}
	return frags
}

// toFragments flattens the first query's result arrays. Missing documents,
// metadata or distances are treated as empty values.
func toFragments(res *store.QueryResult) []model.RetrievedFragment {
	out := []model.RetrievedFragment{}
	if res == nil || len(res.IDs) == 0 {
		return out
	}

	ids := res.IDs[0]
	var (
		metas []map[string]string
		docs  []string
		dists []float64
	)
	if len(res.Metadatas) > 0 {
		metas = res.Metadatas[0]
	}
	if len(res.Documents) > 0 {
		docs = res.Documents[0]
	}
	if len(res.Distances) > 0 {
		dists = res.Distances[0]
	}

	for i, id := range ids {
		var meta map[string]string
		if i < len(metas) {
			meta = metas[i]
		}
		var doc string
		if i < len(docs) {
			doc = docs[i]
		}
		var dist float64
		if i < len(dists) {
			dist = dists[i]
		}
		out = append(out, model.RetrievedFragment{
			ID:             id,
			DocumentTitle:  meta[MetaDocumentTitle],
			DocumentNumber: meta[MetaDocumentNumber],
			ClauseNumber:   meta[MetaClauseNumber],
			Keywords:       meta[MetaKeywords],
			Text:           doc,
			Score:          relevance(dist),
		})
	}
	return out
}

// relevance maps a cosine distance in [0,2] to a score in [0,1]. Vectors
// pointing away from the query score 0.
func relevance(dist float64) float64 {
	return min(max(1-dist, 0), 1)
}
