// Package store is the persistent vector index holding normative-document
// fragments. Collections live in a SQLite database; each fragment row keeps
// its text, string metadata and embedding.
package store

import "context"

// Document is one fragment to be indexed.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// QueryRequest asks for the NResults nearest fragments to each text.
type QueryRequest struct {
	Texts    []string
	NResults int
}

// QueryResult holds parallel arrays with one inner slice per query text.
// Distances are cosine distances (0 = identical), ascending.
type QueryResult struct {
	IDs       [][]string
	Metadatas [][]map[string]string
	Documents [][]string
	Distances [][]float64
}

// Collection is a named set of indexed fragments.
type Collection interface {
	Name() string
	Add(ctx context.Context, docs []Document) error
	Query(ctx context.Context, req QueryRequest) (*QueryResult, error)
	Count(ctx context.Context) (int, error)
}
