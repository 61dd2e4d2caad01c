// Package corpus loads normative documents from YAML and writes their clauses
// into the vector index.
package corpus

import (
	"context"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/violation-assistant/internal/retrieval"
	"github.com/sells-group/violation-assistant/internal/store"
)

// BatchSize is the number of clauses embedded per index write.
const BatchSize = 64

// fragmentNamespace seeds deterministic clause IDs.
var fragmentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("violation-assistant/fragments"))

// File is the top-level YAML layout.
type File struct {
	Documents []Document `yaml:"documents"`
}

// Document is one normative document.
type Document struct {
	Title   string   `yaml:"title"`
	Number  string   `yaml:"number"`
	Clauses []Clause `yaml:"clauses"`
}

// Clause is a single numbered clause of a document.
type Clause struct {
	ID       string `yaml:"id,omitempty"`
	Number   string `yaml:"number"`
	Text     string `yaml:"text"`
	Keywords string `yaml:"keywords,omitempty"`
}

// Adder is the part of a collection ingest writes to.
type Adder interface {
	Add(ctx context.Context, docs []store.Document) error
}

// LoadFile reads and validates a corpus file.
func LoadFile(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "corpus: read %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates corpus YAML.
func Parse(data []byte) ([]Document, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "corpus: parse yaml")
	}
	if len(f.Documents) == 0 {
		return nil, eris.New("corpus: no documents")
	}

	var errs []string
	for i, d := range f.Documents {
		if strings.TrimSpace(d.Title) == "" {
			errs = append(errs, eris.Errorf("documents[%d]: title is required", i).Error())
		}
		for j, c := range d.Clauses {
			if strings.TrimSpace(c.Text) == "" {
				errs = append(errs, eris.Errorf("documents[%d].clauses[%d]: text is required", i, j).Error())
			}
		}
	}
	if len(errs) > 0 {
		return nil, eris.Errorf("corpus: %s", strings.Join(errs, "; "))
	}
	return f.Documents, nil
}

// ClauseID returns the clause's explicit ID, or a UUIDv5 derived from the
// document title and clause number so re-ingesting updates in place.
func ClauseID(d Document, c Clause) string {
	if c.ID != "" {
		return c.ID
	}
	return uuid.NewSHA1(fragmentNamespace, []byte(d.Title+"\x00"+d.Number+"\x00"+c.Number)).String()
}

// ToIndexDocuments flattens documents into index rows.
func ToIndexDocuments(docs []Document) []store.Document {
	var out []store.Document
	for _, d := range docs {
		for _, c := range d.Clauses {
			meta := map[string]string{
				retrieval.MetaDocumentTitle:  d.Title,
				retrieval.MetaDocumentNumber: d.Number,
				retrieval.MetaClauseNumber:   c.Number,
			}
			if c.Keywords != "" {
				meta[retrieval.MetaKeywords] = c.Keywords
			}
			out = append(out, store.Document{
				ID:       ClauseID(d, c),
				Text:     strings.TrimSpace(c.Text),
				Metadata: meta,
			})
		}
	}
	return out
}

// Ingest writes every clause into the collection in batches and returns the
// number of clauses written.
func Ingest(ctx context.Context, coll Adder, docs []Document) (int, error) {
	rows := ToIndexDocuments(docs)
	written := 0
	for start := 0; start < len(rows); start += BatchSize {
		end := min(start+BatchSize, len(rows))
		if err := coll.Add(ctx, rows[start:end]); err != nil {
			return written, eris.Wrapf(err, "corpus: add batch %d-%d", start, end)
		}
		written += end - start
		zap.L().Info("corpus: batch indexed",
			zap.Int("from", start),
			zap.Int("to", end),
			zap.Int("total", len(rows)),
		)
	}
	return written, nil
}
