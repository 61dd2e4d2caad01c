package corpus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/violation-assistant/internal/store"
)

const sampleYAML = `
documents:
  - title: "СП 9.13130.2009"
    number: "9.13130.2009"
    clauses:
      - number: "4.1.3"
        text: "Огнетушители должны размещаться в легкодоступных местах"
        keywords: "огнетушитель"
      - number: "4.1.4"
        id: "custom-id"
        text: "Расстояние от возможного очага пожара до огнетушителя"
`

type recordingAdder struct {
	batches [][]store.Document
	failAt  int
}

func (r *recordingAdder) Add(_ context.Context, docs []store.Document) error {
	if r.failAt > 0 && len(r.batches)+1 == r.failAt {
		return errors.New("disk full")
	}
	r.batches = append(r.batches, docs)
	return nil
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	docs, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "СП 9.13130.2009", docs[0].Title)
	require.Len(t, docs[0].Clauses, 2)
	assert.Equal(t, "огнетушитель", docs[0].Clauses[0].Keywords)
}

func TestLoadFile_ShippedExample(t *testing.T) {
	docs, err := LoadFile(filepath.Join("..", "..", "corpus", "example.yaml"))
	require.NoError(t, err)
	assert.Len(t, docs, 3)
	assert.Len(t, ToIndexDocuments(docs), 4)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParse_Validation(t *testing.T) {
	_, err := Parse([]byte("documents: []"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no documents")

	_, err = Parse([]byte(`
documents:
  - title: ""
    clauses:
      - number: "1"
        text: " "
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title is required")
	assert.Contains(t, err.Error(), "text is required")

	_, err = Parse([]byte("documents: [unclosed"))
	assert.Error(t, err)
}

func TestClauseID(t *testing.T) {
	d := Document{Title: "СП 9.13130.2009", Number: "9.13130.2009"}
	a := ClauseID(d, Clause{Number: "4.1.3"})
	b := ClauseID(d, Clause{Number: "4.1.3"})
	c := ClauseID(d, Clause{Number: "4.1.4"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 36)
	assert.Equal(t, "explicit", ClauseID(d, Clause{ID: "explicit", Number: "4.1.3"}))
}

func TestToIndexDocuments(t *testing.T) {
	docs, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	rows := ToIndexDocuments(docs)
	require.Len(t, rows, 2)
	assert.Equal(t, map[string]string{
		"document_title":  "СП 9.13130.2009",
		"document_number": "9.13130.2009",
		"clause_number":   "4.1.3",
		"keywords":        "огнетушитель",
	}, rows[0].Metadata)
	assert.Equal(t, "custom-id", rows[1].ID)
	_, hasKeywords := rows[1].Metadata["keywords"]
	assert.False(t, hasKeywords)
}

func manyClauses(n int) []Document {
	d := Document{Title: "ГОСТ", Number: "1"}
	for i := 0; i < n; i++ {
		d.Clauses = append(d.Clauses, Clause{Number: fmt.Sprintf("%d", i), Text: "text"})
	}
	return []Document{d}
}

func TestIngest_Batches(t *testing.T) {
	adder := &recordingAdder{}
	n, err := Ingest(context.Background(), adder, manyClauses(130))
	require.NoError(t, err)
	assert.Equal(t, 130, n)
	require.Len(t, adder.batches, 3)
	assert.Len(t, adder.batches[0], 64)
	assert.Len(t, adder.batches[1], 64)
	assert.Len(t, adder.batches[2], 2)
}

func TestIngest_StopsOnError(t *testing.T) {
	adder := &recordingAdder{failAt: 2}
	n, err := Ingest(context.Background(), adder, manyClauses(100))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "add batch 64-100")
	assert.Equal(t, 64, n)
}
