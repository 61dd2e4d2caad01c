package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/violation-assistant/internal/embedding"
)

// SQLiteIndex implements the vector index using modernc.org/sqlite.
type SQLiteIndex struct {
	db       *sql.DB
	embedder embedding.Embedder
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string, embedder embedding.Embedder) (*SQLiteIndex, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteIndex{db: db, embedder: embedder}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS collections (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL UNIQUE,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS fragments (
	collection_id INTEGER NOT NULL REFERENCES collections(id),
	id            TEXT NOT NULL,
	document      TEXT NOT NULL,
	metadata      TEXT NOT NULL DEFAULT '{}',
	embedding     BLOB NOT NULL,
	seq           INTEGER NOT NULL,
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (collection_id, id)
);

CREATE INDEX IF NOT EXISTS idx_fragments_collection_seq ON fragments(collection_id, seq);
`

// Migrate creates the schema if needed.
func (s *SQLiteIndex) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

// GetOrCreateCollection returns the named collection, creating it on first
// use. Calling it repeatedly with the same name yields the same collection.
func (s *SQLiteIndex) GetOrCreateCollection(ctx context.Context, name string) (Collection, error) {
	if name == "" {
		return nil, eris.New("sqlite: collection name is required")
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name,
	); err != nil {
		return nil, eris.Wrapf(err, "sqlite: create collection %s", name)
	}

	var id int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT id FROM collections WHERE name = ?`, name,
	).Scan(&id); err != nil {
		return nil, eris.Wrapf(err, "sqlite: get collection %s", name)
	}
	return &sqliteCollection{idx: s, id: id, name: name}, nil
}

type sqliteCollection struct {
	idx  *SQLiteIndex
	id   int64
	name string
}

func (c *sqliteCollection) Name() string { return c.name }

// Add embeds and upserts docs. Re-adding an existing ID replaces its text,
// metadata and embedding but keeps its original insertion order.
func (c *sqliteCollection) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		if d.ID == "" {
			return eris.Errorf("sqlite: document %d has no id", i)
		}
		texts[i] = d.Text
	}

	vecs, err := c.idx.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return eris.Wrap(err, "sqlite: embed documents")
	}
	if len(vecs) != len(docs) {
		return eris.Errorf("sqlite: got %d embeddings for %d documents", len(vecs), len(docs))
	}

	tx, err := c.idx.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	var next int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM fragments WHERE collection_id = ?`, c.id,
	).Scan(&next); err != nil {
		return eris.Wrap(err, "sqlite: next seq")
	}

	now := time.Now().UTC()
	for i, d := range docs {
		meta := d.Metadata
		if meta == nil {
			meta = map[string]string{}
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal metadata")
		}
		next++
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fragments (collection_id, id, document, metadata, embedding, seq, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(collection_id, id) DO UPDATE SET
			   document = excluded.document,
			   metadata = excluded.metadata,
			   embedding = excluded.embedding,
			   updated_at = excluded.updated_at`,
			c.id, d.ID, d.Text, string(metaJSON), encodeVector(vecs[i]), next, now,
		); err != nil {
			return eris.Wrapf(err, "sqlite: upsert fragment %s", d.ID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit fragments")
}

func (c *sqliteCollection) Count(ctx context.Context) (int, error) {
	var n int
	err := c.idx.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM fragments WHERE collection_id = ?`, c.id,
	).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count fragments")
}

type scoredRow struct {
	id       string
	document string
	metadata map[string]string
	distance float64
}

// Query embeds each text and returns the NResults rows with the smallest
// cosine distance. Equal distances keep insertion order.
func (c *sqliteCollection) Query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	n := req.NResults
	if n <= 0 {
		n = 10
	}

	rows, err := c.loadRows(ctx)
	if err != nil {
		return nil, err
	}

	res := &QueryResult{
		IDs:       make([][]string, len(req.Texts)),
		Metadatas: make([][]map[string]string, len(req.Texts)),
		Documents: make([][]string, len(req.Texts)),
		Distances: make([][]float64, len(req.Texts)),
	}

	for qi, text := range req.Texts {
		qvec, err := c.idx.embedder.EmbedQuery(ctx, text)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: embed query")
		}

		scored := make([]scoredRow, 0, len(rows))
		for _, r := range rows {
			sim, err := embedding.CosineSimilarity(qvec, r.vec)
			if err != nil {
				zap.L().Warn("sqlite: skipping fragment with mismatched embedding",
					zap.String("collection", c.name),
					zap.String("id", r.id),
					zap.Error(err),
				)
				continue
			}
			scored = append(scored, scoredRow{
				id:       r.id,
				document: r.document,
				metadata: r.metadata,
				distance: 1 - sim,
			})
		}
		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].distance < scored[j].distance
		})
		if len(scored) > n {
			scored = scored[:n]
		}

		ids := make([]string, len(scored))
		metas := make([]map[string]string, len(scored))
		docs := make([]string, len(scored))
		dists := make([]float64, len(scored))
		for i, s := range scored {
			ids[i] = s.id
			metas[i] = s.metadata
			docs[i] = s.document
			dists[i] = s.distance
		}
		res.IDs[qi] = ids
		res.Metadatas[qi] = metas
		res.Documents[qi] = docs
		res.Distances[qi] = dists
	}

	return res, nil
}

type storedRow struct {
	id       string
	document string
	metadata map[string]string
	vec      []float32
}

func (c *sqliteCollection) loadRows(ctx context.Context) ([]storedRow, error) {
	rows, err := c.idx.db.QueryContext(ctx,
		`SELECT id, document, metadata, embedding FROM fragments WHERE collection_id = ? ORDER BY seq`, c.id,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query fragments")
	}
	defer rows.Close() //nolint:errcheck

	var out []storedRow
	for rows.Next() {
		var (
			r        storedRow
			metaJSON string
			blob     []byte
		)
		if err := rows.Scan(&r.id, &r.document, &metaJSON, &blob); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan fragment")
		}
		if err := json.Unmarshal([]byte(metaJSON), &r.metadata); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal metadata for %s", r.id)
		}
		r.vec = decodeVector(blob)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate fragments")
}

// encodeVector encodes a float32 slice as a little-endian blob.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(blob []byte) []float32 {
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return vec
}
