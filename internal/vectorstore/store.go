// Package vectorstore maintains the semantic search index over veterinarian
// records. Embeddings are persisted in SQLite under a fixed collection name
// so restarts reuse them instead of re-spending embedding credits; similarity
// ranking runs in process over an in-memory copy of the collection.
package vectorstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/petclinic/genai-service/internal/domain"
	"github.com/petclinic/genai-service/internal/llm"
	"github.com/petclinic/genai-service/internal/logging"
	"github.com/petclinic/genai-service/internal/store"
)

// DefaultCollection is the collection name for veterinarian documents.
const DefaultCollection = "vets_collection"

// Document is one indexed record with its similarity score for a query.
type Document struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Score    float64           `json:"score"`
}

type indexedDoc struct {
	content  string
	metadata map[string]string
	vector   []float32
}

// Store is the persistent, queryable vet index.
type Store struct {
	db         *store.DB
	embedder   llm.Embedder
	collection string
	log        *logging.Logger

	mu   sync.RWMutex
	docs []indexedDoc
}

// New creates a vector store over the given database and embedder. An empty
// collection name falls back to DefaultCollection.
func New(db *store.DB, embedder llm.Embedder, collection string, log *logging.Logger) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{
		db:         db,
		embedder:   embedder,
		collection: collection,
		log:        log.Sub("vectorstore"),
	}
}

// PopulateOnStartup fills the index. If the collection already has persisted
// embeddings they are loaded as-is; otherwise fetch supplies the vets, which
// are embedded and persisted in a single transaction. A failed populate
// leaves the index empty and the collection untouched.
func (s *Store) PopulateOnStartup(ctx context.Context, fetch func(ctx context.Context) ([]domain.Vet, error)) error {
	loaded, err := s.loadCollection()
	if err != nil {
		return fmt.Errorf("loading collection %q: %w", s.collection, err)
	}
	if len(loaded) > 0 {
		s.mu.Lock()
		s.docs = loaded
		s.mu.Unlock()
		s.log.Info().Int("documents", len(loaded)).Str("collection", s.collection).Msg("loaded existing vector store")
		return nil
	}

	vets, err := fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetching vets: %w", err)
	}
	if len(vets) == 0 {
		s.log.Warn().Msg("no vets available to index")
		return nil
	}

	docs := vetsToDocuments(vets)
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.content
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding vets: %w", err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("embedding count mismatch: %d documents, %d vectors", len(docs), len(vectors))
	}
	for i := range docs {
		docs[i].vector = vectors[i]
	}

	if err := s.persist(docs); err != nil {
		return fmt.Errorf("persisting collection %q: %w", s.collection, err)
	}

	s.mu.Lock()
	s.docs = docs
	s.mu.Unlock()
	s.log.Info().Int("documents", len(docs)).Str("collection", s.collection).Msg("vector store created and persisted")
	return nil
}

// Search embeds the query and returns the topK most similar documents,
// best first. An empty index yields no results and no error.
func (s *Store) Search(ctx context.Context, query string, topK int) ([]Document, error) {
	s.mu.RLock()
	docs := s.docs
	s.mu.RUnlock()

	if len(docs) == 0 {
		s.log.Debug().Str("collection", s.collection).Str("query", query).Msg("search against empty index")
		return nil, nil
	}
	if topK <= 0 {
		topK = 20
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results := make([]Document, 0, len(docs))
	for _, d := range docs {
		results = append(results, Document{
			Content:  d.content,
			Metadata: d.metadata,
			Score:    cosineSimilarity(queryVec, d.vector),
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Count returns the number of indexed documents.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// persist writes the whole collection in one transaction, replacing any
// partial leftovers from a previous failed populate.
func (s *Store) persist(docs []indexedDoc) error {
	tx, err := s.db.SQL().Begin()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM embeddings WHERE collection = ?`, s.collection); err != nil {
		tx.Rollback()
		return err
	}
	for _, d := range docs {
		metadata, err := json.Marshal(d.metadata)
		if err != nil {
			tx.Rollback()
			return err
		}
		if _, err := tx.Exec(
			`INSERT INTO embeddings (collection, content, metadata, vector) VALUES (?, ?, ?, ?)`,
			s.collection, d.content, string(metadata), encodeVector(d.vector),
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// loadCollection reads all persisted documents for the collection.
func (s *Store) loadCollection() ([]indexedDoc, error) {
	rows, err := s.db.SQL().Query(
		`SELECT content, metadata, vector FROM embeddings WHERE collection = ? ORDER BY id`, s.collection,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []indexedDoc
	for rows.Next() {
		var doc indexedDoc
		var metadata string
		var blob []byte
		if err := rows.Scan(&doc.content, &metadata, &blob); err != nil {
			return nil, err
		}
		if metadata != "" {
			_ = json.Unmarshal([]byte(metadata), &doc.metadata)
		}
		doc.vector = decodeVector(blob)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// vetsToDocuments renders each vet as a compact JSON document. Specialties
// collapse into a comma-separated string so they weigh into the embedding as
// plain text.
func vetsToDocuments(vets []domain.Vet) []indexedDoc {
	docs := make([]indexedDoc, 0, len(vets))
	for _, vet := range vets {
		names := make([]string, 0, len(vet.Specialties))
		for _, sp := range vet.Specialties {
			names = append(names, sp.Name)
		}
		specialties := strings.Join(names, ", ")

		content, _ := json.Marshal(struct {
			ID          int    `json:"id"`
			FirstName   string `json:"firstName"`
			LastName    string `json:"lastName"`
			Specialties string `json:"specialties"`
		}{vet.ID, vet.FirstName, vet.LastName, specialties})

		docs = append(docs, indexedDoc{
			content: string(content),
			metadata: map[string]string{
				"id":          fmt.Sprintf("%d", vet.ID),
				"firstName":   vet.FirstName,
				"lastName":    vet.LastName,
				"specialties": specialties,
			},
		})
	}
	return docs
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// encodeVector packs float32s as little-endian bytes for blob storage.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}
