// Package memory provides the persistent document memory backed by a
// chromem-go vector store.
package memory

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
)

const collectionName = "epigraph_documents"

// ErrDisabled is returned by mutating operations when no embedder is
// configured. Read operations degrade to empty results instead.
var ErrDisabled = errors.New("document memory disabled")

// ErrDocNotFound is returned when a document id does not exist.
var ErrDocNotFound = errors.New("document not found")

// Document is a stored memory entry.
type Document struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SearchResult is a document with its similarity to the query.
type SearchResult struct {
	Document
	Similarity float32 `json:"similarity"`
}

// VectorStore wraps chromem-go for persistent vector storage.
// A nil VectorStore is valid and behaves as disabled.
type VectorStore struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewVectorStore creates a persistent vector store in the given directory.
// The embedder is bridged from Eino's [][]float64 to chromem-go's []float32.
func NewVectorStore(ctx context.Context, dir string, embedder embedding.Embedder) (*VectorStore, error) {
	vectorDir := filepath.Join(dir, "vectors")
	db, err := chromem.NewPersistentDB(vectorDir, false)
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}

	ef := bridgeEmbedder(ctx, embedder)
	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("get or create collection: %w", err)
	}

	return &VectorStore{db: db, collection: col}, nil
}

// Enabled reports whether the store can serve requests.
func (vs *VectorStore) Enabled() bool {
	return vs != nil && vs.collection != nil
}

// Add stores a new document and returns its generated id.
func (vs *VectorStore) Add(ctx context.Context, content string, meta map[string]string) (string, error) {
	if !vs.Enabled() {
		return "", ErrDisabled
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("content is required")
	}
	id := "doc_" + uuid.New().String()[:8]
	if err := vs.collection.Add(ctx, []string{id}, nil, []map[string]string{meta}, []string{content}); err != nil {
		return "", fmt.Errorf("add document: %w", err)
	}
	return id, nil
}

// Get returns a stored document by id.
func (vs *VectorStore) Get(ctx context.Context, id string) (*Document, error) {
	if !vs.Enabled() {
		return nil, ErrDisabled
	}
	doc, err := vs.collection.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDocNotFound, id)
	}
	return &Document{ID: doc.ID, Content: doc.Content, Metadata: doc.Metadata}, nil
}

// Update re-embeds a document under the same id.
// chromem-go's Add overwrites an existing id.
func (vs *VectorStore) Update(ctx context.Context, id, content string, meta map[string]string) error {
	if !vs.Enabled() {
		return ErrDisabled
	}
	if _, err := vs.Get(ctx, id); err != nil {
		return err
	}
	if err := vs.collection.Add(ctx, []string{id}, nil, []map[string]string{meta}, []string{content}); err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}

// Delete removes a document. Deleting an unknown id is a no-op.
func (vs *VectorStore) Delete(ctx context.Context, id string) error {
	if !vs.Enabled() {
		return ErrDisabled
	}
	if err := vs.collection.Delete(ctx, nil, nil, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Search performs a semantic search and returns the top results.
// A disabled store returns no results.
func (vs *VectorStore) Search(ctx context.Context, queryText string, nResults int) ([]SearchResult, error) {
	if !vs.Enabled() {
		return nil, nil
	}
	count := vs.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if nResults <= 0 || nResults > count {
		nResults = count
	}

	results, err := vs.collection.Query(ctx, queryText, nResults, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = SearchResult{
			Document:   Document{ID: r.ID, Content: r.Content, Metadata: r.Metadata},
			Similarity: r.Similarity,
		}
	}
	return out, nil
}

// Count returns the number of stored documents.
func (vs *VectorStore) Count() int {
	if !vs.Enabled() {
		return 0
	}
	return vs.collection.Count()
}

// bridgeEmbedder converts an Eino Embedder ([][]float64) to a chromem-go EmbeddingFunc ([]float32).
func bridgeEmbedder(ctx context.Context, embedder embedding.Embedder) chromem.EmbeddingFunc {
	return func(embedCtx context.Context, text string) ([]float32, error) {
		// Use the parent context if the embed context is background
		if embedCtx == context.Background() {
			embedCtx = ctx
		}
		vectors, err := embedder.EmbedStrings(embedCtx, []string{text})
		if err != nil {
			return nil, fmt.Errorf("embed text: %w", err)
		}
		if len(vectors) == 0 || len(vectors[0]) == 0 {
			return nil, fmt.Errorf("embed text: empty result")
		}

		f64 := vectors[0]
		f32 := make([]float32, len(f64))
		for i, v := range f64 {
			f32[i] = float32(v)
		}
		return f32, nil
	}
}
