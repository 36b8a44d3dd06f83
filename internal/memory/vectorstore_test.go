package memory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
)

// stubEmbedder produces deterministic vectors from token overlap so related
// texts land close together.
type stubEmbedder struct{}

func (stubEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec := make([]float64, 16)
		for _, word := range strings.Fields(strings.ToLower(text)) {
			var h uint32
			for _, c := range word {
				h = h*31 + uint32(c)
			}
			vec[h%16]++
		}
		out[i] = vec
	}
	return out, nil
}

func newTestStore(t *testing.T) *VectorStore {
	t.Helper()
	vs, err := NewVectorStore(context.Background(), t.TempDir(), stubEmbedder{})
	if err != nil {
		t.Fatalf("NewVectorStore: %v", err)
	}
	return vs
}

func TestAddGetDelete(t *testing.T) {
	vs := newTestStore(t)
	ctx := context.Background()

	id, err := vs.Add(ctx, "the deploy pipeline uses blue green rollout", map[string]string{"topic": "deploy"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !strings.HasPrefix(id, "doc_") {
		t.Fatalf("id = %q, want doc_ prefix", id)
	}

	doc, err := vs.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc.Metadata["topic"] != "deploy" {
		t.Fatalf("metadata = %+v", doc.Metadata)
	}

	if err := vs.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := vs.Get(ctx, id); !errors.Is(err, ErrDocNotFound) {
		t.Fatalf("Get deleted = %v, want ErrDocNotFound", err)
	}
}

func TestSearchRanksByRelevance(t *testing.T) {
	vs := newTestStore(t)
	ctx := context.Background()

	deployID, err := vs.Add(ctx, "deploy pipeline blue green rollout", nil)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := vs.Add(ctx, "lunch menu pasta salad soup", nil); err != nil {
		t.Fatalf("Add: %v", err)
	}

	results, err := vs.Search(ctx, "deploy pipeline rollout", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].ID != deployID {
		t.Fatalf("top result = %s, want %s", results[0].ID, deployID)
	}
}

func TestUpdateKeepsID(t *testing.T) {
	vs := newTestStore(t)
	ctx := context.Background()

	id, err := vs.Add(ctx, "original text", nil)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := vs.Update(ctx, id, "revised text", nil); err != nil {
		t.Fatalf("Update: %v", err)
	}
	doc, err := vs.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc.Content != "revised text" {
		t.Fatalf("content = %q", doc.Content)
	}
	if vs.Count() != 1 {
		t.Fatalf("count = %d, want 1", vs.Count())
	}

	if err := vs.Update(ctx, "doc_missing", "x", nil); !errors.Is(err, ErrDocNotFound) {
		t.Fatalf("Update missing = %v, want ErrDocNotFound", err)
	}
}

func TestDisabledStore(t *testing.T) {
	var vs *VectorStore
	ctx := context.Background()

	if vs.Enabled() {
		t.Fatal("nil store should be disabled")
	}
	if _, err := vs.Add(ctx, "x", nil); !errors.Is(err, ErrDisabled) {
		t.Fatalf("Add = %v, want ErrDisabled", err)
	}
	results, err := vs.Search(ctx, "x", 5)
	if err != nil || len(results) != 0 {
		t.Fatalf("Search = %v, %v; want empty, nil", results, err)
	}
	if vs.Count() != 0 {
		t.Fatalf("Count = %d, want 0", vs.Count())
	}
}
