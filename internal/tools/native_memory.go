package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/avezard/epigraph/internal/memory"
)

// =============================================================================
// add_document
// =============================================================================

// AddDocumentTool stores a document in the semantic memory.
type AddDocumentTool struct {
	store *memory.VectorStore
}

// NewAddDocumentTool creates a new add_document tool.
func NewAddDocumentTool(store *memory.VectorStore) *AddDocumentTool {
	return &AddDocumentTool{store: store}
}

// AddDocumentManifest returns the manifest for the add_document tool.
func AddDocumentManifest() *ToolManifest {
	return &ToolManifest{
		Name:        "add_document",
		Description: "Store a document in semantic memory",
		Provider:    "native",
		Tools: []ToolSpec{
			{
				Name:        "add_document",
				Description: "Store a piece of reference text in semantic memory for later retrieval. Use this to remember decisions, context, and background notes.",
				Parameters: map[string]ParamSpec{
					"content": {
						Type:        "string",
						Description: "Full text to store",
						Required:    true,
					},
					"topic": {
						Type:        "string",
						Description: "Short topic label for categorization",
					},
				},
			},
		},
	}
}

type addDocumentInput struct {
	Content string `json:"content"`
	Topic   string `json:"topic"`
}

func (t *AddDocumentTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return toolSpecToToolInfo(&AddDocumentManifest().Tools[0]), nil
}

func (t *AddDocumentTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input addDocumentInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("add_document: parse input: %w", err)
	}

	var meta map[string]string
	if input.Topic != "" {
		meta = map[string]string{"topic": input.Topic}
	}
	id, err := t.store.Add(ctx, input.Content, meta)
	if err != nil {
		return "", fmt.Errorf("add_document: %w", err)
	}
	return "Stored document " + id, nil
}

var _ tool.InvokableTool = (*AddDocumentTool)(nil)

// =============================================================================
// search_documents
// =============================================================================

// SearchDocumentsTool performs semantic search over stored documents.
type SearchDocumentsTool struct {
	store *memory.VectorStore
}

// NewSearchDocumentsTool creates a new search_documents tool.
func NewSearchDocumentsTool(store *memory.VectorStore) *SearchDocumentsTool {
	return &SearchDocumentsTool{store: store}
}

// SearchDocumentsManifest returns the manifest for the search_documents tool.
func SearchDocumentsManifest() *ToolManifest {
	return &ToolManifest{
		Name:        "search_documents",
		Description: "Search semantic memory",
		Provider:    "native",
		Tools: []ToolSpec{
			{
				Name:        "search_documents",
				Description: "Search stored documents by meaning and return the most relevant ones with their ids.",
				Parameters: map[string]ParamSpec{
					"query": {
						Type:        "string",
						Description: "What to look for",
						Required:    true,
					},
					"limit": {
						Type:        "integer",
						Description: "Maximum number of results (default: 5)",
					},
				},
			},
		},
	}
}

type searchDocumentsInput struct {
	Query string  `json:"query"`
	Limit float64 `json:"limit"`
}

func (t *SearchDocumentsTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return toolSpecToToolInfo(&SearchDocumentsManifest().Tools[0]), nil
}

func (t *SearchDocumentsTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input searchDocumentsInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("search_documents: parse input: %w", err)
	}

	limit := 5
	if input.Limit > 0 {
		limit = int(input.Limit)
	}
	results, err := t.store.Search(ctx, input.Query, limit)
	if err != nil {
		return "", fmt.Errorf("search_documents: %w", err)
	}
	if len(results) == 0 {
		return "No matching documents.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d result(s):\n", len(results))
	for _, r := range results {
		fmt.Fprintf(&b, "%s (%.2f): %s\n", r.ID, r.Similarity, r.Content)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

var _ tool.InvokableTool = (*SearchDocumentsTool)(nil)

// =============================================================================
// get_document
// =============================================================================

// GetDocumentTool fetches a stored document by id.
type GetDocumentTool struct {
	store *memory.VectorStore
}

// NewGetDocumentTool creates a new get_document tool.
func NewGetDocumentTool(store *memory.VectorStore) *GetDocumentTool {
	return &GetDocumentTool{store: store}
}

// GetDocumentManifest returns the manifest for the get_document tool.
func GetDocumentManifest() *ToolManifest {
	return &ToolManifest{
		Name:        "get_document",
		Description: "Fetch a document from semantic memory",
		Provider:    "native",
		Tools: []ToolSpec{
			{
				Name:        "get_document",
				Description: "Fetch the full content of a stored document by its id (e.g. doc_ab12cd34).",
				Parameters: map[string]ParamSpec{
					"id": {
						Type:        "string",
						Description: "The document id",
						Required:    true,
					},
				},
			},
		},
	}
}

type getDocumentInput struct {
	ID string `json:"id"`
}

func (t *GetDocumentTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return toolSpecToToolInfo(&GetDocumentManifest().Tools[0]), nil
}

func (t *GetDocumentTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input getDocumentInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("get_document: parse input: %w", err)
	}

	doc, err := t.store.Get(ctx, input.ID)
	if err != nil {
		return "", fmt.Errorf("get_document: %w", err)
	}
	return fmt.Sprintf("%s: %s", doc.ID, doc.Content), nil
}

var _ tool.InvokableTool = (*GetDocumentTool)(nil)

// =============================================================================
// update_document
// =============================================================================

// UpdateDocumentTool replaces a stored document's content.
type UpdateDocumentTool struct {
	store *memory.VectorStore
}

// NewUpdateDocumentTool creates a new update_document tool.
func NewUpdateDocumentTool(store *memory.VectorStore) *UpdateDocumentTool {
	return &UpdateDocumentTool{store: store}
}

// UpdateDocumentManifest returns the manifest for the update_document tool.
func UpdateDocumentManifest() *ToolManifest {
	return &ToolManifest{
		Name:        "update_document",
		Description: "Replace a document in semantic memory",
		Provider:    "native",
		Tools: []ToolSpec{
			{
				Name:        "update_document",
				Description: "Replace the content of a stored document. The id stays the same; the document is re-indexed.",
				Parameters: map[string]ParamSpec{
					"id": {
						Type:        "string",
						Description: "The document id",
						Required:    true,
					},
					"content": {
						Type:        "string",
						Description: "New full text",
						Required:    true,
					},
				},
			},
		},
	}
}

type updateDocumentInput struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

func (t *UpdateDocumentTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return toolSpecToToolInfo(&UpdateDocumentManifest().Tools[0]), nil
}

func (t *UpdateDocumentTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input updateDocumentInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("update_document: parse input: %w", err)
	}

	if err := t.store.Update(ctx, input.ID, input.Content, nil); err != nil {
		return "", fmt.Errorf("update_document: %w", err)
	}
	return "Updated document " + input.ID, nil
}

var _ tool.InvokableTool = (*UpdateDocumentTool)(nil)

// =============================================================================
// delete_document
// =============================================================================

// DeleteDocumentTool removes a document from semantic memory.
type DeleteDocumentTool struct {
	store *memory.VectorStore
}

// NewDeleteDocumentTool creates a new delete_document tool.
func NewDeleteDocumentTool(store *memory.VectorStore) *DeleteDocumentTool {
	return &DeleteDocumentTool{store: store}
}

// DeleteDocumentManifest returns the manifest for the delete_document tool.
func DeleteDocumentManifest() *ToolManifest {
	return &ToolManifest{
		Name:        "delete_document",
		Description: "Delete a document from semantic memory",
		Provider:    "native",
		Tools: []ToolSpec{
			{
				Name:        "delete_document",
				Description: "Delete a stored document by its id. Use this when a note is outdated or was stored by mistake.",
				Parameters: map[string]ParamSpec{
					"id": {
						Type:        "string",
						Description: "The document id to delete",
						Required:    true,
					},
				},
			},
		},
	}
}

type deleteDocumentInput struct {
	ID string `json:"id"`
}

func (t *DeleteDocumentTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return toolSpecToToolInfo(&DeleteDocumentManifest().Tools[0]), nil
}

func (t *DeleteDocumentTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input deleteDocumentInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("delete_document: parse input: %w", err)
	}

	if err := t.store.Delete(ctx, input.ID); err != nil {
		return "", fmt.Errorf("delete_document: %w", err)
	}
	return "Deleted document " + input.ID, nil
}

var _ tool.InvokableTool = (*DeleteDocumentTool)(nil)
