package tools

import (
	"github.com/avezard/epigraph/internal/memory"
	"github.com/avezard/epigraph/internal/taskgraph"
)

// RegisterTaskTools registers the task board tools.
func RegisterTaskTools(r *Registry, store *taskgraph.Store) error {
	if err := r.Register("list_tasks", NewListTasksTool(store), ListTasksManifest()); err != nil {
		return err
	}
	if err := r.Register("create_task", NewCreateTaskTool(store), CreateTaskManifest()); err != nil {
		return err
	}
	if err := r.Register("update_task", NewUpdateTaskTool(store), UpdateTaskManifest()); err != nil {
		return err
	}
	return r.Register("delete_task", NewDeleteTaskTool(store), DeleteTaskManifest())
}

// RegisterDocumentTools registers the semantic memory tools. Skipped entirely
// when the vector store is disabled.
func RegisterDocumentTools(r *Registry, store *memory.VectorStore) error {
	if !store.Enabled() {
		return nil
	}
	if err := r.Register("add_document", NewAddDocumentTool(store), AddDocumentManifest()); err != nil {
		return err
	}
	if err := r.Register("search_documents", NewSearchDocumentsTool(store), SearchDocumentsManifest()); err != nil {
		return err
	}
	if err := r.Register("get_document", NewGetDocumentTool(store), GetDocumentManifest()); err != nil {
		return err
	}
	if err := r.Register("update_document", NewUpdateDocumentTool(store), UpdateDocumentManifest()); err != nil {
		return err
	}
	return r.Register("delete_document", NewDeleteDocumentTool(store), DeleteDocumentManifest())
}
