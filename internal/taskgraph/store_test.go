package taskgraph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustCreate(t *testing.T, s *Store, title string) *Task {
	t.Helper()
	task, err := s.Create(context.Background(), CreateParams{
		Type:        TypeTask,
		Title:       title,
		Description: "description of " + title,
	})
	if err != nil {
		t.Fatalf("Create %q: %v", title, err)
	}
	return task
}

func TestCreateAssignsSequentialCodes(t *testing.T) {
	s := newTestStore(t)

	first := mustCreate(t, s, "first")
	if first.Code != "TASK-0001" {
		t.Fatalf("first code = %q, want TASK-0001", first.Code)
	}
	if first.Status != StatusOpen {
		t.Fatalf("default status = %q, want %q", first.Status, StatusOpen)
	}

	second := mustCreate(t, s, "second")
	if second.Code != "TASK-0002" {
		t.Fatalf("second code = %q, want TASK-0002", second.Code)
	}
}

func TestCodesSurviveDeletes(t *testing.T) {
	s := newTestStore(t)

	mustCreate(t, s, "one")
	two := mustCreate(t, s, "two")
	if err := s.Delete(context.Background(), two.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	three := mustCreate(t, s, "three")
	if three.Code != "TASK-0003" {
		t.Fatalf("code after delete = %q, want TASK-0003", three.Code)
	}
	if three.ID == two.ID {
		t.Fatalf("id %d reused after delete", two.ID)
	}
}

func TestCreateWithRelations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	epic := mustCreate(t, s, "epic")

	task, err := s.Create(ctx, CreateParams{
		Type:        TypeTask,
		Title:       "nested",
		Description: "d",
		ParentIDs:   []int64{epic.ID},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(task.Parents) != 1 || task.Parents[0].ID != epic.ID {
		t.Fatalf("parents = %+v, want %d", task.Parents, epic.ID)
	}
}

func TestCreateWithBadRelationLeavesNoTask(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, CreateParams{
		Type:        TypeTask,
		Title:       "orphan",
		Description: "d",
		ParentIDs:   []int64{999},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Create = %v, want ErrValidation", err)
	}

	// the whole transaction rolled back: no task, and the code counter
	// did not advance
	all, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("tasks after failed create = %+v, want none", all)
	}
	next := mustCreate(t, s, "next")
	if next.Code != "TASK-0001" {
		t.Fatalf("code after rollback = %q, want TASK-0001", next.Code)
	}
}

func TestConcurrentCreatesNeverCollide(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const n = 20
	codes := make(chan string, n)
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			task, err := s.Create(ctx, CreateParams{
				Type:        TypeTask,
				Title:       fmt.Sprintf("task %d", i),
				Description: "d",
			})
			if err != nil {
				errs <- err
				return
			}
			codes <- task.Code
		}(i)
	}
	wg.Wait()
	close(codes)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent Create: %v", err)
	}
	seen := map[string]bool{}
	for code := range codes {
		if seen[code] {
			t.Fatalf("code %q issued twice", code)
		}
		seen[code] = true
	}
	if len(seen) != n {
		t.Fatalf("got %d unique codes, want %d", len(seen), n)
	}
}

func TestCreateValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		params CreateParams
	}{
		{"empty title", CreateParams{Type: TypeTask, Title: "   ", Description: "d"}},
		{"empty description", CreateParams{Type: TypeTask, Title: "t", Description: " "}},
		{"bad type", CreateParams{Type: "story", Title: "t", Description: "d"}},
		{"bad status", CreateParams{Type: TypeTask, Title: "t", Description: "d", Status: "archived"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.Create(ctx, tc.params); !errors.Is(err, ErrValidation) {
				t.Fatalf("Create = %v, want ErrValidation", err)
			}
		})
	}
}

func TestUpdatePartial(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	task := mustCreate(t, s, "original")

	status := StatusInProgress
	updated, err := s.Update(ctx, task.ID, UpdateParams{Status: &status})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != StatusInProgress {
		t.Fatalf("status = %q, want %q", updated.Status, StatusInProgress)
	}
	if updated.Title != "original" || updated.Code != task.Code {
		t.Fatalf("unrelated fields changed: %+v", updated)
	}

	if _, err := s.Update(ctx, task.ID, UpdateParams{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty update = %v, want ErrValidation", err)
	}
	if _, err := s.Update(ctx, 9999, UpdateParams{Status: &status}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update missing = %v, want ErrNotFound", err)
	}
}

func TestSetRelationsReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	epic := mustCreate(t, s, "epic")
	a := mustCreate(t, s, "a")
	b := mustCreate(t, s, "b")
	c := mustCreate(t, s, "c")

	if err := s.SetRelations(ctx, epic.ID, nil, []int64{a.ID, b.ID}); err != nil {
		t.Fatalf("SetRelations: %v", err)
	}
	got, err := s.Get(ctx, epic.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(got.Children))
	}

	// full replace: a and b drop out, only c remains
	if err := s.SetRelations(ctx, epic.ID, nil, []int64{c.ID}); err != nil {
		t.Fatalf("SetRelations replace: %v", err)
	}
	got, err = s.Get(ctx, epic.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Children) != 1 || got.Children[0].ID != c.ID {
		t.Fatalf("children after replace = %+v, want only %d", got.Children, c.ID)
	}

	// the reverse direction is visible from the child
	gotC, err := s.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get child: %v", err)
	}
	if len(gotC.Parents) != 1 || gotC.Parents[0].ID != epic.ID {
		t.Fatalf("parents of child = %+v, want %d", gotC.Parents, epic.ID)
	}

	gotA, err := s.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("Get a: %v", err)
	}
	if len(gotA.Parents) != 0 {
		t.Fatalf("a still has parents after replace: %+v", gotA.Parents)
	}
}

func TestSetRelationsIgnoresSelfReference(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	task := mustCreate(t, s, "loner")
	other := mustCreate(t, s, "other")

	if err := s.SetRelations(ctx, task.ID, nil, []int64{task.ID, other.ID}); err != nil {
		t.Fatalf("SetRelations: %v", err)
	}
	got, err := s.Get(ctx, task.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Children) != 1 || got.Children[0].ID != other.ID {
		t.Fatalf("children = %+v, want only %d", got.Children, other.ID)
	}
}

func TestSetRelationsUnknownID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	task := mustCreate(t, s, "task")
	other := mustCreate(t, s, "other")

	err := s.SetRelations(ctx, task.ID, []int64{other.ID, 9999}, nil)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("SetRelations = %v, want ErrValidation", err)
	}
	// nothing was written
	got, err := s.Get(ctx, task.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Parents) != 0 {
		t.Fatalf("parents = %+v, want none", got.Parents)
	}

	if err := s.SetRelations(ctx, 9999, nil, []int64{task.ID}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SetRelations missing subject = %v, want ErrNotFound", err)
	}
}

func TestDeleteRemovesIncidentEdges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	parent := mustCreate(t, s, "parent")
	middle := mustCreate(t, s, "middle")
	child := mustCreate(t, s, "child")

	if err := s.SetRelations(ctx, middle.ID, []int64{parent.ID}, []int64{child.ID}); err != nil {
		t.Fatalf("SetRelations: %v", err)
	}
	if err := s.Delete(ctx, middle.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, middle.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get deleted = %v, want ErrNotFound", err)
	}

	gotParent, err := s.Get(ctx, parent.ID)
	if err != nil {
		t.Fatalf("Get parent: %v", err)
	}
	if len(gotParent.Children) != 0 {
		t.Fatalf("parent still has children: %+v", gotParent.Children)
	}
	gotChild, err := s.Get(ctx, child.ID)
	if err != nil {
		t.Fatalf("Get child: %v", err)
	}
	if len(gotChild.Parents) != 0 {
		t.Fatalf("child still has parents: %+v", gotChild.Parents)
	}

	if err := s.Delete(ctx, middle.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestListFiltersAndOrders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreate(t, s, "one")
	two := mustCreate(t, s, "two")
	done := StatusDone
	if _, err := s.Update(ctx, two.ID, UpdateParams{Status: &done}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	all, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len(all) = %d, want 2", len(all))
	}
	if all[0].Title != "two" {
		t.Fatalf("newest first: got %q", all[0].Title)
	}

	doneOnly, err := s.List(ctx, StatusDone)
	if err != nil {
		t.Fatalf("List(done): %v", err)
	}
	if len(doneOnly) != 1 || doneOnly[0].ID != two.ID {
		t.Fatalf("List(done) = %+v", doneOnly)
	}

	if _, err := s.List(ctx, "archived"); !errors.Is(err, ErrValidation) {
		t.Fatalf("List(bad status) = %v, want ErrValidation", err)
	}
}

func TestGetByCode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	task := mustCreate(t, s, "lookup")

	got, err := s.GetByCode(ctx, task.Code)
	if err != nil {
		t.Fatalf("GetByCode: %v", err)
	}
	if got.ID != task.ID {
		t.Fatalf("id = %d, want %d", got.ID, task.ID)
	}
	if _, err := s.GetByCode(ctx, "TASK-9999"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByCode missing = %v, want ErrNotFound", err)
	}
}
