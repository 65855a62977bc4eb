package tools

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func newTestTodoStore(t *testing.T) (*TodoStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "todo.json")
	s, err := NewTodoStore(path, zap.NewNop())
	if err != nil {
		t.Fatalf("NewTodoStore: %v", err)
	}
	return s, path
}

func TestTodoStore_AddDoneList(t *testing.T) {
	s, _ := newTestTodoStore(t)

	first, err := s.Add("réviser le cours réseau")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if first.ID != 1 || first.Done {
		t.Errorf("unexpected item %+v", first)
	}
	if _, err := s.Add("préparer le TP"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	done, err := s.MarkDone(1)
	if err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	if !done.Done {
		t.Error("task not marked done")
	}

	items := s.List()
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if !items[0].Done || items[1].Done {
		t.Errorf("done flags wrong: %+v", items)
	}
}

func TestTodoStore_PersistsAcrossReopen(t *testing.T) {
	s, path := newTestTodoStore(t)
	if _, err := s.Add("tâche persistante"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	reopened, err := NewTodoStore(path, zap.NewNop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	items := reopened.List()
	if len(items) != 1 || items[0].Text != "tâche persistante" {
		t.Fatalf("reopened items = %+v", items)
	}

	next, err := reopened.Add("nouvelle tâche")
	if err != nil {
		t.Fatalf("Add after reopen: %v", err)
	}
	if next.ID != 2 {
		t.Errorf("id = %d, want 2", next.ID)
	}
}

func TestTodoStore_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todo.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewTodoStore(path, zap.NewNop())
	if err != nil {
		t.Fatalf("NewTodoStore: %v", err)
	}
	if got := s.List(); len(got) != 0 {
		t.Errorf("expected empty list, got %+v", got)
	}
}

func TestTodoStore_MarkDoneUnknownID(t *testing.T) {
	s, _ := newTestTodoStore(t)
	if _, err := s.MarkDone(42); !errors.Is(err, ErrTodoNotFound) {
		t.Fatalf("err = %v, want ErrTodoNotFound", err)
	}
}

func TestTodoStore_Handle(t *testing.T) {
	s, _ := newTestTodoStore(t)

	reply, err := s.Handle("ajoute : réviser IA")
	if err != nil {
		t.Fatalf("Handle add: %v", err)
	}
	if !strings.Contains(reply, "réviser IA") {
		t.Errorf("add reply = %q", reply)
	}

	reply, err = s.Handle("termine 1")
	if err != nil {
		t.Fatalf("Handle done: %v", err)
	}
	if !strings.Contains(reply, "Completed task 1") {
		t.Errorf("done reply = %q", reply)
	}

	reply, err = s.Handle("liste mes tâches")
	if err != nil {
		t.Fatalf("Handle list: %v", err)
	}
	if !strings.Contains(reply, "[x] 1. réviser IA") {
		t.Errorf("list reply = %q", reply)
	}

	reply, err = s.Handle("done: 99")
	if err != nil {
		t.Fatalf("Handle unknown id: %v", err)
	}
	if !strings.Contains(reply, "No task with id 99") {
		t.Errorf("unknown id reply = %q", reply)
	}

	if _, err := s.Handle("efface tout"); err != nil {
		t.Fatalf("Handle clear: %v", err)
	}
	if got := s.List(); len(got) != 0 {
		t.Errorf("expected cleared list, got %+v", got)
	}
}
