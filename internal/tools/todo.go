package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ErrTodoNotFound is returned when a task id does not exist.
var ErrTodoNotFound = errors.New("task not found")

// TodoItem is one persisted task.
type TodoItem struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// TodoStore is a task list persisted as a JSON file. All operations are
// safe for concurrent use and write through to disk.
type TodoStore struct {
	mu     sync.Mutex
	path   string
	items  []TodoItem
	logger *zap.Logger
}

// NewTodoStore opens the store at path, loading any existing task file. A
// missing or corrupt file yields an empty list.
func NewTodoStore(path string, logger *zap.Logger) (*TodoStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &TodoStore{path: path, logger: logger}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read todo store: %w", err)
		}
		return s, nil
	}
	if err := json.Unmarshal(data, &s.items); err != nil {
		logger.Warn("todo store corrupt, starting empty", zap.String("path", path), zap.Error(err))
		s.items = nil
	}
	return s, nil
}

// Add appends a task and persists the list.
func (s *TodoStore) Add(text string) (TodoItem, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return TodoItem{}, errors.New("empty task text")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item := TodoItem{ID: s.nextID(), Text: text}
	s.items = append(s.items, item)
	return item, s.save()
}

// MarkDone flags the task with the given id as completed.
func (s *TodoStore) MarkDone(id int) (TodoItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Done = true
			return s.items[i], s.save()
		}
	}
	return TodoItem{}, fmt.Errorf("%w: %d", ErrTodoNotFound, id)
}

// List returns a copy of the current tasks.
func (s *TodoStore) List() []TodoItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TodoItem, len(s.items))
	copy(out, s.items)
	return out
}

// Clear removes all tasks and persists the empty list.
func (s *TodoStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	return s.save()
}

var (
	todoAddCmdRe   = regexp.MustCompile(`(?i)\b(?:ajoute|ajouter|add)\b\s*:?\s*(.*)`)
	todoDoneCmdRe  = regexp.MustCompile(`(?i)\b(?:termine|finis|done)\b\s*:?\s*(\d+)`)
	todoListCmdRe  = regexp.MustCompile(`(?i)\b(?:liste|list)\b`)
	todoClearCmdRe = regexp.MustCompile(`(?i)\b(?:vide|efface|clear)\b`)
)

// Handle maps a natural language command onto a store operation and returns
// a user-facing reply. Unrecognized commands fall back to listing.
func (s *TodoStore) Handle(text string) (string, error) {
	if m := todoAddCmdRe.FindStringSubmatch(text); m != nil {
		payload := strings.TrimSpace(m[1])
		if payload == "" {
			return s.renderList(), nil
		}
		item, err := s.Add(payload)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Added task %d: %s", item.ID, item.Text), nil
	}

	if m := todoDoneCmdRe.FindStringSubmatch(text); m != nil {
		id, _ := strconv.Atoi(m[1])
		item, err := s.MarkDone(id)
		if err != nil {
			if errors.Is(err, ErrTodoNotFound) {
				return fmt.Sprintf("No task with id %d.", id), nil
			}
			return "", err
		}
		return fmt.Sprintf("Completed task %d: %s", item.ID, item.Text), nil
	}

	if todoClearCmdRe.MatchString(text) {
		if err := s.Clear(); err != nil {
			return "", err
		}
		return "Task list cleared.", nil
	}

	if todoListCmdRe.MatchString(text) {
		return s.renderList(), nil
	}

	return s.renderList(), nil
}

func (s *TodoStore) renderList() string {
	items := s.List()
	if len(items) == 0 {
		return "The task list is empty."
	}

	var b strings.Builder
	b.WriteString("Tasks:\n")
	for _, it := range items {
		mark := " "
		if it.Done {
			mark = "x"
		}
		fmt.Fprintf(&b, "- [%s] %d. %s\n", mark, it.ID, it.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// nextID and save require s.mu held.

func (s *TodoStore) nextID() int {
	max := 0
	for _, it := range s.items {
		if it.ID > max {
			max = it.ID
		}
	}
	return max + 1
}

func (s *TodoStore) save() error {
	data, err := json.MarshalIndent(s.items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode todo store: %w", err)
	}
	if s.items == nil {
		data = []byte("[]")
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create todo dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write todo store: %w", err)
	}
	return nil
}
