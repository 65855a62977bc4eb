package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Chat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("auth header = %q", auth)
		}
		var body struct {
			Message string    `json:"message"`
			History []Message `json:"history"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body.Message != "what is TCP" || len(body.History) != 1 {
			t.Errorf("body = %+v", body)
		}
		fmt.Fprint(w, `{"text":"TCP is a transport protocol.","mode":"rag","grounded":true,
			"sources":[{"source":"net.md","seq":0}]}`)
	}))
	defer srv.Close()

	c := New(srv.URL, WithAPIKey("secret"))
	reply, err := c.Chat(context.Background(), "what is TCP", []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if !reply.Grounded || len(reply.Sources) != 1 || reply.Sources[0].Source != "net.md" {
		t.Errorf("reply = %+v", reply)
	}
}

func TestClient_ReindexAndHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/reindex":
			fmt.Fprint(w, `{"chunks":12}`)
		case "/health":
			fmt.Fprint(w, `{"status":"ok","chunks":12}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	n, err := c.Reindex(context.Background())
	if err != nil || n != 12 {
		t.Fatalf("Reindex = (%d, %v)", n, err)
	}
	h, err := c.Health(context.Background())
	if err != nil || h.Status != "ok" {
		t.Fatalf("Health = (%+v, %v)", h, err)
	}
}

func TestClient_APIErrorDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `{"code":"backend_unavailable","message":"backend unavailable"}`)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Ask(context.Background(), "what is TCP", nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusBadGateway || apiErr.Code != "backend_unavailable" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestClient_Todos(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/todos":
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"id":1,"text":"réviser IA","done":false}`)
		case r.Method == http.MethodPost && r.URL.Path == "/v1/todos/1/done":
			fmt.Fprint(w, `{"id":1,"text":"réviser IA","done":true}`)
		case r.Method == http.MethodGet && r.URL.Path == "/v1/todos":
			fmt.Fprint(w, `[{"id":1,"text":"réviser IA","done":true}]`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	item, err := c.AddTodo(context.Background(), "réviser IA")
	if err != nil || item.ID != 1 {
		t.Fatalf("AddTodo = (%+v, %v)", item, err)
	}
	item, err = c.CompleteTodo(context.Background(), 1)
	if err != nil || !item.Done {
		t.Fatalf("CompleteTodo = (%+v, %v)", item, err)
	}
	items, err := c.Todos(context.Background())
	if err != nil || len(items) != 1 {
		t.Fatalf("Todos = (%+v, %v)", items, err)
	}
}
