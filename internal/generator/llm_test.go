package generator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shule-quiz-service/internal/domain"
)

func chatServer(t *testing.T, replies []string) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		reply := replies[len(replies)-1]
		if calls < len(replies) {
			reply = replies[calls]
		}
		calls++
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": reply}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestGenerateQuestionsStripsProse(t *testing.T) {
	batchJSON := `[{"question":"What is 2+2?","options":["3","4","5","6"],"correct_answer":"4","explanation":"Basic addition.","difficulty":"easy"}]`
	srv, calls := chatServer(t, []string{"Sure! Here are your questions:\n" + batchJSON + "\nGood luck!"})

	client := NewClient(srv.URL, "test-model", "", 5*time.Second)
	batch, err := client.GenerateQuestions(context.Background(), domain.GenerationContext{
		Curriculum: "kcse", Level: "form-2", Subject: "mathematics", Count: 1,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(batch) != 1 || batch[0].CorrectAnswer != "4" {
		t.Fatalf("unexpected batch: %+v", batch)
	}
	if *calls != 1 {
		t.Fatalf("expected 1 call, got %d", *calls)
	}
}

func TestGenerateQuestionsRetriesOnGarbage(t *testing.T) {
	batchJSON := `[{"question":"Capital of Kenya?","options":["Mombasa","Nairobi","Kisumu","Nakuru"],"correct_answer":"Nairobi","explanation":"","difficulty":"medium"}]`
	srv, calls := chatServer(t, []string{"I could not produce JSON this time.", batchJSON})

	client := NewClient(srv.URL, "test-model", "", 5*time.Second)
	batch, err := client.GenerateQuestions(context.Background(), domain.GenerationContext{Subject: "geography", Count: 1})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(batch) != 1 {
		t.Fatalf("expected 1 question, got %d", len(batch))
	}
	if *calls != 2 {
		t.Fatalf("expected a retry, got %d calls", *calls)
	}
}

func TestGenerateQuestionsFailsAfterAttempts(t *testing.T) {
	srv, calls := chatServer(t, []string{"no json here", "still no json"})

	client := NewClient(srv.URL, "test-model", "", 5*time.Second)
	_, err := client.GenerateQuestions(context.Background(), domain.GenerationContext{Subject: "physics", Count: 2})
	var genErr *GenerateError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerateError, got %v", err)
	}
	if *calls != maxAttempts {
		t.Fatalf("expected %d calls, got %d", maxAttempts, *calls)
	}
}

func TestGenerateQuestionsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, "test-model", "", 5*time.Second)
	_, err := client.GenerateQuestions(context.Background(), domain.GenerationContext{Subject: "biology", Count: 1})
	var genErr *GenerateError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerateError, got %v", err)
	}
}

func TestGenerateTopicNotes(t *testing.T) {
	srv, _ := chatServer(t, []string{"# Photosynthesis\n\n- Light reactions\n- Dark reactions"})

	client := NewClient(srv.URL, "test-model", "secret", 5*time.Second)
	notes, err := client.GenerateTopicNotes(context.Background(), domain.GenerationContext{
		Curriculum: "kcse", Level: "form-3", Subject: "biology", Topic: "photosynthesis",
	})
	if err != nil {
		t.Fatalf("notes: %v", err)
	}
	if !strings.Contains(notes, "Photosynthesis") {
		t.Fatalf("unexpected notes: %q", notes)
	}
}

func TestExtractJSONArray(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare array", `[1,2,3]`, `[1,2,3]`},
		{"prose around", `Here you go: [{"a":1}] done`, `[{"a":1}]`},
		{"brackets inside strings", `[{"q":"pick [the] answer"}]`, `[{"q":"pick [the] answer"}]`},
		{"nested arrays", `[["a"],["b"]]`, `[["a"],["b"]]`},
		{"no array", `just text`, ``},
		{"unterminated", `[1,2`, ``},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractJSONArray(tc.in); got != tc.want {
				t.Fatalf("extractJSONArray(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
