package jira

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

const issueWithMedia = `{
	"key": "ABC-1",
	"fields": {
		"summary": "Add login",
		"description": {
			"type": "doc",
			"content": [
				{"type": "paragraph", "content": [{"type": "text", "text": "Build the"}, {"type": "text", "text": "login form."}]},
				{"type": "mediaSingle", "content": [{"type": "media", "attrs": {"id": "abc-123", "type": "file"}}]},
				{"type": "mediaSingle", "content": [{"type": "media", "attrs": {"url": "https://img.example.com/x.png", "type": "external"}}]}
			]
		}
	}
}`

func TestExtractADF(t *testing.T) {
	var issue jiraIssue
	if err := json.Unmarshal([]byte(issueWithMedia), &issue); err != nil {
		t.Fatal(err)
	}

	text, media := extractADF(issue.Fields.Description)
	if text != "Build the login form." {
		t.Errorf("text = %q", text)
	}
	if len(media) != 2 || media[0] != "attachment:abc-123" || media[1] != "https://img.example.com/x.png" {
		t.Errorf("media = %v", media)
	}

	if text, media := extractADF(nil); text != "" || media != nil {
		t.Errorf("extractADF(nil) = %q, %v", text, media)
	}
}

func TestTaskContext(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/api/3/issue/ABC-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(issueWithMedia))
	})

	got, err := newTestClient(t, mux, "").TaskContext(context.Background(), "ABC-1")
	if err != nil {
		t.Fatalf("TaskContext() error = %v", err)
	}

	want := "**Task:** ABC-1\n**Summary:** Add login\n\n" +
		"**Description:**\nBuild the login form.\n\n" +
		"**Images/Attachments:**\n1. attachment:abc-123\n2. https://img.example.com/x.png\n\n"
	if got != want {
		t.Errorf("TaskContext() =\n%s\nwant\n%s", got, want)
	}
}

func TestCommentsContext(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/api/3/issue/ABC-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"key":"ABC-1","fields":{"summary":"Add login"}}`))
	})
	mux.HandleFunc("GET /rest/api/3/issue/ABC-1/comment", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"comments":[
			{"author":{"displayName":"Alice"},"created":"2024-03-01","body":{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"Use OAuth"}]}]}},
			{"author":{"displayName":"Bob"},"created":"2024-03-02","body":{"type":"doc","content":[]}}
		]}`))
	})

	got, err := newTestClient(t, mux, "").CommentsContext(context.Background(), "ABC-1")
	if err != nil {
		t.Fatalf("CommentsContext() error = %v", err)
	}
	if !strings.HasPrefix(got, "**JIRA Task: ABC-1**\n**Summary:** Add login\n\n") {
		t.Errorf("header = %q", got)
	}
	if !strings.Contains(got, "**Comments:**\n1. **Alice** (2024-03-01):\nUse OAuth\n\n") {
		t.Errorf("comments section missing in %q", got)
	}
	if strings.Contains(got, "Bob") {
		t.Error("empty comments should be skipped")
	}
	if strings.Contains(got, "**Description:**") {
		t.Error("missing description should be omitted")
	}
}

func TestCommentsContext_Failure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/api/3/issue/ABC-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"key":"ABC-1","fields":{"summary":"Add login"}}`))
	})
	mux.HandleFunc("GET /rest/api/3/issue/ABC-1/comment", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	if _, err := newTestClient(t, mux, "").CommentsContext(context.Background(), "ABC-1"); err == nil {
		t.Error("CommentsContext() should fail when comments cannot be read")
	}
}
