package server

import (
	"context"
	"strings"
	"testing"

	"safesteps/backend/internal/safechat"
)

func TestMockAIClientCannedAnswers(t *testing.T) {
	t.Parallel()

	client := MockAIClient{}

	resp, err := client.Query(context.Background(), AIModelRequest{UserPrompt: "what is a bully?"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if !strings.Contains(strings.ToLower(resp.Answer), "bullying") {
		t.Fatalf("expected bullying answer, got %q", resp.Answer)
	}
	if resp.Model != "gemini-mock" {
		t.Fatalf("unexpected model: %q", resp.Model)
	}

	resp, err = client.Query(context.Background(), AIModelRequest{UserPrompt: ""})
	if err != nil {
		t.Fatalf("query with empty prompt failed: %v", err)
	}
	if !strings.Contains(resp.Answer, "No question provided") {
		t.Fatalf("unexpected fallback answer: %q", resp.Answer)
	}
}

func TestIsModelRole(t *testing.T) {
	t.Parallel()

	cases := []struct {
		role string
		want bool
	}{
		{role: "model", want: true},
		{role: "Assistant", want: true},
		{role: " MODEL ", want: true},
		{role: "user", want: false},
		{role: "", want: false},
	}
	for _, tc := range cases {
		if got := isModelRole(tc.role); got != tc.want {
			t.Fatalf("isModelRole(%q)=%v, want %v", tc.role, got, tc.want)
		}
	}
}

type recordingAIClient struct {
	lastRequest AIModelRequest
	answer      string
}

func (r *recordingAIClient) Query(_ context.Context, req AIModelRequest) (AIModelResponse, error) {
	r.lastRequest = req
	return AIModelResponse{Answer: r.answer, Model: "recording"}, nil
}

func TestAICompleterMapsHistoryAndPrompt(t *testing.T) {
	t.Parallel()

	recorder := &recordingAIClient{answer: "all good"}
	completer := &aiCompleter{client: recorder}

	history := safechat.History{
		{Role: safechat.RoleUser, Text: "hi"},
		{Role: safechat.RoleModel, Text: "hello"},
	}
	answer, err := completer.Complete(context.Background(), "be kind", history, "what is consent?")
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if answer != "all good" {
		t.Fatalf("unexpected answer: %q", answer)
	}

	req := recorder.lastRequest
	if req.SystemPrompt != "be kind" {
		t.Fatalf("system prompt not forwarded: %q", req.SystemPrompt)
	}
	if req.UserPrompt != "what is consent?" {
		t.Fatalf("user prompt not forwarded: %q", req.UserPrompt)
	}
	if len(req.Conversation) != 2 {
		t.Fatalf("expected 2 conversation turns, got %d", len(req.Conversation))
	}
	if req.Conversation[0].Role != safechat.RoleUser || req.Conversation[0].Content != "hi" {
		t.Fatalf("unexpected first turn: %+v", req.Conversation[0])
	}
	if req.Conversation[1].Role != safechat.RoleModel || req.Conversation[1].Content != "hello" {
		t.Fatalf("unexpected second turn: %+v", req.Conversation[1])
	}
}
