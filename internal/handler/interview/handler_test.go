package interview_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	interviewHandler "github.com/mockview/interviewer/internal/handler/interview"
	interviewModel "github.com/mockview/interviewer/internal/model/interview"
	"github.com/mockview/interviewer/internal/model/question"
	"github.com/mockview/interviewer/internal/service/session"
	"github.com/mockview/interviewer/internal/service/transcript"
)

type scriptedAgent struct {
	endAfter int
	replies  int
}

func (a *scriptedAgent) Name() string { return "scripted" }

func (a *scriptedAgent) GenerateReply(_ context.Context, _ []interviewModel.Message, state *interviewModel.State) interviewModel.Reply {
	a.replies++
	end := a.replies >= a.endAfter || (state != nil && state.ForceEnd)
	return interviewModel.Reply{Text: "next question please", End: end}
}

func (a *scriptedAgent) GeneratePerformanceSummary(context.Context, []interviewModel.Message) string {
	return "strong fundamentals"
}

func newTestServer(t *testing.T, endAfter int) *httptest.Server {
	t.Helper()

	bankPath := filepath.Join(t.TempDir(), "bank.json")
	seed := `[{"id":"1","text":"Explain VLOOKUP.","capabilities":["Lookup"],"difficulty":"Easy"}]`
	if err := os.WriteFile(bankPath, []byte(seed), 0o644); err != nil {
		t.Fatalf("seed bank: %v", err)
	}
	bank := question.NewBank(bankPath)

	svc := session.NewService(func() session.Agent {
		return &scriptedAgent{endAfter: endAfter}
	}, transcript.NewStore(t.TempDir()))

	r := chi.NewRouter()
	r.Route("/api", func(api chi.Router) {
		interviewHandler.New(svc, bank, "Welcome to your mock interview.").RegisterRoutes(api)
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func createSession(t *testing.T, server *httptest.Server) string {
	t.Helper()
	resp := postJSON(t, server.URL+"/api/interviews", "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	id, _ := body["id"].(string)
	if id == "" {
		t.Fatal("missing session id")
	}
	if body["opening"] != "Welcome to your mock interview." {
		t.Fatalf("unexpected opening %v", body["opening"])
	}
	return id
}

func TestCreateAndGetSession(t *testing.T) {
	server := newTestServer(t, 100)
	id := createSession(t, server)

	resp, err := http.Get(server.URL + "/api/interviews/" + id)
	if err != nil {
		t.Fatalf("GET session: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["id"] != id {
		t.Fatalf("id mismatch: %v", body["id"])
	}
	if body["ended"] != false {
		t.Fatalf("new session should not be ended: %v", body["ended"])
	}
}

func TestGetUnknownSession(t *testing.T) {
	server := newTestServer(t, 100)

	resp, err := http.Get(server.URL + "/api/interviews/does-not-exist")
	if err != nil {
		t.Fatalf("GET session: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestPostMessage(t *testing.T) {
	server := newTestServer(t, 100)
	id := createSession(t, server)

	resp := postJSON(t, server.URL+"/api/interviews/"+id+"/messages", `{"content":"I am ready"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("message status %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["ended"] != false {
		t.Fatalf("should not be ended: %v", body["ended"])
	}
	reply, _ := body["reply"].(map[string]any)
	if reply == nil || reply["content"] != "next question please" {
		t.Fatalf("unexpected reply %v", body["reply"])
	}
	if _, ok := body["summary"]; ok {
		t.Fatal("summary should be absent before the interview ends")
	}
}

func TestPostMessageValidation(t *testing.T) {
	server := newTestServer(t, 100)
	id := createSession(t, server)

	tests := []struct {
		name string
		body string
	}{
		{"empty content", `{"content":""}`},
		{"malformed json", `{"content":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, server.URL+"/api/interviews/"+id+"/messages", tt.body)
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestEndedInterviewFlow(t *testing.T) {
	server := newTestServer(t, 1)
	id := createSession(t, server)

	// Summary is unavailable until the interview ends.
	resp, err := http.Get(server.URL + "/api/interviews/" + id + "/summary")
	if err != nil {
		t.Fatalf("GET summary: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 before end, got %d", resp.StatusCode)
	}

	resp = postJSON(t, server.URL+"/api/interviews/"+id+"/messages", `{"content":"done"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("message status %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["ended"] != true {
		t.Fatalf("expected ended, got %v", body["ended"])
	}
	if body["summary"] != "strong fundamentals" {
		t.Fatalf("unexpected summary %v", body["summary"])
	}

	// Further messages are rejected.
	resp = postJSON(t, server.URL+"/api/interviews/"+id+"/messages", `{"content":"one more"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/api/interviews/" + id + "/summary")
	if err != nil {
		t.Fatalf("GET summary: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary status %d", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["summary"] != "strong fundamentals" {
		t.Fatalf("unexpected summary %v", body["summary"])
	}
}

func TestRequestEnd(t *testing.T) {
	server := newTestServer(t, 100)
	id := createSession(t, server)

	resp := postJSON(t, server.URL+"/api/interviews/"+id+"/end", "")
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("end status %d", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["status"] != "ending" {
		t.Fatalf("unexpected body %v", body)
	}

	resp = postJSON(t, server.URL+"/api/interviews/"+id+"/messages", `{"content":"closing thoughts"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("message status %d", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["ended"] != true {
		t.Fatalf("expected forced end, got %v", body["ended"])
	}
}

func TestTranscript(t *testing.T) {
	server := newTestServer(t, 100)
	id := createSession(t, server)

	resp := postJSON(t, server.URL+"/api/interviews/"+id+"/messages", `{"content":"hello"}`)
	resp.Body.Close()

	resp, err := http.Get(server.URL + "/api/interviews/" + id + "/transcript")
	if err != nil {
		t.Fatalf("GET transcript: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("transcript status %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	messages, _ := body["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
}

func TestBankStats(t *testing.T) {
	server := newTestServer(t, 100)

	resp, err := http.Get(server.URL + "/api/questions/stats")
	if err != nil {
		t.Fatalf("GET stats: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats status %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["count"] != float64(1) {
		t.Fatalf("unexpected count %v", body["count"])
	}
	capabilities, _ := body["capabilities"].([]any)
	if len(capabilities) != 1 || capabilities[0] != "Lookup" {
		t.Fatalf("unexpected capabilities %v", body["capabilities"])
	}
}
