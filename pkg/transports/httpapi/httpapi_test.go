package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/focusflowhq/focusflow/pkg/agent"
	"github.com/focusflowhq/focusflow/pkg/auth"
	"github.com/focusflowhq/focusflow/pkg/chat"
	"github.com/focusflowhq/focusflow/pkg/llm"
	"github.com/focusflowhq/focusflow/pkg/providers/mock"
	"github.com/focusflowhq/focusflow/pkg/store"
	"github.com/focusflowhq/focusflow/pkg/tools"
	"github.com/gorilla/websocket"
)

type fixture struct {
	server *httptest.Server
	store  *store.Store
}

func newFixture(t *testing.T, adapter llm.Adapter) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	registry := tools.NewRegistry()
	if err := tools.RegisterTaskTools(registry, st); err != nil {
		t.Fatalf("register tools: %v", err)
	}
	executor := tools.NewExecutor(registry, nil)
	orc := agent.New(adapter, registry, executor, nil, agent.Config{})
	chatSvc := chat.NewService(st, orc)
	authn := auth.New("test-secret", time.Hour)

	transport := New(Config{}, st, authn, chatSvc)
	srv := httptest.NewServer(transport.Handler())
	t.Cleanup(srv.Close)
	return &fixture{server: srv, store: st}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var payload *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		payload = bytes.NewBuffer(raw)
	} else {
		payload = bytes.NewBuffer(nil)
	}
	req, err := http.NewRequest(method, f.server.URL+path, payload)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func (f *fixture) signup(t *testing.T, email string) string {
	t.Helper()
	resp, body := f.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email": email, "password": "password123", "name": "Tester",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status %d: %v", resp.StatusCode, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("no token in %v", body)
	}
	return token
}

func TestSignupAndSignin(t *testing.T) {
	f := newFixture(t, mock.New())
	token := f.signup(t, "alice@example.com")

	resp, body := f.do(t, http.MethodGet, "/api/me", token, nil)
	if resp.StatusCode != http.StatusOK || body["email"] != "alice@example.com" {
		t.Fatalf("me: %d %v", resp.StatusCode, body)
	}

	resp, _ = f.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email": "alice@example.com", "password": "password123",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate signup status %d", resp.StatusCode)
	}

	resp, body = f.do(t, http.MethodPost, "/api/auth/signin", "", map[string]any{
		"email": "alice@example.com", "password": "password123",
	})
	if resp.StatusCode != http.StatusOK || body["token"] == "" {
		t.Fatalf("signin: %d %v", resp.StatusCode, body)
	}

	resp, _ = f.do(t, http.MethodPost, "/api/auth/signin", "", map[string]any{
		"email": "alice@example.com", "password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad signin status %d", resp.StatusCode)
	}
}

func TestTokenFlow(t *testing.T) {
	f := newFixture(t, mock.New())
	f.signup(t, "form@example.com")

	form := url.Values{"username": {"form@example.com"}, "password": {"password123"}}
	resp, err := http.Post(f.server.URL+"/api/auth/token", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("token status %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["access_token"] == "" || body["token_type"] != "bearer" {
		t.Fatalf("token body: %v", body)
	}

	me, got := f.do(t, http.MethodGet, "/api/me", body["access_token"], nil)
	if me.StatusCode != http.StatusOK || got["email"] != "form@example.com" {
		t.Fatalf("me with form token: %d %v", me.StatusCode, got)
	}
}

func TestSignupValidation(t *testing.T) {
	f := newFixture(t, mock.New())
	resp, _ := f.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email": "not-an-email", "password": "password123",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad email status %d", resp.StatusCode)
	}
	resp, _ = f.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email": "short@example.com", "password": "short",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("short password status %d", resp.StatusCode)
	}
}

func TestAuthRequired(t *testing.T) {
	f := newFixture(t, mock.New())
	for _, path := range []string{"/api/tasks", "/api/chat/conversations", "/api/me"} {
		resp, _ := f.do(t, http.MethodGet, path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s without token: %d", path, resp.StatusCode)
		}
	}
	resp, _ := f.do(t, http.MethodGet, "/api/tasks", "garbage-token", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token status %d", resp.StatusCode)
	}
}

func TestTaskCRUD(t *testing.T) {
	f := newFixture(t, mock.New())
	token := f.signup(t, "tasks@example.com")

	resp, created := f.do(t, http.MethodPost, "/api/tasks", token, map[string]any{
		"title": "write docs", "description": "the API section",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: %d %v", resp.StatusCode, created)
	}
	id := created["id"].(float64)

	resp, got := f.do(t, http.MethodGet, fmt.Sprintf("/api/tasks/%.0f", id), token, nil)
	if resp.StatusCode != http.StatusOK || got["title"] != "write docs" {
		t.Fatalf("get: %d %v", resp.StatusCode, got)
	}

	resp, updated := f.do(t, http.MethodPut, fmt.Sprintf("/api/tasks/%.0f", id), token, map[string]any{
		"description": "the whole API section",
	})
	if resp.StatusCode != http.StatusOK || updated["description"] != "the whole API section" || updated["title"] != "write docs" {
		t.Fatalf("update: %d %v", resp.StatusCode, updated)
	}

	resp, done := f.do(t, http.MethodPost, fmt.Sprintf("/api/tasks/%.0f/complete", id), token, nil)
	if resp.StatusCode != http.StatusOK || done["completed"] != true {
		t.Fatalf("complete: %d %v", resp.StatusCode, done)
	}

	resp, listed := f.do(t, http.MethodGet, "/api/tasks?status=completed", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: %d", resp.StatusCode)
	}
	if tasks := listed["tasks"].([]any); len(tasks) != 1 {
		t.Fatalf("list rows: %v", listed)
	}

	resp, _ = f.do(t, http.MethodDelete, fmt.Sprintf("/api/tasks/%.0f", id), token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: %d", resp.StatusCode)
	}
	resp, _ = f.do(t, http.MethodGet, fmt.Sprintf("/api/tasks/%.0f", id), token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete: %d", resp.StatusCode)
	}
}

func TestTaskForbiddenForOtherUser(t *testing.T) {
	f := newFixture(t, mock.New())
	owner := f.signup(t, "owner@example.com")
	intruder := f.signup(t, "intruder@example.com")

	_, created := f.do(t, http.MethodPost, "/api/tasks", owner, map[string]any{"title": "secret"})
	id := created["id"].(float64)

	resp, _ := f.do(t, http.MethodGet, fmt.Sprintf("/api/tasks/%.0f", id), intruder, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("cross-user get: %d", resp.StatusCode)
	}
	resp, _ = f.do(t, http.MethodDelete, fmt.Sprintf("/api/tasks/%.0f", id), intruder, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("cross-user delete: %d", resp.StatusCode)
	}
}

func TestChatTurn(t *testing.T) {
	adapter := mock.New(
		mock.Calls(llm.ToolCall{Name: "add_task", Arguments: map[string]any{"title": "buy milk"}}),
		mock.Text("Added buy milk to your list."),
	)
	f := newFixture(t, adapter)
	token := f.signup(t, "chat@example.com")

	resp, body := f.do(t, http.MethodPost, "/api/chat", token, map[string]any{
		"message": "remind me to buy milk",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat: %d %v", resp.StatusCode, body)
	}
	if body["response"] != "Added buy milk to your list." {
		t.Fatalf("response: %v", body)
	}
	calls := body["tool_calls"].([]any)
	if len(calls) != 1 {
		t.Fatalf("tool calls: %v", calls)
	}
	convID := body["conversation_id"].(float64)

	resp, conv := f.do(t, http.MethodGet, fmt.Sprintf("/api/chat/conversations/%.0f", convID), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get conversation: %d", resp.StatusCode)
	}
	msgs := conv["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages: %v", msgs)
	}
	assistant := msgs[1].(map[string]any)
	if assistant["role"] != "assistant" || len(assistant["tool_calls"].([]any)) != 1 {
		t.Fatalf("assistant message: %v", assistant)
	}

	resp, list := f.do(t, http.MethodGet, "/api/chat/conversations", token, nil)
	if resp.StatusCode != http.StatusOK || len(list["conversations"].([]any)) != 1 {
		t.Fatalf("conversations: %d %v", resp.StatusCode, list)
	}

	resp, _ = f.do(t, http.MethodDelete, fmt.Sprintf("/api/chat/conversations/%.0f", convID), token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete conversation: %d", resp.StatusCode)
	}
	resp, _ = f.do(t, http.MethodGet, fmt.Sprintf("/api/chat/conversations/%.0f", convID), token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("conversation after delete: %d", resp.StatusCode)
	}
}

func TestChatValidation(t *testing.T) {
	f := newFixture(t, mock.New())
	token := f.signup(t, "empty@example.com")

	resp, _ := f.do(t, http.MethodPost, "/api/chat", token, map[string]any{"message": "  "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty message: %d", resp.StatusCode)
	}
	resp, _ = f.do(t, http.MethodPost, "/api/chat", token, map[string]any{
		"message": "hi", "conversation_id": 9999,
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing conversation: %d", resp.StatusCode)
	}
}

func TestChatWebsocket(t *testing.T) {
	adapter := mock.New(mock.Text("Hello!"), mock.Text("Bye!"))
	f := newFixture(t, adapter)
	token := f.signup(t, "ws@example.com")

	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/api/chat/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]any{"message": "hi"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var first wsResponse
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read: %v", err)
	}
	if first.Response != "Hello!" || first.ConversationID == 0 {
		t.Fatalf("first: %+v", first)
	}

	// Continue the same conversation over the socket.
	if err := conn.WriteJSON(map[string]any{"message": "bye", "conversation_id": first.ConversationID}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var second wsResponse
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("read: %v", err)
	}
	if second.Response != "Bye!" || second.ConversationID != first.ConversationID {
		t.Fatalf("second: %+v", second)
	}

	// Bad input answers with an error message, socket stays open.
	if err := conn.WriteJSON(map[string]any{"message": ""}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var third wsResponse
	if err := conn.ReadJSON(&third); err != nil {
		t.Fatalf("read: %v", err)
	}
	if third.Error == "" {
		t.Fatalf("third: %+v", third)
	}
}

func TestWebsocketCarriesToolCalls(t *testing.T) {
	adapter := mock.New(
		mock.Calls(llm.ToolCall{Name: "add_task", Arguments: map[string]any{"title": "ship it"}}),
		mock.Text("Added."),
	)
	f := newFixture(t, adapter)
	token := f.signup(t, "wstools@example.com")

	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/api/chat/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]any{"message": "add ship it"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var reply wsResponse
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(reply.ToolCalls) != 1 || reply.ToolCalls[0].Tool != "add_task" {
		t.Fatalf("tool calls: %+v", reply.ToolCalls)
	}
}

func TestWebsocketRequiresToken(t *testing.T) {
	f := newFixture(t, mock.New())
	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/api/chat/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status: %+v", resp)
	}
}
