package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/focusflowhq/focusflow/pkg/auth"
	"github.com/focusflowhq/focusflow/pkg/chat"
	"github.com/focusflowhq/focusflow/pkg/logging"
	"github.com/focusflowhq/focusflow/pkg/store"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Config struct {
	Addr            string        `mapstructure:"addr"`
	AllowAnyOrigin  bool          `mapstructure:"allow_any_origin"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 15 * time.Second
	}
	if c.WriteTimeout <= 0 {
		// Chat turns block on the model provider; keep this generous.
		c.WriteTimeout = 2 * time.Minute
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if !c.AllowAnyOrigin && len(c.AllowedOrigins) == 0 {
		c.AllowAnyOrigin = true
	}
	return c
}

// Transport serves the REST and websocket API.
type Transport struct {
	cfg      Config
	server   *http.Server
	store    *store.Store
	auth     *auth.Authenticator
	chat     *chat.Service
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func New(cfg Config, st *store.Store, authn *auth.Authenticator, chatSvc *chat.Service) *Transport {
	cfg = cfg.withDefaults()
	t := &Transport{
		cfg:   cfg,
		store: st,
		auth:  authn,
		chat:  chatSvc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		log: logging.NewComponentLogger("httpapi"),
	}
	t.upgrader.CheckOrigin = t.checkOrigin
	t.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      t.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return t
}

func (t *Transport) Name() string { return "httpapi" }

func (t *Transport) ReadyFields() map[string]any {
	return map[string]any{"addr": t.cfg.Addr}
}

func (t *Transport) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /api/auth/signup", t.handleSignup)
	mux.HandleFunc("POST /api/auth/signin", t.handleSignin)
	mux.HandleFunc("POST /api/auth/token", t.handleToken)
	mux.HandleFunc("GET /api/me", t.requireAuth(t.handleMe))

	mux.HandleFunc("GET /api/tasks", t.requireAuth(t.handleListTasks))
	mux.HandleFunc("POST /api/tasks", t.requireAuth(t.handleCreateTask))
	mux.HandleFunc("GET /api/tasks/{id}", t.requireAuth(t.handleGetTask))
	mux.HandleFunc("PUT /api/tasks/{id}", t.requireAuth(t.handleUpdateTask))
	mux.HandleFunc("DELETE /api/tasks/{id}", t.requireAuth(t.handleDeleteTask))
	mux.HandleFunc("POST /api/tasks/{id}/complete", t.requireAuth(t.handleCompleteTask))

	mux.HandleFunc("POST /api/chat", t.requireAuth(t.handleChat))
	mux.HandleFunc("GET /api/chat/ws", t.requireAuth(t.handleChatWS))
	mux.HandleFunc("GET /api/chat/conversations", t.requireAuth(t.handleListConversations))
	mux.HandleFunc("GET /api/chat/conversations/{id}", t.requireAuth(t.handleGetConversation))
	mux.HandleFunc("DELETE /api/chat/conversations/{id}", t.requireAuth(t.handleDeleteConversation))

	return t.cors(t.withRequestID(mux))
}

// Handler exposes the full route tree, mainly for tests.
func (t *Transport) Handler() http.Handler { return t.server.Handler }

func (t *Transport) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", t.cfg.Addr)
	if err != nil {
		return err
	}
	t.log.Info("http_listening", "addr", ln.Addr().String())
	go func() {
		if err := t.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.log.Error("http_serve_failed", "error", err)
		}
	}()
	return nil
}

func (t *Transport) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, t.cfg.ShutdownTimeout)
	defer cancel()
	return t.server.Shutdown(shutdownCtx)
}

func (t *Transport) checkOrigin(r *http.Request) bool {
	if t.cfg.AllowAnyOrigin {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range t.cfg.AllowedOrigins {
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}
	return false
}

func (t *Transport) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && t.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRequestID tags every request with a trace id so log lines from one
// request can be correlated. Client-supplied ids are honored.
func (t *Transport) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		t.log.Debug("http_request", "request_id", id, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (t *Transport) originAllowed(origin string) bool {
	if t.cfg.AllowAnyOrigin {
		return true
	}
	for _, allowed := range t.cfg.AllowedOrigins {
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}
	return false
}

type authedHandler func(w http.ResponseWriter, r *http.Request, userID string)

// requireAuth validates the bearer token and hands the user id to the
// handler. Websocket clients cannot set headers from a browser, so a token
// query parameter is accepted as a fallback.
func (t *Transport) requireAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := t.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next(w, r, claims.Subject)
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeBody(r *http.Request, into any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(into)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
