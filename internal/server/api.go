package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/teemow/calassist/internal/chat"
	"github.com/teemow/calassist/internal/google"
	"github.com/teemow/calassist/internal/llm"
	"github.com/teemow/calassist/internal/logging"
)

const (
	// DefaultRateLimitRequests is the per-IP request budget per window.
	DefaultRateLimitRequests = 60
	// DefaultRateLimitWindow is the rate limit window.
	DefaultRateLimitWindow = time.Minute

	// MaxMessageLength is the longest accepted chat message in characters.
	MaxMessageLength = 4000

	maxRequestBodyBytes = 64 << 10
)

// ChatAPIConfig configures the HTTP chat API.
type ChatAPIConfig struct {
	Sessions *SessionManager
	Health   *HealthChecker

	// AllowedOrigins defaults to any http or https origin.
	AllowedOrigins    []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// ChatAPI serves chat sessions over HTTP.
type ChatAPI struct {
	sc       *ServerContext
	sessions *SessionManager
	health   *HealthChecker
	logger   *slog.Logger

	allowedOrigins    []string
	rateLimitRequests int
	rateLimitWindow   time.Duration
}

// NewChatAPI creates the chat API.
func NewChatAPI(sc *ServerContext, cfg ChatAPIConfig) *ChatAPI {
	if cfg.Health == nil {
		cfg.Health = NewHealthChecker(sc)
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"https://*", "http://*"}
	}
	if cfg.RateLimitRequests <= 0 {
		cfg.RateLimitRequests = DefaultRateLimitRequests
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = DefaultRateLimitWindow
	}
	return &ChatAPI{
		sc:                sc,
		sessions:          cfg.Sessions,
		health:            cfg.Health,
		logger:            logging.WithService(sc.Logger(), "chat-api"),
		allowedOrigins:    cfg.AllowedOrigins,
		rateLimitRequests: cfg.RateLimitRequests,
		rateLimitWindow:   cfg.RateLimitWindow,
	}
}

// Handler returns the routed, instrumented HTTP handler.
func (a *ChatAPI) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(a.observe)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Location"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	a.health.RegisterHealthEndpoints(r)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(a.rateLimit())

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", a.createSession)
			r.Get("/", a.listSessions)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", a.getSession)
				r.Delete("/", a.deleteSession)

				r.Post("/messages", a.sendMessage)
				r.Get("/messages", a.listMessages)

				r.Put("/calendar", a.selectCalendar)
				r.Get("/calendars", a.listCalendars)
			})
		})
	})

	return otelhttp.NewHandler(r, "calassist-api")
}

func (a *ChatAPI) rateLimit() func(http.Handler) http.Handler {
	return httprate.Limit(
		a.rateLimitRequests,
		a.rateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		}),
	)
}

// observe logs each request and records it with the route pattern as path.
func (a *ChatAPI) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)

		a.sc.Metrics().RecordHTTPRequest(r.Context(), r.Method, path, status, duration)
		a.logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", path),
			slog.Int(logging.KeyStatus, status),
			slog.Duration(logging.KeyDuration, duration),
			slog.String("request_id", chimiddleware.GetReqID(r.Context())))
	})
}

type createSessionRequest struct {
	Account    string `json:"account"`
	CalendarID string `json:"calendar_id"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

type selectCalendarRequest struct {
	CalendarID string `json:"calendar_id"`
}

type toolOutcome struct {
	Name    string `json:"name"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type messageResponse struct {
	Reply       string        `json:"reply"`
	Cost        float64       `json:"cost"`
	TotalTokens int64         `json:"total_tokens"`
	Failed      bool          `json:"failed,omitempty"`
	Tools       []toolOutcome `json:"tools,omitempty"`
}

type historyResponse struct {
	Messages []llm.Message `json:"messages"`
}

// POST /api/v1/sessions
func (a *ChatAPI) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	// The body is optional.
	if err := decodeBody(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s, err := a.sessions.Create(r.Context(), strings.TrimSpace(req.Account), strings.TrimSpace(req.CalendarID))
	if err != nil {
		a.logger.Warn("failed to create session", logging.Account(req.Account), logging.Err(err))
		switch {
		case errors.Is(err, google.ErrNoToken):
			writeError(w, http.StatusUnauthorized, google.GetAuthenticationErrorMessage(accountOrDefault(req.Account)))
		case errors.Is(err, ErrServerShutdown):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to create session")
		}
		return
	}

	w.Header().Set("Location", "/api/v1/sessions/"+s.ID)
	writeJSON(w, http.StatusCreated, s.Info())
}

// GET /api/v1/sessions
func (a *ChatAPI) listSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": a.sessions.List()})
}

// GET /api/v1/sessions/{id}
func (a *ChatAPI) getSession(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Info())
}

// DELETE /api/v1/sessions/{id}
func (a *ChatAPI) deleteSession(w http.ResponseWriter, r *http.Request) {
	if !a.sessions.Remove(r.Context(), chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, ErrSessionNotFound.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/sessions/{id}/messages
func (a *ChatAPI) sendMessage(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		writeError(w, http.StatusBadRequest, chat.ErrEmptyMessage.Error())
		return
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		writeError(w, http.StatusRequestEntityTooLarge, "message is too long")
		return
	}

	reply, err := s.Send(r.Context(), content)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := messageResponse{
		Reply:       reply.Text,
		Cost:        reply.Cost,
		TotalTokens: reply.TotalTokens,
		Failed:      reply.Failed,
	}
	for _, ex := range reply.Executed {
		resp.Tools = append(resp.Tools, toolOutcome{
			Name:    ex.Call.Name,
			Success: ex.Result.Success,
			Message: ex.Result.Message,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/v1/sessions/{id}/messages
// The system prompt is not returned.
func (a *ChatAPI) listMessages(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}

	history := s.History()
	msgs := make([]llm.Message, 0, len(history))
	for _, m := range history {
		if m.Role == llm.RoleSystem {
			continue
		}
		msgs = append(msgs, m)
	}
	writeJSON(w, http.StatusOK, historyResponse{Messages: msgs})
}

// PUT /api/v1/sessions/{id}/calendar
func (a *ChatAPI) selectCalendar(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}

	var req selectCalendarRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.SelectCalendar(req.CalendarID)
	a.logger.Info("calendar selected", slog.String(logging.KeySession, s.ID), logging.Calendar(s.CalendarID()))
	writeJSON(w, http.StatusOK, s.Info())
}

// GET /api/v1/sessions/{id}/calendars
func (a *ChatAPI) listCalendars(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}

	calendars, err := s.Calendars(r.Context())
	if err != nil {
		a.logger.Error("failed to list calendars", slog.String(logging.KeySession, s.ID), logging.Err(err))
		writeError(w, http.StatusBadGateway, "Error listing calendars from Google Calendar.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"calendars": calendars,
		"selected":  s.CalendarID(),
	})
}

func (a *ChatAPI) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	s, err := a.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return s, true
}

func accountOrDefault(account string) string {
	if strings.TrimSpace(account) == "" {
		return google.DefaultAccount
	}
	return account
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
