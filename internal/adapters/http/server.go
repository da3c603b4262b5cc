package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/aretw0/tripgate"
	"github.com/aretw0/tripgate/internal/logging"
	"github.com/aretw0/tripgate/pkg/domain"
	"github.com/aretw0/tripgate/pkg/router"
	"github.com/aretw0/tripgate/pkg/sse"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// APIVersion is the version of the HTTP surface.
const APIVersion = "1.0.0"

// MaxRequestBodyBytes bounds the body of the query and resume endpoints.
const MaxRequestBodyBytes = 64 << 10

// HeaderConversationID carries the conversation ID on streamed responses.
const HeaderConversationID = "X-Conversation-ID"

// Service is the router surface served over HTTP.
type Service interface {
	NewTurn(req router.Request) (*router.Turn, error)
	Handle(ctx context.Context, turn *router.Turn, em router.Emitter) (domain.Outcome, error)
	State(ctx context.Context, conversationID string) (*domain.ConversationState, error)
}

// TurnRequest is the body of the query and resume endpoints.
type TurnRequest struct {
	Query          string `json:"query" validate:"required"`
	UserID         *int64 `json:"user_id" validate:"required"`
	ConversationID string `json:"conversation_id" validate:"max=64"`
}

// StateResponse is the body of the state endpoint.
type StateResponse struct {
	ConversationID string                    `json:"conversation_id"`
	State          *domain.ConversationState `json:"state"`
}

// Server implements the HTTP handlers.
type Server struct {
	svc      Service
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	validate *validator.Validate
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGatherer exposes the given registry on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// NewServer creates a Server for svc.
func NewServer(svc Service, opts ...Option) *Server {
	s := &Server{
		svc:      svc,
		logger:   logging.NewNop(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHandler returns the routed handler for svc.
func NewHandler(svc Service, opts ...Option) http.Handler {
	return NewServer(svc, opts...).Routes()
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	for _, prefix := range []string{"/travel", "/langgraph"} {
		r.Post(prefix+"/query", s.turnHandler(router.ModeQuery))
		r.Post(prefix+"/resume", s.turnHandler(router.ModeResume))
	}
	r.Get("/travel/state/{conversation_id}", s.GetState)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Expose-Headers", HeaderConversationID)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) turnHandler(mode router.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodyBytes)
		body, err := decodeTurnRequest(r)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"detail": "request body too large"})
			return
		}
		if err != nil {
			s.logger.Warn("Turn: Invalid request body", "error", err)
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
			return
		}
		if err := s.validate.Struct(body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": validationDetail(err)})
			return
		}

		turn, err := s.svc.NewTurn(router.Request{
			Query:          body.Query,
			UserID:         body.UserID,
			ConversationID: strings.TrimSpace(body.ConversationID),
			Mode:           mode,
		})
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			s.logger.Error("Turn: Streaming not supported")
			w.Header().Set(HeaderConversationID, turn.ConversationID)
			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusInternalServerError)
			enc := sse.NewEncoder(w, turn.RequestID, turn.ConversationID)
			_ = enc.Emit(sse.Event{
				Type:    domain.EventError,
				Payload: map[string]string{"message": "streaming not supported"},
				Text:    router.TextDraftFailed,
			})
			return
		}

		w.Header().Set(HeaderConversationID, turn.ConversationID)
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		enc := sse.NewEncoder(w, turn.RequestID, turn.ConversationID)
		outcome, err := s.svc.Handle(r.Context(), turn, enc)
		if err != nil {
			s.logger.Warn("Turn: Stream aborted", "error", err, "conversation_id", turn.ConversationID)
			return
		}
		s.logger.Debug("Turn: Completed", "conversation_id", turn.ConversationID, "outcome", outcome)
	}
}

// decodeTurnRequest accepts a JSON body or a url-encoded/multipart form.
func decodeTurnRequest(r *http.Request) (*TurnRequest, error) {
	var body TurnRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, err
		}
		return &body, nil
	}

	if err := r.ParseMultipartForm(MaxRequestBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, err
	}
	body.Query = r.FormValue("query")
	body.ConversationID = r.FormValue("conversation_id")
	if raw := strings.TrimSpace(r.FormValue("user_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		body.UserID = &id
	}
	return &body, nil
}

func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field())+":"+fe.Tag())
	}
	return "invalid fields: " + strings.Join(fields, ", ")
}

// GetState handles the GET /travel/state/{conversation_id} request.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversation_id")
	state, err := s.svc.State(r.Context(), id)
	if err != nil {
		s.logger.Error("GetState failed", "error", err, "conversation_id", id)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "failed to load state"})
		return
	}
	writeJSON(w, http.StatusOK, StateResponse{ConversationID: id, State: state})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "tripgate-http",
		"version":     strings.TrimSpace(tripgate.Version),
		"api_version": APIVersion,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "error", err)
	}
}
