// Package mcp exposes the travel router as a Model Context Protocol tool server.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/tripgate"
	"github.com/aretw0/tripgate/internal/logging"
	"github.com/aretw0/tripgate/pkg/domain"
	"github.com/aretw0/tripgate/pkg/itinerary"
	"github.com/aretw0/tripgate/pkg/router"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// SchemaURI addresses the itinerary.v1 JSON schema resource.
const SchemaURI = "tripgate://schema/itinerary.v1"

// Engine defines what the MCP server needs from tripgate.
type Engine interface {
	Ask(ctx context.Context, req router.Request) (*tripgate.Reply, error)
	State(ctx context.Context, conversationID string) (*domain.ConversationState, error)
	ClearPending(ctx context.Context, conversationID string) error
}

// PlanResponse is the structured result of plan_trip.
type PlanResponse struct {
	ConversationID string             `json:"conversation_id" jsonschema_description:"Conversation to pass back on the next call"`
	Outcome        domain.Outcome     `json:"outcome" jsonschema_description:"How the turn ended (clarification, itinerary, ...)"`
	NeedsInput     bool               `json:"needs_input" jsonschema_description:"True when the next call should set resume"`
	Messages       []string           `json:"messages" jsonschema_description:"User-facing text lines"`
	Itinerary      json.RawMessage    `json:"itinerary,omitempty" jsonschema_description:"itinerary.v1 document when one was generated"`
	Events         []domain.EventType `json:"events" jsonschema_description:"Event types emitted, in order"`
}

// StateResponse is the structured result of get_trip_state.
type StateResponse struct {
	ConversationID string                    `json:"conversation_id"`
	State          *domain.ConversationState `json:"state"`
}

// Server wraps the Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("tripgate-mcp", strings.TrimSpace(tripgate.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	planTool := mcp.NewTool("plan_trip",
		mcp.WithDescription("Send one travel-planning message. Missing destination, duration or budget is asked back before any itinerary is drafted."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The user message")),
		mcp.WithString("conversation_id", mcp.Description("Conversation to continue (omit to start a new one)")),
		mcp.WithBoolean("resume", mcp.Description("Answer the pending clarification of conversation_id")),
		mcp.WithNumber("user_id", mcp.Description("Numeric ID of the user (optional)")),
		mcp.WithOutputSchema[PlanResponse](),
	)
	s.mcpServer.AddTool(planTool, mcp.NewStructuredToolHandler(s.handlePlanTrip))

	stateTool := mcp.NewTool("get_trip_state",
		mcp.WithDescription("Get the persisted itinerary snapshot of a conversation."),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation ID")),
		mcp.WithOutputSchema[StateResponse](),
	)
	s.mcpServer.AddTool(stateTool, mcp.NewStructuredToolHandler(s.handleGetState))

	s.mcpServer.AddTool(mcp.NewTool("clear_pending",
		mcp.WithDescription("Drop the open clarification of a conversation."),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation ID")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("conversation_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := s.engine.ClearPending(ctx, id); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("clear failed: %v", err)), nil
		}
		return mcp.NewToolResultText("cleared"), nil
	})
}

func (s *Server) handlePlanTrip(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (PlanResponse, error) {
	query, _ := args["query"].(string)
	req := router.Request{Query: query, Mode: router.ModeQuery}
	req.ConversationID, _ = args["conversation_id"].(string)
	if resume, _ := args["resume"].(bool); resume {
		req.Mode = router.ModeResume
	}
	if uid, ok := args["user_id"].(float64); ok {
		id := int64(uid)
		req.UserID = &id
	}

	reply, err := s.engine.Ask(ctx, req)
	if err != nil {
		s.logger.Warn("MCP plan_trip: Turn rejected", "error", err)
		return PlanResponse{}, fmt.Errorf("plan_trip failed: %w", err)
	}
	return toPlanResponse(reply), nil
}

func toPlanResponse(reply *tripgate.Reply) PlanResponse {
	resp := PlanResponse{
		ConversationID: reply.ConversationID,
		Outcome:        reply.Outcome,
		NeedsInput:     reply.Outcome == domain.OutcomeClarification,
		Messages:       reply.Text(),
		Events:         make([]domain.EventType, 0, len(reply.Events)),
	}
	if resp.Messages == nil {
		resp.Messages = []string{}
	}
	for _, ev := range reply.Events {
		if ev.Type != "" {
			resp.Events = append(resp.Events, ev.Type)
		}
	}
	if final := reply.Last(domain.EventFinalItinerary); final != nil {
		var body struct {
			Itinerary json.RawMessage `json:"itinerary"`
		}
		if raw, err := json.Marshal(final.Payload); err == nil && json.Unmarshal(raw, &body) == nil {
			resp.Itinerary = body.Itinerary
		}
	}
	return resp
}

func (s *Server) handleGetState(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StateResponse, error) {
	id, _ := args["conversation_id"].(string)
	if id == "" {
		return StateResponse{}, fmt.Errorf("conversation_id is required")
	}
	state, err := s.engine.State(ctx, id)
	if err != nil {
		return StateResponse{}, fmt.Errorf("get_trip_state failed: %w", err)
	}
	return StateResponse{ConversationID: id, State: state}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(SchemaURI, "itinerary.v1 JSON Schema",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      SchemaURI,
				MIMEType: "application/json",
				Text:     string(itinerary.Schema()),
			},
		}, nil
	})
}
