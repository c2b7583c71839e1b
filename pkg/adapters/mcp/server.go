package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/turnstack"
	"github.com/aretw0/turnstack/internal/logging"
	"github.com/aretw0/turnstack/pkg/domain"
	"github.com/aretw0/turnstack/pkg/runner"
	"github.com/aretw0/turnstack/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ConversationsURI is the resource listing stored conversation keys.
const ConversationsURI = "turnstack://conversations"

// Server exposes a dispatcher as an MCP Server, so an agent can hold a conversation
// with the bot through tool calls.
type Server struct {
	dispatcher *runner.Dispatcher
	sessions   *session.Manager
	mcpServer  *server.MCPServer
	logger     *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance. sessions may be nil, in which case the
// conversations resource is not registered.
func NewServer(dispatcher *runner.Dispatcher, sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		dispatcher: dispatcher,
		sessions:   sessions,
		mcpServer:  server.NewMCPServer("turnstack-mcp", strings.TrimSpace(turnstack.Version)),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	if sessions != nil {
		s.registerResources()
	}
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE. It returns when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		// Create a timeout context for the graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: send_activity
	sendTool := mcp.NewTool("send_activity",
		mcp.WithDescription("Send a message to the bot as one conversation turn and get its replies."),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("The conversation to continue (or start)")),
		mcp.WithString("text", mcp.Description("Message text")),
		mcp.WithString("type", mcp.Description("Activity type: message (default), conversationUpdate or event")),
		mcp.WithOutputSchema[runner.Reply](),
	)
	s.mcpServer.AddTool(sendTool, mcp.NewStructuredToolHandler(s.handleSendActivity))

	// TOOL: get_stack
	s.mcpServer.AddTool(mcp.NewTool("get_stack",
		mcp.WithDescription("Get the active dialog chain of a conversation, from the router down."),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation id")),
	), s.handleGetStack)

	// TOOL: reset_conversation
	s.mcpServer.AddTool(mcp.NewTool("reset_conversation",
		mcp.WithDescription("Forget a conversation's dialog stack so the next turn starts fresh."),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation id")),
	), s.handleReset)
}

func (s *Server) handleSendActivity(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (runner.Reply, error) {
	conversationID, _ := args["conversation_id"].(string)
	text, _ := args["text"].(string)
	activityType, _ := args["type"].(string)

	reply, err := s.dispatcher.Dispatch(ctx, domain.Activity{
		Type:           domain.ActivityType(activityType),
		ConversationID: conversationID,
		Text:           text,
	})
	if err != nil {
		if errors.Is(err, runner.ErrInputTooLarge) || errors.Is(err, runner.ErrInvalidUTF8) {
			return runner.Reply{}, fmt.Errorf("input rejected: %w", err)
		}
		s.logger.Error("MCP send_activity failed", "conversation_id", conversationID, "err", err)
		return runner.Reply{}, fmt.Errorf("turn failed: %w", err)
	}
	return *reply, nil
}

func (s *Server) handleGetStack(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	conversationID := request.GetString("conversation_id", "")
	path, err := s.dispatcher.Stack(ctx, conversationID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("stack inspection failed: %v", err)), nil
	}
	jsonBytes, _ := json.Marshal(path)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	conversationID := request.GetString("conversation_id", "")
	if err := s.dispatcher.Reset(ctx, conversationID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reset failed: %v", err)), nil
	}
	return mcp.NewToolResultText("reset " + conversationID), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(ConversationsURI, "Stored Conversations",
		mcp.WithMIMEType("application/json"),
	), s.readConversations)
}

func (s *Server) readConversations(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	keys, err := s.sessions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	jsonBytes, _ := json.Marshal(keys)

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ConversationsURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
