// Package mcpserver exposes stored practice sessions to MCP clients over stdio.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rbright/rehearse/internal/store"
	"github.com/rbright/rehearse/internal/transcript"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// History is the read side of the results database.
type History interface {
	List(ctx context.Context, limit int) ([]store.Record, error)
	Get(ctx context.Context, id string) (store.Record, error)
}

// SessionSummary is one row of list_sessions output.
type SessionSummary struct {
	ID           string `json:"id"`
	Topic        string `json:"topic"`
	Modality     string `json:"modality"`
	OverallScore int    `json:"overallScore"`
	Answered     int    `json:"answered"`
	Skipped      int    `json:"skipped"`
	Failed       int    `json:"failed"`
	Early        bool   `json:"early"`
	CreatedAt    string `json:"createdAt"`
}

type listResult struct {
	Sessions []SessionSummary `json:"sessions"`
}

// New builds an MCP server with the history tools registered.
func New(history History, version string, logger *slog.Logger) *server.MCPServer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := handlers{history: history, logger: logger}

	srv := server.NewMCPServer("rehearse", version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	srv.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List recent interview practice sessions, newest first, with scores and answer counts."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum sessions to return (default %d).", defaultListLimit)),
			mcp.Min(1),
			mcp.Max(maxListLimit),
		),
	), h.listSessions)

	srv.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get one practice session with its summary and every answer analysis."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Session id as returned by list_sessions."),
		),
	), h.getSession)

	return srv
}

// Serve runs srv on the given streams until ctx is cancelled or input ends.
func Serve(ctx context.Context, srv *server.MCPServer, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(srv).Listen(ctx, in, out)
}

type handlers struct {
	history History
	logger  *slog.Logger
}

func (h handlers) listSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", defaultListLimit)
	if limit < 1 || limit > maxListLimit {
		return mcp.NewToolResultErrorf("limit must be between 1 and %d", maxListLimit), nil
	}

	records, err := h.history.List(ctx, limit)
	if err != nil {
		h.logger.Error("mcp list_sessions failed", "error", err.Error())
		return mcp.NewToolResultErrorFromErr("list sessions", err), nil
	}

	out := listResult{Sessions: make([]SessionSummary, 0, len(records))}
	for _, rec := range records {
		out.Sessions = append(out.Sessions, summarize(rec))
	}
	return mcp.NewToolResultJSON(out)
}

func (h handlers) getSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rec, err := h.history.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultErrorf("no session with id %q", id), nil
	}
	if err != nil {
		h.logger.Error("mcp get_session failed", "id", id, "error", err.Error())
		return mcp.NewToolResultErrorFromErr("get session", err), nil
	}
	return mcp.NewToolResultJSON(rec)
}

func summarize(rec store.Record) SessionSummary {
	answered, skipped, failed := transcript.Counts(rec.Answers)
	return SessionSummary{
		ID:           rec.ID,
		Topic:        rec.Topic,
		Modality:     rec.Modality,
		OverallScore: rec.OverallScore,
		Answered:     answered,
		Skipped:      skipped,
		Failed:       failed,
		Early:        rec.Early,
		CreatedAt:    rec.CreatedAt.Format(time.RFC3339),
	}
}
