package mcp

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/marker-finder/markersum/pkg/cache"
	"github.com/marker-finder/markersum/pkg/tracker"
)

type summarizeArgs struct {
	Text     string `json:"text"`
	MarkerID string `json:"marker_id"`
	Force    bool   `json:"force"`
}

type markerArgs struct {
	MarkerID string `json:"marker_id"`
}

type runsArgs struct {
	Limit int    `json:"limit"`
	RunID string `json:"run_id"`
}

type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

var toolHandlers = map[string]toolHandler{
	"markersum_summarize":   handleSummarize,
	"markersum_cache_get":   handleCacheGet,
	"markersum_cache_stats": handleCacheStats,
	"markersum_runs":        handleRuns,
}

var allTools = []ToolDefinition{
	{
		Name:        "markersum_summarize",
		Description: "Summarize a historical marker inscription in 2-3 sentences. With a marker_id the summary is cached and reused.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"text"},
			"properties": map[string]any{
				"text": map[string]any{
					"type":        "string",
					"description": "Inscription text",
				},
				"marker_id": map[string]any{
					"type":        "string",
					"description": "Marker ID used as the cache key (optional)",
				},
				"force": map[string]any{
					"type":        "boolean",
					"description": "Regenerate even if a cached summary exists",
				},
			},
		},
	},
	{
		Name:        "markersum_cache_get",
		Description: "Return the cached summary for a marker ID.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"marker_id"},
			"properties": map[string]any{
				"marker_id": map[string]any{
					"type":        "string",
					"description": "Marker ID",
				},
			},
		},
	},
	{
		Name:        "markersum_cache_stats",
		Description: "Show summary cache statistics (entries, size).",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
	{
		Name:        "markersum_runs",
		Description: "List recent batch runs, or show one run in detail.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"limit": map[string]any{
					"type":        "integer",
					"description": "Max runs to list (default 10)",
				},
				"run_id": map[string]any{
					"type":        "string",
					"description": "Show only this run (optional)",
				},
			},
		},
	},
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
}

func handleSummarize(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args summarizeArgs
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return errorResult("invalid arguments: " + err.Error())
		}
	}
	if s.sum == nil {
		return errorResult("Summarization is not configured.")
	}

	var identifier *string
	if args.MarkerID != "" {
		identifier = &args.MarkerID
	}
	res := s.sum.Summarize(ctx, args.Text, identifier, args.Force)
	if res.Err != nil {
		return errorResult(res.Summary)
	}
	return textResult(res.Summary)
}

func handleCacheGet(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args markerArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	if args.MarkerID == "" {
		return errorResult("marker_id is required")
	}
	if s.store == nil {
		return textResult("Cache is not configured.")
	}
	summary, ok, err := s.store.Get(ctx, cache.Key(args.MarkerID))
	if err != nil {
		return errorResult("Error reading cache: " + err.Error())
	}
	if !ok {
		return textResult("No cached summary for marker " + args.MarkerID + ".")
	}
	return textResult(summary)
}

func handleCacheStats(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	admin, ok := s.store.(cache.Admin)
	if !ok {
		return textResult("Cache is not configured.")
	}
	stats, err := admin.Stats(ctx)
	if err != nil {
		return errorResult("Error fetching cache stats: " + err.Error())
	}
	return textResult(formatCacheStats(stats))
}

func handleRuns(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.tracker == nil {
		return textResult("Run tracking is not configured.")
	}
	var args runsArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}

	if args.RunID != "" {
		rec, err := s.tracker.Get(ctx, args.RunID)
		if errors.Is(err, tracker.ErrNotFound) {
			return textResult("No run found with ID " + args.RunID + ".")
		}
		if err != nil {
			return errorResult("Error fetching run: " + err.Error())
		}
		return textResult(formatRun(rec))
	}

	limit := args.Limit
	if limit <= 0 {
		limit = 10
	}
	runs, err := s.tracker.List(ctx, limit)
	if err != nil {
		return errorResult("Error listing runs: " + err.Error())
	}
	return textResult(formatRuns(runs))
}
