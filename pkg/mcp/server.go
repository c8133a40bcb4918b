package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"github.com/marker-finder/markersum/pkg/cache"
	"github.com/marker-finder/markersum/pkg/logger"
	"github.com/marker-finder/markersum/pkg/summarizer"
	"github.com/marker-finder/markersum/pkg/tracker"
)

const maxLineSize = 1 << 20

// Summarizer produces one summary. *summarizer.Client implements it.
type Summarizer interface {
	Summarize(ctx context.Context, text string, identifier *string, force bool) summarizer.Result
}

// Server answers MCP requests one at a time.
type Server struct {
	sum     Summarizer
	store   cache.Store
	tracker tracker.Tracker
	version string
}

// New creates a Server. Any of sum, store and t may be nil; the tools that
// need them then report that they are not configured.
func New(sum Summarizer, store cache.Store, t tracker.Tracker, version string) *Server {
	return &Server{sum: sum, store: store, tracker: t, version: version}
}

// Run serves requests read line by line from r, writing one response line
// per request to w. It returns when r is exhausted or ctx is done.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	in := bufio.NewScanner(r)
	in.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	enc := json.NewEncoder(w)

	for in.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := in.Bytes()
		if len(line) == 0 {
			continue
		}

		var resp *Response
		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			resp = fail(nil, CodeParseError, "parse error")
		} else {
			resp = s.dispatch(ctx, &req)
		}
		if resp == nil {
			continue
		}
		if err := enc.Encode(resp); err != nil {
			logger.Logger.Errorw("MCP write failed", "method", req.Method, "error", err)
		}
	}
	return in.Err()
}

// dispatch returns nil for notifications.
func (s *Server) dispatch(ctx context.Context, req *Request) *Response {
	switch req.Method {
	case "initialize":
		return reply(req.ID, InitializeResult{
			ProtocolVersion: protocolVersion,
			ServerInfo:      ServerInfo{Name: "markersum", Version: s.version},
			Capabilities:    ServerCapabilities{Tools: map[string]any{}},
		})
	case "notifications/initialized":
		return nil
	case "tools/list":
		return reply(req.ID, ToolsListResult{Tools: allTools})
	case "tools/call":
		var params ToolCallParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return fail(req.ID, CodeInvalidParams, "invalid params")
		}
		return reply(req.ID, s.callTool(ctx, params))
	default:
		return fail(req.ID, CodeMethodNotFound, "unknown method: "+req.Method)
	}
}

func (s *Server) callTool(ctx context.Context, params ToolCallParams) ToolCallResult {
	handler, ok := toolHandlers[params.Name]
	if !ok {
		return errorResult("unknown tool: " + params.Name)
	}
	logger.Logger.Debugw("MCP tool call", "tool", params.Name)
	return handler(ctx, s, params.Arguments)
}
