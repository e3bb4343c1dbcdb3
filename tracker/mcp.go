package tracker

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/coursesync/idgen"
	"github.com/hazyhaar/coursesync/kit"
)

// DefaultUpcomingDays is the window of coursesync_upcoming when days is omitted.
const DefaultUpcomingDays = 7

// RegisterMCP registers the tracker tools on an MCP server.
func (t *Tracker) RegisterMCP(srv *mcp.Server) {
	t.registerUpcomingTool(srv)
	t.registerStatusTool(srv)
	t.registerNeedsRecheckTool(srv)
	t.registerCoursesTool(srv)
}

func (t *Tracker) wrap(name string, ep kit.Endpoint) kit.Endpoint {
	return kit.Chain(kit.Logging(t.logger, name))(ep)
}

func withRequestID(ctx context.Context) context.Context {
	return kit.WithRequestID(ctx, idgen.RequestID())
}

// --- upcoming ---

type upcomingReq struct {
	Days *int `json:"days"`
}

func (t *Tracker) registerUpcomingTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "coursesync_upcoming",
		Description: "List assignments due in the next N days across all synced courses, sorted by due date, with their submission status.",
		InputSchema: kit.InputSchema(map[string]any{
			"days": map[string]any{"type": "integer", "description": "Window in days (default 7)", "minimum": 0},
		}, nil),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*upcomingReq)
		days := DefaultUpcomingDays
		if r.Days != nil {
			days = *r.Days
		}
		entries, err := t.Upcoming(days)
		if err != nil {
			return nil, err
		}
		if entries == nil {
			entries = []Entry{}
		}
		return map[string]any{"days": days, "assignments": entries}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		r, err := kit.DecodeArgs[upcomingReq](req)
		if err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: r, EnrichCtx: withRequestID}, nil
	}

	kit.RegisterMCPTool(srv, tool, t.wrap(tool.Name, endpoint), decode)
}

// --- status ---

type assignmentReq struct {
	Assignment string `json:"assignment"`
}

func decodeAssignment(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	r, err := kit.DecodeArgs[assignmentReq](req)
	if err != nil {
		return nil, err
	}
	if r.Assignment == "" {
		return nil, fmt.Errorf("assignment is required")
	}
	return &kit.MCPDecodeResult{Request: r, EnrichCtx: withRequestID}, nil
}

var assignmentSchema = kit.InputSchema(map[string]any{
	"assignment": map[string]any{"type": "string", "description": "Reference as <course>/<assignment>, each side a case-insensitive prefix"},
}, []string{"assignment"})

func (t *Tracker) registerStatusTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "coursesync_status",
		Description: "Derive the submission status and workflow position of one assignment from its local files.",
		InputSchema: assignmentSchema,
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		return t.Status(req.(*assignmentReq).Assignment)
	}

	kit.RegisterMCPTool(srv, tool, t.wrap(tool.Name, endpoint), decodeAssignment)
}

// --- needs_recheck ---

func (t *Tracker) registerNeedsRecheckTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "coursesync_needs_recheck",
		Description: "Report whether an assignment's submission changed since its last AI detection check.",
		InputSchema: assignmentSchema,
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		needs, dir, err := t.NeedsRecheck(req.(*assignmentReq).Assignment)
		if err != nil {
			return nil, err
		}
		return map[string]any{"needs_recheck": needs, "submission_dir": dir}, nil
	}

	kit.RegisterMCPTool(srv, tool, t.wrap(tool.Name, endpoint), decodeAssignment)
}

// --- courses ---

func (t *Tracker) registerCoursesTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "coursesync_courses",
		Description: "List synced courses with assignment counts and last sync time.",
		InputSchema: kit.InputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		courses, err := t.Courses()
		if err != nil {
			return nil, err
		}
		if courses == nil {
			courses = []CourseSummary{}
		}
		return map[string]any{"courses": courses}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{EnrichCtx: withRequestID}, nil
	}

	kit.RegisterMCPTool(srv, tool, t.wrap(tool.Name, endpoint), decode)
}
