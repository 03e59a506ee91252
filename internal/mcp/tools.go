package mcp

import "github.com/mark3labs/mcp-go/mcp"

var recentToolDef = mcp.NewTool("capture_recent",
	mcp.WithDescription("List the most recently captured text items, newest first."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum items to return (default 20, max 500)"),
	),
)

var statusToolDef = mcp.NewTool("capture_status",
	mcp.WithDescription("Report whether capture is enabled, the stored item count and the saved counter."),
)

var toggleToolDef = mcp.NewTool("capture_toggle",
	mcp.WithDescription("Enable or disable capture. Takes effect on the next snapshot event."),
	mcp.WithBoolean("enabled",
		mcp.Required(),
		mcp.Description("true to capture, false to pause"),
	),
)

var exportToolDef = mcp.NewTool("capture_export",
	mcp.WithDescription("Write every captured item to a JSONL file and return its path."),
	mcp.WithString("path",
		mcp.Description("Destination .jsonl path (default: <glean dir>/exports/captures-<timestamp>.jsonl)"),
	),
)
