package cmd

import (
	"bytes"
	"context"

	"github.com/agentic-research/kgtab/internal/reshape"
	"github.com/agentic-research/kgtab/internal/resource"
	"github.com/agentic-research/kgtab/internal/source"
	"github.com/agentic-research/kgtab/internal/table"
	"github.com/agentic-research/kgtab/internal/tableio"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const serverVersion = "0.1.0"

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the conversions as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logrus.Info("serving MCP tools on stdio")
			return server.ServeStdio(a.newMCPServer())
		},
	}
}

func (a *app) newMCPServer() *server.MCPServer {
	s := server.NewMCPServer("kgtab", serverVersion, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("reshape",
		mcp.WithDescription("Keep only the given dotted paths of a JSON resource or array of resources"),
		mcp.WithString("data", mcp.Required(), mcp.Description("JSON object or array of objects")),
		mcp.WithArray("keep", mcp.Required(), mcp.Description("dotted paths to keep"), mcp.WithStringItems()),
		mcp.WithBoolean("versioned", mcp.Description("replace ids by the versioned id template")),
	), a.handleReshape)

	s.AddTool(mcp.NewTool("to_table",
		mcp.WithDescription("Flatten a JSON resource or array of resources into CSV"),
		mcp.WithString("data", mcp.Required(), mcp.Description("JSON object or array of objects")),
		mcp.WithBoolean("store_metadata", mcp.Description("append store metadata columns")),
	), a.handleToTable)

	s.AddTool(mcp.NewTool("collect_values",
		mcp.WithDescription("List every value found along a dotted path"),
		mcp.WithString("data", mcp.Required(), mcp.Description("JSON object or array of objects")),
		mcp.WithString("follow", mcp.Required(), mcp.Description("dotted path to follow")),
	), a.handleCollect)

	s.AddTool(mcp.NewTool("format",
		mcp.WithDescription("Fill a configured formatter with positional arguments"),
		mcp.WithString("name", mcp.Required(), mcp.Description("formatter name")),
		mcp.WithArray("args", mcp.Description("positional arguments"), mcp.WithStringItems()),
	), a.handleFormat)

	return s
}

func (a *app) handleReshape(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := req.RequireString("data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	keep, err := req.RequireStringSlice("keep")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	trees, err := source.ParseJSON([]byte(data))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := a.cfg.Reshaper().ReshapeMany(trees, keep, req.GetBool("versioned", false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var buf bytes.Buffer
	if err := writeTrees(&buf, out, resource.JSONOptions{}); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(buf.String()), nil
}

func (a *app) handleToTable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := req.RequireString("data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	trees, err := source.ParseJSON([]byte(data))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	opts := a.cfg.ToOptions()
	opts.StoreMetadata = req.GetBool("store_metadata", opts.StoreMetadata)
	t, err := table.ToTable(trees, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var buf bytes.Buffer
	if err := tableio.WriteCSV(&buf, t); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(buf.String()), nil
}

func (a *app) handleCollect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := req.RequireString("data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	follow, err := req.RequireString("follow")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	trees, err := source.ParseJSON([]byte(data))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	values, err := reshape.CollectValues(resourceArray(trees), follow, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := resource.EncodeJSON(resource.Array(values), resource.JSONOptions{})
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (a *app) handleFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := a.cfg.Format(name, stringArgs(req.GetStringSlice("args", nil))...)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}
