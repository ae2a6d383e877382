// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the venue operations as tools via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/quizdy/ar-server/internal/apperr"
	"github.com/quizdy/ar-server/internal/models"
	"github.com/quizdy/ar-server/internal/venueservice"
)

// Server wraps the MCP server with the venue tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *venueservice.Service
	fetch fetchFunc
}

// New creates a new MCP server with all venue tools registered.
func New(svc *venueservice.Service, version string) *Server {
	s := &Server{svc: svc, fetch: fetchHTTP}

	s.mcp = server.NewMCPServer(
		"ar-server",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_venues",
		mcp.WithDescription("List the names of all venues."),
	), s.listVenues)

	s.mcp.AddTool(mcp.NewTool("get_targets",
		mcp.WithDescription("Return the venue document (venue name and its ordered targets) as JSON. "+
			"Unknown venues yield an empty document."),
		mcp.WithString("venue", mcp.Required(), mcp.Description("Venue name")),
	), s.getTargets)

	s.mcp.AddTool(mcp.NewTool("update_venue",
		mcp.WithDescription("Create a venue with no targets. Existing venues are left unchanged."),
		mcp.WithString("venue", mcp.Required(), mcp.Description("Venue name (no slashes, must not start with a dot)")),
	), s.updateVenue)

	s.mcp.AddTool(mcp.NewTool("delete_venue",
		mcp.WithDescription("Delete a venue together with all of its images."),
		mcp.WithString("venue", mcp.Required(), mcp.Description("Venue name")),
	), s.deleteVenue)

	s.mcp.AddTool(mcp.NewTool("update_target",
		mcp.WithDescription("Create a target, or overwrite target `no` when given. A new target needs an image: "+
			"pass image_data (data:image/<type>;base64,...) or image_url. See the ar://venue-format resource."),
		mcp.WithString("venue", mcp.Required(), mcp.Description("Venue name")),
		mcp.WithNumber("no", mcp.Description("Target number to overwrite; omit to create")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Title, also the image file name")),
		mcp.WithNumber("lat", mcp.Description("Latitude")),
		mcp.WithNumber("lng", mcp.Description("Longitude")),
		mcp.WithString("comments", mcp.Description("Free text")),
		mcp.WithString("image_data", mcp.Description("Image as a base64 data URL")),
		mcp.WithString("image_url", mcp.Description("http(s) URL to download the image from")),
	), s.updateTarget)

	s.mcp.AddTool(mcp.NewTool("delete_target",
		mcp.WithDescription("Delete target `no` from a venue and remove its image."),
		mcp.WithString("venue", mcp.Required(), mcp.Description("Venue name")),
		mcp.WithNumber("no", mcp.Required(), mcp.Description("Target number")),
	), s.deleteTarget)

	s.mcp.AddTool(mcp.NewTool("get_venue_format",
		mcp.WithDescription("Returns the venue document format and the image payload rules."),
	), s.getVenueFormat)

	s.mcp.AddResource(
		mcp.NewResource("ar://venue-format", "Venue Format",
			mcp.WithResourceDescription("Venue document layout and image payload rules."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readVenueFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// toolError turns err into a tool error result, exposing only client-facing
// messages.
func toolError(err error) *mcp.CallToolResult {
	if msg, ok := apperr.Message(err); ok {
		return mcp.NewToolResultError(msg)
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listVenues(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := s.svc.ListVenues(ctx)
	if err != nil {
		return toolError(err), nil
	}
	if len(names) == 0 {
		return mcp.NewToolResultText("no venues"), nil
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) getTargets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	venue, err := req.RequireString("venue")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	v, err := s.svc.GetVenue(ctx, venue)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(v), nil
}

func (s *Server) updateVenue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	venue, err := req.RequireString("venue")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.UpdateVenue(ctx, venue); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s", venue)), nil
}

func (s *Server) deleteVenue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	venue, err := req.RequireString("venue")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeleteVenue(ctx, venue); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", venue)), nil
}

func (s *Server) updateTarget(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	venue, err := req.RequireString("venue")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	in := models.TargetInput{
		Title:    title,
		Lat:      req.GetFloat("lat", 0),
		Lng:      req.GetFloat("lng", 0),
		Comments: req.GetString("comments", ""),
	}
	if _, ok := req.GetArguments()["no"]; ok {
		no, err := req.RequireInt("no")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		in.No = &no
	}

	payload := req.GetString("image_data", "")
	if payload == "" {
		if rawURL := req.GetString("image_url", ""); rawURL != "" {
			data, mime, err := s.fetch(ctx, rawURL)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			payload = dataURL(mime, data)
		}
	}
	if payload != "" {
		in.Base64 = &payload
	}

	t, err := s.svc.UpdateTarget(ctx, venue, in)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(t), nil
}

func (s *Server) deleteTarget(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	venue, err := req.RequireString("venue")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	no, err := req.RequireInt("no")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeleteTarget(ctx, venue, no); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s #%d", venue, no)), nil
}

func (s *Server) getVenueFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(VenueFormat), nil
}

func (s *Server) readVenueFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "ar://venue-format",
			MIMEType: "text/markdown",
			Text:     VenueFormat,
		},
	}, nil
}
