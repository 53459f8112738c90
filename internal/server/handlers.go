package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/menu-lens/internal/imaging"
	"github.com/ironsheep/menu-lens/internal/layout"
	"github.com/ironsheep/menu-lens/internal/region"
	"github.com/ironsheep/menu-lens/internal/session"
)

// errInvalidParams marks argument errors, reported with code -32602.
var errInvalidParams = errors.New("invalid params")

func invalidParams(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errInvalidParams, fmt.Sprintf(format, args...))
}

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "menu_upload", "menu_tap").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Bad arguments return code -32602; other tool failures return -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.Warn("tool failed", "tool", params.Name, "error", err)
		if errors.Is(err, errInvalidParams) {
			return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
		}
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Upload and State
	case "menu_upload":
		return s.handleUpload(ctx, args)
	case "menu_state":
		return s.session.Summarize(), nil
	case "menu_reset":
		return s.session.SummaryOf(s.session.Reset()), nil

	// Layout
	case "menu_set_frame":
		return s.handleSetFrame(args)
	case "menu_hit_targets":
		return s.handleHitTargets(args)

	// Selection
	case "menu_tap":
		return s.handleTap(args)
	case "menu_select":
		return s.handleSelect(args)
	case "menu_dismiss":
		return s.session.SummaryOf(s.session.Dismiss()), nil
	case "menu_lookup":
		return s.handleLookup(args)

	// Preview
	case "menu_overlay":
		return s.handleOverlay(args)
	case "menu_region_crop":
		return s.handleRegionCrop(args)

	default:
		return nil, invalidParams("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments. Missing arguments decode as {}.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return invalidParams("%v", err)
	}
	return nil
}

// === Upload Handlers ===

type uploadArgs struct {
	Path        string `json:"path"`
	ImageBase64 string `json:"image_base64"`
}

type uploadResult struct {
	State      session.Summary    `json:"state"`
	HitTargets []layout.HitTarget `json:"hit_targets"`
}

func (s *Server) handleUpload(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a uploadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	var data []byte
	var err error
	switch {
	case a.Path != "" && a.ImageBase64 != "":
		return nil, invalidParams("give either path or image_base64, not both")
	case a.Path != "":
		data, err = imaging.ReadFile(a.Path, s.maxUploadBytes)
	case a.ImageBase64 != "":
		data, err = imaging.DecodePayload(a.ImageBase64)
		if err != nil {
			err = invalidParams("%v", err)
		}
	default:
		return nil, invalidParams("path or image_base64 is required")
	}
	if err != nil {
		return nil, err
	}

	st, err := s.session.Upload(ctx, data)
	if err != nil {
		return nil, err
	}
	targets, err := s.session.HitTargets()
	if err != nil {
		return nil, err
	}
	return uploadResult{State: s.session.SummaryOf(st), HitTargets: targets}, nil
}

// === Layout Handlers ===

type setFrameArgs struct {
	RenderedWidth  *float64 `json:"rendered_width"`
	RenderedHeight *float64 `json:"rendered_height"`
}

func (s *Server) handleSetFrame(args json.RawMessage) (interface{}, error) {
	var a setFrameArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.RenderedWidth == nil || a.RenderedHeight == nil {
		return nil, invalidParams("rendered_width and rendered_height are required")
	}
	st, err := s.session.Resize(*a.RenderedWidth, *a.RenderedHeight)
	if err != nil {
		return nil, invalidParams("%v", err)
	}
	return s.session.SummaryOf(st), nil
}

type transformArgs struct {
	Zoom    *float64 `json:"zoom"`
	OffsetX float64  `json:"offset_x"`
	OffsetY float64  `json:"offset_y"`
}

// transform returns nil when no zoom was given.
func (a transformArgs) transform() *layout.Transform {
	if a.Zoom == nil {
		return nil
	}
	return &layout.Transform{Zoom: *a.Zoom, OffsetX: a.OffsetX, OffsetY: a.OffsetY}
}

func (s *Server) handleHitTargets(args json.RawMessage) (interface{}, error) {
	var a transformArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	var targets []layout.HitTarget
	var err error
	if t := a.transform(); t != nil {
		targets, err = s.session.ViewportTargets(*t)
	} else {
		targets, err = s.session.HitTargets()
	}
	if errors.Is(err, layout.ErrInvalidTransform) {
		return nil, invalidParams("%v", err)
	}
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"strategy":    s.session.Summarize().Strategy,
		"hit_targets": targets,
	}, nil
}

// === Selection Handlers ===

type tapArgs struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	transformArgs
}

type tapResult struct {
	Hit    bool              `json:"hit"`
	Target *layout.HitTarget `json:"target,omitempty"`
	Popup  session.Described `json:"popup"`
}

func (s *Server) handleTap(args json.RawMessage) (interface{}, error) {
	var a tapArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.X == nil || a.Y == nil {
		return nil, invalidParams("x and y are required")
	}
	target, desc, ok, err := s.session.Tap(region.Point{X: *a.X, Y: *a.Y}, a.transform())
	if errors.Is(err, layout.ErrInvalidTransform) {
		return nil, invalidParams("%v", err)
	}
	if err != nil {
		return nil, err
	}
	res := tapResult{Hit: ok, Popup: desc}
	if ok {
		res.Target = &target
	}
	return res, nil
}

type selectArgs struct {
	Index *int    `json:"index"`
	Text  *string `json:"text"`
}

func (s *Server) handleSelect(args json.RawMessage) (interface{}, error) {
	var a selectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	switch {
	case a.Index != nil && a.Text != nil:
		return nil, invalidParams("give either index or text, not both")
	case a.Index != nil:
		desc, err := s.session.SelectIndex(*a.Index)
		if err != nil {
			return nil, invalidParams("%v", err)
		}
		return desc, nil
	case a.Text != nil:
		return s.session.SelectText(*a.Text), nil
	default:
		return nil, invalidParams("index or text is required")
	}
}

type lookupArgs struct {
	Name string `json:"name"`
}

func (s *Server) handleLookup(args json.RawMessage) (interface{}, error) {
	var a lookupArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return s.session.Lookup(a.Name), nil
}

// === Preview Handlers ===

type overlayArgs struct {
	Color  *string `json:"color"`
	Labels *bool   `json:"labels"`
	Stroke *int    `json:"stroke"`
}

func (s *Server) handleOverlay(args json.RawMessage) (interface{}, error) {
	var a overlayArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	opts := s.session.OverlayDefaults()
	if a.Color != nil {
		if _, err := imaging.ParseColor(*a.Color); err != nil {
			return nil, invalidParams("%v", err)
		}
		opts.Color = *a.Color
	}
	if a.Labels != nil {
		opts.Labels = *a.Labels
	}
	if a.Stroke != nil {
		opts.Stroke = *a.Stroke
	}
	return s.session.Overlay(&opts)
}

type regionCropArgs struct {
	Index *int    `json:"index"`
	Scale float64 `json:"scale"`
}

func (s *Server) handleRegionCrop(args json.RawMessage) (interface{}, error) {
	var a regionCropArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Index == nil {
		return nil, invalidParams("index is required")
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	res, err := s.session.Crop(*a.Index, a.Scale)
	if errors.Is(err, session.ErrIndexRange) {
		return nil, invalidParams("%v", err)
	}
	return res, err
}
