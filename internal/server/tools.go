package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func numberProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "number", "description": description}
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

// transformProps are the optional pan/zoom arguments shared by tools that
// work in viewport coordinates.
func transformProps(props map[string]interface{}) map[string]interface{} {
	props["zoom"] = numberProp("Optional pan/zoom scale of the image container. Omit for no transform.")
	props["offset_x"] = numberProp("Horizontal pan offset in viewport pixels. Default 0")
	props["offset_y"] = numberProp("Vertical pan offset in viewport pixels. Default 0")
	return props
}

func emptySchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Upload and State
		{
			Name:        "menu_upload",
			Description: "Upload a menu photo, compress it and recognize its text. Replaces the current image and cancels any upload still running. Returns the session state and hit-targets.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":         stringProp("Absolute path to the image file"),
					"image_base64": stringProp("Image bytes as base64 or a data: URL, instead of path"),
				},
			},
		},
		{
			Name:        "menu_state",
			Description: "Get the current session state: image size, recognized regions, display frame, selection and the last error notice.",
			InputSchema: emptySchema(),
		},
		{
			Name:        "menu_reset",
			Description: "Return to the upload screen: clears the image, regions, selection and frame, and cancels an upload in progress.",
			InputSchema: emptySchema(),
		},

		// Layout
		{
			Name:        "menu_set_frame",
			Description: "Report the size at which the image is currently rendered. Scaled hit-targets are recomputed from it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"rendered_width":  numberProp("Rendered width of the image element in pixels"),
					"rendered_height": numberProp("Rendered height of the image element in pixels"),
				},
				"required": []string{"rendered_width", "rendered_height"},
			},
		},
		{
			Name:        "menu_hit_targets",
			Description: "List the tappable rectangles over recognized text for the current frame, in order. Pass zoom/offset to get viewport rectangles for a panned or zoomed container.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": transformProps(map[string]interface{}{}),
			},
		},

		// Selection
		{
			Name:        "menu_tap",
			Description: "Tap a point. The topmost hit-target under it is selected and its description returned. A tap on empty space changes nothing.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": transformProps(map[string]interface{}{
					"x": numberProp("X coordinate of the tap"),
					"y": numberProp("Y coordinate of the tap"),
				}),
				"required": []string{"x", "y"},
			},
		},
		{
			Name:        "menu_select",
			Description: "Select a recognized region by index, or any dish name by text, and return its description.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"index": map[string]interface{}{
						"type":        "integer",
						"description": "Index of the region in menu_state/menu_hit_targets",
					},
					"text": stringProp("Dish name to select instead of an index"),
				},
			},
		},
		{
			Name:        "menu_dismiss",
			Description: "Close the description popup.",
			InputSchema: emptySchema(),
		},
		{
			Name:        "menu_lookup",
			Description: "Look up a dish name in the menu without changing the selection. Unknown names return the fallback text.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name": stringProp("Dish name, matched exactly after trimming whitespace"),
				},
				"required": []string{"name"},
			},
		},

		// Preview
		{
			Name:        "menu_overlay",
			Description: "Render the current image with every hit-target outlined and the selected one tinted. Returns a base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"color": stringProp("Outline color as #RRGGBB or #RRGGBBAA. Default from configuration"),
					"labels": map[string]interface{}{
						"type":        "boolean",
						"description": "Draw each target's index at its top-left corner",
					},
					"stroke": map[string]interface{}{
						"type":        "integer",
						"description": "Outline width in pixels",
					},
				},
			},
		},
		{
			Name:        "menu_region_crop",
			Description: "Crop the image to one recognized region and return it as base64-encoded PNG. Use it to check what was recognized.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"index": map[string]interface{}{
						"type":        "integer",
						"description": "Index of the region",
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor (e.g., 2.0 to double size). Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"index"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
