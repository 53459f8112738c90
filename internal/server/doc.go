// Package server implements the MCP (Model Context Protocol) server for menu-lens.
//
// This package provides a JSON-RPC 2.0 server that drives one menu session:
// upload a photo of a menu, get tappable rectangles over the recognized dish
// names, tap one and read its description.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Upload and State:
//   - menu_upload: Compress and recognize a photo (file path or base64)
//   - menu_state: Current image, regions, frame, selection and notice
//   - menu_reset: Back to the upload screen
//
// Layout:
//   - menu_set_frame: Report the rendered image size
//   - menu_hit_targets: Rectangles for the current frame or a pan/zoom transform
//
// Selection:
//   - menu_tap: Select the target under a point
//   - menu_select: Select by region index or by text
//   - menu_dismiss: Close the description popup
//   - menu_lookup: Look up a dish name without selecting it
//
// Preview:
//   - menu_overlay: The image with every target outlined, as PNG
//   - menu_region_crop: One region cut out of the image, as PNG
//
// # Error Handling
//
// Tool errors are returned as JSON-RPC error responses:
//   - -32602: bad or missing arguments, unknown tool
//   - -32000: the tool ran and failed (unreadable image, recognizer error)
//   - -32601: unknown method
//
// A failed upload also leaves its message in the session's notice, which
// menu_state reports until the next upload or reset.
//
// # Usage
//
//	srv := server.New(sess, server.WithLogger(logger))
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
