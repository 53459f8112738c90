// Package session holds the interactive state of one menu photo: the
// preprocessed image, the recognized regions, the display frame and the
// current selection.
//
// State is an immutable value changed only by the reducer functions in
// state.go. A Session owns one State behind a mutex and runs the upload
// pipeline:
//
//	compress -> recognize -> extract
//
// Every upload advances the generation and cancels the pipeline before it.
// Results from an older generation are discarded, so a slow response can
// never overwrite a newer image. The loading flag is cleared on every exit
// of the current pipeline.
//
// A Registry keeps many sessions keyed by UUID for the HTTP API. The MCP
// server owns a single Session.
package session
