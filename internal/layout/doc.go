// Package layout maps recognized text regions onto the displayed image.
//
// A hit-target is the rectangle a UI places over a region so the user can tap
// it. Where that rectangle goes depends on how the image is rendered, and two
// rendering strategies are supported. A process picks one and keeps it.
//
// # Natural-Pixel Strategy
//
// The image is rendered at its intrinsic pixel size inside a container that
// receives a uniform pan/zoom transform. Rectangles are emitted verbatim in
// natural coordinates:
//
//	left   = corners[0].x
//	top    = corners[0].y
//	width  = corners[1].x - corners[0].x
//	height = corners[2].y - corners[1].y
//
// The transform that scales the image scales its overlay children too, so
// the rectangles never depend on the DisplayFrame. Transform converts between
// viewport and natural coordinates when a caller needs to hit-test a tap
// reported in viewport space.
//
// # Scaled-Display Strategy
//
// The image is rendered at a fitted size that differs from its natural size.
// Left and width are multiplied by renderedWidth/naturalWidth, top and height
// by renderedHeight/naturalHeight. The scale must be recomputed every time
// the rendered size can change, and it cannot be computed before the natural
// size is known: MapRect returns ErrFrameUnknown instead of dividing by zero.
//
// # Degenerate Geometry
//
// A region whose corners violate the expected order produces a negative
// width or height. Rectangles are not clamped; such a target simply never
// matches a hit test.
package layout
