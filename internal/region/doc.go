// Package region holds the data model for recognized text and the extractor
// that turns a raw recognizer payload into it.
//
// # Payload Shape
//
// Recognizers report results in the shape of the Cloud Vision
// images:annotate response:
//
//	{"responses": [{"textAnnotations": [
//	    {"description": "MENU\nラーメン\n...", "boundingPoly": {...}},
//	    {"description": "ラーメン", "boundingPoly": {"vertices": [
//	        {"x": 10, "y": 10}, {"x": 50, "y": 10}, {"x": 50, "y": 30}, {"x": 10, "y": 30}]}}
//	]}]}
//
// The first annotation is the whole-image aggregate and never becomes a
// region. Vertex coordinates are optional on the wire: the recognizer omits
// zero values and occasionally whole vertices on rotated or clipped text.
// RawVertex keeps that distinction with pointer fields; Extract resolves it
// by substituting 0, so partial geometry is never an error.
//
// # Corner Order
//
// TextRegion corners follow the recognizer convention: top-left, top-right,
// bottom-right, bottom-left. Extract keeps the order as reported unless
// ExtractOptions.NormalizeCorners is set.
package region
