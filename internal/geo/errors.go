package geo

import "github.com/rotisserie/eris"

// Sentinel errors. Callers match them with eris.Is or errors.Is.
var (
	// ErrInvalidInput is returned for non-finite coordinates, negative
	// distances, or a route with no usable points.
	ErrInvalidInput = eris.New("geo: invalid input")

	// ErrDegenerateGeometry is returned when an offset cannot produce at
	// least three vertices.
	ErrDegenerateGeometry = eris.New("geo: degenerate geometry")

	// ErrUnsupportedShape is returned when a polygon offset is requested on
	// a ring that is not convex.
	ErrUnsupportedShape = eris.New("geo: unsupported shape")
)
