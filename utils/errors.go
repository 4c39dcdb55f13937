package utils

import "fmt"

// ShapeError reports a dimension mismatch between operands. It indicates a
// programming error, so the vector and matrix primitives panic with it
// rather than returning it.
type ShapeError struct {
	Op   string
	Want int
	Got  int
}

func (e ShapeError) Error() string {
	return fmt.Sprintf("%s: dimension mismatch, want %d, got %d", e.Op, e.Want, e.Got)
}

func checkLen(op string, want, got int) {
	if want != got {
		panic(ShapeError{Op: op, Want: want, Got: got})
	}
}
