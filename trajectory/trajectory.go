// Package trajectory writes a curve as an XYZ animation: one frame per
// node, so stepping through the frames plays the motion along the path.
// Configuration vectors are split into 3D atom rows; lower-dimensional test
// problems are zero-padded so standard viewers accept the output.
package trajectory

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/geodyn/birkhoff/curve"
	"github.com/geodyn/birkhoff/utils"
)

// Writer emits XYZ frames. Symbols labels the atoms of each frame; missing
// entries default to the placeholder element X.
type Writer struct {
	w       *bufio.Writer
	symbols []string
}

func NewWriter(w io.Writer, symbols []string) *Writer {
	return &Writer{w: bufio.NewWriter(w), symbols: symbols}
}

func (t *Writer) symbol(i int) string {
	if i < len(t.symbols) {
		return t.symbols[i]
	}
	return "X"
}

// WriteFrame writes one configuration as a single XYZ frame.
func (t *Writer) WriteFrame(comment string, x utils.Vector) error {
	var (
		data  = x.DataP()
		atoms = (len(data) + 2) / 3
	)
	if _, err := fmt.Fprintf(t.w, "%d\n%s\n", atoms, comment); err != nil {
		return fmt.Errorf("trajectory: %w", err)
	}
	coord := func(i int) float64 {
		if i < len(data) {
			return data[i]
		}
		return 0
	}
	for a := 0; a < atoms; a++ {
		if _, err := fmt.Fprintf(t.w, "%s %.10f %.10f %.10f\n",
			t.symbol(a), coord(3*a), coord(3*a+1), coord(3*a+2)); err != nil {
			return fmt.Errorf("trajectory: %w", err)
		}
	}
	return nil
}

// WriteCurve writes every node of the curve as a frame, in order.
func (t *Writer) WriteCurve(c *curve.Curve) error {
	for i := 0; i < c.NumNodes(); i++ {
		if err := t.WriteFrame(fmt.Sprintf("node %d of %d", i, c.NumNodes()), c.Node(i)); err != nil {
			return err
		}
	}
	return nil
}

func (t *Writer) Flush() error {
	if err := t.w.Flush(); err != nil {
		return fmt.Errorf("trajectory: %w", err)
	}
	return nil
}

// WriteFile renders the whole curve into an .xyz animation file.
func WriteFile(path string, c *curve.Curve, symbols []string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("trajectory: %w", err)
	}
	defer func() {
		if cErr := f.Close(); err == nil && cErr != nil {
			err = fmt.Errorf("trajectory: %w", cErr)
		}
	}()
	t := NewWriter(f, symbols)
	if err = t.WriteCurve(c); err != nil {
		return err
	}
	return t.Flush()
}
