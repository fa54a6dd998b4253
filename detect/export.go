package detect

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sbinet/npyio"
)

// CCCSumFileName returns the export file name for a template's correlation
// sum over the given window.
func CCCSumFileName(templateName string, start, end time.Time) string {
	const layout = "2006-01-02T15-04-05.000000Z"

	name := strings.NewReplacer("/", "_", " ", "_").Replace(templateName)

	return fmt.Sprintf("%s-%s-%s_cccsum.npy", name, start.UTC().Format(layout), end.UTC().Format(layout))
}

// WriteNPY writes x as a one-dimensional little-endian float64 NumPy array.
func WriteNPY(w io.Writer, x []float64) error {
	bw := bufio.NewWriter(w)
	if err := npyio.Write(bw, x); err != nil {
		return fmt.Errorf("detect: write .npy: %w", err)
	}

	return bw.Flush()
}

// ReadNPY reads a one-dimensional float64 array such as WriteNPY produces.
// The declared shape must match the data that follows the header.
func ReadNPY(r io.Reader) ([]float64, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("detect: read .npy: %w", err)
	}

	br := bytes.NewReader(raw)

	nr, err := npyio.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("detect: read .npy: %w", err)
	}

	shape := nr.Header.Descr.Shape
	if len(shape) != 1 || shape[0] < 0 || shape[0] > br.Len()/8 {
		return nil, fmt.Errorf("detect: read .npy: shape %v does not fit %d data bytes", shape, br.Len())
	}

	var out []float64
	if err := nr.Read(&out); err != nil {
		return nil, fmt.Errorf("detect: read .npy: %w", err)
	}

	return out, nil
}

func exportCCCSum(dir, templateName string, start, end time.Time, sum []float64) (string, error) {
	path := filepath.Join(dir, CCCSumFileName(templateName, start, end))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("detect: export correlation sum: %w", err)
	}

	if err := WriteNPY(f, sum); err != nil {
		f.Close()
		return "", fmt.Errorf("detect: export correlation sum: %w", err)
	}

	return path, f.Close()
}
