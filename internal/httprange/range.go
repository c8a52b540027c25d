// Package httprange parses single byte ranges from HTTP Range headers.
package httprange

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsatisfiable means the range does not overlap the content.
var ErrUnsatisfiable = errors.New("range not satisfiable")

// Range is an inclusive byte interval [Start, End].
type Range struct {
	Start int64
	End   int64
}

func (r Range) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange formats the Content-Range header value for a resource of size bytes.
func (r Range) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// Header formats r as a Range request header value.
func (r Range) Header() string {
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End)
}

// Parse resolves the first range of header against a resource of size bytes.
// ok is false when header is empty or not a bytes range, in which case the
// whole resource should be served. Further ranges after a comma are ignored.
// End positions past the last byte are clamped.
func Parse(header string, size int64) (r Range, ok bool, err error) {
	rangeSet, found := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !found {
		return Range{}, false, nil
	}
	rangeSet, _, _ = strings.Cut(rangeSet, ",")
	startStr, endStr, found := strings.Cut(strings.TrimSpace(rangeSet), "-")
	if !found {
		return Range{}, false, nil
	}
	startStr = strings.TrimSpace(startStr)
	endStr = strings.TrimSpace(endStr)

	if startStr == "" {
		// Suffix range: last N bytes.
		n, perr := strconv.ParseInt(endStr, 10, 64)
		if perr != nil || n < 0 {
			return Range{}, false, nil
		}
		if n == 0 || size == 0 {
			return Range{}, true, ErrUnsatisfiable
		}
		if n > size {
			n = size
		}
		return Range{Start: size - n, End: size - 1}, true, nil
	}

	start, perr := strconv.ParseInt(startStr, 10, 64)
	if perr != nil || start < 0 {
		return Range{}, false, nil
	}
	if start >= size {
		return Range{}, true, ErrUnsatisfiable
	}

	end := size - 1
	if endStr != "" {
		e, perr := strconv.ParseInt(endStr, 10, 64)
		if perr != nil || e < start {
			return Range{}, false, nil
		}
		if e < end {
			end = e
		}
	}
	return Range{Start: start, End: end}, true, nil
}

// Unsatisfied formats the Content-Range value sent with a 416 response.
func Unsatisfied(size int64) string {
	return fmt.Sprintf("bytes */%d", size)
}
