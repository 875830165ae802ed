package pane

import (
	"regexp"
	"strings"

	"github.com/angelsen/termtap/internal/stream"
)

// tailKeep bounds the partial-line carry between scans so an output line
// of pathological length cannot grow the scanner without bound.
const tailKeep = 4096

// patternScanner matches a ready pattern against newly appended stream
// bytes. Each scan inspects only bytes past the previous scan position,
// prepending the unterminated tail of the prior chunk so a match split
// across two reads is still seen. A match latches: the scanner stays
// matched even if later output would not match.
type patternScanner struct {
	re      *regexp.Regexp
	pos     int64
	tail    string
	matched bool
}

func newPatternScanner(expr string, start int64) (*patternScanner, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &patternScanner{re: re, pos: start}, nil
}

// Scan reads fresh bytes from the stream and reports whether the pattern
// has matched so far.
func (ps *patternScanner) Scan(st *stream.Stream) (bool, error) {
	if ps.matched {
		return true, nil
	}
	text, newPos, err := st.ReadNewOutput(ps.pos)
	if err != nil {
		return false, err
	}
	if text == "" {
		return false, nil
	}
	ps.pos = newPos

	buf := ps.tail + text
	if ps.re.MatchString(buf) {
		ps.matched = true
		return true, nil
	}

	// Carry the unterminated final line into the next scan.
	if idx := strings.LastIndexByte(buf, '\n'); idx >= 0 {
		ps.tail = buf[idx+1:]
	} else {
		ps.tail = buf
	}
	if len(ps.tail) > tailKeep {
		ps.tail = ps.tail[len(ps.tail)-tailKeep:]
	}
	return false, nil
}
