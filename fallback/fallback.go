// Package fallback renders frame bytes as grouped z-base-32 text for
// hand-transcription, and parses it back (spec C9). It also recognises
// the section markers that separate an AUTH frame's text from a MAIN
// frame's text on a single recovery sheet.
package fallback

import (
	"strings"

	"ethernity.dev/core/errs"
	"ethernity.dev/core/zbase32"
)

// AuthMarker and MainMarker are the all-caps label lines that introduce a
// section of fallback text.
const (
	AuthMarker = "AUTH FRAME"
	MainMarker = "MAIN FRAME"
)

// EncodeLines z-base-32-encodes data, partitions the result into
// fixed-width groups separated by single spaces, and wraps greedily at
// lineLength (counted in characters, groups and their separating spaces
// included). If lineCount is positive and the wrapped text would need
// more lines than that, an error is returned.
func EncodeLines(data []byte, groupSize, lineLength, lineCount int) ([]string, error) {
	if groupSize <= 0 {
		return nil, errs.New(errs.InvalidInput, "fallback: group_size must be positive")
	}
	if lineLength <= 0 {
		return nil, errs.New(errs.InvalidInput, "fallback: line_length must be positive")
	}

	encoded := zbase32.Encode(data)
	var groups []string
	for i := 0; i < len(encoded); i += groupSize {
		end := i + groupSize
		if end > len(encoded) {
			end = len(encoded)
		}
		groups = append(groups, encoded[i:end])
	}

	var lines []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			lines = append(lines, cur.String())
			cur.Reset()
		}
	}
	for _, g := range groups {
		candidateLen := len(g)
		if cur.Len() > 0 {
			candidateLen += cur.Len() + 1
		}
		if cur.Len() > 0 && candidateLen > lineLength {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(g)
	}
	flush()

	if lineCount > 0 && len(lines) > lineCount {
		return nil, errs.Newf(errs.InvalidInput, "fallback: text needs %d lines, cap is %d", len(lines), lineCount)
	}
	return lines, nil
}

// DecodeLines is the inverse of EncodeLines: it strips whitespace and
// dashes from the joined lines and z-base-32-decodes the remainder.
func DecodeLines(lines []string) ([]byte, error) {
	joined := strings.Join(lines, "")
	return zbase32.Decode(joined)
}

// SplitSections scans text for the AUTH FRAME / MAIN FRAME marker lines
// and returns the (trimmed) lines belonging to each section. MAIN must be
// present; AUTH is optional, since its absence is what rescue mode
// tolerates.
func SplitSections(text string) (auth []string, main []string, err error) {
	var current *[]string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		upper := strings.ToUpper(line)
		switch {
		case strings.Contains(upper, AuthMarker):
			current = &auth
			continue
		case strings.Contains(upper, MainMarker):
			current = &main
			continue
		}
		if current != nil {
			*current = append(*current, line)
		}
	}
	if len(main) == 0 {
		return nil, nil, errs.New(errs.MissingFrame, "fallback: no MAIN FRAME section found")
	}
	return auth, main, nil
}
