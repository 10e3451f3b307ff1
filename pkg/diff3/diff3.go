// Package diff3 implements a line-level three-way text merge: two
// divergent revisions are reconciled against their common base, with
// conflict markers emitted where both revisions changed the same region
// differently.
package diff3

import (
	"bytes"
	"strings"
)

// Result holds the outcome of a three-way merge.
type Result struct {
	Merged       []byte // full merged content, with conflict markers where needed
	HasConflicts bool
	Conflicts    int // number of conflicted regions
}

// Merge performs a three-way merge of base, ours and theirs.
//
// Both sides are aligned against the base line-by-line. Regions where
// all three agree pass through; a region changed on only one side takes
// that side; identical changes collapse; diverging changes become a
// conflict region wrapped in markers.
func Merge(base, ours, theirs []byte) Result {
	baseLines := splitLines(base)
	oursLines := splitLines(ours)
	theirsLines := splitLines(theirs)

	oursMatch := matchMap(baseLines, oursLines)
	theirsMatch := matchMap(baseLines, theirsLines)

	var out bytes.Buffer
	res := Result{}

	bi, oi, ti := 0, 0, 0
	for bi < len(baseLines) || oi < len(oursLines) || ti < len(theirsLines) {
		// Consume the run of lines where base, ours and theirs are all
		// aligned and identical.
		stable := 0
		for bi+stable < len(baseLines) {
			om, okO := oursMatch[bi+stable]
			tm, okT := theirsMatch[bi+stable]
			if !okO || !okT || om != oi+stable || tm != ti+stable {
				break
			}
			stable++
		}
		if stable > 0 {
			writeLines(&out, baseLines[bi:bi+stable])
			bi += stable
			oi += stable
			ti += stable
			continue
		}

		// Diverged: scan forward to the next base line matched on both
		// sides; everything before it forms one unstable region.
		sync := bi
		oursEnd, theirsEnd := len(oursLines), len(theirsLines)
		for sync < len(baseLines) {
			om, okO := oursMatch[sync]
			tm, okT := theirsMatch[sync]
			if okO && okT {
				oursEnd, theirsEnd = om, tm
				break
			}
			sync++
		}

		baseSeg := baseLines[bi:sync]
		oursSeg := oursLines[oi:oursEnd]
		theirsSeg := theirsLines[ti:theirsEnd]

		switch {
		case linesEqual(oursSeg, theirsSeg):
			writeLines(&out, oursSeg)
		case linesEqual(oursSeg, baseSeg):
			writeLines(&out, theirsSeg)
		case linesEqual(theirsSeg, baseSeg):
			writeLines(&out, oursSeg)
		default:
			res.HasConflicts = true
			res.Conflicts++
			out.WriteString("<<<<<<< ours\n")
			writeLines(&out, oursSeg)
			out.WriteString("=======\n")
			writeLines(&out, theirsSeg)
			out.WriteString(">>>>>>> theirs\n")
		}

		bi, oi, ti = sync, oursEnd, theirsEnd
	}

	res.Merged = out.Bytes()
	return res
}

// matchMap maps base line indices to side line indices for lines the
// Myers alignment considers unchanged.
func matchMap(base, side []string) map[int]int {
	pairs := matchPairs(base, side)
	m := make(map[int]int, len(pairs))
	for _, p := range pairs {
		m[p[0]] = p[1]
	}
	return m
}

// splitLines splits content into lines. A trailing newline does not
// produce an extra empty element, matching text file conventions.
func splitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	lines := strings.Split(string(content), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func writeLines(buf *bytes.Buffer, lines []string) {
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
}

func linesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
