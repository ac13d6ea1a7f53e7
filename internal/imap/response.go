package imap

import (
	"regexp"
	"strconv"
	"strings"
)

// FragmentKind distinguishes the two shapes a server response is made of.
type FragmentKind int

const (
	// FragmentLine is a textual response line (untagged data, status text).
	FragmentLine FragmentKind = iota
	// FragmentLiteral is a counted binary block announced by a {n} marker.
	FragmentLiteral
)

// Fragment is one piece of an untagged server response. IMAP servers
// interleave text lines and literal blocks freely, and different dialects
// order them differently for the same command, so fragments are kept in
// arrival order and interpreted downstream.
type Fragment struct {
	Kind FragmentKind
	Data []byte
}

// Line reports whether the fragment is a textual line.
func (f Fragment) Line() bool { return f.Kind == FragmentLine }

// Text returns the fragment data as a string.
func (f Fragment) Text() string { return string(f.Data) }

// Response is the outcome of one tagged command: the final status of the
// tagged completion line plus every untagged fragment received before it.
type Response struct {
	// Status is the tagged completion result: "OK", "NO" or "BAD".
	Status string
	// Info is the human-readable remainder of the tagged line.
	Info string
	// Fragments holds the untagged data lines and literals, in order,
	// with the leading "* " stripped from lines.
	Fragments []Fragment
}

// OK reports whether the command completed successfully.
func (r *Response) OK() bool { return r.Status == "OK" }

// lines returns the textual fragments only.
func (r *Response) lines() []string {
	var out []string
	for _, f := range r.Fragments {
		if f.Line() {
			out = append(out, f.Text())
		}
	}
	return out
}

// firstLineWithPrefix returns the first textual fragment beginning with the
// given token (e.g. "SEARCH", "SORT", "CAPABILITY"), or "" when absent.
func (r *Response) firstLineWithPrefix(prefix string) string {
	for _, l := range r.lines() {
		if l == prefix || strings.HasPrefix(l, prefix+" ") {
			return l
		}
	}
	return ""
}

var literalMarkerRe = regexp.MustCompile(`\{(\d+)\}$`)

// literalSize returns the announced byte count when the line ends with a
// {n} literal marker, or -1 otherwise.
func literalSize(line string) int {
	m := literalMarkerRe.FindStringSubmatch(strings.TrimRight(line, " "))
	if m == nil {
		return -1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return -1
	}
	return n
}
