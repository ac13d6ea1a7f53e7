package imap

import (
	"fmt"
	"strings"
)

// fakeConn scripts server behavior for engine tests. Commands are matched
// against handlers by prefix, in registration order; unmatched commands get
// a plain OK.
type fakeConn struct {
	caps     map[string]bool
	handlers []fakeHandler
	commands []string
}

type fakeHandler struct {
	prefix string
	fn     func(cmd string) (*Response, error)
}

func newFakeConn(caps ...string) *fakeConn {
	c := &fakeConn{caps: map[string]bool{}}
	for _, cap := range caps {
		c.caps[strings.ToUpper(cap)] = true
	}
	return c
}

func (c *fakeConn) on(prefix string, fn func(cmd string) (*Response, error)) {
	c.handlers = append(c.handlers, fakeHandler{prefix: prefix, fn: fn})
}

// reply registers a fixed response for a command prefix.
func (c *fakeConn) reply(prefix string, resp *Response) {
	c.on(prefix, func(string) (*Response, error) { return resp, nil })
}

func (c *fakeConn) Execute(command string) (*Response, error) {
	c.commands = append(c.commands, command)
	for _, h := range c.handlers {
		if strings.HasPrefix(command, h.prefix) {
			return h.fn(command)
		}
	}
	return okResp(), nil
}

func (c *fakeConn) HasCapability(name string) bool {
	return c.caps[strings.ToUpper(name)]
}

// sent counts executed commands matching the prefix.
func (c *fakeConn) sent(prefix string) int {
	n := 0
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			n++
		}
	}
	return n
}

func okResp(frags ...Fragment) *Response {
	return &Response{Status: "OK", Info: "Completed", Fragments: frags}
}

func noResp(info string) *Response {
	return &Response{Status: "NO", Info: info}
}

func lineFrag(s string) Fragment {
	return Fragment{Kind: FragmentLine, Data: []byte(s)}
}

func litFrag(s string) Fragment {
	return Fragment{Kind: FragmentLiteral, Data: []byte(s)}
}

// headerBlock renders a minimal message header literal for the given UID's
// fetch response.
func headerBlock(from, to, subject, date string) string {
	return fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nDate: %s\r\n\r\n", from, to, subject, date)
}
