package imap

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	dialTimeout    = 30 * time.Second
	commandTimeout = 60 * time.Second

	clientIDName    = "mailgate"
	clientIDVersion = "0.1.0"
)

// ServerConfig describes one IMAP endpoint and how to reach it.
type ServerConfig struct {
	Host     string
	Port     int
	Username string
	Password string

	// UseSSL selects implicit TLS. StartTLS upgrades a plaintext
	// connection after the greeting. Neither set means plaintext.
	UseSSL   bool
	StartTLS bool
}

// Addr returns the host:port dial address.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Conn is the command surface the retrieval and bulk engines run against.
// *Session implements it; tests substitute scripted fakes.
type Conn interface {
	// Execute sends one tagged command and collects the response.
	// The returned error covers transport and protocol faults only;
	// a NO/BAD completion is reported through Response.Status.
	Execute(command string) (*Response, error)

	// HasCapability reports whether the server advertised the given
	// capability token. It never fails; unknown means false.
	HasCapability(name string) bool
}

// Session owns one authenticated IMAP connection with at most one selected
// mailbox. A Session serves exactly one logical operation and is not safe
// for concurrent use.
type Session struct {
	cfg  ServerConfig
	conn net.Conn
	r    *bufio.Reader
	log  zerolog.Logger

	caps     map[string]bool
	tagSeq   int
	selected string
}

// WithSession runs fn against a fully prepared session: connected,
// authenticated, client identification sent, and mailbox selected when one
// is given. The session is logged out and closed on every exit path.
func WithSession(ctx context.Context, cfg ServerConfig, mailbox string, log zerolog.Logger, fn func(*Session) error) error {
	s, err := Dial(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Login(); err != nil {
		return err
	}
	s.ensureCapabilities()
	s.sendID()

	if mailbox != "" {
		if err := s.Select(mailbox); err != nil {
			return err
		}
	}

	return fn(s)
}

// Dial connects to the server, performs the TLS handshake for the configured
// security mode, and consumes the greeting. Capabilities announced in the
// greeting are retained for the life of the session.
func Dial(ctx context.Context, cfg ServerConfig, log zerolog.Logger) (*Session, error) {
	d := net.Dialer{Timeout: dialTimeout}

	conn, err := d.DialContext(ctx, "tcp", cfg.Addr())
	if err != nil {
		return nil, &ConnectionError{Op: "connect", Addr: cfg.Addr(), Err: err}
	}

	if cfg.UseSSL {
		tlsConn := tls.Client(conn, &tls.Config{ServerName: cfg.Host})
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, &ConnectionError{Op: "connect", Addr: cfg.Addr(), Err: err}
		}
		conn = tlsConn
	}

	s := &Session{
		cfg:  cfg,
		conn: conn,
		r:    bufio.NewReader(conn),
		log:  log.With().Str("host", cfg.Host).Logger(),
		caps: make(map[string]bool),
	}

	if err := s.readGreeting(); err != nil {
		conn.Close()
		return nil, err
	}

	if cfg.StartTLS && !cfg.UseSSL {
		if err := s.startTLS(); err != nil {
			conn.Close()
			return nil, err
		}
	}

	return s, nil
}

// readGreeting consumes the server's initial untagged greeting and picks up
// any [CAPABILITY ...] response code embedded in it.
func (s *Session) readGreeting() error {
	s.conn.SetDeadline(time.Now().Add(commandTimeout))
	line, err := s.readLine()
	if err != nil {
		return &ConnectionError{Op: "greeting", Addr: s.cfg.Addr(), Err: err}
	}
	if !strings.HasPrefix(line, "* OK") && !strings.HasPrefix(line, "* PREAUTH") {
		return &ConnectionError{Op: "greeting", Addr: s.cfg.Addr(), Err: fmt.Errorf("unexpected greeting %q", line)}
	}
	s.absorbCapabilities(line)
	return nil
}

// startTLS upgrades the connection via the STARTTLS command. Capabilities
// read before the upgrade are discarded, as required by RFC 3501.
func (s *Session) startTLS() error {
	resp, err := s.Execute("STARTTLS")
	if err != nil {
		return &ConnectionError{Op: "starttls", Addr: s.cfg.Addr(), Err: err}
	}
	if !resp.OK() {
		return &ConnectionError{Op: "starttls", Addr: s.cfg.Addr(), Err: fmt.Errorf("server said %s %s", resp.Status, resp.Info)}
	}

	tlsConn := tls.Client(s.conn, &tls.Config{ServerName: s.cfg.Host})
	if err := tlsConn.Handshake(); err != nil {
		return &ConnectionError{Op: "starttls", Addr: s.cfg.Addr(), Err: err}
	}
	s.conn = tlsConn
	s.r = bufio.NewReader(tlsConn)
	s.caps = make(map[string]bool)
	return nil
}

// Login authenticates with the configured credentials.
func (s *Session) Login() error {
	resp, err := s.Execute("LOGIN " + quoteString(s.cfg.Username) + " " + quoteString(s.cfg.Password))
	if err != nil {
		return &AuthError{Username: s.cfg.Username, Err: err}
	}
	if !resp.OK() {
		return &AuthError{Username: s.cfg.Username, Err: fmt.Errorf("server said %s %s", resp.Status, resp.Info)}
	}
	s.absorbCapabilities(resp.Info)
	return nil
}

// ensureCapabilities issues a CAPABILITY command when the greeting did not
// announce any. Failures leave the set empty: a capability that cannot be
// read is a capability the server does not have.
func (s *Session) ensureCapabilities() {
	if len(s.caps) > 0 {
		return
	}
	resp, err := s.Execute("CAPABILITY")
	if err != nil || !resp.OK() {
		s.log.Debug().Err(err).Msg("capability probe failed")
		return
	}
	if line := resp.firstLineWithPrefix("CAPABILITY"); line != "" {
		for _, tok := range strings.Fields(line)[1:] {
			s.caps[strings.ToUpper(tok)] = true
		}
	}
}

// HasCapability reports whether the server advertised the capability.
func (s *Session) HasCapability(name string) bool {
	return s.caps[strings.ToUpper(name)]
}

// sendID sends the client identification. Some servers (163.com) reject the
// conventional spaced parenthesization with BAD, so a tight-format raw
// variant is retried once. Either way the outcome never fails the session.
func (s *Session) sendID() {
	payload := fmt.Sprintf("%q %q %q %q", "name", clientIDName, "version", clientIDVersion)

	resp, err := s.Execute("ID ( " + payload + " )")
	if err == nil && resp.OK() {
		return
	}

	if _, err := s.Execute("ID (" + payload + ")"); err != nil {
		s.log.Warn().Err(err).Msg("IMAP ID command failed")
	}
}

// Select opens the given mailbox. Failure is fatal for the operation.
func (s *Session) Select(mailbox string) error {
	resp, err := s.Execute("SELECT " + QuoteMailbox(mailbox))
	if err != nil {
		return &ConnectionError{Op: "select", Addr: s.cfg.Addr(), Err: err}
	}
	if !resp.OK() {
		return &ConnectionError{Op: "select", Addr: s.cfg.Addr(), Err: fmt.Errorf("mailbox %q: server said %s %s", mailbox, resp.Status, resp.Info)}
	}
	s.selected = mailbox
	return nil
}

// Close logs out and closes the connection. Logout failures are logged and
// swallowed; teardown must never propagate an error to the operation.
func (s *Session) Close() {
	if _, err := s.Execute("LOGOUT"); err != nil {
		s.log.Debug().Err(err).Msg("error during logout")
	}
	s.conn.Close()
}

func (s *Session) nextTag() string {
	s.tagSeq++
	return fmt.Sprintf("A%03d", s.tagSeq)
}

// Execute sends one tagged command and reads fragments until the matching
// tagged completion line.
func (s *Session) Execute(command string) (*Response, error) {
	s.conn.SetDeadline(time.Now().Add(commandTimeout))

	tag := s.nextTag()
	if _, err := s.conn.Write([]byte(tag + " " + command + "\r\n")); err != nil {
		return nil, fmt.Errorf("writing command: %w", err)
	}
	return s.readResponse(tag)
}

// ExecuteLiteral sends a command carrying one literal argument (APPEND),
// waiting for the server's continuation request before the payload.
func (s *Session) ExecuteLiteral(command string, literal []byte) (*Response, error) {
	s.conn.SetDeadline(time.Now().Add(commandTimeout))

	tag := s.nextTag()
	header := fmt.Sprintf("%s %s {%d}\r\n", tag, command, len(literal))
	if _, err := s.conn.Write([]byte(header)); err != nil {
		return nil, fmt.Errorf("writing command: %w", err)
	}

	// Wait for the "+" continuation. A tagged line here means the server
	// refused the literal outright.
	for {
		line, err := s.readLine()
		if err != nil {
			return nil, fmt.Errorf("awaiting continuation: %w", err)
		}
		if strings.HasPrefix(line, "+") {
			break
		}
		if strings.HasPrefix(line, tag+" ") {
			return taggedResponse(tag, line, nil), nil
		}
	}

	s.conn.SetDeadline(time.Now().Add(commandTimeout))
	if _, err := s.conn.Write(literal); err != nil {
		return nil, fmt.Errorf("writing literal: %w", err)
	}
	if _, err := s.conn.Write([]byte("\r\n")); err != nil {
		return nil, fmt.Errorf("writing literal: %w", err)
	}
	return s.readResponse(tag)
}

// readResponse collects untagged fragments until the tagged completion line
// for the given tag arrives.
func (s *Session) readResponse(tag string) (*Response, error) {
	var frags []Fragment
	for {
		line, err := s.readLine()
		if err != nil {
			return nil, fmt.Errorf("reading response: %w", err)
		}

		switch {
		case strings.HasPrefix(line, tag+" "):
			return taggedResponse(tag, line, frags), nil
		case strings.HasPrefix(line, "* "):
			frags, err = s.readData(line[2:], frags)
			if err != nil {
				return nil, fmt.Errorf("reading response data: %w", err)
			}
		default:
			// Continuations and responses for other tags are not
			// expected here; skip rather than fail the operation.
		}
	}
}

// readData consumes one untagged data item, following {n} literal markers.
// A single FETCH response may interleave several lines and literals; each
// piece is kept as its own fragment in arrival order.
func (s *Session) readData(content string, frags []Fragment) ([]Fragment, error) {
	for {
		n := literalSize(content)
		if content != "" {
			frags = append(frags, Fragment{Kind: FragmentLine, Data: []byte(content)})
		}
		if n < 0 {
			return frags, nil
		}

		buf := make([]byte, n)
		if _, err := io.ReadFull(s.r, buf); err != nil {
			return frags, err
		}
		frags = append(frags, Fragment{Kind: FragmentLiteral, Data: buf})

		rest, err := s.readLine()
		if err != nil {
			return frags, err
		}
		if rest == "" {
			return frags, nil
		}
		content = rest
	}
}

func (s *Session) readLine() (string, error) {
	line, err := s.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// taggedResponse parses "<tag> <STATUS> <info>" into a Response.
func taggedResponse(tag, line string, frags []Fragment) *Response {
	rest := strings.TrimPrefix(line, tag+" ")
	status, info, _ := strings.Cut(rest, " ")
	return &Response{
		Status:    strings.ToUpper(status),
		Info:      info,
		Fragments: frags,
	}
}

// absorbCapabilities picks capability tokens out of a [CAPABILITY ...]
// response code when one is present in the given text.
func (s *Session) absorbCapabilities(text string) {
	start := strings.Index(text, "[CAPABILITY ")
	if start < 0 {
		return
	}
	end := strings.Index(text[start:], "]")
	if end < 0 {
		return
	}
	inner := text[start+len("[CAPABILITY ") : start+end]
	for _, tok := range strings.Fields(inner) {
		s.caps[strings.ToUpper(tok)] = true
	}
}

// QuoteMailbox wraps a mailbox name in double quotes, escaping backslashes
// and quotes. Some servers (Proton Mail Bridge) require quoted names; the
// form is valid for every server per RFC 3501.
func QuoteMailbox(name string) string {
	return quoteString(name)
}

func quoteString(v string) string {
	escaped := strings.ReplaceAll(v, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `"` + escaped + `"`
}
