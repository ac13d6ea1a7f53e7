// Package smtp builds and delivers outgoing mail. The MIME assembly is a
// thin wrapper over go-message; delivery uses the standard SMTP client with
// implicit-TLS, STARTTLS and plaintext variants.
package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	netmail "net/mail"
	netsmtp "net/smtp"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/rs/zerolog"

	"github.com/avella/mailgate/internal/model"
)

// Message is one outgoing email. Bcc recipients receive the message but
// never appear in its headers.
type Message struct {
	Recipients []string
	Cc         []string
	Bcc        []string
	Subject    string
	Body       string
	HTML       bool
	// Attachments are local file paths attached to the message.
	Attachments []string
	// InReplyTo and References thread replies when set.
	InReplyTo  string
	References string
}

// Sender delivers mail for one account's outgoing server.
type Sender struct {
	cfg    model.ServerSettings
	sender string
	log    zerolog.Logger
}

// NewSender creates a sender. The sender identity is the account's From
// value ("Full Name <addr>").
func NewSender(cfg model.ServerSettings, sender string, log zerolog.Logger) *Sender {
	return &Sender{cfg: cfg, sender: sender, log: log}
}

// Send builds the MIME message and delivers it over SMTP. The raw message
// bytes are returned so the caller can append a copy to the Sent folder.
func (s *Sender) Send(ctx context.Context, msg Message) ([]byte, error) {
	raw, err := s.buildMessage(msg)
	if err != nil {
		return nil, err
	}

	// The envelope carries every recipient, including Bcc; the headers
	// already exclude Bcc by construction.
	envelope := make([]string, 0, len(msg.Recipients)+len(msg.Cc)+len(msg.Bcc))
	envelope = append(envelope, msg.Recipients...)
	envelope = append(envelope, msg.Cc...)
	envelope = append(envelope, msg.Bcc...)

	if err := s.deliver(envelope, raw); err != nil {
		return nil, err
	}
	s.log.Info().Int("recipients", len(envelope)).Msg("email sent")
	return raw, nil
}

// buildMessage assembles the MIME message: headers (with RFC 2047 encoding
// for non-ASCII Subject/From), one inline text part, and any attachments.
func (s *Sender) buildMessage(msg Message) ([]byte, error) {
	var h mail.Header
	h.SetDate(time.Now())
	h.SetSubject(msg.Subject)

	from, err := parseAddress(s.sender)
	if err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", s.sender, err)
	}
	h.SetAddressList("From", []*mail.Address{from})
	h.SetAddressList("To", bareAddresses(msg.Recipients))
	if len(msg.Cc) > 0 {
		h.SetAddressList("Cc", bareAddresses(msg.Cc))
	}

	if msg.InReplyTo != "" {
		h.Set("In-Reply-To", msg.InReplyTo)
	}
	if msg.References != "" {
		h.Set("References", msg.References)
	}

	var buf bytes.Buffer
	w, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}

	if err := writeTextPart(w, msg.Body, msg.HTML); err != nil {
		return nil, err
	}
	for _, path := range msg.Attachments {
		if err := writeAttachment(w, path); err != nil {
			s.log.Error().Err(err).Str("path", path).Msg("failed to attach file")
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing message: %w", err)
	}
	return buf.Bytes(), nil
}

func writeTextPart(w *mail.Writer, body string, html bool) error {
	tw, err := w.CreateInline()
	if err != nil {
		return fmt.Errorf("creating inline part: %w", err)
	}
	defer tw.Close()

	contentType := "text/plain"
	if html {
		contentType = "text/html"
	}

	var th mail.InlineHeader
	th.SetContentType(contentType, map[string]string{"charset": "utf-8"})

	pw, err := tw.CreatePart(th)
	if err != nil {
		return fmt.Errorf("creating text part: %w", err)
	}
	defer pw.Close()

	if _, err := pw.Write([]byte(body)); err != nil {
		return fmt.Errorf("writing body: %w", err)
	}
	return nil
}

func writeAttachment(w *mail.Writer, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("attachment file not found: %s", path)
	}
	if info.IsDir() {
		return fmt.Errorf("attachment path is not a file: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading attachment %s: %w", path, err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	var ah mail.AttachmentHeader
	ah.SetFilename(filepath.Base(path))
	ah.SetContentType(mimeType, nil)

	aw, err := w.CreateAttachment(ah)
	if err != nil {
		return fmt.Errorf("creating attachment part: %w", err)
	}
	defer aw.Close()

	if _, err := aw.Write(data); err != nil {
		return fmt.Errorf("writing attachment %s: %w", path, err)
	}
	return nil
}

// deliver pushes the raw message through SMTP using the configured
// transport security mode.
func (s *Sender) deliver(recipients []string, raw []byte) error {
	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)

	client, err := s.dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	auth := netsmtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP auth: %w", err)
	}

	from, err := parseAddress(s.sender)
	if err != nil {
		return fmt.Errorf("invalid sender %q: %w", s.sender, err)
	}
	if err := client.Mail(from.Address); err != nil {
		return fmt.Errorf("SMTP MAIL FROM: %w", err)
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("SMTP RCPT TO %s: %w", rcpt, err)
		}
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA: %w", err)
	}
	if _, err := wc.Write(raw); err != nil {
		wc.Close()
		return fmt.Errorf("writing message data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("closing message data: %w", err)
	}

	return client.Quit()
}

// dial opens the SMTP connection for the configured security mode:
// implicit TLS, STARTTLS upgrade, or plaintext.
func (s *Sender) dial(addr string) (*netsmtp.Client, error) {
	if s.cfg.UseSSL {
		conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.cfg.Host})
		if err != nil {
			return nil, fmt.Errorf("TLS dial to %s: %w", addr, err)
		}
		client, err := netsmtp.NewClient(conn, s.cfg.Host)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("creating SMTP client: %w", err)
		}
		return client, nil
	}

	client, err := netsmtp.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("dialing SMTP %s: %w", addr, err)
	}
	if s.cfg.StartTLS {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			client.Close()
			return nil, fmt.Errorf("SMTP STARTTLS: %w", err)
		}
	}
	return client, nil
}

func parseAddress(v string) (*mail.Address, error) {
	parsed, err := netmail.ParseAddress(v)
	if err != nil {
		return nil, err
	}
	return &mail.Address{Name: parsed.Name, Address: parsed.Address}, nil
}

func bareAddresses(addrs []string) []*mail.Address {
	out := make([]*mail.Address, 0, len(addrs))
	for _, a := range addrs {
		if parsed, err := netmail.ParseAddress(a); err == nil {
			out = append(out, &mail.Address{Name: parsed.Name, Address: parsed.Address})
			continue
		}
		out = append(out, &mail.Address{Address: a})
	}
	return out
}
