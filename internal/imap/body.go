package imap

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message/mail"
	"github.com/rs/zerolog"
)

const (
	// maxBodyLength caps the decoded text body returned to callers.
	maxBodyLength = 20000
	// truncationMarker is appended when the body was cut at maxBodyLength.
	truncationMarker = "...[TRUNCATED]"

	// minContentLength separates actual message content from IMAP
	// protocol chatter when probing fetch formats.
	minContentLength = 100
)

// fetchFormats is the ladder of fetch item specifiers tried in order until
// one yields recognizable message content. Servers differ in which of these
// they answer usefully.
var fetchFormats = []string{"RFC822", "BODY[]", "BODY.PEEK[]", "(BODY.PEEK[])"}

// Body is the full content view of one message: its metadata plus the
// decoded text body, truncated at maxBodyLength.
type Body struct {
	Metadata
	Body string
}

// FetchBody retrieves and parses the full content of one message in the
// selected mailbox. Failing every fetch format is ErrNotFound, not a
// connection fault.
func FetchBody(c Conn, log zerolog.Logger, uid string) (*Body, error) {
	raw, err := FetchRaw(c, log, uid)
	if err != nil {
		return nil, err
	}
	return parseFullMessage(uid, raw)
}

// FetchRaw retrieves the raw RFC 2822 bytes of one message, probing the
// fetch format ladder until a response contains actual content.
func FetchRaw(c Conn, log zerolog.Logger, uid string) ([]byte, error) {
	for _, format := range fetchFormats {
		resp, err := c.Execute("UID FETCH " + uid + " " + format)
		if err != nil || !resp.OK() {
			log.Debug().Err(err).Str("format", format).Msg("fetch format failed")
			continue
		}
		if !hasMessageContent(resp.Fragments) {
			continue
		}
		if raw := extractRawMessage(resp.Fragments); raw != nil {
			return raw, nil
		}
	}
	log.Error().Str("uid", uid).Msg("failed to fetch message with any format")
	return nil, ErrNotFound
}

// hasMessageContent reports whether the fragments contain actual message
// bytes rather than only protocol status lines. Anything longer than the
// minimum threshold counts, except FETCH metadata lines that name no body
// item.
func hasMessageContent(frags []Fragment) bool {
	for _, f := range frags {
		if f.Line() {
			s := f.Text()
			if strings.Contains(s, "FETCH (") && !strings.Contains(s, "RFC822") && !strings.Contains(s, "BODY") {
				continue
			}
		}
		if len(f.Data) > minContentLength {
			return true
		}
	}
	return false
}

// extractRawMessage picks the message bytes out of the fragments: the first
// sufficiently large literal, or failing that a large textual fragment that
// is not a FETCH protocol line.
func extractRawMessage(frags []Fragment) []byte {
	for _, f := range frags {
		if f.Kind == FragmentLiteral && len(f.Data) > minContentLength {
			return f.Data
		}
	}
	for _, f := range frags {
		if f.Line() && len(f.Data) > minContentLength && !strings.Contains(f.Text(), "FETCH") {
			return f.Data
		}
	}
	return nil
}

// parseFullMessage decodes a raw message into its metadata, text body and
// attachment names. Text parts are concatenated; the body is truncated at
// maxBodyLength characters with a marker appended.
func parseFullMessage(uid string, raw []byte) (*Body, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		// Unparseable MIME: treat the whole payload as plain text
		// rather than losing the message.
		return &Body{
			Metadata: Metadata{UID: uid},
			Body:     truncateBody(string(raw)),
		}, nil
	}
	defer mr.Close()

	h := mr.Header
	md := Metadata{
		UID:        uid,
		MessageID:  strings.TrimSpace(h.Get("Message-Id")),
		Subject:    decodedField(h.Header, "Subject"),
		From:       decodedField(h.Header, "From"),
		Recipients: splitAddresses(decodedField(h.Header, "To"), decodedField(h.Header, "Cc")),
		Date:       ParseHeaderDate(h.Get("Date")),
	}

	var body strings.Builder
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		switch ph := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := ph.ContentType()
			if contentType != "text/plain" {
				continue
			}
			data, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			body.Write(data)

		case *mail.AttachmentHeader:
			if filename, _ := ph.Filename(); filename != "" {
				md.Attachments = append(md.Attachments, filename)
			}
		}
	}

	return &Body{
		Metadata: md,
		Body:     truncateBody(body.String()),
	}, nil
}

func truncateBody(body string) string {
	runes := []rune(body)
	if len(runes) <= maxBodyLength {
		return body
	}
	return string(runes[:maxBodyLength]) + truncationMarker
}

// Attachment is one attachment extracted from a raw message.
type Attachment struct {
	Filename string
	MIMEType string
	Data     []byte
}

// FindAttachment locates the named attachment in a raw message.
func FindAttachment(raw []byte, name string) (*Attachment, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing message: %w", err)
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		ah, ok := part.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}
		filename, _ := ah.Filename()
		if filename != name {
			continue
		}

		data, err := io.ReadAll(part.Body)
		if err != nil {
			return nil, fmt.Errorf("reading attachment %q: %w", name, err)
		}
		contentType, _, _ := ah.ContentType()
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		return &Attachment{Filename: filename, MIMEType: contentType, Data: data}, nil
	}

	return nil, fmt.Errorf("attachment %q: %w", name, ErrNotFound)
}
