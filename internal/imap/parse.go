package imap

import (
	"bytes"
	"fmt"
	netmail "net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/rs/zerolog"
)

// uidTokenRe matches the UID token a FETCH response carries somewhere in its
// textual part. The placement varies by server, which is why the whole line
// is scanned rather than parsed positionally.
var uidTokenRe = regexp.MustCompile(`UID\s+(\d+)`)

// UIDPayload pairs one message identifier with the raw payload the server
// returned for it.
type UIDPayload struct {
	UID     string
	Payload []byte
}

// pairScanner reassembles (UID, payload) pairs from a fragment stream.
//
// Servers disagree on ordering: some put the UID on the FETCH line before
// the literal ("1 FETCH (UID 7 BODY[HEADER] {n}"), others (Proton Bridge)
// send the literal first and the UID on a trailing line (" UID 7)"). The
// scanner holds one pending UID and one pending payload and emits as soon
// as both slots are filled, whichever arrived first.
type pairScanner struct {
	uid     string
	haveUID bool
	payload []byte
	havePay bool
	out     []UIDPayload
}

func (p *pairScanner) feed(f Fragment) {
	if f.Kind == FragmentLiteral {
		p.payload = f.Data
		p.havePay = true
		p.emitIfComplete()
		return
	}

	m := uidTokenRe.FindStringSubmatch(f.Text())
	if m == nil {
		return
	}
	p.uid = m[1]
	p.haveUID = true
	p.emitIfComplete()
}

func (p *pairScanner) emitIfComplete() {
	if !p.haveUID || !p.havePay {
		return
	}
	p.out = append(p.out, UIDPayload{UID: p.uid, Payload: p.payload})
	p.uid, p.haveUID = "", false
	p.payload, p.havePay = nil, false
}

// CollectUIDPairs scans response fragments in order and returns every
// (UID, payload) pair that can be reassembled. Fragments matching neither
// pattern are ignored.
func CollectUIDPairs(frags []Fragment) []UIDPayload {
	var p pairScanner
	for _, f := range frags {
		p.feed(f)
	}
	return p.out
}

// ParseHeaderDate parses an RFC 2822 date header value. An optional leading
// "Date:" label is stripped first. Parsing is total: any failure, including
// an empty value, yields the current UTC time rather than an error.
func ParseHeaderDate(value string) time.Time {
	v := strings.TrimSpace(value)
	if len(v) >= 5 && strings.EqualFold(v[:5], "date:") {
		v = strings.TrimSpace(v[5:])
	}
	t, err := netmail.ParseDate(v)
	if err != nil {
		return time.Now().UTC()
	}
	return t.UTC()
}

// Metadata is the header-derived view of one message. Attachments stay
// empty when the metadata came from a header-only fetch.
type Metadata struct {
	UID         string
	MessageID   string
	Subject     string
	From        string
	Recipients  []string
	Date        time.Time
	Attachments []string
}

// parseHeaderMetadata decodes a raw header block into Metadata. To and Cc
// are merged into one comma-split recipient list, matching what callers of
// the listing surface expect.
func parseHeaderMetadata(uid string, raw []byte) (Metadata, error) {
	entity, err := message.Read(bytes.NewReader(ensureHeaderTerminated(raw)))
	if err != nil && !message.IsUnknownCharset(err) {
		return Metadata{}, fmt.Errorf("parsing header block: %w", err)
	}

	h := entity.Header
	md := Metadata{
		UID:        uid,
		MessageID:  strings.TrimSpace(h.Get("Message-Id")),
		Subject:    decodedField(h, "Subject"),
		From:       decodedField(h, "From"),
		Recipients: splitAddresses(decodedField(h, "To"), decodedField(h, "Cc")),
		Date:       ParseHeaderDate(h.Get("Date")),
	}
	return md, nil
}

// decodedField returns the RFC 2047 decoded value of a header field,
// falling back to the raw value when decoding fails.
func decodedField(h message.Header, key string) string {
	v, err := h.Text(key)
	if err != nil {
		return h.Get(key)
	}
	return v
}

// splitAddresses comma-splits and trims each given header value, merging
// the results in order.
func splitAddresses(values ...string) []string {
	var out []string
	for _, v := range values {
		if v == "" {
			continue
		}
		for _, part := range strings.Split(v, ",") {
			if addr := strings.TrimSpace(part); addr != "" {
				out = append(out, addr)
			}
		}
	}
	return out
}

// ensureHeaderTerminated appends the blank line terminating a header block
// when the server's literal stopped short of it.
func ensureHeaderTerminated(raw []byte) []byte {
	if bytes.HasSuffix(raw, []byte("\r\n\r\n")) || bytes.HasSuffix(raw, []byte("\n\n")) {
		return raw
	}
	return append(append([]byte{}, raw...), []byte("\r\n\r\n")...)
}

// listCompletedSentinel is emitted by some servers as a plain data line at
// the end of a LIST response and must not be mistaken for a folder.
const listCompletedSentinel = "LIST completed."

// Folder is one mailbox as advertised by LIST.
type Folder struct {
	Name      string
	Delimiter string
	Flags     []string
}

// ParseListLine parses one LIST response line of the form
//
//	(\HasNoChildren \Sent) "/" "Sent"
//
// with or without a leading "LIST " token. Malformed lines (no parenthesis
// pair, fewer than four quote-delimited segments after it, the completion
// sentinel, or an empty line) yield nil, never an error.
func ParseListLine(line string) *Folder {
	if line == "" || line == listCompletedSentinel {
		return nil
	}

	open := strings.Index(line, "(")
	closing := strings.Index(line, ")")
	if open < 0 || closing < 0 || closing < open {
		return nil
	}

	flags := strings.Fields(line[open+1 : closing])

	rest := strings.TrimSpace(line[closing+1:])
	parts := strings.Split(rest, `"`)
	if len(parts) < 4 {
		return nil
	}

	return &Folder{
		Name:      parts[3],
		Delimiter: parts[1],
		Flags:     flags,
	}
}

// parseFolders extracts folders from the textual fragments of a LIST
// response, skipping anything ParseListLine rejects.
func parseFolders(resp *Response, log zerolog.Logger) []Folder {
	var folders []Folder
	for _, l := range resp.lines() {
		if f := ParseListLine(l); f != nil {
			folders = append(folders, *f)
		} else {
			log.Debug().Str("line", l).Msg("skipping unparseable list response line")
		}
	}
	return folders
}
