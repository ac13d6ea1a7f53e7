package imap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteMailbox(t *testing.T) {
	assert.Equal(t, `"INBOX"`, QuoteMailbox("INBOX"))
	assert.Equal(t, `"My Folder"`, QuoteMailbox("My Folder"))
	assert.Equal(t, `"a\"b"`, QuoteMailbox(`a"b`))
	assert.Equal(t, `"a\\b"`, QuoteMailbox(`a\b`))
	assert.Equal(t, `""`, QuoteMailbox(""))
}

func TestLiteralSize(t *testing.T) {
	assert.Equal(t, 342, literalSize("1 FETCH (UID 7 BODY[HEADER] {342}"))
	assert.Equal(t, 0, literalSize("{0}"))
	assert.Equal(t, -1, literalSize("1 FETCH (UID 7 FLAGS (\\Seen))"))
	assert.Equal(t, -1, literalSize("{12} trailing"))
	assert.Equal(t, -1, literalSize(""))
}

func TestAbsorbCapabilities(t *testing.T) {
	s := &Session{caps: map[string]bool{}}
	s.absorbCapabilities("* OK [CAPABILITY IMAP4rev1 SORT MOVE IDLE] ready")

	assert.True(t, s.HasCapability("SORT"))
	assert.True(t, s.HasCapability("move"))
	assert.False(t, s.HasCapability("QUOTA"))
}

func TestAbsorbCapabilitiesNoCode(t *testing.T) {
	s := &Session{caps: map[string]bool{}}
	s.absorbCapabilities("* OK ready when you are")
	assert.Empty(t, s.caps)
}

func TestTaggedResponse(t *testing.T) {
	r := taggedResponse("A001", "A001 NO [NONEXISTENT] Unknown Mailbox", nil)
	assert.Equal(t, "NO", r.Status)
	assert.Equal(t, "[NONEXISTENT] Unknown Mailbox", r.Info)
	assert.False(t, r.OK())

	r = taggedResponse("A002", "A002 ok Completed", nil)
	assert.True(t, r.OK(), "status comparison is case-insensitive on the wire")
}

func TestServerConfigAddr(t *testing.T) {
	cfg := ServerConfig{Host: "imap.example.com", Port: 993}
	assert.Equal(t, "imap.example.com:993", cfg.Addr())
}

func TestResponseFirstLineWithPrefix(t *testing.T) {
	r := &Response{Status: "OK", Fragments: []Fragment{
		lineFrag("12 EXISTS"),
		lineFrag("SEARCHRELATED nope"),
		lineFrag("SEARCH 1 2 3"),
	}}
	assert.Equal(t, "SEARCH 1 2 3", r.firstLineWithPrefix("SEARCH"))
	assert.Empty(t, r.firstLineWithPrefix("SORT"))
}
