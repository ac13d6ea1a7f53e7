package imap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectUIDPairsUIDBeforeLiteral(t *testing.T) {
	frags := []Fragment{
		lineFrag("1 FETCH (UID 101 BODY[HEADER] {42}"),
		litFrag("Subject: first\r\n\r\n"),
		lineFrag(")"),
		lineFrag("2 FETCH (UID 102 BODY[HEADER] {43}"),
		litFrag("Subject: second\r\n\r\n"),
		lineFrag(")"),
	}

	pairs := CollectUIDPairs(frags)
	require.Len(t, pairs, 2)
	assert.Equal(t, "101", pairs[0].UID)
	assert.Equal(t, "Subject: first\r\n\r\n", string(pairs[0].Payload))
	assert.Equal(t, "102", pairs[1].UID)
	assert.Equal(t, "Subject: second\r\n\r\n", string(pairs[1].Payload))
}

func TestCollectUIDPairsUIDAfterLiteral(t *testing.T) {
	// Proton Bridge puts the literal first and the UID on a trailing line.
	frags := []Fragment{
		lineFrag("1 FETCH (BODY[HEADER] {42}"),
		litFrag("Subject: first\r\n\r\n"),
		lineFrag(" UID 101)"),
		lineFrag("2 FETCH (BODY[HEADER] {43}"),
		litFrag("Subject: second\r\n\r\n"),
		lineFrag(" UID 102)"),
	}

	pairs := CollectUIDPairs(frags)
	require.Len(t, pairs, 2)
	assert.Equal(t, "101", pairs[0].UID)
	assert.Equal(t, "Subject: first\r\n\r\n", string(pairs[0].Payload))
	assert.Equal(t, "102", pairs[1].UID)
}

func TestCollectUIDPairsMixedDialects(t *testing.T) {
	frags := []Fragment{
		lineFrag("1 FETCH (UID 7 BODY[HEADER] {5}"),
		litFrag("one\r\n"),
		lineFrag(")"),
		lineFrag("2 FETCH (BODY[HEADER] {5}"),
		litFrag("two\r\n"),
		lineFrag(" UID 9)"),
	}

	pairs := CollectUIDPairs(frags)
	require.Len(t, pairs, 2)
	assert.Equal(t, "7", pairs[0].UID)
	assert.Equal(t, "9", pairs[1].UID)
}

func TestCollectUIDPairsIgnoresNoise(t *testing.T) {
	frags := []Fragment{
		lineFrag("3 EXISTS"),
		lineFrag("FLAGS (\\Seen \\Deleted)"),
	}
	assert.Empty(t, CollectUIDPairs(frags))
}

func TestParseHeaderDate(t *testing.T) {
	got := ParseHeaderDate("Mon, 02 Jan 2006 15:04:05 -0700")
	assert.Equal(t, time.Date(2006, 1, 2, 22, 4, 5, 0, time.UTC), got)

	// A leading label is stripped regardless of case.
	got = ParseHeaderDate("Date: Mon, 02 Jan 2006 15:04:05 +0000")
	assert.Equal(t, time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC), got)
}

func TestParseHeaderDateTotality(t *testing.T) {
	for _, v := range []string{"", "not a date", "Date:"} {
		before := time.Now().UTC()
		got := ParseHeaderDate(v)
		after := time.Now().UTC()
		assert.False(t, got.Before(before.Add(-time.Second)), "value %q", v)
		assert.False(t, got.After(after.Add(time.Second)), "value %q", v)
	}
}

func TestParseHeaderMetadata(t *testing.T) {
	raw := []byte("From: Alice <alice@example.com>\r\n" +
		"To: bob@example.com, carol@example.com\r\n" +
		"Cc: dave@example.com\r\n" +
		"Subject: =?utf-8?q?caf=C3=A9?=\r\n" +
		"Message-Id: <abc@example.com>\r\n" +
		"Date: Mon, 02 Jan 2006 15:04:05 +0000\r\n\r\n")

	md, err := parseHeaderMetadata("42", raw)
	require.NoError(t, err)
	assert.Equal(t, "42", md.UID)
	assert.Equal(t, "<abc@example.com>", md.MessageID)
	assert.Equal(t, "café", md.Subject)
	assert.Equal(t, []string{"bob@example.com", "carol@example.com", "dave@example.com"}, md.Recipients)
}

func TestParseHeaderMetadataUnterminatedBlock(t *testing.T) {
	// A literal cut before the blank line still parses.
	raw := []byte("From: a@b.com\r\nSubject: hi")
	md, err := parseHeaderMetadata("1", raw)
	require.NoError(t, err)
	assert.Equal(t, "hi", md.Subject)
}

func TestParseListLine(t *testing.T) {
	f := ParseListLine(`(\HasNoChildren \Sent) "/" "Sent"`)
	require.NotNil(t, f)
	assert.Equal(t, "Sent", f.Name)
	assert.Equal(t, "/", f.Delimiter)
	assert.Equal(t, []string{`\HasNoChildren`, `\Sent`}, f.Flags)
}

func TestParseListLineWithListToken(t *testing.T) {
	f := ParseListLine(`LIST (\HasChildren) "." "INBOX.Sub"`)
	require.NotNil(t, f)
	assert.Equal(t, "INBOX.Sub", f.Name)
	assert.Equal(t, ".", f.Delimiter)
}

func TestParseListLineRejects(t *testing.T) {
	for _, line := range []string{
		"",
		"LIST completed.",
		"no parenthesis here",
		`(\Noselect) NIL Foo`,
	} {
		assert.Nil(t, ParseListLine(line), "line %q", line)
	}
}
