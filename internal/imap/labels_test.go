package imap

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelFolder(t *testing.T) {
	assert.Equal(t, "Labels/Important", LabelFolder("Important"))
}

func TestLabelsFromFolders(t *testing.T) {
	folders := []Folder{
		{Name: "INBOX", Delimiter: "/"},
		{Name: "Labels/Important", Delimiter: "/", Flags: []string{`\HasNoChildren`}},
		{Name: "Labels/Work", Delimiter: "/"},
		{Name: "Labels/", Delimiter: "/"},
		{Name: "Sent", Delimiter: "/"},
	}

	labels := LabelsFromFolders(folders)
	require.Len(t, labels, 2)
	assert.Equal(t, "Important", labels[0].Name)
	assert.Equal(t, "Labels/Important", labels[0].FullPath)
	assert.Equal(t, []string{`\HasNoChildren`}, labels[0].Flags)
	assert.Equal(t, "Work", labels[1].Name)
}

func TestLabelsFromFoldersNone(t *testing.T) {
	assert.Empty(t, LabelsFromFolders([]Folder{{Name: "INBOX"}, {Name: "Sent"}}))
}

func TestMessageIDOf(t *testing.T) {
	header := "Message-ID: <abc123@example.com>\r\n\r\n"
	c := newFakeConn()
	c.reply("UID FETCH", okResp(
		lineFrag(fmt.Sprintf("1 FETCH (UID 7 BODY[HEADER.FIELDS (MESSAGE-ID)] {%d}", len(header))),
		litFrag(header),
		lineFrag(")"),
	))

	id, err := MessageIDOf(c, testLog, "7")
	require.NoError(t, err)
	assert.Equal(t, "<abc123@example.com>", id)
}

func TestMessageIDOfAbsentHeader(t *testing.T) {
	// A message without a Message-ID yields "", not an error.
	c := newFakeConn()
	c.reply("UID FETCH", okResp(
		lineFrag("1 FETCH (UID 7 BODY[HEADER.FIELDS (MESSAGE-ID)] {2}"),
		litFrag("\r\n"),
		lineFrag(")"),
	))

	id, err := MessageIDOf(c, testLog, "7")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestSearchByMessageID(t *testing.T) {
	c := newFakeConn()
	c.on("SEARCH HEADER MESSAGE-ID", func(cmd string) (*Response, error) {
		assert.Equal(t, `SEARCH HEADER MESSAGE-ID "<abc@example.com>"`, cmd)
		return okResp(lineFrag("SEARCH 4")), nil
	})
	c.reply("FETCH 4 (UID)", okResp(lineFrag("4 FETCH (UID 42)")))

	uid, err := SearchByMessageID(c, testLog, "<abc@example.com>")
	require.NoError(t, err)
	assert.Equal(t, "42", uid)
}

func TestSearchByMessageIDNoMatch(t *testing.T) {
	c := newFakeConn()
	c.reply("SEARCH HEADER MESSAGE-ID", okResp(lineFrag("SEARCH")))

	uid, err := SearchByMessageID(c, testLog, "<missing@example.com>")
	require.NoError(t, err)
	assert.Empty(t, uid)
	assert.Zero(t, c.sent("FETCH"), "no UID resolution without a hit")
}
