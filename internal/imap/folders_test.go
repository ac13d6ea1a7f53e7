package imap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListFolders(t *testing.T) {
	c := newFakeConn()
	c.reply("LIST", okResp(
		lineFrag(`LIST (\HasNoChildren) "/" "INBOX"`),
		lineFrag(`LIST (\HasNoChildren \Sent) "/" "Sent"`),
		lineFrag(`LIST (\HasChildren) "/" "Labels/Work"`),
		lineFrag("LIST completed."),
	))

	folders, err := ListFolders(c, testLog)
	require.NoError(t, err)
	require.Len(t, folders, 3)
	assert.Equal(t, "INBOX", folders[0].Name)
	assert.Equal(t, "Sent", folders[1].Name)
	assert.Equal(t, []string{`\HasNoChildren`, `\Sent`}, folders[1].Flags)
	assert.Equal(t, "Labels/Work", folders[2].Name)
}

func TestListFoldersRefused(t *testing.T) {
	c := newFakeConn()
	c.reply("LIST", noResp("not now"))

	_, err := ListFolders(c, testLog)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "LIST", statusErr.Command)
}

func TestCreateFolder(t *testing.T) {
	c := newFakeConn()
	ok, msg := CreateFolder(c, testLog, "Projects")
	assert.True(t, ok)
	assert.Equal(t, "Folder 'Projects' created successfully", msg)
	require.Len(t, c.commands, 1)
	assert.Equal(t, `CREATE "Projects"`, c.commands[0])
}

func TestCreateFolderRefused(t *testing.T) {
	c := newFakeConn()
	c.reply("CREATE", noResp("ALREADYEXISTS"))

	ok, msg := CreateFolder(c, testLog, "Projects")
	assert.False(t, ok)
	assert.Equal(t, "Failed to create folder: NO ALREADYEXISTS", msg)
}

func TestCreateFolderTransportError(t *testing.T) {
	c := newFakeConn()
	c.on("CREATE", func(string) (*Response, error) {
		return nil, errors.New("connection reset")
	})

	ok, msg := CreateFolder(c, testLog, "Projects")
	assert.False(t, ok)
	assert.Equal(t, "Error creating folder: connection reset", msg)
}

func TestDeleteFolder(t *testing.T) {
	c := newFakeConn()
	ok, msg := DeleteFolder(c, testLog, "Old Stuff")
	assert.True(t, ok)
	assert.Equal(t, "Folder 'Old Stuff' deleted successfully", msg)
	assert.Equal(t, `DELETE "Old Stuff"`, c.commands[0])
}

func TestRenameFolder(t *testing.T) {
	c := newFakeConn()
	ok, msg := RenameFolder(c, testLog, "Drafts", "Archive/Drafts")
	assert.True(t, ok)
	assert.Equal(t, "Folder renamed from 'Drafts' to 'Archive/Drafts'", msg)
	assert.Equal(t, `RENAME "Drafts" "Archive/Drafts"`, c.commands[0])
}

func TestRenameFolderRefused(t *testing.T) {
	c := newFakeConn()
	c.reply("RENAME", noResp("NONEXISTENT"))

	ok, msg := RenameFolder(c, testLog, "A", "B")
	assert.False(t, ok)
	assert.Equal(t, "Failed to rename folder: NO NONEXISTENT", msg)
}
