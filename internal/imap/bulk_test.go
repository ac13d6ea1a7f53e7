package imap

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLog = zerolog.Nop()

func TestDeleteMessagesPartition(t *testing.T) {
	c := newFakeConn()
	c.on("UID STORE", func(cmd string) (*Response, error) {
		if strings.HasPrefix(cmd, "UID STORE 3 ") {
			return noResp("no such message"), nil
		}
		return okResp(), nil
	})

	res, err := DeleteMessages(c, testLog, []string{"1", "2", "3", "4", "5"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "4", "5"}, res.Succeeded)
	assert.Equal(t, []string{"3"}, res.Failed)
	assert.Equal(t, 1, c.sent("EXPUNGE"), "one expunge for the whole batch")
}

func TestDeleteMessagesSkipsExpungeWhenNothingSucceeded(t *testing.T) {
	c := newFakeConn()
	c.reply("UID STORE", noResp("nope"))

	res, err := DeleteMessages(c, testLog, []string{"1", "2"})
	require.NoError(t, err)
	assert.Empty(t, res.Succeeded)
	assert.Equal(t, []string{"1", "2"}, res.Failed)
	assert.Zero(t, c.sent("EXPUNGE"))
}

func TestDeleteMessagesEmptyBatch(t *testing.T) {
	c := newFakeConn()
	res, err := DeleteMessages(c, testLog, nil)
	require.NoError(t, err)
	assert.NotNil(t, res.Succeeded)
	assert.NotNil(t, res.Failed)
	assert.Zero(t, c.sent("EXPUNGE"))
}

func TestCopyMessagesPartition(t *testing.T) {
	c := newFakeConn()
	c.on("UID COPY", func(cmd string) (*Response, error) {
		if strings.HasPrefix(cmd, "UID COPY 2 ") {
			return noResp("quota exceeded"), nil
		}
		return okResp(), nil
	})

	res := CopyMessages(c, testLog, []string{"1", "2", "3"}, "Archive")
	assert.Equal(t, []string{"1", "3"}, res.Succeeded)
	assert.Equal(t, []string{"2"}, res.Failed)
}

func TestCopyMessagesQuotesDestination(t *testing.T) {
	c := newFakeConn()
	CopyMessages(c, testLog, []string{"1"}, "My Folder")
	require.Len(t, c.commands, 1)
	assert.Equal(t, `UID COPY 1 "My Folder"`, c.commands[0])
}

func TestMoveMessagesNative(t *testing.T) {
	c := newFakeConn("MOVE")

	res, err := MoveMessages(c, testLog, []string{"1", "2"}, "Archive")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, res.Succeeded)
	assert.Empty(t, res.Failed)
	assert.Equal(t, 2, c.sent("UID MOVE"))
	assert.Zero(t, c.sent("UID COPY"), "native move needs no copy")
	assert.Equal(t, 1, c.sent("EXPUNGE"))
}

func TestMoveMessagesFallback(t *testing.T) {
	c := newFakeConn()
	c.reply("UID MOVE", noResp("MOVE not supported"))

	res, err := MoveMessages(c, testLog, []string{"1", "2"}, "Archive")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, res.Succeeded)
	assert.Empty(t, res.Failed)
	assert.Equal(t, 2, c.sent("UID COPY"))
	assert.Equal(t, 2, c.sent("UID STORE"))
	assert.Equal(t, 1, c.sent("EXPUNGE"))
}

// Whether the server supports MOVE or not, the partition must come out the
// same for the same per-message outcomes.
func TestMoveMessagesEquivalentOutcomes(t *testing.T) {
	native := newFakeConn("MOVE")
	native.on("UID MOVE", func(cmd string) (*Response, error) {
		if strings.HasPrefix(cmd, "UID MOVE 2 ") {
			return noResp("gone"), nil
		}
		return okResp(), nil
	})
	// The failed item also fails its fallback copy.
	native.reply("UID COPY 2 ", noResp("gone"))

	legacy := newFakeConn()
	legacy.reply("UID MOVE", noResp("unsupported"))
	legacy.on("UID COPY", func(cmd string) (*Response, error) {
		if strings.HasPrefix(cmd, "UID COPY 2 ") {
			return noResp("gone"), nil
		}
		return okResp(), nil
	})

	nativeRes, err := MoveMessages(native, testLog, []string{"1", "2", "3"}, "Archive")
	require.NoError(t, err)
	legacyRes, err := MoveMessages(legacy, testLog, []string{"1", "2", "3"}, "Archive")
	require.NoError(t, err)

	assert.Equal(t, nativeRes, legacyRes)
	assert.Equal(t, []string{"1", "3"}, nativeRes.Succeeded)
	assert.Equal(t, []string{"2"}, nativeRes.Failed)
}

func TestBulkResultCoversInput(t *testing.T) {
	c := newFakeConn()
	c.on("UID COPY", func(cmd string) (*Response, error) {
		if strings.Contains(cmd, " 4 ") {
			return noResp("x"), nil
		}
		return okResp(), nil
	})

	ids := []string{"9", "4", "7", "1"}
	res := CopyMessages(c, testLog, ids, "Dest")
	assert.Len(t, res.Succeeded, 3)
	assert.Len(t, res.Failed, 1)
	for _, id := range ids {
		inSucceeded := contains(res.Succeeded, id)
		inFailed := contains(res.Failed, id)
		assert.True(t, inSucceeded != inFailed, "id %s must be in exactly one partition", id)
	}
}
