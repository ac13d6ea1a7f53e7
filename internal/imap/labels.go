package imap

import (
	"strings"

	"github.com/rs/zerolog"
)

// LabelPrefix is the reserved folder path prefix under which labels live.
// A label is nothing more than a folder named "Labels/<name>".
const LabelPrefix = "Labels/"

// Label is a view over a folder under the reserved prefix: the display name
// is the path suffix, operations use the full path.
type Label struct {
	Name      string
	FullPath  string
	Delimiter string
	Flags     []string
}

// LabelFolder returns the folder path backing a label name.
func LabelFolder(name string) string {
	return LabelPrefix + name
}

// LabelsFromFolders derives the label list from a folder listing. A folder
// named exactly "Labels/" is the container itself, not a label, and is
// excluded.
func LabelsFromFolders(folders []Folder) []Label {
	var labels []Label
	for _, f := range folders {
		if !strings.HasPrefix(f.Name, LabelPrefix) {
			continue
		}
		name := f.Name[len(LabelPrefix):]
		if name == "" {
			continue
		}
		labels = append(labels, Label{
			Name:      name,
			FullPath:  f.Name,
			Delimiter: f.Delimiter,
			Flags:     f.Flags,
		})
	}
	return labels
}

// MessageIDOf fetches the RFC 5322 Message-ID header of one message in the
// selected mailbox. An absent header yields "", not an error: messages
// without a Message-ID exist in the wild.
func MessageIDOf(c Conn, log zerolog.Logger, uid string) (string, error) {
	resp, err := c.Execute("UID FETCH " + uid + " BODY.PEEK[HEADER.FIELDS (MESSAGE-ID)]")
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return "", &StatusError{Command: "UID FETCH", Status: resp.Status, Info: resp.Info}
	}

	for _, f := range resp.Fragments {
		if f.Kind != FragmentLiteral {
			continue
		}
		header := strings.TrimSpace(string(f.Data))
		if len(header) >= 11 && strings.EqualFold(header[:11], "message-id:") {
			return strings.TrimSpace(header[11:]), nil
		}
	}
	return "", nil
}

// SearchByMessageID finds the UID of the message carrying the given
// Message-ID in the selected mailbox, or "" when there is no match. The
// header search returns sequence numbers, so the UID is resolved with a
// follow-up fetch.
func SearchByMessageID(c Conn, log zerolog.Logger, messageID string) (string, error) {
	resp, err := c.Execute("SEARCH HEADER MESSAGE-ID " + quoteString(messageID))
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return "", &StatusError{Command: "SEARCH", Status: resp.Status, Info: resp.Info}
	}

	line := resp.firstLineWithPrefix("SEARCH")
	if line == "" {
		return "", nil
	}
	seqs := strings.Fields(line)[1:]
	if len(seqs) == 0 {
		return "", nil
	}

	fetchResp, err := c.Execute("FETCH " + seqs[0] + " (UID)")
	if err != nil || !fetchResp.OK() {
		log.Debug().Err(err).Msg("resolving UID for message-id search hit failed")
		return "", err
	}
	for _, l := range fetchResp.lines() {
		if m := uidTokenRe.FindStringSubmatch(l); m != nil {
			return m[1], nil
		}
	}
	return "", nil
}
