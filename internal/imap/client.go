package imap

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// sentFolderCandidates are common Sent folder names across providers, tried
// in order after any flag-derived or caller-supplied candidate.
var sentFolderCandidates = []string{
	"Sent",
	"INBOX.Sent",
	"Sent Items",
	"Sent Mail",
	"[Gmail]/Sent Mail",
	"INBOX/Sent",
}

// Client runs mailbox operations against one IMAP account. Every method
// opens its own session for the duration of the call; nothing is pooled or
// shared, so a Client is safe to use from concurrent operations.
type Client struct {
	cfg ServerConfig
	log zerolog.Logger
}

// NewClient creates a client for the given server.
func NewClient(cfg ServerConfig, log zerolog.Logger) *Client {
	return &Client{cfg: cfg, log: log}
}

// ListMetadata returns one page of message metadata from the mailbox.
func (c *Client) ListMetadata(ctx context.Context, mailbox string, q Query, page, pageSize int, order Order) ([]Metadata, error) {
	var items []Metadata
	err := WithSession(ctx, c.cfg, mailbox, c.log, func(s *Session) error {
		var err error
		items, err = ListMetadata(s, c.log, q, page, pageSize, order)
		return err
	})
	return items, err
}

// Count returns the number of messages matching the query in the mailbox.
func (c *Client) Count(ctx context.Context, mailbox string, q Query) (int, error) {
	var n int
	err := WithSession(ctx, c.cfg, mailbox, c.log, func(s *Session) error {
		var err error
		n, err = Count(s, q)
		return err
	})
	return n, err
}

// FetchBody retrieves the parsed content of one message.
func (c *Client) FetchBody(ctx context.Context, uid, mailbox string) (*Body, error) {
	var body *Body
	err := WithSession(ctx, c.cfg, mailbox, c.log, func(s *Session) error {
		var err error
		body, err = FetchBody(s, c.log, uid)
		return err
	})
	return body, err
}

// FetchRaw retrieves the raw bytes of one message.
func (c *Client) FetchRaw(ctx context.Context, uid, mailbox string) ([]byte, error) {
	var raw []byte
	err := WithSession(ctx, c.cfg, mailbox, c.log, func(s *Session) error {
		var err error
		raw, err = FetchRaw(s, c.log, uid)
		return err
	})
	return raw, err
}

// Delete removes the given messages from the mailbox.
func (c *Client) Delete(ctx context.Context, ids []string, mailbox string) (BulkResult, error) {
	var res BulkResult
	err := WithSession(ctx, c.cfg, mailbox, c.log, func(s *Session) error {
		var err error
		res, err = DeleteMessages(s, c.log, ids)
		return err
	})
	return res, err
}

// Copy copies the given messages into the destination folder.
func (c *Client) Copy(ctx context.Context, ids []string, dest, mailbox string) (BulkResult, error) {
	var res BulkResult
	err := WithSession(ctx, c.cfg, mailbox, c.log, func(s *Session) error {
		res = CopyMessages(s, c.log, ids, dest)
		return nil
	})
	return res, err
}

// Move moves the given messages into the destination folder.
func (c *Client) Move(ctx context.Context, ids []string, dest, mailbox string) (BulkResult, error) {
	var res BulkResult
	err := WithSession(ctx, c.cfg, mailbox, c.log, func(s *Session) error {
		var err error
		res, err = MoveMessages(s, c.log, ids, dest)
		return err
	})
	return res, err
}

// ListFolders lists every folder of the account.
func (c *Client) ListFolders(ctx context.Context) ([]Folder, error) {
	var folders []Folder
	err := WithSession(ctx, c.cfg, "", c.log, func(s *Session) error {
		var err error
		folders, err = ListFolders(s, c.log)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.log.Info().Int("count", len(folders)).Msg("listed folders")
	return folders, nil
}

// ListLabels lists the labels of the account: folders under the reserved
// prefix, with the prefix stripped from the display name.
func (c *Client) ListLabels(ctx context.Context) ([]Label, error) {
	folders, err := c.ListFolders(ctx)
	if err != nil {
		return nil, err
	}
	return LabelsFromFolders(folders), nil
}

// CreateFolder creates a folder, reporting a success flag and message.
// Session-level faults are folded into the failure message, matching the
// folder primitives' soft contract.
func (c *Client) CreateFolder(ctx context.Context, name string) (bool, string) {
	ok, msg := false, ""
	err := WithSession(ctx, c.cfg, "", c.log, func(s *Session) error {
		ok, msg = CreateFolder(s, c.log, name)
		return nil
	})
	if err != nil {
		return false, fmt.Sprintf("Error creating folder: %v", err)
	}
	return ok, msg
}

// DeleteFolder deletes a folder.
func (c *Client) DeleteFolder(ctx context.Context, name string) (bool, string) {
	ok, msg := false, ""
	err := WithSession(ctx, c.cfg, "", c.log, func(s *Session) error {
		ok, msg = DeleteFolder(s, c.log, name)
		return nil
	})
	if err != nil {
		return false, fmt.Sprintf("Error deleting folder: %v", err)
	}
	return ok, msg
}

// RenameFolder renames a folder.
func (c *Client) RenameFolder(ctx context.Context, oldName, newName string) (bool, string) {
	ok, msg := false, ""
	err := WithSession(ctx, c.cfg, "", c.log, func(s *Session) error {
		ok, msg = RenameFolder(s, c.log, oldName, newName)
		return nil
	})
	if err != nil {
		return false, fmt.Sprintf("Error renaming folder: %v", err)
	}
	return ok, msg
}

// MessageID returns the Message-ID header of a message, or "" when the
// message carries none.
func (c *Client) MessageID(ctx context.Context, uid, mailbox string) (string, error) {
	var id string
	err := WithSession(ctx, c.cfg, mailbox, c.log, func(s *Session) error {
		var err error
		id, err = MessageIDOf(s, c.log, uid)
		return err
	})
	return id, err
}

// SearchMessageID finds the UID of a message with the given Message-ID in
// the named mailbox, or "" when absent.
func (c *Client) SearchMessageID(ctx context.Context, messageID, mailbox string) (string, error) {
	var uid string
	err := WithSession(ctx, c.cfg, mailbox, c.log, func(s *Session) error {
		var err error
		uid, err = SearchByMessageID(s, c.log, messageID)
		return err
	})
	return uid, err
}

// AppendToSent appends a sent message, flagged \Seen, to the account's Sent
// folder. Candidates are tried in priority order: the folder advertising
// the \Sent flag, then the caller override, then common provider names.
// Every failure is logged only; not finding a Sent folder is not an error.
func (c *Client) AppendToSent(ctx context.Context, raw []byte, override string) bool {
	saved := false
	err := WithSession(ctx, c.cfg, "", c.log, func(s *Session) error {
		candidates := c.sentFolderCandidates(s, override)
		for _, folder := range candidates {
			if err := s.Select(folder); err != nil {
				c.log.Debug().Str("folder", folder).Msg("sent folder candidate not selectable")
				continue
			}
			resp, err := s.ExecuteLiteral("APPEND "+QuoteMailbox(folder)+` (\Seen)`, raw)
			if err != nil || !resp.OK() {
				c.log.Warn().Err(err).Str("folder", folder).Msg("failed to append to sent folder")
				continue
			}
			c.log.Info().Str("folder", folder).Msg("saved sent email")
			saved = true
			return nil
		}
		c.log.Warn().Msg("could not find a valid Sent folder to save the message")
		return nil
	})
	if err != nil {
		c.log.Error().Err(err).Msg("error saving to sent folder")
		return false
	}
	return saved
}

// sentFolderCandidates assembles the ordered Sent folder candidate list:
// the \Sent flagged folder first, then the override, then the common names.
func (c *Client) sentFolderCandidates(s *Session, override string) []string {
	var candidates []string
	if override != "" {
		candidates = append(candidates, override)
	}
	candidates = append(candidates, sentFolderCandidates...)

	if flagged := c.findSentFolderByFlag(s); flagged != "" && !contains(candidates, flagged) {
		candidates = append([]string{flagged}, candidates...)
	}
	return candidates
}

// findSentFolderByFlag locates the folder advertising the \Sent special-use
// flag, or "" when none does or the listing fails.
func (c *Client) findSentFolderByFlag(s *Session) string {
	folders, err := ListFolders(s, c.log)
	if err != nil {
		c.log.Debug().Err(err).Msg("error finding sent folder by flag")
		return ""
	}
	for _, f := range folders {
		for _, flag := range f.Flags {
			if strings.EqualFold(flag, `\Sent`) {
				c.log.Info().Str("folder", f.Name).Msg("found sent folder by \\Sent flag")
				return f.Name
			}
		}
	}
	return ""
}

func contains(items []string, v string) bool {
	for _, it := range items {
		if it == v {
			return true
		}
	}
	return false
}
