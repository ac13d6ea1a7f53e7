package handler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/avella/mailgate/internal/imap"
	"github.com/avella/mailgate/internal/model"
	"github.com/avella/mailgate/internal/smtp"
)

// Classic is the Handler over plain IMAP and SMTP servers. It holds no
// connections; the underlying clients open one session per operation.
type Classic struct {
	account model.Account
	imap    *imap.Client
	smtp    *smtp.Sender
	log     zerolog.Logger
}

var _ Handler = (*Classic)(nil)

// NewClassic creates the handler for one account.
func NewClassic(account model.Account, log zerolog.Logger) *Classic {
	log = log.With().Str("account", account.Name).Logger()
	return &Classic{
		account: account,
		imap:    imap.NewClient(serverConfig(account.Incoming), log),
		smtp:    smtp.NewSender(account.Outgoing, account.Sender(), log),
		log:     log,
	}
}

func serverConfig(s model.ServerSettings) imap.ServerConfig {
	return imap.ServerConfig{
		Host:     s.Host,
		Port:     s.Port,
		Username: s.Username,
		Password: s.Password,
		UseSSL:   s.UseSSL,
		StartTLS: s.StartTLS,
	}
}

func (c *Classic) ListMetadata(ctx context.Context, opts ListOptions) (*MetadataPage, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = 10
	}
	mailbox := opts.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}

	q := queryFromOptions(opts)

	order := imap.OrderDesc
	if opts.Order == "asc" {
		order = imap.OrderAsc
	}

	items, err := c.imap.ListMetadata(ctx, mailbox, q, opts.Page, opts.PageSize, order)
	if err != nil {
		return nil, err
	}

	// The total runs in its own session so a listing failure and a count
	// failure stay independent.
	total, err := c.imap.Count(ctx, mailbox, q)
	if err != nil {
		return nil, err
	}

	emails := make([]EmailMetadata, 0, len(items))
	for _, m := range items {
		emails = append(emails, metadataResponse(m))
	}
	return &MetadataPage{
		Page:     opts.Page,
		PageSize: opts.PageSize,
		Before:   opts.Before,
		Since:    opts.Since,
		Subject:  opts.Subject,
		Emails:   emails,
		Total:    total,
	}, nil
}

func metadataResponse(m imap.Metadata) EmailMetadata {
	return EmailMetadata{
		EmailID:     m.UID,
		MessageID:   m.MessageID,
		Subject:     m.Subject,
		Sender:      m.From,
		Recipients:  stringsOrEmpty(m.Recipients),
		Date:        m.Date,
		Attachments: stringsOrEmpty(m.Attachments),
	}
}

func (c *Classic) CountMessages(ctx context.Context, opts ListOptions) (int, error) {
	mailbox := opts.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	return c.imap.Count(ctx, mailbox, queryFromOptions(opts))
}

func queryFromOptions(opts ListOptions) imap.Query {
	return imap.Query{
		Before:   opts.Before,
		Since:    opts.Since,
		Subject:  opts.Subject,
		From:     opts.FromAddress,
		To:       opts.ToAddress,
		Seen:     opts.Seen,
		Flagged:  opts.Flagged,
		Answered: opts.Answered,
	}
}

func (c *Classic) FetchContent(ctx context.Context, emailIDs []string, mailbox string) (*ContentBatch, error) {
	if mailbox == "" {
		mailbox = "INBOX"
	}

	emails := make([]EmailBody, 0, len(emailIDs))
	failed := make([]string, 0)
	for _, id := range emailIDs {
		body, err := c.imap.FetchBody(ctx, id, mailbox)
		if err != nil {
			c.log.Error().Err(err).Str("email_id", id).Msg("failed to retrieve email")
			failed = append(failed, id)
			continue
		}
		emails = append(emails, EmailBody{
			EmailID:     body.UID,
			MessageID:   body.MessageID,
			Subject:     body.Subject,
			Sender:      body.From,
			Recipients:  stringsOrEmpty(body.Recipients),
			Date:        body.Date,
			Body:        body.Body,
			Attachments: stringsOrEmpty(body.Attachments),
		})
	}

	return &ContentBatch{
		Emails:         emails,
		RequestedCount: len(emailIDs),
		RetrievedCount: len(emails),
		FailedIDs:      failed,
	}, nil
}

func (c *Classic) Send(ctx context.Context, opts SendOptions) error {
	raw, err := c.smtp.Send(ctx, smtp.Message{
		Recipients:  opts.Recipients,
		Cc:          opts.Cc,
		Bcc:         opts.Bcc,
		Subject:     opts.Subject,
		Body:        opts.Body,
		HTML:        opts.HTML,
		Attachments: opts.Attachments,
		InReplyTo:   opts.InReplyTo,
		References:  opts.References,
	})
	if err != nil {
		return err
	}

	// Saving the Sent copy is best effort: delivery already happened.
	if c.account.SaveToSent {
		if !c.imap.AppendToSent(ctx, raw, c.account.SentFolder) {
			c.log.Error().Msg("failed to save email to Sent folder")
		}
	}
	return nil
}

func (c *Classic) DeleteMessages(ctx context.Context, emailIDs []string, mailbox string) (*DeleteResult, error) {
	if mailbox == "" {
		mailbox = "INBOX"
	}
	res, err := c.imap.Delete(ctx, emailIDs, mailbox)
	if err != nil {
		return nil, err
	}
	return &DeleteResult{DeletedIDs: res.Succeeded, FailedIDs: res.Failed}, nil
}

func (c *Classic) DownloadAttachment(ctx context.Context, emailID, attachmentName, savePath, mailbox string) (*AttachmentDownload, error) {
	if mailbox == "" {
		mailbox = "INBOX"
	}
	raw, err := c.imap.FetchRaw(ctx, emailID, mailbox)
	if err != nil {
		return nil, fmt.Errorf("fetching email %s: %w", emailID, err)
	}

	att, err := imap.FindAttachment(raw, attachmentName)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(savePath), 0o755); err != nil {
		return nil, fmt.Errorf("creating directory for %s: %w", savePath, err)
	}
	if err := os.WriteFile(savePath, att.Data, 0o644); err != nil {
		return nil, fmt.Errorf("saving attachment to %s: %w", savePath, err)
	}

	saved := savePath
	if abs, absErr := filepath.Abs(savePath); absErr == nil {
		saved = abs
	}
	c.log.Info().Str("attachment", attachmentName).Str("path", saved).Msg("attachment saved")

	return &AttachmentDownload{
		EmailID:        emailID,
		AttachmentName: attachmentName,
		MIMEType:       att.MIMEType,
		Size:           len(att.Data),
		SavedPath:      saved,
	}, nil
}

func (c *Classic) ListFolders(ctx context.Context) (*FolderList, error) {
	folders, err := c.imap.ListFolders(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]FolderInfo, 0, len(folders))
	for _, f := range folders {
		out = append(out, FolderInfo{
			Name:      f.Name,
			Delimiter: f.Delimiter,
			Flags:     stringsOrEmpty(f.Flags),
		})
	}
	return &FolderList{Folders: out, Total: len(out)}, nil
}

func (c *Classic) MoveMessages(ctx context.Context, emailIDs []string, destination, sourceMailbox string) (*MoveResult, error) {
	if sourceMailbox == "" {
		sourceMailbox = "INBOX"
	}
	res, err := c.imap.Move(ctx, emailIDs, destination, sourceMailbox)
	if err != nil {
		return nil, err
	}
	return moveResult(res, sourceMailbox, destination), nil
}

func (c *Classic) CopyMessages(ctx context.Context, emailIDs []string, destination, sourceMailbox string) (*MoveResult, error) {
	if sourceMailbox == "" {
		sourceMailbox = "INBOX"
	}
	res, err := c.imap.Copy(ctx, emailIDs, destination, sourceMailbox)
	if err != nil {
		return nil, err
	}
	return moveResult(res, sourceMailbox, destination), nil
}

func moveResult(res imap.BulkResult, source, destination string) *MoveResult {
	return &MoveResult{
		Success:           len(res.Failed) == 0,
		MovedIDs:          res.Succeeded,
		FailedIDs:         res.Failed,
		SourceMailbox:     source,
		DestinationFolder: destination,
	}
}

func (c *Classic) CreateFolder(ctx context.Context, name string) (*FolderOpResult, error) {
	ok, msg := c.imap.CreateFolder(ctx, name)
	return &FolderOpResult{Success: ok, FolderName: name, Message: msg}, nil
}

func (c *Classic) DeleteFolder(ctx context.Context, name string) (*FolderOpResult, error) {
	ok, msg := c.imap.DeleteFolder(ctx, name)
	return &FolderOpResult{Success: ok, FolderName: name, Message: msg}, nil
}

func (c *Classic) RenameFolder(ctx context.Context, oldName, newName string) (*FolderOpResult, error) {
	ok, msg := c.imap.RenameFolder(ctx, oldName, newName)
	return &FolderOpResult{Success: ok, FolderName: newName, Message: msg}, nil
}

func (c *Classic) ListLabels(ctx context.Context) (*LabelList, error) {
	labels, err := c.imap.ListLabels(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]LabelInfo, 0, len(labels))
	for _, l := range labels {
		out = append(out, LabelInfo{
			Name:      l.Name,
			FullPath:  l.FullPath,
			Delimiter: l.Delimiter,
			Flags:     stringsOrEmpty(l.Flags),
		})
	}
	return &LabelList{Labels: out, Total: len(out)}, nil
}

func (c *Classic) ApplyLabel(ctx context.Context, emailIDs []string, label, sourceMailbox string) (*MoveResult, error) {
	if sourceMailbox == "" {
		sourceMailbox = "INBOX"
	}
	folder := imap.LabelFolder(label)
	res, err := c.imap.Copy(ctx, emailIDs, folder, sourceMailbox)
	if err != nil {
		return nil, err
	}
	return moveResult(res, sourceMailbox, folder), nil
}

// RemoveLabel deletes the label-folder copy of each message. The provided
// identifiers belong to the source mailbox, so each copy is located by
// Message-ID; a message with no Message-ID or no copy in the label folder is
// a per-item failure, not an operation error.
func (c *Classic) RemoveLabel(ctx context.Context, emailIDs []string, label string) (*MoveResult, error) {
	folder := imap.LabelFolder(label)
	removed := make([]string, 0, len(emailIDs))
	failed := make([]string, 0)

	for _, id := range emailIDs {
		messageID, err := c.imap.MessageID(ctx, id, "INBOX")
		if err != nil || messageID == "" {
			c.log.Warn().Err(err).Str("email_id", id).Msg("could not get Message-ID")
			failed = append(failed, id)
			continue
		}

		labelUID, err := c.imap.SearchMessageID(ctx, messageID, folder)
		if err != nil || labelUID == "" {
			c.log.Warn().Err(err).Str("email_id", id).Str("label", label).Msg("email not found in label")
			failed = append(failed, id)
			continue
		}

		res, err := c.imap.Delete(ctx, []string{labelUID}, folder)
		if err != nil || len(res.Succeeded) == 0 {
			failed = append(failed, id)
			continue
		}
		removed = append(removed, id)
	}

	return &MoveResult{
		Success:           len(failed) == 0,
		MovedIDs:          removed,
		FailedIDs:         failed,
		SourceMailbox:     folder,
		DestinationFolder: "",
	}, nil
}

func (c *Classic) MessageLabels(ctx context.Context, emailID, sourceMailbox string) (*MessageLabelsResult, error) {
	if sourceMailbox == "" {
		sourceMailbox = "INBOX"
	}
	result := &MessageLabelsResult{EmailID: emailID, Labels: make([]string, 0)}

	messageID, err := c.imap.MessageID(ctx, emailID, sourceMailbox)
	if err != nil {
		return nil, err
	}
	if messageID == "" {
		return result, nil
	}

	labels, err := c.imap.ListLabels(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range labels {
		uid, err := c.imap.SearchMessageID(ctx, messageID, l.FullPath)
		if err != nil {
			c.log.Debug().Err(err).Str("label", l.Name).Msg("label search failed")
			continue
		}
		if uid != "" {
			result.Labels = append(result.Labels, l.Name)
		}
	}
	return result, nil
}

func (c *Classic) CreateLabel(ctx context.Context, name string) (*FolderOpResult, error) {
	folder := imap.LabelFolder(name)
	ok, msg := c.imap.CreateFolder(ctx, folder)
	if ok {
		// Success messages name the label, not the backing folder path.
		msg = strings.ReplaceAll(msg, folder, name)
	}
	return &FolderOpResult{Success: ok, FolderName: name, Message: msg}, nil
}

func (c *Classic) DeleteLabel(ctx context.Context, name string) (*FolderOpResult, error) {
	folder := imap.LabelFolder(name)
	ok, msg := c.imap.DeleteFolder(ctx, folder)
	if ok {
		msg = strings.ReplaceAll(msg, folder, name)
	}
	return &FolderOpResult{Success: ok, FolderName: name, Message: msg}, nil
}

func stringsOrEmpty(v []string) []string {
	if v == nil {
		return make([]string, 0)
	}
	return v
}
