// Package handler exposes the account-facing operation surface. A Handler
// is resolved per request by account name; the classic IMAP/SMTP variant is
// the only implementation today, with room for provider-specific ones.
package handler

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnknownAccount is returned when a request names an account that is not
// configured.
var ErrUnknownAccount = errors.New("unknown account")

// InvalidArgumentError marks a request that cannot be executed as given.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ListOptions are the parameters of a metadata listing.
type ListOptions struct {
	Page     int
	PageSize int

	Before *time.Time
	Since  *time.Time

	Subject     string
	FromAddress string
	ToAddress   string

	Seen     *bool
	Flagged  *bool
	Answered *bool

	// Order is "desc" (default) or "asc".
	Order   string
	Mailbox string
}

// SendOptions are the parameters of an outgoing message.
type SendOptions struct {
	Recipients  []string
	Subject     string
	Body        string
	Cc          []string
	Bcc         []string
	HTML        bool
	Attachments []string
	InReplyTo   string
	References  string
}

// Handler is the full per-account operation set.
type Handler interface {
	// ListMetadata returns one page of message metadata without bodies.
	ListMetadata(ctx context.Context, opts ListOptions) (*MetadataPage, error)

	// CountMessages returns the number of messages matching the filter
	// fields of opts; paging and ordering are ignored.
	CountMessages(ctx context.Context, opts ListOptions) (int, error)

	// FetchContent retrieves full bodies for a batch of identifiers,
	// recording per-item failures.
	FetchContent(ctx context.Context, emailIDs []string, mailbox string) (*ContentBatch, error)

	// Send delivers a message and, when configured, saves a copy to the
	// Sent folder.
	Send(ctx context.Context, opts SendOptions) error

	// DeleteMessages deletes messages by identifier.
	DeleteMessages(ctx context.Context, emailIDs []string, mailbox string) (*DeleteResult, error)

	// DownloadAttachment saves a named attachment to a local path.
	DownloadAttachment(ctx context.Context, emailID, attachmentName, savePath, mailbox string) (*AttachmentDownload, error)

	// ListFolders lists every folder of the account.
	ListFolders(ctx context.Context) (*FolderList, error)

	// MoveMessages moves messages to a destination folder.
	MoveMessages(ctx context.Context, emailIDs []string, destination, sourceMailbox string) (*MoveResult, error)

	// CopyMessages copies messages to a destination folder.
	CopyMessages(ctx context.Context, emailIDs []string, destination, sourceMailbox string) (*MoveResult, error)

	// CreateFolder, DeleteFolder and RenameFolder manage folders.
	CreateFolder(ctx context.Context, name string) (*FolderOpResult, error)
	DeleteFolder(ctx context.Context, name string) (*FolderOpResult, error)
	RenameFolder(ctx context.Context, oldName, newName string) (*FolderOpResult, error)

	// ListLabels lists the account's labels.
	ListLabels(ctx context.Context) (*LabelList, error)

	// ApplyLabel copies messages into a label folder.
	ApplyLabel(ctx context.Context, emailIDs []string, label, sourceMailbox string) (*MoveResult, error)

	// RemoveLabel deletes the label-folder copies of messages, located
	// by Message-ID.
	RemoveLabel(ctx context.Context, emailIDs []string, label string) (*MoveResult, error)

	// MessageLabels returns the labels applied to one message.
	MessageLabels(ctx context.Context, emailID, sourceMailbox string) (*MessageLabelsResult, error)

	// CreateLabel and DeleteLabel manage labels as prefixed folders.
	CreateLabel(ctx context.Context, name string) (*FolderOpResult, error)
	DeleteLabel(ctx context.Context, name string) (*FolderOpResult, error)
}
