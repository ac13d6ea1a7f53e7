// Package rpc serves the tool surface over line-delimited JSON: one request
// object per line on the input stream, one response object per line on the
// output stream. The transport carries no framing beyond newlines, which
// keeps it trivially scriptable and testable.
package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/avella/mailgate/internal/handler"
	"github.com/avella/mailgate/internal/model"
	"github.com/avella/mailgate/internal/store"
)

// maxLineBytes bounds a single request line.
const maxLineBytes = 4 << 20

// Request is one tool invocation.
type Request struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Tool   string          `json:"tool"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is the reply to one request. Exactly one of Result and Error is
// set.
type Response struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Result any             `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

// Error is a tool failure surfaced to the caller.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes partition failures by who should act on them.
const (
	CodeInvalidRequest   = "invalid_request"
	CodeUnknownTool      = "unknown_tool"
	CodeUnknownAccount   = "unknown_account"
	CodePermissionDenied = "permission_denied"
	CodeOperationFailed  = "operation_failed"
)

// Server dispatches tool requests against the account store.
type Server struct {
	cfg        *model.AppConfig
	store      store.Store
	dispatcher *handler.Dispatcher
	log        zerolog.Logger
}

// NewServer creates a server.
func NewServer(cfg *model.AppConfig, st store.Store, d *handler.Dispatcher, log zerolog.Logger) *Server {
	return &Server{cfg: cfg, store: st, dispatcher: d, log: log}
}

// Serve reads requests from r until EOF, writing one response per request to
// w. A malformed line yields an error response rather than ending the loop.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			if encErr := enc.Encode(Response{Error: &Error{Code: CodeInvalidRequest, Message: "malformed request: " + err.Error()}}); encErr != nil {
				return encErr
			}
			continue
		}

		resp := s.handle(ctx, req)
		if err := enc.Encode(resp); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return scanner.Err()
}

func (s *Server) handle(ctx context.Context, req Request) Response {
	started := time.Now()
	result, err := s.dispatch(ctx, req.Tool, req.Params)
	if err != nil {
		s.log.Error().Err(err).Str("tool", req.Tool).Dur("elapsed", time.Since(started)).Msg("tool failed")
		return Response{ID: req.ID, Error: toError(err)}
	}
	s.log.Debug().Str("tool", req.Tool).Dur("elapsed", time.Since(started)).Msg("tool completed")
	return Response{ID: req.ID, Result: result}
}

func toError(err error) *Error {
	var invalid *handler.InvalidArgumentError
	switch {
	case errors.Is(err, handler.ErrUnknownAccount):
		return &Error{Code: CodeUnknownAccount, Message: err.Error()}
	case errors.As(err, &invalid):
		return &Error{Code: CodeInvalidRequest, Message: err.Error()}
	case errors.Is(err, errPermissionDenied):
		return &Error{Code: CodePermissionDenied, Message: err.Error()}
	case errors.Is(err, errUnknownTool):
		return &Error{Code: CodeUnknownTool, Message: err.Error()}
	default:
		return &Error{Code: CodeOperationFailed, Message: err.Error()}
	}
}

var (
	errPermissionDenied = errors.New("permission denied")
	errUnknownTool      = errors.New("unknown tool")
)

func (s *Server) requireFolderManagement() error {
	if !s.cfg.EnableFolderManagement {
		return fmt.Errorf("%w: folder management is disabled; set enable_folder_management=true or MAILGATE_ENABLE_FOLDER_MANAGEMENT=true", errPermissionDenied)
	}
	return nil
}

func (s *Server) requireAttachmentDownload() error {
	if !s.cfg.EnableAttachmentDownload {
		return fmt.Errorf("%w: attachment download is disabled; set enable_attachment_download=true", errPermissionDenied)
	}
	return nil
}

// accountParams is the common shape of per-account requests; tool-specific
// fields live in the concrete param structs below.
type accountParams struct {
	AccountName string `json:"account_name"`
}

type listParams struct {
	AccountName string     `json:"account_name"`
	Page        int        `json:"page"`
	PageSize    int        `json:"page_size"`
	Before      *time.Time `json:"before"`
	Since       *time.Time `json:"since"`
	Subject     string     `json:"subject"`
	FromAddress string     `json:"from_address"`
	ToAddress   string     `json:"to_address"`
	Order       string     `json:"order"`
	Mailbox     string     `json:"mailbox"`
	Seen        *bool      `json:"seen"`
	Flagged     *bool      `json:"flagged"`
	Answered    *bool      `json:"answered"`
}

func (p listParams) options() handler.ListOptions {
	return handler.ListOptions{
		Page:        p.Page,
		PageSize:    p.PageSize,
		Before:      p.Before,
		Since:       p.Since,
		Subject:     p.Subject,
		FromAddress: p.FromAddress,
		ToAddress:   p.ToAddress,
		Seen:        p.Seen,
		Flagged:     p.Flagged,
		Answered:    p.Answered,
		Order:       p.Order,
		Mailbox:     p.Mailbox,
	}
}

type idsParams struct {
	AccountName string   `json:"account_name"`
	EmailIDs    []string `json:"email_ids"`
	Mailbox     string   `json:"mailbox"`
}

type sendParams struct {
	AccountName string   `json:"account_name"`
	Recipients  []string `json:"recipients"`
	Subject     string   `json:"subject"`
	Body        string   `json:"body"`
	Cc          []string `json:"cc"`
	Bcc         []string `json:"bcc"`
	HTML        bool     `json:"html"`
	Attachments []string `json:"attachments"`
	InReplyTo   string   `json:"in_reply_to"`
	References  string   `json:"references"`
}

type attachmentParams struct {
	AccountName    string `json:"account_name"`
	EmailID        string `json:"email_id"`
	AttachmentName string `json:"attachment_name"`
	SavePath       string `json:"save_path"`
	Mailbox        string `json:"mailbox"`
}

type moveParams struct {
	AccountName       string   `json:"account_name"`
	EmailIDs          []string `json:"email_ids"`
	DestinationFolder string   `json:"destination_folder"`
	SourceMailbox     string   `json:"source_mailbox"`
}

type folderParams struct {
	AccountName string `json:"account_name"`
	FolderName  string `json:"folder_name"`
}

type renameParams struct {
	AccountName string `json:"account_name"`
	OldName     string `json:"old_name"`
	NewName     string `json:"new_name"`
}

type labelBatchParams struct {
	AccountName   string   `json:"account_name"`
	EmailIDs      []string `json:"email_ids"`
	LabelName     string   `json:"label_name"`
	SourceMailbox string   `json:"source_mailbox"`
}

type labelParams struct {
	AccountName string `json:"account_name"`
	LabelName   string `json:"label_name"`
}

type emailLabelsParams struct {
	AccountName   string `json:"account_name"`
	EmailID       string `json:"email_id"`
	SourceMailbox string `json:"source_mailbox"`
}

func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, &handler.InvalidArgumentError{Field: "params", Reason: "missing"}
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, &handler.InvalidArgumentError{Field: "params", Reason: err.Error()}
	}
	return v, nil
}

func (s *Server) dispatch(ctx context.Context, tool string, params json.RawMessage) (any, error) {
	switch tool {
	case "list_available_accounts":
		return s.dispatcher.ListAccounts(ctx)

	case "add_email_account":
		account, err := decode[model.Account](params)
		if err != nil {
			return nil, err
		}
		if err := s.dispatcher.AddAccount(ctx, account); err != nil {
			return nil, err
		}
		return fmt.Sprintf("Successfully added email account '%s'", account.Name), nil

	case "remove_email_account":
		p, err := decode[accountParams](params)
		if err != nil {
			return nil, err
		}
		if err := s.dispatcher.RemoveAccount(ctx, p.AccountName); err != nil {
			return nil, err
		}
		return fmt.Sprintf("Successfully removed email account '%s'", p.AccountName), nil

	case "list_emails_metadata":
		p, err := decode[listParams](params)
		if err != nil {
			return nil, err
		}
		h, err := s.dispatcher.Dispatch(ctx, p.AccountName)
		if err != nil {
			return nil, err
		}
		return h.ListMetadata(ctx, p.options())

	case "get_email_count":
		p, err := decode[listParams](params)
		if err != nil {
			return nil, err
		}
		h, err := s.dispatcher.Dispatch(ctx, p.AccountName)
		if err != nil {
			return nil, err
		}
		return h.CountMessages(ctx, p.options())

	case "get_emails_content":
		p, err := decode[idsParams](params)
		if err != nil {
			return nil, err
		}
		h, err := s.dispatcher.Dispatch(ctx, p.AccountName)
		if err != nil {
			return nil, err
		}
		return h.FetchContent(ctx, p.EmailIDs, p.Mailbox)

	case "send_email":
		p, err := decode[sendParams](params)
		if err != nil {
			return nil, err
		}
		if len(p.Recipients) == 0 {
			return nil, &handler.InvalidArgumentError{Field: "recipients", Reason: "must not be empty"}
		}
		h, err := s.dispatcher.Dispatch(ctx, p.AccountName)
		if err != nil {
			return nil, err
		}
		err = h.Send(ctx, handler.SendOptions{
			Recipients:  p.Recipients,
			Subject:     p.Subject,
			Body:        p.Body,
			Cc:          p.Cc,
			Bcc:         p.Bcc,
			HTML:        p.HTML,
			Attachments: p.Attachments,
			InReplyTo:   p.InReplyTo,
			References:  p.References,
		})
		if err != nil {
			return nil, err
		}
		msg := fmt.Sprintf("Email sent successfully to %s", strings.Join(p.Recipients, ", "))
		if len(p.Attachments) > 0 {
			msg += fmt.Sprintf(" with %d attachment(s)", len(p.Attachments))
		}
		return msg, nil

	case "delete_emails":
		p, err := decode[idsParams](params)
		if err != nil {
			return nil, err
		}
		h, err := s.dispatcher.Dispatch(ctx, p.AccountName)
		if err != nil {
			return nil, err
		}
		res, err := h.DeleteMessages(ctx, p.EmailIDs, p.Mailbox)
		if err != nil {
			return nil, err
		}
		msg := fmt.Sprintf("Successfully deleted %d email(s)", len(res.DeletedIDs))
		if len(res.FailedIDs) > 0 {
			msg += fmt.Sprintf(", failed to delete %d email(s): %s", len(res.FailedIDs), strings.Join(res.FailedIDs, ", "))
		}
		return msg, nil

	case "download_attachment":
		if err := s.requireAttachmentDownload(); err != nil {
			return nil, err
		}
		p, err := decode[attachmentParams](params)
		if err != nil {
			return nil, err
		}
		h, err := s.dispatcher.Dispatch(ctx, p.AccountName)
		if err != nil {
			return nil, err
		}
		return h.DownloadAttachment(ctx, p.EmailID, p.AttachmentName, p.SavePath, p.Mailbox)

	case "list_folders":
		if err := s.requireFolderManagement(); err != nil {
			return nil, err
		}
		p, err := decode[accountParams](params)
		if err != nil {
			return nil, err
		}
		h, err := s.dispatcher.Dispatch(ctx, p.AccountName)
		if err != nil {
			return nil, err
		}
		return h.ListFolders(ctx)

	case "move_emails":
		if err := s.requireFolderManagement(); err != nil {
			return nil, err
		}
		p, err := decode[moveParams](params)
		if err != nil {
			return nil, err
		}
		h, err := s.dispatcher.Dispatch(ctx, p.AccountName)
		if err != nil {
			return nil, err
		}
		return h.MoveMessages(ctx, p.EmailIDs, p.DestinationFolder, p.SourceMailbox)

	case "copy_emails":
		if err := s.requireFolderManagement(); err != nil {
			return nil, err
		}
		p, err := decode[moveParams](params)
		if err != nil {
			return nil, err
		}
		h, err := s.dispatcher.Dispatch(ctx, p.AccountName)
		if err != nil {
			return nil, err
		}
		return h.CopyMessages(ctx, p.EmailIDs, p.DestinationFolder, p.SourceMailbox)

	case "create_folder":
		if err := s.requireFolderManagement(); err != nil {
			return nil, err
		}
		p, err := decode[folderParams](params)
		if err != nil {
			return nil, err
		}
		h, err := s.dispatcher.Dispatch(ctx, p.AccountName)
		if err != nil {
			return nil, err
		}
		return h.CreateFolder(ctx, p.FolderName)

	case "delete_folder":
		if err := s.requireFolderManagement(); err != nil {
			return nil, err
		}
		p, err := decode[folderParams](params)
		if err != nil {
			return nil, err
		}
		h, err := s.dispatcher.Dispatch(ctx, p.AccountName)
		if err != nil {
			return nil, err
		}
		return h.DeleteFolder(ctx, p.FolderName)

	case "rename_folder":
		if err := s.requireFolderManagement(); err != nil {
			return nil, err
		}
		p, err := decode[renameParams](params)
		if err != nil {
			return nil, err
		}
		h, err := s.dispatcher.Dispatch(ctx, p.AccountName)
		if err != nil {
			return nil, err
		}
		return h.RenameFolder(ctx, p.OldName, p.NewName)

	case "list_labels":
		if err := s.requireFolderManagement(); err != nil {
			return nil, err
		}
		p, err := decode[accountParams](params)
		if err != nil {
			return nil, err
		}
		h, err := s.dispatcher.Dispatch(ctx, p.AccountName)
		if err != nil {
			return nil, err
		}
		return h.ListLabels(ctx)

	case "apply_label":
		if err := s.requireFolderManagement(); err != nil {
			return nil, err
		}
		p, err := decode[labelBatchParams](params)
		if err != nil {
			return nil, err
		}
		h, err := s.dispatcher.Dispatch(ctx, p.AccountName)
		if err != nil {
			return nil, err
		}
		return h.ApplyLabel(ctx, p.EmailIDs, p.LabelName, p.SourceMailbox)

	case "remove_label":
		if err := s.requireFolderManagement(); err != nil {
			return nil, err
		}
		p, err := decode[labelBatchParams](params)
		if err != nil {
			return nil, err
		}
		h, err := s.dispatcher.Dispatch(ctx, p.AccountName)
		if err != nil {
			return nil, err
		}
		return h.RemoveLabel(ctx, p.EmailIDs, p.LabelName)

	case "get_email_labels":
		if err := s.requireFolderManagement(); err != nil {
			return nil, err
		}
		p, err := decode[emailLabelsParams](params)
		if err != nil {
			return nil, err
		}
		h, err := s.dispatcher.Dispatch(ctx, p.AccountName)
		if err != nil {
			return nil, err
		}
		return h.MessageLabels(ctx, p.EmailID, p.SourceMailbox)

	case "create_label":
		if err := s.requireFolderManagement(); err != nil {
			return nil, err
		}
		p, err := decode[labelParams](params)
		if err != nil {
			return nil, err
		}
		h, err := s.dispatcher.Dispatch(ctx, p.AccountName)
		if err != nil {
			return nil, err
		}
		return h.CreateLabel(ctx, p.LabelName)

	case "delete_label":
		if err := s.requireFolderManagement(); err != nil {
			return nil, err
		}
		p, err := decode[labelParams](params)
		if err != nil {
			return nil, err
		}
		h, err := s.dispatcher.Dispatch(ctx, p.AccountName)
		if err != nil {
			return nil, err
		}
		return h.DeleteLabel(ctx, p.LabelName)

	default:
		return nil, fmt.Errorf("%w: %q", errUnknownTool, tool)
	}
}
