package handler

import "time"

// EmailMetadata is one message's listing entry: identity and envelope
// headers, never the body.
type EmailMetadata struct {
	EmailID     string    `json:"email_id"`
	MessageID   string    `json:"message_id,omitempty"`
	Subject     string    `json:"subject"`
	Sender      string    `json:"sender"`
	Recipients  []string  `json:"recipients"`
	Date        time.Time `json:"date"`
	Attachments []string  `json:"attachments"`
}

// MetadataPage is one page of a metadata listing, echoing the paging and
// filter parameters alongside the total match count.
type MetadataPage struct {
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	Before   *time.Time      `json:"before"`
	Since    *time.Time      `json:"since"`
	Subject  string          `json:"subject,omitempty"`
	Emails   []EmailMetadata `json:"emails"`
	Total    int             `json:"total"`
}

// EmailBody is one message's full content.
type EmailBody struct {
	EmailID     string    `json:"email_id"`
	MessageID   string    `json:"message_id,omitempty"`
	Subject     string    `json:"subject"`
	Sender      string    `json:"sender"`
	Recipients  []string  `json:"recipients"`
	Date        time.Time `json:"date"`
	Body        string    `json:"body"`
	Attachments []string  `json:"attachments"`
}

// ContentBatch is the result of a batch body fetch. RetrievedCount plus
// len(FailedIDs) equals RequestedCount.
type ContentBatch struct {
	Emails         []EmailBody `json:"emails"`
	RequestedCount int         `json:"requested_count"`
	RetrievedCount int         `json:"retrieved_count"`
	FailedIDs      []string    `json:"failed_ids"`
}

// DeleteResult partitions a delete batch into the identifiers that were
// deleted and those that were not.
type DeleteResult struct {
	DeletedIDs []string `json:"deleted_ids"`
	FailedIDs  []string `json:"failed_ids"`
}

// AttachmentDownload describes a saved attachment.
type AttachmentDownload struct {
	EmailID        string `json:"email_id"`
	AttachmentName string `json:"attachment_name"`
	MIMEType       string `json:"mime_type"`
	Size           int    `json:"size"`
	SavedPath      string `json:"saved_path"`
}

// FolderInfo is one mailbox in a folder listing.
type FolderInfo struct {
	Name      string   `json:"name"`
	Delimiter string   `json:"delimiter"`
	Flags     []string `json:"flags"`
}

// FolderList is the result of a folder listing.
type FolderList struct {
	Folders []FolderInfo `json:"folders"`
	Total   int          `json:"total"`
}

// FolderOpResult reports a folder create, delete or rename.
type FolderOpResult struct {
	Success    bool   `json:"success"`
	FolderName string `json:"folder_name"`
	Message    string `json:"message"`
}

// MoveResult reports a move, copy or label batch: Success means every
// identifier succeeded.
type MoveResult struct {
	Success           bool     `json:"success"`
	MovedIDs          []string `json:"moved_ids"`
	FailedIDs         []string `json:"failed_ids"`
	SourceMailbox     string   `json:"source_mailbox"`
	DestinationFolder string   `json:"destination_folder"`
}

// LabelInfo is one label: the display name without the folder prefix plus
// the full backing path.
type LabelInfo struct {
	Name      string   `json:"name"`
	FullPath  string   `json:"full_path"`
	Delimiter string   `json:"delimiter"`
	Flags     []string `json:"flags"`
}

// LabelList is the result of a label listing.
type LabelList struct {
	Labels []LabelInfo `json:"labels"`
	Total  int         `json:"total"`
}

// MessageLabelsResult lists the labels applied to one message.
type MessageLabelsResult struct {
	EmailID string   `json:"email_id"`
	Labels  []string `json:"labels"`
}
