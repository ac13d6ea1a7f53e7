package model

import (
	"fmt"
	"time"
)

// maskedPassword replaces stored secrets whenever an account leaves the
// process boundary.
const maskedPassword = "********"

// ServerSettings describes one mail endpoint (IMAP or SMTP) of an account.
type ServerSettings struct {
	Host     string `json:"host" db:"host"`
	Port     int    `json:"port" db:"port"`
	Username string `json:"user_name" db:"user_name"`
	Password string `json:"password" db:"password"`

	// UseSSL selects implicit TLS; StartTLS upgrades after connecting.
	UseSSL   bool `json:"use_ssl" db:"use_ssl"`
	StartTLS bool `json:"start_tls" db:"start_tls"`
}

// Masked returns a copy with the password replaced by a placeholder.
func (s ServerSettings) Masked() ServerSettings {
	if s.Password != "" {
		s.Password = maskedPassword
	}
	return s
}

// Account is one configured email account: a display identity plus its
// incoming (IMAP) and outgoing (SMTP) servers.
type Account struct {
	Name         string `json:"account_name"`
	FullName     string `json:"full_name"`
	EmailAddress string `json:"email_address"`

	Incoming ServerSettings `json:"incoming"`
	Outgoing ServerSettings `json:"outgoing"`

	// SaveToSent appends a copy of outgoing mail to the Sent folder.
	SaveToSent bool `json:"save_to_sent"`
	// SentFolder overrides Sent folder auto-detection when non-empty.
	SentFolder string `json:"sent_folder_name,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Sender returns the RFC 5322 From value for outgoing mail.
func (a Account) Sender() string {
	if a.FullName == "" {
		return a.EmailAddress
	}
	return fmt.Sprintf("%s <%s>", a.FullName, a.EmailAddress)
}

// Masked returns a copy safe to expose to callers: credentials are
// replaced, structure is preserved.
func (a Account) Masked() Account {
	a.Incoming = a.Incoming.Masked()
	a.Outgoing = a.Outgoing.Masked()
	return a
}
