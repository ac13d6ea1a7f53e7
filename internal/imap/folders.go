package imap

import (
	"fmt"

	"github.com/rs/zerolog"
)

// ListFolders returns every mailbox the server advertises.
func ListFolders(c Conn, log zerolog.Logger) ([]Folder, error) {
	resp, err := c.Execute(`LIST "" "*"`)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &StatusError{Command: "LIST", Status: resp.Status, Info: resp.Info}
	}
	return parseFolders(resp, log), nil
}

// CreateFolder creates a mailbox, returning a success flag and a
// human-readable outcome message synthesized from the command status.
func CreateFolder(c Conn, log zerolog.Logger, name string) (bool, string) {
	resp, err := c.Execute("CREATE " + QuoteMailbox(name))
	if err != nil {
		log.Error().Err(err).Str("folder", name).Msg("error creating folder")
		return false, fmt.Sprintf("Error creating folder: %v", err)
	}
	if !resp.OK() {
		log.Error().Str("folder", name).Str("status", resp.Status).Msg("failed to create folder")
		return false, fmt.Sprintf("Failed to create folder: %s %s", resp.Status, resp.Info)
	}
	log.Info().Str("folder", name).Msg("created folder")
	return true, fmt.Sprintf("Folder '%s' created successfully", name)
}

// DeleteFolder deletes a mailbox.
func DeleteFolder(c Conn, log zerolog.Logger, name string) (bool, string) {
	resp, err := c.Execute("DELETE " + QuoteMailbox(name))
	if err != nil {
		log.Error().Err(err).Str("folder", name).Msg("error deleting folder")
		return false, fmt.Sprintf("Error deleting folder: %v", err)
	}
	if !resp.OK() {
		log.Error().Str("folder", name).Str("status", resp.Status).Msg("failed to delete folder")
		return false, fmt.Sprintf("Failed to delete folder: %s %s", resp.Status, resp.Info)
	}
	log.Info().Str("folder", name).Msg("deleted folder")
	return true, fmt.Sprintf("Folder '%s' deleted successfully", name)
}

// RenameFolder renames a mailbox.
func RenameFolder(c Conn, log zerolog.Logger, oldName, newName string) (bool, string) {
	resp, err := c.Execute("RENAME " + QuoteMailbox(oldName) + " " + QuoteMailbox(newName))
	if err != nil {
		log.Error().Err(err).Str("folder", oldName).Msg("error renaming folder")
		return false, fmt.Sprintf("Error renaming folder: %v", err)
	}
	if !resp.OK() {
		log.Error().Str("folder", oldName).Str("status", resp.Status).Msg("failed to rename folder")
		return false, fmt.Sprintf("Failed to rename folder: %s %s", resp.Status, resp.Info)
	}
	log.Info().Str("from", oldName).Str("to", newName).Msg("renamed folder")
	return true, fmt.Sprintf("Folder renamed from '%s' to '%s'", oldName, newName)
}
