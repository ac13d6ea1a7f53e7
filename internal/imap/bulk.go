package imap

import (
	"github.com/rs/zerolog"
)

// BulkResult partitions the identifiers of a batch operation into the ones
// that succeeded and the ones that failed, each preserving input order.
// Every input identifier appears in exactly one of the two lists.
type BulkResult struct {
	Succeeded []string
	Failed    []string
}

// forEachUID applies fn to every identifier in isolation: one item's failure
// is recorded and never stops the remaining items.
func forEachUID(ids []string, log zerolog.Logger, op string, fn func(uid string) error) BulkResult {
	res := BulkResult{
		Succeeded: []string{},
		Failed:    []string{},
	}
	for _, uid := range ids {
		if err := fn(uid); err != nil {
			log.Error().Err(err).Str("op", op).Str("uid", uid).Msg("bulk item failed")
			res.Failed = append(res.Failed, uid)
			continue
		}
		res.Succeeded = append(res.Succeeded, uid)
	}
	return res
}

// DeleteMessages flags each message \Deleted, then expunges once for the
// whole batch. The expunge is skipped when no item succeeded.
func DeleteMessages(c Conn, log zerolog.Logger, ids []string) (BulkResult, error) {
	res := forEachUID(ids, log, "delete", func(uid string) error {
		return execOK(c, "UID STORE "+uid+` +FLAGS (\Deleted)`)
	})

	if len(res.Succeeded) > 0 {
		if err := execOK(c, "EXPUNGE"); err != nil {
			return res, err
		}
	}
	return res, nil
}

// CopyMessages copies each message to the destination folder, judging each
// item by the server's per-command status.
func CopyMessages(c Conn, log zerolog.Logger, ids []string, dest string) BulkResult {
	return forEachUID(ids, log, "copy", func(uid string) error {
		return execOK(c, "UID COPY "+uid+" "+QuoteMailbox(dest))
	})
}

// MoveMessages moves each message to the destination folder. A native MOVE
// (RFC 6851) is attempted first; any non-success falls back to COPY plus
// \Deleted. One expunge finalizes the batch when at least one item moved;
// the fallback path requires it and it is harmless after a native MOVE.
func MoveMessages(c Conn, log zerolog.Logger, ids []string, dest string) (BulkResult, error) {
	res := forEachUID(ids, log, "move", func(uid string) error {
		moveErr := execOK(c, "UID MOVE "+uid+" "+QuoteMailbox(dest))
		if moveErr == nil {
			return nil
		}
		log.Debug().Err(moveErr).Str("uid", uid).Msg("MOVE failed, falling back to COPY+DELETE")

		if err := execOK(c, "UID COPY "+uid+" "+QuoteMailbox(dest)); err != nil {
			return err
		}
		// The copy is authoritative; a NO on the flag store would leave
		// a duplicate behind but the move itself took effect.
		_, err := c.Execute("UID STORE " + uid + ` +FLAGS (\Deleted)`)
		return err
	})

	if len(res.Succeeded) > 0 {
		if err := execOK(c, "EXPUNGE"); err != nil {
			return res, err
		}
	}
	return res, nil
}
