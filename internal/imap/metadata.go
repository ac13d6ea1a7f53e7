package imap

import (
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Order selects the date ordering of a metadata listing.
type Order string

const (
	OrderDesc Order = "desc"
	OrderAsc  Order = "asc"
)

// unmatchedOrder sorts identifiers the server returned but the page did not
// request behind everything else.
const unmatchedOrder = 1 << 30

// execOK runs one command and folds a NO/BAD completion into a StatusError.
func execOK(c Conn, command string) error {
	resp, err := c.Execute(command)
	if err != nil {
		return err
	}
	if !resp.OK() {
		verb, _, _ := strings.Cut(command, " ")
		return &StatusError{Command: verb, Status: resp.Status, Info: resp.Info}
	}
	return nil
}

// searchUIDs runs UID SEARCH with the query's criteria and returns the
// matching identifiers in server order.
func searchUIDs(c Conn, q Query) ([]string, error) {
	resp, err := c.Execute("UID SEARCH " + criteriaString(q.Criteria()))
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &StatusError{Command: "UID SEARCH", Status: resp.Status, Info: resp.Info}
	}

	line := resp.firstLineWithPrefix("SEARCH")
	if line == "" {
		return nil, nil
	}
	return strings.Fields(line)[1:], nil
}

// Count returns the number of messages matching the query in the selected
// mailbox. It is computed by a plain search, independent of any listing.
func Count(c Conn, q Query) (int, error) {
	uids, err := searchUIDs(c, q)
	if err != nil {
		return 0, err
	}
	return len(uids), nil
}

// ListMetadata returns one page of message metadata for the selected
// mailbox, ordered by date. When the server advertises SORT the ordering is
// done server-side; otherwise all matching dates are fetched and sorted
// client-side before the page's full headers are retrieved.
//
// Both paths produce the same ordering and filtering semantics; the SORT
// path merely avoids transferring dates for messages outside the page.
func ListMetadata(c Conn, log zerolog.Logger, q Query, page, pageSize int, order Order) ([]Metadata, error) {
	if page < 1 || pageSize < 1 {
		return nil, nil
	}
	start := (page - 1) * pageSize
	end := start + pageSize

	if c.HasCapability("SORT") {
		if items, ok := sortPath(c, log, q, start, end, order); ok {
			return items, nil
		}
		// Fall through to the fallback path; the failure was already
		// logged as a warning.
	}

	return fallbackPath(c, log, q, start, end, order)
}

// sortPath lists a page via UID SORT (RFC 5256). It reports ok=false on any
// failure or empty sort response so the caller can fall back.
func sortPath(c Conn, log zerolog.Logger, q Query, start, end int, order Order) ([]Metadata, bool) {
	sortOrder := "(REVERSE DATE)"
	if order == OrderAsc {
		sortOrder = "(DATE)"
	}

	resp, err := c.Execute("UID SORT " + sortOrder + " UTF-8 " + criteriaString(q.Criteria()))
	if err != nil || !resp.OK() {
		log.Warn().Err(err).Msg("SORT command failed, falling back to batch fetch")
		return nil, false
	}

	line := resp.firstLineWithPrefix("SORT")
	sorted := []string{}
	if line != "" {
		sorted = strings.Fields(line)[1:]
	}
	if len(sorted) == 0 {
		log.Warn().Msg("no messages returned from SORT, falling back to batch fetch")
		return nil, false
	}

	pageUIDs := slicePage(sorted, start, end)
	if len(pageUIDs) == 0 {
		return nil, true
	}

	items := batchFetchHeaders(c, log, pageUIDs)
	return reorderByUID(items, pageUIDs), true
}

// fallbackPath lists a page without SORT: search everything, fetch only the
// Date headers, sort client-side, then fetch full headers for the page. If
// the date fetch itself yields nothing for a non-empty match set, which is
// a fetch protocol failure rather than an empty mailbox, it degrades further
// to fetching full headers for every match.
func fallbackPath(c Conn, log zerolog.Logger, q Query, start, end int, order Order) ([]Metadata, error) {
	uids, err := searchUIDs(c, q)
	if err != nil {
		return nil, err
	}
	if len(uids) == 0 {
		return nil, nil
	}

	dated := batchFetchDates(c, log, uids)
	if len(dated) == 0 {
		log.Warn().Msg("batch date fetch returned no results, using full header fetch")
		all := batchFetchHeaders(c, log, uids)
		sortByDate(all, order)
		return slicePage(all, start, end), nil
	}

	sort.SliceStable(dated, func(i, j int) bool {
		if order == OrderAsc {
			return dated[i].date.Before(dated[j].date)
		}
		return dated[i].date.After(dated[j].date)
	})

	pageUIDs := make([]string, 0, end-start)
	for _, d := range slicePage(dated, start, end) {
		pageUIDs = append(pageUIDs, d.uid)
	}
	if len(pageUIDs) == 0 {
		return nil, nil
	}

	items := batchFetchHeaders(c, log, pageUIDs)
	return reorderByUID(items, pageUIDs), nil
}

type uidDate struct {
	uid  string
	date time.Time
}

// batchFetchDates fetches only the Date header for the given identifiers.
// Failures are logged and yield an empty result, signalling the caller to
// use a more robust path.
func batchFetchDates(c Conn, log zerolog.Logger, uids []string) []uidDate {
	if len(uids) == 0 {
		return nil
	}

	resp, err := c.Execute("UID FETCH " + strings.Join(uids, ",") + " BODY.PEEK[HEADER.FIELDS (DATE)]")
	if err != nil || !resp.OK() {
		log.Error().Err(err).Msg("error in batch fetch dates")
		return nil
	}

	pairs := CollectUIDPairs(resp.Fragments)
	out := make([]uidDate, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, uidDate{
			uid:  p.UID,
			date: ParseHeaderDate(string(p.Payload)),
		})
	}
	return out
}

// batchFetchHeaders fetches full headers for the given identifiers. A
// message whose header block cannot be parsed is dropped and logged; it
// never fails the batch.
func batchFetchHeaders(c Conn, log zerolog.Logger, uids []string) []Metadata {
	if len(uids) == 0 {
		return nil
	}

	resp, err := c.Execute("UID FETCH " + strings.Join(uids, ",") + " BODY.PEEK[HEADER]")
	if err != nil || !resp.OK() {
		log.Error().Err(err).Msg("error in batch fetch headers")
		return nil
	}

	pairs := CollectUIDPairs(resp.Fragments)
	out := make([]Metadata, 0, len(pairs))
	for _, p := range pairs {
		md, err := parseHeaderMetadata(p.UID, p.Payload)
		if err != nil {
			log.Error().Err(err).Str("uid", p.UID).Msg("error parsing header metadata")
			continue
		}
		out = append(out, md)
	}
	return out
}

// reorderByUID sorts items to match the requested identifier order. Batched
// fetch responses may arrive in any order; identifiers the request did not
// contain sort last.
func reorderByUID(items []Metadata, uids []string) []Metadata {
	pos := make(map[string]int, len(uids))
	for i, uid := range uids {
		pos[uid] = i
	}
	at := func(uid string) int {
		if i, ok := pos[uid]; ok {
			return i
		}
		return unmatchedOrder
	}
	sort.SliceStable(items, func(i, j int) bool {
		return at(items[i].UID) < at(items[j].UID)
	})
	return items
}

func sortByDate(items []Metadata, order Order) {
	sort.SliceStable(items, func(i, j int) bool {
		if order == OrderAsc {
			return items[i].Date.Before(items[j].Date)
		}
		return items[i].Date.After(items[j].Date)
	})
}

// slicePage clamps [start, end) to the slice bounds, returning nil for an
// out-of-range page.
func slicePage[T any](items []T, start, end int) []T {
	if start >= len(items) || start < 0 {
		return nil
	}
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
