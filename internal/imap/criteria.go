package imap

import (
	"strings"
	"time"
)

// Query is the set of optional, conjunctive constraints for SEARCH and SORT.
// A zero Query matches everything.
type Query struct {
	Before *time.Time
	Since  *time.Time

	Subject string
	From    string
	To      string

	Seen     *bool
	Flagged  *bool
	Answered *bool
}

// Criteria renders the query as alternating IMAP search keyword/value
// tokens, defaulting to ALL when no constraint is set. Date values use the
// DD-MON-YYYY form with an upper-cased month abbreviation.
func (q Query) Criteria() []string {
	var c []string

	if q.Before != nil {
		c = append(c, "BEFORE", searchDate(*q.Before))
	}
	if q.Since != nil {
		c = append(c, "SINCE", searchDate(*q.Since))
	}

	if q.Seen != nil {
		c = append(c, flagKeyword(*q.Seen, "SEEN", "UNSEEN"))
	}
	if q.Flagged != nil {
		c = append(c, flagKeyword(*q.Flagged, "FLAGGED", "UNFLAGGED"))
	}
	if q.Answered != nil {
		c = append(c, flagKeyword(*q.Answered, "ANSWERED", "UNANSWERED"))
	}

	if q.Subject != "" {
		c = append(c, "SUBJECT", q.Subject)
	}
	if q.From != "" {
		c = append(c, "FROM", q.From)
	}
	if q.To != "" {
		c = append(c, "TO", q.To)
	}

	if len(c) == 0 {
		c = append(c, "ALL")
	}
	return c
}

func searchDate(t time.Time) string {
	return strings.ToUpper(t.Format("02-Jan-2006"))
}

func flagKeyword(set bool, yes, no string) string {
	if set {
		return yes
	}
	return no
}

// textualKeywords name the search keys whose operand is free text and must
// be sent as a quoted string on the wire.
var textualKeywords = map[string]bool{
	"SUBJECT": true,
	"FROM":    true,
	"TO":      true,
}

// criteriaString joins criteria tokens into command form, quoting the
// operands of textual keywords so embedded spaces survive.
func criteriaString(tokens []string) string {
	var b strings.Builder
	quoteNext := false
	for i, tok := range tokens {
		if i > 0 {
			b.WriteByte(' ')
		}
		if quoteNext {
			b.WriteString(quoteString(tok))
		} else {
			b.WriteString(tok)
		}
		quoteNext = textualKeywords[tok]
	}
	return b.String()
}
