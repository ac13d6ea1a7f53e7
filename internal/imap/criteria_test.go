package imap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func boolPtr(b bool) *bool { return &b }

func TestCriteriaDefault(t *testing.T) {
	assert.Equal(t, []string{"ALL"}, Query{}.Criteria())
}

func TestCriteriaDates(t *testing.T) {
	before := time.Date(2024, 10, 5, 12, 0, 0, 0, time.UTC)
	since := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

	got := Query{Before: &before, Since: &since}.Criteria()
	assert.Equal(t, []string{"BEFORE", "05-OCT-2024", "SINCE", "01-SEP-2024"}, got)
}

func TestCriteriaFlagsAndText(t *testing.T) {
	q := Query{
		Subject:  "quarterly report",
		From:     "alice@example.com",
		Seen:     boolPtr(false),
		Answered: boolPtr(true),
	}
	got := q.Criteria()
	assert.Equal(t, []string{"UNSEEN", "ANSWERED", "SUBJECT", "quarterly report", "FROM", "alice@example.com"}, got)
}

func TestCriteriaFlagPolarity(t *testing.T) {
	assert.Contains(t, Query{Seen: boolPtr(true)}.Criteria(), "SEEN")
	assert.Contains(t, Query{Seen: boolPtr(false)}.Criteria(), "UNSEEN")
	assert.Contains(t, Query{Flagged: boolPtr(true)}.Criteria(), "FLAGGED")
	assert.Contains(t, Query{Flagged: boolPtr(false)}.Criteria(), "UNFLAGGED")
	assert.Contains(t, Query{Answered: boolPtr(false)}.Criteria(), "UNANSWERED")
}

func TestCriteriaStringQuotesTextOperands(t *testing.T) {
	q := Query{Subject: "hello world", From: "a@b.com"}
	got := criteriaString(q.Criteria())
	assert.Equal(t, `SUBJECT "hello world" FROM "a@b.com"`, got)
}

func TestCriteriaStringPlainKeywords(t *testing.T) {
	got := criteriaString([]string{"UNSEEN", "BEFORE", "05-OCT-2024"})
	assert.Equal(t, "UNSEEN BEFORE 05-OCT-2024", got)
}

func TestCriteriaStringEscapesQuotes(t *testing.T) {
	got := criteriaString([]string{"SUBJECT", `say "hi"`})
	assert.Equal(t, `SUBJECT "say \"hi\""`, got)
}
