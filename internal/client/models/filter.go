package models

import "fmt"

// Filter selects a slice of the library for listing. Every filter that
// shows "normal" views hides records marked needs-deletion, so a locally
// deleted item disappears immediately even though the remote delete has
// not been confirmed yet.
type Filter string

const (
	FilterInbox         Filter = "inbox"
	FilterReadLater     Filter = "readlater"
	FilterNewsletters   Filter = "newsletters"
	FilterAll           Filter = "all"
	FilterArchived      Filter = "archived"
	FilterHasHighlights Filter = "highlights"
	FilterFiles         Filter = "files"
)

// ParseFilter maps a user-supplied name to a Filter.
func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case FilterInbox, FilterReadLater, FilterNewsletters, FilterAll,
		FilterArchived, FilterHasHighlights, FilterFiles:
		return Filter(s), nil
	}
	return "", fmt.Errorf("unknown filter %q", s)
}

// QueryString is the equivalent remote search expression, used when the
// same filter has to be pushed down to a server-side list query.
func (f Filter) QueryString() string {
	switch f {
	case FilterReadLater:
		return "in:inbox -label:Newsletter"
	case FilterNewsletters:
		return "in:inbox label:Newsletter"
	case FilterAll:
		return "in:all"
	case FilterArchived:
		return "in:archive"
	case FilterHasHighlights:
		return "has:highlights"
	case FilterFiles:
		return "type:file"
	default:
		return "in:inbox"
	}
}

// Predicate returns the SQL condition (against the items table, aliased
// i) implementing the filter. Conditions contain only constants, no
// placeholders.
func (f Filter) Predicate() string {
	undeleted := fmt.Sprintf("i.sync_status != %d", StatusNeedsDeletion)
	notArchived := "i.is_archived = 0"

	switch f {
	case FilterReadLater:
		return undeleted + " AND " + notArchived +
			` AND NOT EXISTS (SELECT 1 FROM item_labels il JOIN labels l ON l.id = il.label_id
			   WHERE il.item_id = i.id AND l.name = 'Newsletter')`
	case FilterNewsletters:
		return notArchived +
			` AND EXISTS (SELECT 1 FROM item_labels il JOIN labels l ON l.id = il.label_id
			   WHERE il.item_id = i.id AND l.name = 'Newsletter')`
	case FilterAll:
		return undeleted
	case FilterArchived:
		return undeleted + " AND i.is_archived = 1"
	case FilterHasHighlights:
		return undeleted + " AND EXISTS (SELECT 1 FROM highlights h WHERE h.item_id = i.id)"
	case FilterFiles:
		return undeleted + " AND i.content_reader = 'PDF'"
	default: // inbox
		return undeleted + " AND " + notArchived
	}
}

// Sort orders listing results.
type Sort string

const (
	SortNewest Sort = "newest"
	SortOldest Sort = "oldest"
)

// OrderBy returns the SQL order clause for the sort.
func (s Sort) OrderBy() string {
	if s == SortOldest {
		return "i.saved_at ASC"
	}
	return "i.saved_at DESC"
}
