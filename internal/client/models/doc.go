// Package models defines the client-side data model: library items,
// highlights, labels, and the sync-status tag that tracks each record's
// reconciliation state with the remote service.
package models
