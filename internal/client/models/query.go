package models

// ListOptions narrows and orders a local library listing.
type ListOptions struct {
	Filter          Filter
	LabelIDs        []string // items must carry every one of these labels
	NegatedLabelIDs []string // items must carry none of these labels
	Sort            Sort
	Limit           int // 0 means no limit
	Offset          int
}
