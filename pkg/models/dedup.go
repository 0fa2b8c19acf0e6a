package models

import "time"

// DuplicateMatchType identifies which signal dominated a duplicate match
type DuplicateMatchType string

const (
	DuplicateMatchTypeExact    DuplicateMatchType = "exact"
	DuplicateMatchTypeContent  DuplicateMatchType = "content"
	DuplicateMatchTypeFilename DuplicateMatchType = "filename"
	DuplicateMatchTypeSize     DuplicateMatchType = "size"
)

// DuplicateMatch is a single scored pair between a candidate document and an
// existing document
type DuplicateMatch struct {
	DocumentID string             `json:"document_id"`
	Similarity int                `json:"similarity"`
	MatchType  DuplicateMatchType `json:"match_type"`
	Confidence int                `json:"confidence"`
}

// GroupAction is an operator decision on a duplicate group
type GroupAction string

const (
	GroupActionMerge  GroupAction = "merge"
	GroupActionDelete GroupAction = "delete"
	GroupActionIgnore GroupAction = "ignore"
)

// IsValid reports whether the action is one of the known values
func (a GroupAction) IsValid() bool {
	return a == GroupActionMerge || a == GroupActionDelete || a == GroupActionIgnore
}

// DuplicateGroup clusters a candidate document with its likely duplicates.
// Groups are transient: they live in memory until an operator resolves them
// or the sweeper expires them.
type DuplicateGroup struct {
	ID               string           `json:"id"`
	TenantID         string           `json:"tenant_id"`
	MasterDocumentID string           `json:"master_document_id"`
	Matches          []DuplicateMatch `json:"matches"`
	MeanSimilarity   int              `json:"mean_similarity"`
	CreatedAt        time.Time        `json:"created_at"`
}

// DetectDuplicatesRequest is the request body for on-demand detection
type DetectDuplicatesRequest struct {
	Candidate DocumentFingerprint `json:"candidate" validate:"required"`
}

// DetectDuplicatesResponse carries ranked matches and the group created, if any
type DetectDuplicatesResponse struct {
	Matches []DuplicateMatch `json:"matches"`
	Group   *DuplicateGroup  `json:"group,omitempty"`
}

// ResolveGroupRequest is the request body for resolving a duplicate group
type ResolveGroupRequest struct {
	Action GroupAction `json:"action" validate:"required"`
}
