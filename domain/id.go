package domain

import "strings"

// AssigneeRef is an incoming assignee reference. Clients historically send
// either "id" or the document store's "_id" key; Ref canonicalizes both.
type AssigneeRef struct {
	ID       string `json:"id,omitempty"`
	LegacyID string `json:"_id,omitempty"`
}

// Ref returns the canonical user id carried by the reference, or "" when the
// reference is empty (unassigned). The document store's "_id" key wins when
// both are present.
func (a *AssigneeRef) Ref() string {
	if a == nil {
		return ""
	}
	if id := NormalizeID(a.LegacyID); id != "" {
		return id
	}
	return NormalizeID(a.ID)
}

// NormalizeID canonicalizes an incoming identifier before any comparison or
// lookup. All identifiers crossing the API boundary pass through here.
func NormalizeID(id string) string {
	return strings.TrimSpace(id)
}
