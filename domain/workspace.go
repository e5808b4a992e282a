package domain

import "time"

// Workspace is the top-level board container, owned by one user and shared
// with members. Owner is never duplicated into Members.
type Workspace struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Title     string    `json:"title"`
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Column is an ordered lane within a workspace. Order is dense and ascending
// left-to-right after reconciliation.
type Column struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspaceId"`
	Title       string `json:"title"`
	Order       int    `json:"order"`
}

// Card is a work item. It belongs to exactly one column; Order is unique
// within that column. Assignee holds a user id reference only, never a
// resolved identity.
type Card struct {
	ID          string     `json:"id"`
	ColumnID    string     `json:"columnId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Assignee    string     `json:"assignee,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Order       int        `json:"order"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// User is the minimal identity record resolved for assignee projection.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}
