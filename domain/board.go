package domain

import "time"

// BoardView is the assembled read model returned to clients.
type BoardView struct {
	Workspace WorkspaceView `json:"workspace"`
}

// WorkspaceView carries workspace metadata plus the ordered column list.
type WorkspaceView struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"ownerId"`
	Title     string       `json:"title"`
	Members   []string     `json:"members"`
	Columns   []ColumnView `json:"columns"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// ColumnView is a column with its cards in persisted order.
type ColumnView struct {
	ID    string     `json:"id"`
	Title string     `json:"title"`
	Cards []CardView `json:"cards"`
}

// CardView is a card summary with the assignee resolved to an identity.
type CardView struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Assignee    *AssigneeView `json:"assignee,omitempty"`
	DueDate     *time.Time    `json:"dueDate,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// AssigneeView is the resolved assignee identity. Username is "Unknown" when
// the referenced user record no longer exists.
type AssigneeView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// ColumnSnapshot is one column of a client-submitted full-board snapshot.
// The column must already exist; only its position and card list are taken
// from the snapshot.
type ColumnSnapshot struct {
	ID    string         `json:"id"`
	Cards []CardSnapshot `json:"cards"`
}

// CardSnapshot is a desired card state inside a column snapshot. An ID that
// resolves to a persisted card means update; anything else means create.
type CardSnapshot struct {
	ID          string       `json:"id,omitempty"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Assignee    *AssigneeRef `json:"assignee,omitempty"`
	DueDate     *time.Time   `json:"dueDate,omitempty"`
	ColumnID    string       `json:"columnId,omitempty"`
	CreatedAt   *time.Time   `json:"createdAt,omitempty"`
}
