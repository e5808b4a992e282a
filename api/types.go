package api

import (
	"context"
	"net/http"

	"kanban-api/domain"
)

// Engine abstracts the board core for handlers.
type Engine interface {
	Project(ctx context.Context, callerID, workspaceID string) (domain.BoardView, error)
	Reconcile(ctx context.Context, callerID, workspaceID string, desired []domain.ColumnSnapshot) error
	DeleteCard(ctx context.Context, callerID, workspaceID, cardID string) error
	Identity(ctx context.Context, callerID string) (domain.User, error)
}

// Authenticator is implemented by types able to extract the caller identity
// from a request's credential token.
type Authenticator interface {
	UserIDFromRequest(r *http.Request) (string, error)
}
