package board

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
	"kanban-api/notify"
)

// Store abstracts the document store backing the board. Implementations
// return ErrNotFound for absent workspaces and cards.
type Store interface {
	FetchWorkspace(ctx context.Context, workspaceID string) (domain.Workspace, error)
	FetchColumns(ctx context.Context, workspaceID string) ([]domain.Column, error)
	FetchCards(ctx context.Context, workspaceID string) ([]domain.Card, error)
	FetchUsers(ctx context.Context, ids []string) (map[string]domain.User, error)
	ApplyPlan(ctx context.Context, workspaceID string, plan Plan) error
	DeleteCard(ctx context.Context, workspaceID, cardID string) error
}

// Notifier announces successful board mutations to other connected clients.
type Notifier interface {
	Announce(ctx context.Context, ev notify.Event) error
}

// Engine implements the board read projection and the snapshot
// reconciliation algorithm on top of a Store.
type Engine struct {
	store    Store
	notifier Notifier
	logger   *log.Logger
	now      func() time.Time
}

// NewEngine creates an Engine. The notifier may be nil when no announcement
// channel is configured.
func NewEngine(store Store, notifier Notifier, logger *log.Logger) *Engine {
	if store == nil {
		panic("board.NewEngine: store is nil")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Engine{store: store, notifier: notifier, logger: logger, now: time.Now}
}

// Authorize reports whether the caller may access the workspace, and whether
// the caller owns it. It must pass before any column or card is touched.
func Authorize(callerID string, ws domain.Workspace) (granted, isOwner bool) {
	if callerID == "" {
		return false, false
	}
	if callerID == ws.OwnerID {
		return true, true
	}
	for _, member := range ws.Members {
		if member == callerID {
			return true, false
		}
	}
	return false, false
}

// Project assembles the full board view for the caller. It is a read-only
// projection: workspace, columns ascending by order, cards grouped per
// column ascending by order, assignees resolved to identities.
func (e *Engine) Project(ctx context.Context, callerID, workspaceID string) (domain.BoardView, error) {
	ws, err := e.store.FetchWorkspace(ctx, workspaceID)
	if err != nil {
		return domain.BoardView{}, err
	}
	if granted, _ := Authorize(callerID, ws); !granted {
		return domain.BoardView{}, ErrForbidden
	}

	columns, err := e.store.FetchColumns(ctx, workspaceID)
	if err != nil {
		return domain.BoardView{}, fmt.Errorf("fetch columns: %w", err)
	}
	cards, err := e.store.FetchCards(ctx, workspaceID)
	if err != nil {
		return domain.BoardView{}, fmt.Errorf("fetch cards: %w", err)
	}

	users := map[string]domain.User{}
	if ids := assigneeIDs(cards); len(ids) > 0 {
		users, err = e.store.FetchUsers(ctx, ids)
		if err != nil {
			return domain.BoardView{}, fmt.Errorf("fetch assignees: %w", err)
		}
	}

	return buildView(ws, columns, cards, users), nil
}

// Reconcile treats the submitted snapshot as the complete target state of
// the workspace's columns and cards and applies exactly the mutations needed
// to reach it. A successful call with a non-empty plan announces the change
// once; nothing is announced on failure or when the board already matches.
func (e *Engine) Reconcile(ctx context.Context, callerID, workspaceID string, desired []domain.ColumnSnapshot) error {
	ws, err := e.store.FetchWorkspace(ctx, workspaceID)
	if err != nil {
		return err
	}
	if granted, _ := Authorize(callerID, ws); !granted {
		return ErrForbidden
	}

	columns, err := e.store.FetchColumns(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("fetch columns: %w", err)
	}
	cards, err := e.store.FetchCards(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("fetch cards: %w", err)
	}

	plan, err := ComputePlan(columns, cards, desired, e.now())
	if err != nil {
		return err
	}
	if plan.Empty() {
		return nil
	}

	if err := e.store.ApplyPlan(ctx, workspaceID, plan); err != nil {
		return err
	}

	e.announce(ctx, workspaceID, plan.Kinds())
	return nil
}

// DeleteCard removes a single card outside of reconciliation. Order values in
// the card's column keep their gap until the next reconciliation closes it.
func (e *Engine) DeleteCard(ctx context.Context, callerID, workspaceID, cardID string) error {
	ws, err := e.store.FetchWorkspace(ctx, workspaceID)
	if err != nil {
		return err
	}
	if granted, _ := Authorize(callerID, ws); !granted {
		return ErrForbidden
	}

	if err := e.store.DeleteCard(ctx, workspaceID, domain.NormalizeID(cardID)); err != nil {
		return err
	}

	e.announce(ctx, workspaceID, []notify.Kind{notify.KindCardsChanged})
	return nil
}

// Identity resolves the caller to a minimal identity record.
func (e *Engine) Identity(ctx context.Context, callerID string) (domain.User, error) {
	users, err := e.store.FetchUsers(ctx, []string{callerID})
	if err != nil {
		return domain.User{}, err
	}
	u, ok := users[callerID]
	if !ok {
		return domain.User{}, fmt.Errorf("user %q: %w", callerID, ErrNotFound)
	}
	return u, nil
}

func (e *Engine) announce(ctx context.Context, workspaceID string, kinds []notify.Kind) {
	if e.notifier == nil || len(kinds) == 0 {
		return
	}
	ev := notify.Event{WorkspaceID: workspaceID, Kinds: kinds, Time: notify.NextTimestamp()}
	if err := e.notifier.Announce(ctx, ev); err != nil {
		e.logger.WithFields(log.Fields{"workspace": workspaceID}).Warnf("announce board update: %v", err)
	}
}
