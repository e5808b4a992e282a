package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"kanban-api/board"
	"kanban-api/domain"
)

// maxBatchActions is the table service limit on actions per transaction.
const maxBatchActions = 100

// Storage provides access to the underlying table storage. Columns and cards
// are partitioned by workspace id so a board loads with one query per table
// and mutates through per-partition transactions.
type Storage struct {
	workspaces *aztables.Client
	columns    *aztables.Client
	cards      *aztables.Client
	users      *aztables.Client
}

// New creates a Storage instance from the given connection string.
func New(connStr, workspacesTable, columnsTable, cardsTable, usersTable string) (*Storage, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &Storage{
		workspaces: svc.NewClient(workspacesTable),
		columns:    svc.NewClient(columnsTable),
		cards:      svc.NewClient(cardsTable),
		users:      svc.NewClient(usersTable),
	}, nil
}

type workspaceEntity struct {
	aztables.Entity
	Owner     string `json:"Owner"`
	Title     string `json:"Title"`
	Members   string `json:"Members"`
	CreatedAt string `json:"CreatedAt"`
	UpdatedAt string `json:"UpdatedAt"`
}

type columnEntity struct {
	aztables.Entity
	Title string `json:"Title"`
	Order int    `json:"Order"`
}

// columnOrderEntity carries only the order so reconciliation merges never
// clobber a concurrently renamed column title.
type columnOrderEntity struct {
	aztables.Entity
	Order int `json:"Order"`
}

type cardEntity struct {
	aztables.Entity
	ColumnID    string `json:"ColumnID"`
	Title       string `json:"Title"`
	Description string `json:"Description"`
	Assignee    string `json:"Assignee"`
	DueDate     string `json:"DueDate"`
	Order       int    `json:"Order"`
	CreatedAt   string `json:"CreatedAt"`
}

type userEntity struct {
	aztables.Entity
	Username string `json:"Username"`
}

// FetchWorkspace loads a workspace record by id.
func (s *Storage) FetchWorkspace(ctx context.Context, workspaceID string) (domain.Workspace, error) {
	resp, err := s.workspaces.GetEntity(ctx, workspaceID, workspaceID, nil)
	if err != nil {
		if isNotFound(err) {
			return domain.Workspace{}, fmt.Errorf("workspace %q: %w", workspaceID, board.ErrNotFound)
		}
		return domain.Workspace{}, err
	}
	var ent workspaceEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return domain.Workspace{}, err
	}
	members := []string{}
	if ent.Members != "" {
		if err := json.Unmarshal([]byte(ent.Members), &members); err != nil {
			return domain.Workspace{}, fmt.Errorf("workspace %q: decode members: %w", workspaceID, err)
		}
	}
	return domain.Workspace{
		ID:        ent.RowKey,
		OwnerID:   ent.Owner,
		Title:     ent.Title,
		Members:   members,
		CreatedAt: parseTime(ent.CreatedAt),
		UpdatedAt: parseTime(ent.UpdatedAt),
	}, nil
}

// FetchColumns loads all columns of a workspace, ascending by order.
func (s *Storage) FetchColumns(ctx context.Context, workspaceID string) ([]domain.Column, error) {
	filter := "PartitionKey eq '" + escapeKey(workspaceID) + "'"
	pager := s.columns.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	columns := []domain.Column{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			var ent columnEntity
			if err := json.Unmarshal(e, &ent); err != nil {
				return nil, err
			}
			columns = append(columns, domain.Column{
				ID:          ent.RowKey,
				WorkspaceID: ent.PartitionKey,
				Title:       ent.Title,
				Order:       ent.Order,
			})
		}
	}
	sort.SliceStable(columns, func(i, j int) bool { return columns[i].Order < columns[j].Order })
	return columns, nil
}

// FetchCards loads all cards of a workspace in a single partition query.
func (s *Storage) FetchCards(ctx context.Context, workspaceID string) ([]domain.Card, error) {
	filter := "PartitionKey eq '" + escapeKey(workspaceID) + "'"
	pager := s.cards.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	cards := []domain.Card{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			var ent cardEntity
			if err := json.Unmarshal(e, &ent); err != nil {
				return nil, err
			}
			card := domain.Card{
				ID:          ent.RowKey,
				ColumnID:    ent.ColumnID,
				Title:       ent.Title,
				Description: ent.Description,
				Assignee:    ent.Assignee,
				Order:       ent.Order,
				CreatedAt:   parseTime(ent.CreatedAt),
			}
			if ent.DueDate != "" {
				due := parseTime(ent.DueDate)
				card.DueDate = &due
			}
			cards = append(cards, card)
		}
	}
	return cards, nil
}

// FetchUsers batch-resolves user records by id. Missing users are simply
// absent from the result map.
func (s *Storage) FetchUsers(ctx context.Context, ids []string) (map[string]domain.User, error) {
	users := make(map[string]domain.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, "PartitionKey eq '"+escapeKey(id)+"'")
	}
	filter := strings.Join(parts, " or ")
	pager := s.users.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			var ent userEntity
			if err := json.Unmarshal(e, &ent); err != nil {
				return nil, err
			}
			users[ent.RowKey] = domain.User{ID: ent.RowKey, Username: ent.Username}
		}
	}
	return users, nil
}

// ApplyPlan commits a reconciliation plan: column order merges on the columns
// partition, then card replaces and deletes on the cards partition. Each
// table's actions run as transactions chunked at the service limit; a fault
// after the first committed batch is reported as a partial apply so the
// caller knows some mutations landed and a resubmission will converge.
func (s *Storage) ApplyPlan(ctx context.Context, workspaceID string, plan board.Plan) error {
	colActions := make([]aztables.TransactionAction, 0, len(plan.ColumnOrders))
	for _, co := range plan.ColumnOrders {
		data, err := json.Marshal(columnOrderEntity{
			Entity: aztables.Entity{PartitionKey: workspaceID, RowKey: co.ID},
			Order:  co.Order,
		})
		if err != nil {
			return err
		}
		colActions = append(colActions, aztables.TransactionAction{
			ActionType: aztables.TransactionTypeUpdateMerge,
			Entity:     data,
		})
	}

	cardActions := make([]aztables.TransactionAction, 0, len(plan.Upserts)+len(plan.Deletes))
	for _, card := range plan.Upserts {
		ent := cardEntity{
			Entity:      aztables.Entity{PartitionKey: workspaceID, RowKey: card.ID},
			ColumnID:    card.ColumnID,
			Title:       card.Title,
			Description: card.Description,
			Assignee:    card.Assignee,
			Order:       card.Order,
			CreatedAt:   formatTime(card.CreatedAt),
		}
		if card.DueDate != nil {
			ent.DueDate = formatTime(*card.DueDate)
		}
		data, err := json.Marshal(ent)
		if err != nil {
			return err
		}
		cardActions = append(cardActions, aztables.TransactionAction{
			ActionType: aztables.TransactionTypeInsertReplace,
			Entity:     data,
		})
	}
	for _, id := range plan.Deletes {
		data, err := json.Marshal(aztables.Entity{PartitionKey: workspaceID, RowKey: id})
		if err != nil {
			return err
		}
		cardActions = append(cardActions, aztables.TransactionAction{
			ActionType: aztables.TransactionTypeDelete,
			Entity:     data,
		})
	}

	committed := 0
	for _, batch := range chunkActions(colActions) {
		if _, err := s.columns.SubmitTransaction(ctx, batch, nil); err != nil {
			return applyFault(committed, err)
		}
		committed++
	}
	for _, batch := range chunkActions(cardActions) {
		if _, err := s.cards.SubmitTransaction(ctx, batch, nil); err != nil {
			return applyFault(committed, err)
		}
		committed++
	}
	return nil
}

// DeleteCard removes a single card row.
func (s *Storage) DeleteCard(ctx context.Context, workspaceID, cardID string) error {
	if _, err := s.cards.DeleteEntity(ctx, workspaceID, cardID, nil); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("card %q: %w", cardID, board.ErrNotFound)
		}
		return err
	}
	return nil
}

func chunkActions(actions []aztables.TransactionAction) [][]aztables.TransactionAction {
	if len(actions) == 0 {
		return nil
	}
	batches := make([][]aztables.TransactionAction, 0, (len(actions)+maxBatchActions-1)/maxBatchActions)
	for len(actions) > maxBatchActions {
		batches = append(batches, actions[:maxBatchActions])
		actions = actions[maxBatchActions:]
	}
	return append(batches, actions)
}

func applyFault(committed int, err error) error {
	if committed > 0 {
		return &partialApplyError{err: err}
	}
	return err
}

// partialApplyError satisfies board.PartialApplyError.
type partialApplyError struct {
	err error
}

func (e *partialApplyError) Error() string { return "partial board apply: " + e.err.Error() }
func (e *partialApplyError) Unwrap() error { return e.err }
func (e *partialApplyError) PartialApply() {}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}

// escapeKey doubles single quotes for use inside an OData filter literal.
func escapeKey(key string) string {
	return strings.ReplaceAll(key, "'", "''")
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
