package board

import (
	"sort"

	"kanban-api/domain"
)

// unknownUsername is substituted when a card references a user that no
// longer exists. The fetch must not fail over a dangling assignee.
const unknownUsername = "Unknown"

// assigneeIDs collects the distinct, non-empty assignee references across the
// given cards, in first-seen order.
func assigneeIDs(cards []domain.Card) []string {
	seen := make(map[string]struct{}, len(cards))
	ids := make([]string, 0, len(cards))
	for _, card := range cards {
		if card.Assignee == "" {
			continue
		}
		if _, ok := seen[card.Assignee]; ok {
			continue
		}
		seen[card.Assignee] = struct{}{}
		ids = append(ids, card.Assignee)
	}
	return ids
}

// buildView assembles the canonical board view: columns ascending by order,
// cards grouped per column ascending by order, assignees resolved against
// the users map.
func buildView(ws domain.Workspace, columns []domain.Column, cards []domain.Card, users map[string]domain.User) domain.BoardView {
	sort.SliceStable(columns, func(i, j int) bool { return columns[i].Order < columns[j].Order })

	byColumn := make(map[string][]domain.Card, len(columns))
	for _, card := range cards {
		byColumn[card.ColumnID] = append(byColumn[card.ColumnID], card)
	}

	columnViews := make([]domain.ColumnView, 0, len(columns))
	for _, col := range columns {
		colCards := byColumn[col.ID]
		sort.SliceStable(colCards, func(i, j int) bool { return colCards[i].Order < colCards[j].Order })

		cardViews := make([]domain.CardView, 0, len(colCards))
		for _, card := range colCards {
			view := domain.CardView{
				ID:          card.ID,
				Title:       card.Title,
				Description: card.Description,
				DueDate:     card.DueDate,
				CreatedAt:   card.CreatedAt,
			}
			if card.Assignee != "" {
				assignee := domain.AssigneeView{ID: card.Assignee, Username: unknownUsername}
				if u, ok := users[card.Assignee]; ok {
					assignee.Username = u.Username
				}
				view.Assignee = &assignee
			}
			cardViews = append(cardViews, view)
		}
		columnViews = append(columnViews, domain.ColumnView{ID: col.ID, Title: col.Title, Cards: cardViews})
	}

	members := ws.Members
	if members == nil {
		members = []string{}
	}
	return domain.BoardView{Workspace: domain.WorkspaceView{
		ID:        ws.ID,
		OwnerID:   ws.OwnerID,
		Title:     ws.Title,
		Members:   members,
		Columns:   columnViews,
		CreatedAt: ws.CreatedAt,
		UpdatedAt: ws.UpdatedAt,
	}}
}
