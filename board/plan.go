package board

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"kanban-api/domain"
	"kanban-api/notify"
)

// ColumnOrder assigns a new order value to an existing column.
type ColumnOrder struct {
	ID    string
	Order int
}

// Plan is the minimal set of mutations turning the persisted board into the
// submitted snapshot. Upserts carry full card records; entries whose
// persisted state already matches the snapshot are omitted, so resubmitting
// an identical snapshot yields an empty plan.
type Plan struct {
	ColumnOrders []ColumnOrder
	Upserts      []domain.Card
	Deletes      []string
}

// Empty reports whether the plan contains no mutations.
func (p Plan) Empty() bool {
	return len(p.ColumnOrders) == 0 && len(p.Upserts) == 0 && len(p.Deletes) == 0
}

// Kinds returns the change tags describing the plan for announcement.
func (p Plan) Kinds() []notify.Kind {
	kinds := make([]notify.Kind, 0, 2)
	if len(p.ColumnOrders) > 0 {
		kinds = append(kinds, notify.KindColumnsReordered)
	}
	if len(p.Upserts) > 0 || len(p.Deletes) > 0 {
		kinds = append(kinds, notify.KindCardsChanged)
	}
	return kinds
}

// ComputePlan diffs the submitted snapshot against persisted state. The
// snapshot is authoritative: every persisted card absent from it is deleted,
// cards with unresolved ids are created, everything else is updated in place.
// When the same card id appears more than once the later occurrence wins.
func ComputePlan(existingColumns []domain.Column, existingCards []domain.Card, desired []domain.ColumnSnapshot, now time.Time) (Plan, error) {
	columns := make(map[string]domain.Column, len(existingColumns))
	for _, col := range existingColumns {
		columns[col.ID] = col
	}
	cards := make(map[string]domain.Card, len(existingCards))
	claimed := make(map[string]struct{}, len(existingCards))
	for _, card := range existingCards {
		cards[card.ID] = card
		claimed[card.ID] = struct{}{}
	}

	var plan Plan
	kept := make(map[string]struct{}, len(existingCards))
	upsertAt := make(map[string]int)

	upsert := func(card domain.Card) {
		if i, ok := upsertAt[card.ID]; ok {
			plan.Upserts[i] = card
			return
		}
		upsertAt[card.ID] = len(plan.Upserts)
		plan.Upserts = append(plan.Upserts, card)
	}

	for i, colSnap := range desired {
		colID := domain.NormalizeID(colSnap.ID)
		col, ok := columns[colID]
		if !ok {
			return Plan{}, fmt.Errorf("%w: %q", ErrUnknownColumn, colID)
		}
		if col.Order != i {
			plan.ColumnOrders = append(plan.ColumnOrders, ColumnOrder{ID: colID, Order: i})
		}

		for j, cardSnap := range colSnap.Cards {
			cardID := domain.NormalizeID(cardSnap.ID)
			if existing, ok := cards[cardID]; ok {
				next := domain.Card{
					ID:          existing.ID,
					ColumnID:    colID,
					Title:       cardSnap.Title,
					Description: cardSnap.Description,
					Assignee:    cardSnap.Assignee.Ref(),
					DueDate:     cardSnap.DueDate,
					Order:       j,
					CreatedAt:   existing.CreatedAt,
				}
				kept[existing.ID] = struct{}{}
				if !sameCard(existing, next) {
					upsert(next)
				} else if _, pending := upsertAt[existing.ID]; pending {
					// A duplicate earlier in the snapshot queued a different
					// state; the later, unchanged one wins.
					upsert(next)
				}
				continue
			}

			id := cardID
			if _, taken := claimed[id]; taken || !validID(id) {
				id = uuid.NewString()
			}
			claimed[id] = struct{}{}

			targetColumn := colID
			if override := domain.NormalizeID(cardSnap.ColumnID); override != "" {
				targetColumn = override
			}
			createdAt := now
			if cardSnap.CreatedAt != nil {
				createdAt = *cardSnap.CreatedAt
			}
			created := domain.Card{
				ID:          id,
				ColumnID:    targetColumn,
				Title:       cardSnap.Title,
				Description: cardSnap.Description,
				Assignee:    cardSnap.Assignee.Ref(),
				DueDate:     cardSnap.DueDate,
				Order:       j,
				CreatedAt:   createdAt,
			}
			upsert(created)
			kept[id] = struct{}{}

			// Later occurrences of the same submitted id must resolve to this
			// record so the last one wins instead of minting another card.
			cards[id] = created
			if cardID != "" && cardID != id {
				cards[cardID] = created
			}
		}
	}

	for _, card := range existingCards {
		if _, ok := kept[card.ID]; !ok {
			plan.Deletes = append(plan.Deletes, card.ID)
		}
	}

	return plan, nil
}

// validID reports whether a client-submitted id can be reused as a new card
// identity. Anything that does not parse as a UUID gets a minted id instead.
func validID(id string) bool {
	if id == "" {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

func sameCard(a, b domain.Card) bool {
	if a.ID != b.ID || a.ColumnID != b.ColumnID || a.Order != b.Order {
		return false
	}
	if a.Title != b.Title || a.Description != b.Description || a.Assignee != b.Assignee {
		return false
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return false
	}
	return sameTime(a.DueDate, b.DueDate)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
