package services

import (
	"context"
	"net/http"
	"sort"

	"github.com/google/uuid"
)

// PartyRow is the projected view of a party registered at a unit.
type PartyRow struct {
	ID        uuid.UUID `json:"id"`
	UnitID    uuid.UUID `json:"unit_id"`
	Name      string    `json:"name"`
	ShortName string    `json:"short_name"`
	Deleted   bool      `json:"-"`
}

type PartyStore interface {
	ListByUnits(ctx context.Context, unitIDs []uuid.UUID) ([]PartyRow, error)
}

// PartyService answers the at-or-above party lookup. Parties registered at a
// unit or any of its ancestors are selectable there.
type PartyService struct {
	rebuild RebuildRepository
	parties PartyStore
}

func NewPartyService(rebuild RebuildRepository, parties PartyStore) *PartyService {
	return &PartyService{rebuild: rebuild, parties: parties}
}

func (s *PartyService) ListParties(ctx context.Context, unitID uuid.UUID) ([]PartyRow, error) {
	units, err := s.rebuild.ListUnits(ctx)
	if err != nil {
		return nil, mapPgError(err)
	}
	live := make(map[uuid.UUID]UnitRow, len(units))
	for _, u := range units {
		if u.DeletedOn == nil {
			live[u.ID] = u
		}
	}
	if _, ok := live[unitID]; !ok {
		return nil, newServiceError(http.StatusNotFound, "BASIS_UNIT_NOT_FOUND", "unit not found", nil)
	}

	chain := append([]uuid.UUID{unitID}, ancestorChain(live, unitID)...)
	rows, err := s.parties.ListByUnits(ctx, chain)
	if err != nil {
		return nil, mapPgError(err)
	}

	out := rows[:0]
	for _, p := range rows {
		if !p.Deleted {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}
