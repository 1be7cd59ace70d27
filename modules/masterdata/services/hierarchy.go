package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RebuildRepository is the projection-store surface the builders run on.
// LockTree takes the global rebuild lock for the current transaction;
// structural mutations and rebuilds serialize on it.
type RebuildRepository interface {
	LockTree(ctx context.Context) error
	ListUnits(ctx context.Context) ([]UnitRow, error)
	ListDirectAssignments(ctx context.Context) (map[uuid.UUID][]uuid.UUID, error)
	ListDistricts(ctx context.Context) ([]DistrictRow, error)
	ReplaceAssignments(ctx context.Context, rows []Assignment) error
	ReplacePermissions(ctx context.Context, rows []PermissionEntry) error
}

// RebuildService recomputes the full district-assignment and permission
// tables. Both tables are replaced wholesale; rerunning on unchanged input
// writes an identical table.
type RebuildService struct {
	repo RebuildRepository
	log  *logrus.Logger
}

func NewRebuildService(repo RebuildRepository, log *logrus.Logger) *RebuildService {
	return &RebuildService{repo: repo, log: log}
}

// Rebuild runs both builders inside the caller's transaction. The caller is
// expected to have projected the triggering change already so the builders
// read their own write.
func (s *RebuildService) Rebuild(ctx context.Context) error {
	if err := s.repo.LockTree(ctx); err != nil {
		return mapPgError(err)
	}

	units, err := s.repo.ListUnits(ctx)
	if err != nil {
		return mapPgError(err)
	}
	direct, err := s.repo.ListDirectAssignments(ctx)
	if err != nil {
		return mapPgError(err)
	}
	districts, err := s.repo.ListDistricts(ctx)
	if err != nil {
		return mapPgError(err)
	}

	started := time.Now()
	assignments := buildDistrictAssignments(units, direct)
	if err := s.repo.ReplaceAssignments(ctx, assignments); err != nil {
		return mapPgError(err)
	}
	recordRebuild("hierarchy", time.Since(started).Seconds(), len(assignments))

	started = time.Now()
	permissions := buildPermissionEntries(units, assignments, districts)
	if err := s.repo.ReplacePermissions(ctx, permissions); err != nil {
		return mapPgError(err)
	}
	recordRebuild("permission", time.Since(started).Seconds(), len(permissions))

	s.log.WithFields(logrus.Fields{
		"units":       len(units),
		"assignments": len(assignments),
		"permissions": len(permissions),
	}).Debug("rebuilt hierarchy and permission tables")
	return nil
}

// buildDistrictAssignments recomputes the full assignment table from the
// current units and their direct district assignments. Direct assignments
// are propagated to every strict ancestor as inherited rows; fan-in from
// multiple descendants collapses to one row; a direct assignment at a unit
// suppresses an inherited row for the same district there. Soft-deleted
// units are excluded entirely, including as propagation hops.
func buildDistrictAssignments(units []UnitRow, direct map[uuid.UUID][]uuid.UUID) []Assignment {
	live := make(map[uuid.UUID]UnitRow, len(units))
	for _, u := range units {
		if u.DeletedOn == nil {
			live[u.ID] = u
		}
	}

	directAt := make(map[uuid.UUID]map[uuid.UUID]bool)
	for unitID, districtIDs := range direct {
		if _, ok := live[unitID]; !ok {
			continue
		}
		set := make(map[uuid.UUID]bool, len(districtIDs))
		for _, d := range districtIDs {
			set[d] = true
		}
		directAt[unitID] = set
	}

	inheritedAt := make(map[uuid.UUID]map[uuid.UUID]bool)
	for unitID, set := range directAt {
		for districtID := range set {
			for _, ancestor := range ancestorChain(live, unitID) {
				if directAt[ancestor][districtID] {
					continue
				}
				if inheritedAt[ancestor] == nil {
					inheritedAt[ancestor] = make(map[uuid.UUID]bool)
				}
				inheritedAt[ancestor][districtID] = true
			}
		}
	}

	var rows []Assignment
	for unitID, set := range directAt {
		for districtID := range set {
			rows = append(rows, Assignment{UnitID: unitID, DistrictID: districtID})
		}
	}
	for unitID, set := range inheritedAt {
		for districtID := range set {
			rows = append(rows, Assignment{UnitID: unitID, DistrictID: districtID, Inherited: true})
		}
	}
	sortAssignments(rows)
	return rows
}

// ancestorChain returns the strict ancestors of unitID, nearest first,
// stopping at the root, a missing parent, or a cycle.
func ancestorChain(live map[uuid.UUID]UnitRow, unitID uuid.UUID) []uuid.UUID {
	var chain []uuid.UUID
	seen := map[uuid.UUID]bool{unitID: true}
	cur, ok := live[unitID]
	for ok && cur.ParentID != nil {
		next := *cur.ParentID
		if seen[next] {
			break
		}
		seen[next] = true
		cur, ok = live[next]
		if !ok {
			break
		}
		chain = append(chain, next)
	}
	return chain
}

func sortAssignments(rows []Assignment) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].UnitID != rows[j].UnitID {
			return rows[i].UnitID.String() < rows[j].UnitID.String()
		}
		if rows[i].DistrictID != rows[j].DistrictID {
			return rows[i].DistrictID.String() < rows[j].DistrictID.String()
		}
		return !rows[i].Inherited && rows[j].Inherited
	})
}
