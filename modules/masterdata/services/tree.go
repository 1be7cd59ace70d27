package services

import (
	"context"
	"sort"

	"github.com/google/uuid"
)

type PermissionRepository interface {
	// ListVisibleUnits returns the set of unit ids the tenant may see per
	// the current permission table.
	ListVisibleUnits(ctx context.Context, tenantID string) (map[uuid.UUID]bool, error)
}

type AssignmentRepository interface {
	ListAssignments(ctx context.Context) ([]Assignment, error)
}

// TreeService answers the tenant-scoped forest query over the current
// projection.
type TreeService struct {
	rebuild     RebuildRepository
	assignments AssignmentRepository
	permissions PermissionRepository
}

func NewTreeService(rebuild RebuildRepository, assignments AssignmentRepository, permissions PermissionRepository) *TreeService {
	return &TreeService{rebuild: rebuild, assignments: assignments, permissions: permissions}
}

// GetTree returns the forest of units visible to the tenant, each node
// annotated with its direct and inherited district ids. A visible unit whose
// parent is not visible becomes a root of the result.
func (s *TreeService) GetTree(ctx context.Context, tenantID string) ([]*TreeNode, error) {
	visible, err := s.permissions.ListVisibleUnits(ctx, tenantID)
	if err != nil {
		return nil, mapPgError(err)
	}
	units, err := s.rebuild.ListUnits(ctx)
	if err != nil {
		return nil, mapPgError(err)
	}
	assignments, err := s.assignments.ListAssignments(ctx)
	if err != nil {
		return nil, mapPgError(err)
	}

	var scoped []UnitRow
	for _, u := range units {
		if u.DeletedOn == nil && visible[u.ID] {
			scoped = append(scoped, u)
		}
	}
	return buildForest(scoped, assignments), nil
}

// buildForest assembles the tree from the given units only; a unit whose
// parent is missing from the set roots its own subtree. Children are ordered
// by name for stable output.
func buildForest(units []UnitRow, assignments []Assignment) []*TreeNode {
	nodes := make(map[uuid.UUID]*TreeNode, len(units))
	for _, u := range units {
		nodes[u.ID] = &TreeNode{Unit: u}
	}
	for _, a := range assignments {
		node, ok := nodes[a.UnitID]
		if !ok {
			continue
		}
		if a.Inherited {
			node.InheritedDistrictIDs = append(node.InheritedDistrictIDs, a.DistrictID)
		} else {
			node.DirectDistrictIDs = append(node.DirectDistrictIDs, a.DistrictID)
		}
	}

	var roots []*TreeNode
	for _, u := range units {
		node := nodes[u.ID]
		sortUUIDs(node.DirectDistrictIDs)
		sortUUIDs(node.InheritedDistrictIDs)
		if u.ParentID != nil {
			if parent, ok := nodes[*u.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	var sortNodes func(nodes []*TreeNode)
	sortNodes = func(nodes []*TreeNode) {
		sort.Slice(nodes, func(i, j int) bool {
			if nodes[i].Unit.Name != nodes[j].Unit.Name {
				return nodes[i].Unit.Name < nodes[j].Unit.Name
			}
			return nodes[i].Unit.ID.String() < nodes[j].Unit.ID.String()
		})
		for _, n := range nodes {
			sortNodes(n.Children)
		}
	}
	sortNodes(roots)
	return roots
}

func sortUUIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}
