package services

import (
	"sort"

	"github.com/google/uuid"
)

// buildPermissionEntries recomputes the full tenant visibility index.
//
// A tenant sees a unit when it owns it (matching unit tenant), when the unit
// is an ancestor of an owned unit, or when the tenant is the counting
// authority of a district and the unit lies on the chain from the district's
// assigning unit to its root. The tenant's district set is the assignment
// closure restricted to its visible units. A visible unit with no districts
// still yields one row with a nil district.
func buildPermissionEntries(units []UnitRow, assignments []Assignment, districts []DistrictRow) []PermissionEntry {
	live := make(map[uuid.UUID]UnitRow, len(units))
	for _, u := range units {
		if u.DeletedOn == nil {
			live[u.ID] = u
		}
	}

	districtsAt := make(map[uuid.UUID][]uuid.UUID)
	assigningUnit := make(map[uuid.UUID]uuid.UUID)
	for _, a := range assignments {
		districtsAt[a.UnitID] = append(districtsAt[a.UnitID], a.DistrictID)
		if !a.Inherited {
			assigningUnit[a.DistrictID] = a.UnitID
		}
	}

	visible := make(map[string]map[uuid.UUID]bool)
	grant := func(tenantID string, unitID uuid.UUID) {
		if tenantID == "" {
			return
		}
		if _, ok := live[unitID]; !ok {
			return
		}
		if visible[tenantID] == nil {
			visible[tenantID] = make(map[uuid.UUID]bool)
		}
		visible[tenantID][unitID] = true
		for _, ancestor := range ancestorChain(live, unitID) {
			visible[tenantID][ancestor] = true
		}
	}

	for _, u := range live {
		grant(u.TenantID, u.ID)
	}
	for _, d := range districts {
		if d.AuthorityTenantID == "" {
			continue
		}
		if unitID, ok := assigningUnit[d.ID]; ok {
			grant(d.AuthorityTenantID, unitID)
		}
	}

	var rows []PermissionEntry
	for tenantID, unitSet := range visible {
		for unitID := range unitSet {
			districtIDs := districtsAt[unitID]
			if len(districtIDs) == 0 {
				rows = append(rows, PermissionEntry{TenantID: tenantID, UnitID: unitID})
				continue
			}
			seen := make(map[uuid.UUID]bool, len(districtIDs))
			for _, districtID := range districtIDs {
				if seen[districtID] {
					continue
				}
				seen[districtID] = true
				id := districtID
				rows = append(rows, PermissionEntry{TenantID: tenantID, UnitID: unitID, DistrictID: &id})
			}
		}
	}
	sortPermissions(rows)
	return rows
}

func sortPermissions(rows []PermissionEntry) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TenantID != rows[j].TenantID {
			return rows[i].TenantID < rows[j].TenantID
		}
		if rows[i].UnitID != rows[j].UnitID {
			return rows[i].UnitID.String() < rows[j].UnitID.String()
		}
		di, dj := rows[i].DistrictID, rows[j].DistrictID
		switch {
		case di == nil:
			return dj != nil
		case dj == nil:
			return false
		default:
			return di.String() < dj.String()
		}
	})
}
