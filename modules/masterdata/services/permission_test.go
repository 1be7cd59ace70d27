package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func visibleUnits(rows []PermissionEntry, tenantID string) map[uuid.UUID]bool {
	set := make(map[uuid.UUID]bool)
	for _, r := range rows {
		if r.TenantID == tenantID {
			set[r.UnitID] = true
		}
	}
	return set
}

func visibleDistricts(rows []PermissionEntry, tenantID string) map[uuid.UUID]bool {
	set := make(map[uuid.UUID]bool)
	for _, r := range rows {
		if r.TenantID == tenantID && r.DistrictID != nil {
			set[*r.DistrictID] = true
		}
	}
	return set
}

func TestBuildPermissionEntries_OwnedPlusAncestors(t *testing.T) {
	f := newFixture()
	assignments := buildDistrictAssignments(f.units(), map[uuid.UUID][]uuid.UUID{
		f.gossau.ID: {f.districtX},
	})
	rows := buildPermissionEntries(f.units(), assignments, nil)

	gossau := visibleUnits(rows, "tenant-gossau")
	require.True(t, gossau[f.gossau.ID])
	require.True(t, gossau[f.stGallen.ID], "ancestors of owned units are visible")
	require.True(t, gossau[f.bund.ID])
	require.False(t, gossau[f.uzwil.ID], "siblings are not visible")

	uzwil := visibleUnits(rows, "tenant-uzwil")
	require.False(t, uzwil[f.gossau.ID])
	require.Empty(t, visibleDistricts(rows, "tenant-uzwil"), "no district reachable through Uzwil")
}

func TestBuildPermissionEntries_DistrictClosureRestrictedToVisibleUnits(t *testing.T) {
	f := newFixture()
	assignments := buildDistrictAssignments(f.units(), map[uuid.UUID][]uuid.UUID{
		f.gossau.ID: {f.districtX},
	})
	rows := buildPermissionEntries(f.units(), assignments, nil)

	require.True(t, visibleDistricts(rows, "tenant-gossau")[f.districtX])
	require.True(t, visibleDistricts(rows, "tenant-sg")[f.districtX], "inherited row at the canton carries the district")
}

func TestBuildPermissionEntries_CountingAuthorityChain(t *testing.T) {
	f := newFixture()
	assignments := buildDistrictAssignments(f.units(), map[uuid.UUID][]uuid.UUID{
		f.gossau.ID: {f.districtX},
	})
	districts := []DistrictRow{{ID: f.districtX, Name: "Kreis X", AuthorityTenantID: "tenant-authority"}}

	rows := buildPermissionEntries(f.units(), assignments, districts)

	authority := visibleUnits(rows, "tenant-authority")
	require.True(t, authority[f.gossau.ID], "assigning unit of the authority's district")
	require.True(t, authority[f.stGallen.ID])
	require.True(t, authority[f.bund.ID])
	require.False(t, authority[f.uzwil.ID])
}

func TestBuildPermissionEntries_ExcludesDeletedUnits(t *testing.T) {
	f := newFixture()
	deleted := testDeletedOn()
	f.gossau.DeletedOn = &deleted

	rows := buildPermissionEntries(f.units(), nil, nil)
	for _, r := range rows {
		require.NotEqual(t, f.gossau.ID, r.UnitID)
	}
	require.Empty(t, visibleUnits(rows, "tenant-gossau"), "deleted unit grants nothing")
}

func TestBuildPermissionEntries_UnitWithoutDistrictsStillListed(t *testing.T) {
	f := newFixture()
	rows := buildPermissionEntries(f.units(), nil, nil)

	found := false
	for _, r := range rows {
		if r.TenantID == "tenant-uzwil" && r.UnitID == f.uzwil.ID {
			require.Nil(t, r.DistrictID)
			found = true
		}
	}
	require.True(t, found)
}

func TestBuildPermissionEntries_Idempotent(t *testing.T) {
	f := newFixture()
	assignments := buildDistrictAssignments(f.units(), map[uuid.UUID][]uuid.UUID{
		f.gossau.ID: {f.districtX},
		f.uzwil.ID:  {uuid.New()},
	})
	districts := []DistrictRow{{ID: f.districtX, AuthorityTenantID: "tenant-authority"}}

	first := buildPermissionEntries(f.units(), assignments, districts)
	second := buildPermissionEntries(f.units(), assignments, districts)
	require.Equal(t, first, second)
}
