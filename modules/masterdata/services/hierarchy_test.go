package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/openelect/basis/modules/masterdata/domain/unitkind"
)

func testDeletedOn() (t time.Time) {
	return time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	bund, stGallen, gossau, uzwil UnitRow
	districtX                     uuid.UUID
}

func newFixture() fixture {
	f := fixture{districtX: uuid.New()}
	f.bund = UnitRow{ID: uuid.New(), Name: "Bund", Kind: unitkind.Federal, Canton: "CH", TenantID: "tenant-bund"}
	f.stGallen = UnitRow{ID: uuid.New(), Name: "St. Gallen", Kind: unitkind.Canton, TenantID: "tenant-sg", ParentID: &f.bund.ID}
	f.gossau = UnitRow{ID: uuid.New(), Name: "Gossau", Kind: unitkind.Municipality, TenantID: "tenant-gossau", ParentID: &f.stGallen.ID}
	f.uzwil = UnitRow{ID: uuid.New(), Name: "Uzwil", Kind: unitkind.Municipality, TenantID: "tenant-uzwil", ParentID: &f.stGallen.ID}
	return f
}

func (f fixture) units() []UnitRow {
	return []UnitRow{f.bund, f.stGallen, f.gossau, f.uzwil}
}

func assignmentSet(rows []Assignment) map[Assignment]bool {
	set := make(map[Assignment]bool, len(rows))
	for _, r := range rows {
		set[r] = true
	}
	return set
}

func TestBuildDistrictAssignments_PropagatesToAncestors(t *testing.T) {
	f := newFixture()
	rows := buildDistrictAssignments(f.units(), map[uuid.UUID][]uuid.UUID{
		f.gossau.ID: {f.districtX},
	})

	set := assignmentSet(rows)
	require.Len(t, rows, 3)
	require.True(t, set[Assignment{UnitID: f.gossau.ID, DistrictID: f.districtX}])
	require.True(t, set[Assignment{UnitID: f.stGallen.ID, DistrictID: f.districtX, Inherited: true}])
	require.True(t, set[Assignment{UnitID: f.bund.ID, DistrictID: f.districtX, Inherited: true}])
	for _, r := range rows {
		require.NotEqual(t, f.uzwil.ID, r.UnitID)
	}
}

func TestBuildDistrictAssignments_FanInDedup(t *testing.T) {
	f := newFixture()
	districtY := uuid.New()
	rows := buildDistrictAssignments(f.units(), map[uuid.UUID][]uuid.UUID{
		f.gossau.ID: {districtY},
		f.uzwil.ID:  {districtY},
	})

	inheritedAtSG := 0
	for _, r := range rows {
		if r.UnitID == f.stGallen.ID && r.DistrictID == districtY {
			require.True(t, r.Inherited)
			inheritedAtSG++
		}
	}
	require.Equal(t, 1, inheritedAtSG, "fan-in from two children collapses to one row")
}

func TestBuildDistrictAssignments_DirectSuppressesInherited(t *testing.T) {
	f := newFixture()
	// Direct at both child and ancestor: the ancestor keeps only its
	// direct row.
	rows := buildDistrictAssignments(f.units(), map[uuid.UUID][]uuid.UUID{
		f.gossau.ID:   {f.districtX},
		f.stGallen.ID: {f.districtX},
	})

	count := 0
	for _, r := range rows {
		if r.UnitID == f.stGallen.ID && r.DistrictID == f.districtX {
			require.False(t, r.Inherited)
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestBuildDistrictAssignments_ExcludesDeleted(t *testing.T) {
	f := newFixture()
	deleted := testDeletedOn()
	f.gossau.DeletedOn = &deleted

	rows := buildDistrictAssignments(f.units(), map[uuid.UUID][]uuid.UUID{
		f.gossau.ID: {f.districtX},
	})
	require.Empty(t, rows, "assignments of deleted units do not propagate")
}

func TestBuildDistrictAssignments_Idempotent(t *testing.T) {
	f := newFixture()
	direct := map[uuid.UUID][]uuid.UUID{
		f.gossau.ID: {f.districtX, uuid.New()},
		f.uzwil.ID:  {uuid.New()},
	}
	first := buildDistrictAssignments(f.units(), direct)
	second := buildDistrictAssignments(f.units(), direct)
	require.Equal(t, first, second)
}

func TestBuildDistrictAssignments_ToleratesCycle(t *testing.T) {
	a := UnitRow{ID: uuid.New(), Kind: unitkind.Canton, TenantID: "t"}
	b := UnitRow{ID: uuid.New(), Kind: unitkind.District, TenantID: "t", ParentID: &a.ID}
	a.ParentID = &b.ID
	district := uuid.New()

	rows := buildDistrictAssignments([]UnitRow{a, b}, map[uuid.UUID][]uuid.UUID{
		b.ID: {district},
	})
	require.Len(t, rows, 2, "walk terminates despite the corrupt parent loop")
}
