package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/openelect/basis/modules/masterdata/domain/orgunit"
	"github.com/openelect/basis/modules/masterdata/domain/unitkind"
)

type fakeRebuildRepo struct {
	units  []UnitRow
	direct map[uuid.UUID][]uuid.UUID
}

func (f *fakeRebuildRepo) LockTree(context.Context) error { return nil }

func (f *fakeRebuildRepo) ListUnits(context.Context) ([]UnitRow, error) { return f.units, nil }

func (f *fakeRebuildRepo) ListDirectAssignments(context.Context) (map[uuid.UUID][]uuid.UUID, error) {
	return f.direct, nil
}

func (f *fakeRebuildRepo) ListDistricts(context.Context) ([]DistrictRow, error) { return nil, nil }

func (f *fakeRebuildRepo) ReplaceAssignments(context.Context, []Assignment) error { return nil }

func (f *fakeRebuildRepo) ReplacePermissions(context.Context, []PermissionEntry) error { return nil }

func TestConflictSets_DirectAtDescendant(t *testing.T) {
	f := newFixture()
	svc := &OrgUnitService{rebuild: NewRebuildService(&fakeRebuildRepo{
		units:  f.units(),
		direct: map[uuid.UUID][]uuid.UUID{f.gossau.ID: {f.districtX}},
	}, logrus.New())}
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	inherited, atAncestors, err := svc.conflictSets(ctx, f.stGallen.ID)
	require.NoError(t, err)
	require.True(t, inherited[f.districtX], "direct at Gossau is inherited at St. Gallen")
	require.Empty(t, atAncestors)

	// The derived sets feed the command: assigning the same district
	// directly at St. Gallen is rejected.
	a := orgunit.New(f.stGallen.ID)
	_, err = a.Create(orgunit.CreateData{
		ID: a.ID, Name: "St. Gallen", ShortName: "SG", Kind: unitkind.Canton, Canton: "SG", TenantID: "tenant-sg",
	}, nil, now)
	require.NoError(t, err)
	_, err = a.UpdateCountingCircleEntries([]uuid.UUID{f.districtX}, inherited, atAncestors, now)
	require.ErrorIs(t, err, orgunit.ErrDistrictAlreadyInherited)

	// The holder itself sees neither set populated and may keep its row.
	inherited, atAncestors, err = svc.conflictSets(ctx, f.gossau.ID)
	require.NoError(t, err)
	require.False(t, inherited[f.districtX])
	require.Empty(t, atAncestors)
}

func TestConflictSets_DirectAtAncestor(t *testing.T) {
	f := newFixture()
	svc := &OrgUnitService{rebuild: NewRebuildService(&fakeRebuildRepo{
		units:  f.units(),
		direct: map[uuid.UUID][]uuid.UUID{f.stGallen.ID: {f.districtX}},
	}, logrus.New())}
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	inherited, atAncestors, err := svc.conflictSets(ctx, f.gossau.ID)
	require.NoError(t, err)
	require.False(t, inherited[f.districtX])
	require.True(t, atAncestors[f.districtX], "direct at St. Gallen blocks Gossau")

	a := orgunit.New(f.gossau.ID)
	_, err = a.Create(orgunit.CreateData{
		ID: a.ID, Name: "Gossau", Kind: unitkind.Municipality, TenantID: "tenant-gossau", ParentID: &f.stGallen.ID,
	}, &orgunit.ParentInfo{ID: f.stGallen.ID, Kind: unitkind.Canton}, now)
	require.NoError(t, err)
	_, err = a.UpdateCountingCircleEntries([]uuid.UUID{f.districtX}, inherited, atAncestors, now)
	require.ErrorIs(t, err, orgunit.ErrDistrictAlreadyInherited)

	// Sibling Uzwil shares the St. Gallen path, so it is blocked too.
	inherited, atAncestors, err = svc.conflictSets(ctx, f.uzwil.ID)
	require.NoError(t, err)
	require.False(t, inherited[f.districtX])
	require.True(t, atAncestors[f.districtX], "Uzwil shares the St. Gallen path")
}
