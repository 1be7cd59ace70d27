package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeSnapshotRepo struct {
	slices []SnapshotRow
}

func (f *fakeSnapshotRepo) AppendSnapshot(_ context.Context, row SnapshotRow) error {
	for i := range f.slices {
		if f.slices[i].UnitID == row.UnitID && f.slices[i].ValidTo == nil {
			t := row.ValidFrom
			f.slices[i].ValidTo = &t
		}
	}
	f.slices = append(f.slices, row)
	return nil
}

func (f *fakeSnapshotRepo) ListAsOf(_ context.Context, asOf time.Time) ([]SnapshotRow, error) {
	var out []SnapshotRow
	for _, s := range f.slices {
		if s.ValidFrom.After(asOf) {
			continue
		}
		if s.ValidTo == nil || s.ValidTo.After(asOf) {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakePermissionRepo struct {
	visible map[string]map[uuid.UUID]bool
}

func (f *fakePermissionRepo) ListVisibleUnits(_ context.Context, tenantID string) (map[uuid.UUID]bool, error) {
	return f.visible[tenantID], nil
}

func snapshotAt(u UnitRow, from time.Time, districts ...uuid.UUID) SnapshotRow {
	return SnapshotRow{
		UnitID:            u.ID,
		ValidFrom:         from,
		Name:              u.Name,
		ShortName:         u.ShortName,
		Kind:              u.Kind,
		Canton:            u.Canton,
		TenantID:          u.TenantID,
		ParentID:          u.ParentID,
		DeletedOn:         u.DeletedOn,
		DirectDistrictIDs: districts,
	}
}

func TestListTreeSnapshot_ReproducesPastTree(t *testing.T) {
	f := newFixture()
	repo := &fakeSnapshotRepo{}
	ctx := context.Background()

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	t2 := t0.Add(2 * time.Hour)

	require.NoError(t, repo.AppendSnapshot(ctx, snapshotAt(f.bund, t0)))
	require.NoError(t, repo.AppendSnapshot(ctx, snapshotAt(f.stGallen, t0)))
	require.NoError(t, repo.AppendSnapshot(ctx, snapshotAt(f.gossau, t1, f.districtX)))

	// Gossau renamed later; the earlier slice must win for asOf < t2.
	renamed := f.gossau
	renamed.Name = "Gossau SG"
	require.NoError(t, repo.AppendSnapshot(ctx, snapshotAt(renamed, t2, f.districtX)))

	svc := NewSnapshotService(repo, &fakePermissionRepo{})
	forest, err := svc.ListTreeSnapshot(ctx, t1.Add(time.Minute), false)
	require.NoError(t, err)

	require.Len(t, forest, 1)
	root := forest[0]
	require.Equal(t, "Bund", root.Unit.Name)
	require.Equal(t, []uuid.UUID{f.districtX}, root.InheritedDistrictIDs)
	require.Len(t, root.Children, 1)
	sg := root.Children[0]
	require.Len(t, sg.Children, 1)
	require.Equal(t, "Gossau", sg.Children[0].Unit.Name)
	require.Equal(t, []uuid.UUID{f.districtX}, sg.Children[0].DirectDistrictIDs)
}

func TestListTreeSnapshot_BeforeFirstEvent(t *testing.T) {
	repo := &fakeSnapshotRepo{}
	ctx := context.Background()
	f := newFixture()
	require.NoError(t, repo.AppendSnapshot(ctx, snapshotAt(f.bund, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))))

	svc := NewSnapshotService(repo, &fakePermissionRepo{})
	forest, err := svc.ListTreeSnapshot(ctx, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), false)
	require.NoError(t, err)
	require.Empty(t, forest)
}

func TestListTreeSnapshot_DeletedUnits(t *testing.T) {
	f := newFixture()
	repo := &fakeSnapshotRepo{}
	ctx := context.Background()

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	require.NoError(t, repo.AppendSnapshot(ctx, snapshotAt(f.bund, t0)))
	require.NoError(t, repo.AppendSnapshot(ctx, snapshotAt(f.stGallen, t0)))
	deleted := f.stGallen
	deleted.DeletedOn = &t1
	require.NoError(t, repo.AppendSnapshot(ctx, snapshotAt(deleted, t1)))

	svc := NewSnapshotService(repo, &fakePermissionRepo{})

	forest, err := svc.ListTreeSnapshot(ctx, t1.Add(time.Minute), false)
	require.NoError(t, err)
	require.Len(t, forest, 1)
	require.Empty(t, forest[0].Children, "deleted canton is hidden")

	forest, err = svc.ListTreeSnapshot(ctx, t1.Add(time.Minute), true)
	require.NoError(t, err)
	require.Len(t, forest[0].Children, 1, "deleted canton shown when requested")
	require.NotNil(t, forest[0].Children[0].Unit.DeletedOn)
}

func TestListSnapshot_RestrictedToCurrentVisibility(t *testing.T) {
	f := newFixture()
	repo := &fakeSnapshotRepo{}
	ctx := context.Background()

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.AppendSnapshot(ctx, snapshotAt(f.bund, t0)))
	require.NoError(t, repo.AppendSnapshot(ctx, snapshotAt(f.stGallen, t0)))
	require.NoError(t, repo.AppendSnapshot(ctx, snapshotAt(f.gossau, t0, f.districtX)))
	require.NoError(t, repo.AppendSnapshot(ctx, snapshotAt(f.uzwil, t0)))

	perms := &fakePermissionRepo{visible: map[string]map[uuid.UUID]bool{
		"tenant-gossau": {f.gossau.ID: true, f.stGallen.ID: true, f.bund.ID: true},
		"tenant-uzwil":  {f.uzwil.ID: true, f.stGallen.ID: true, f.bund.ID: true},
	}}
	svc := NewSnapshotService(repo, perms)

	rows, err := svc.ListSnapshot(ctx, "tenant-gossau", f.districtX, t0.Add(time.Hour))
	require.NoError(t, err)
	ids := make(map[uuid.UUID]bool, len(rows))
	for _, r := range rows {
		ids[r.ID] = true
	}
	require.True(t, ids[f.gossau.ID], "direct holder")
	require.True(t, ids[f.stGallen.ID], "inherited holder")
	require.False(t, ids[f.uzwil.ID])

	rows, err = svc.ListSnapshot(ctx, "tenant-uzwil", f.districtX, t0.Add(time.Hour))
	require.NoError(t, err)
	for _, r := range rows {
		require.NotEqual(t, f.gossau.ID, r.ID, "Gossau is outside tenant-uzwil visibility")
	}
}
