package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestDeleteOrder_DependentsFirst(t *testing.T) {
	order, err := deleteOrder()
	require.NoError(t, err)
	require.Len(t, order, len(cascadeDependsOn))

	position := make(map[EntityKind]int, len(order))
	for i, kind := range order {
		position[kind] = i
	}
	for kind, deps := range cascadeDependsOn {
		for _, dep := range deps {
			require.Less(t, position[kind], position[dep],
				"%s references %s and must be removed first", kind, dep)
		}
	}
}

func TestDeleteOrder_Stable(t *testing.T) {
	first, err := deleteOrder()
	require.NoError(t, err)
	second, err := deleteOrder()
	require.NoError(t, err)
	require.Equal(t, first, second)
}

type fakeCascadeRepo struct {
	contests []ContestRow

	deletions        []EntityKind
	deletedContests  []uuid.UUID
	deletedExports   int
	contestScopeSeen [][]uuid.UUID
}

func (f *fakeCascadeRepo) ListContests(_ context.Context, _ uuid.UUID) ([]ContestRow, error) {
	return f.contests, nil
}

func (f *fakeCascadeRepo) DeleteForContests(_ context.Context, kind EntityKind, contestIDs []uuid.UUID) (int64, error) {
	f.deletions = append(f.deletions, kind)
	f.contestScopeSeen = append(f.contestScopeSeen, contestIDs)
	return int64(len(contestIDs)), nil
}

func (f *fakeCascadeRepo) DeleteContests(_ context.Context, ids []uuid.UUID) (int64, error) {
	f.deletions = append(f.deletions, KindContest)
	f.deletedContests = ids
	return int64(len(ids)), nil
}

func (f *fakeCascadeRepo) DeleteExportConfigurations(_ context.Context, _ uuid.UUID) (int64, error) {
	f.deletions = append(f.deletions, KindExportConfiguration)
	f.deletedExports++
	return 1, nil
}

func TestCascade_LockedContestsSurvive(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	unitID := uuid.New()
	locked := ContestRow{ID: uuid.New(), UnitID: unitID, TestingPhaseEnd: now.Add(-24 * time.Hour)}
	open := ContestRow{ID: uuid.New(), UnitID: unitID, TestingPhaseEnd: now.Add(24 * time.Hour)}

	repo := &fakeCascadeRepo{contests: []ContestRow{locked, open}}
	svc := NewCascadeService(repo, logrus.New())

	require.NoError(t, svc.DeleteUnitDependents(context.Background(), unitID, now))

	require.Equal(t, []uuid.UUID{open.ID}, repo.deletedContests,
		"only the contest still in its testing phase is removed")
	for _, scope := range repo.contestScopeSeen {
		require.Len(t, scope, 2, "political businesses of locked contests are removed too")
	}
	require.Equal(t, 1, repo.deletedExports)
}

func TestContestRow_LockedBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.True(t, ContestRow{TestingPhaseEnd: now.Add(-time.Second)}.Locked(now))
	require.True(t, ContestRow{TestingPhaseEnd: now}.Locked(now),
		"a testing phase ending exactly now has ended")
	require.False(t, ContestRow{TestingPhaseEnd: now.Add(time.Second)}.Locked(now))
}

func TestCascade_VisitsEveryKindInOrder(t *testing.T) {
	repo := &fakeCascadeRepo{}
	svc := NewCascadeService(repo, logrus.New())

	require.NoError(t, svc.DeleteUnitDependents(context.Background(), uuid.New(), time.Now()))

	want, err := deleteOrder()
	require.NoError(t, err)
	require.Equal(t, want, repo.deletions)
}
