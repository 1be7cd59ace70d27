package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// EntityKind names one class of business entity the cascade orchestrator
// knows how to remove.
type EntityKind string

const (
	KindContest             EntityKind = "contest"
	KindVote                EntityKind = "vote"
	KindElection            EntityKind = "election"
	KindCandidate           EntityKind = "candidate"
	KindList                EntityKind = "list"
	KindListUnion           EntityKind = "list_union"
	KindElectionUnion       EntityKind = "election_union"
	KindElectionUnionEntry  EntityKind = "election_union_entry"
	KindBallotGroup         EntityKind = "ballot_group"
	KindBallotGroupEntry    EntityKind = "ballot_group_entry"
	KindExportConfiguration EntityKind = "export_configuration"
)

// cascadeDependsOn declares, per entity kind, the kinds it holds references
// to. The delete order is derived from this graph once; instances are then
// removed in reverse topological order so nothing is deleted before its
// dependents. Party rows are absent on purpose: parties are tombstoned, not
// removed, so historical candidate links stay resolvable.
var cascadeDependsOn = map[EntityKind][]EntityKind{
	KindContest:             nil,
	KindExportConfiguration: nil,
	KindVote:                {KindContest},
	KindElection:            {KindContest},
	KindList:                {KindElection},
	KindCandidate:           {KindElection, KindList},
	KindListUnion:           {KindList, KindElection},
	KindElectionUnion:       {KindContest},
	KindElectionUnionEntry:  {KindElectionUnion, KindElection},
	KindBallotGroup:         {KindContest},
	KindBallotGroupEntry:    {KindBallotGroup, KindElection},
}

// deleteOrder returns every entity kind ordered so that each one precedes
// all kinds it depends on. Ties break alphabetically to keep the order
// stable across runs.
func deleteOrder() ([]EntityKind, error) {
	dependents := make(map[EntityKind]int, len(cascadeDependsOn))
	for kind := range cascadeDependsOn {
		dependents[kind] = 0
	}
	for _, deps := range cascadeDependsOn {
		for _, dep := range deps {
			dependents[dep]++
		}
	}

	ready := make([]EntityKind, 0, len(dependents))
	for kind, n := range dependents {
		if n == 0 {
			ready = append(ready, kind)
		}
	}
	sortKinds(ready)

	order := make([]EntityKind, 0, len(dependents))
	for len(ready) > 0 {
		kind := ready[0]
		ready = ready[1:]
		order = append(order, kind)

		var unblocked []EntityKind
		for _, dep := range cascadeDependsOn[kind] {
			dependents[dep]--
			if dependents[dep] == 0 {
				unblocked = append(unblocked, dep)
			}
		}
		sortKinds(unblocked)
		ready = append(ready, unblocked...)
	}
	if len(order) != len(cascadeDependsOn) {
		return nil, fmt.Errorf("cascade dependency graph contains a cycle")
	}
	return order, nil
}

func sortKinds(kinds []EntityKind) {
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
}

// ContestRow is the cascade-relevant view of a contest. A contest whose
// testing phase ended in the past is locked: its political businesses are
// removed but the contest row itself is kept for historical integrity.
type ContestRow struct {
	ID              uuid.UUID
	UnitID          uuid.UUID
	TestingPhaseEnd time.Time
}

func (c ContestRow) Locked(now time.Time) bool {
	return !c.TestingPhaseEnd.After(now)
}

type CascadeRepository interface {
	ListContests(ctx context.Context, unitID uuid.UUID) ([]ContestRow, error)
	// DeleteForContests removes all instances of kind scoped to the given
	// contests and returns the number of rows removed.
	DeleteForContests(ctx context.Context, kind EntityKind, contestIDs []uuid.UUID) (int64, error)
	DeleteContests(ctx context.Context, ids []uuid.UUID) (int64, error)
	DeleteExportConfigurations(ctx context.Context, unitID uuid.UUID) (int64, error)
}

// CascadeService removes everything scoped to a deleted unit, in an order
// that makes referential violations structurally impossible.
type CascadeService struct {
	repo CascadeRepository
	log  *logrus.Logger
}

func NewCascadeService(repo CascadeRepository, log *logrus.Logger) *CascadeService {
	return &CascadeService{repo: repo, log: log}
}

// DeleteUnitDependents runs inside the deletion transaction, after the
// deletion event is projected and before the rebuild. Child units are left
// alone; only the unit's own scoped dependents go.
func (s *CascadeService) DeleteUnitDependents(ctx context.Context, unitID uuid.UUID, now time.Time) error {
	contests, err := s.repo.ListContests(ctx, unitID)
	if err != nil {
		return mapPgError(err)
	}

	allContestIDs := make([]uuid.UUID, 0, len(contests))
	var unlockedContestIDs []uuid.UUID
	for _, c := range contests {
		allContestIDs = append(allContestIDs, c.ID)
		if !c.Locked(now) {
			unlockedContestIDs = append(unlockedContestIDs, c.ID)
		}
	}

	order, err := deleteOrder()
	if err != nil {
		return err
	}
	for _, kind := range order {
		var n int64
		switch kind {
		case KindContest:
			n, err = s.repo.DeleteContests(ctx, unlockedContestIDs)
		case KindExportConfiguration:
			n, err = s.repo.DeleteExportConfigurations(ctx, unitID)
		default:
			n, err = s.repo.DeleteForContests(ctx, kind, allContestIDs)
		}
		if err != nil {
			return mapPgError(err)
		}
		recordCascadeDeleted(string(kind), n)
	}

	s.log.WithFields(logrus.Fields{
		"unit_id":         unitID,
		"contests":        len(allContestIDs),
		"contests_locked": len(allContestIDs) - len(unlockedContestIDs),
	}).Info("cascade removed unit dependents")
	return nil
}
