package orgunit_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/openelect/basis/modules/masterdata/domain/events"
	"github.com/openelect/basis/modules/masterdata/domain/orgunit"
	"github.com/openelect/basis/modules/masterdata/domain/unitkind"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newRoot(t *testing.T) *orgunit.Aggregate {
	t.Helper()
	a := orgunit.New(uuid.New())
	_, err := a.Create(orgunit.CreateData{
		ID:        a.ID,
		Name:      "Kanton St. Gallen",
		ShortName: "SG",
		Kind:      unitkind.Canton,
		Canton:    "sg",
		TenantID:  "tenant-sg",
	}, nil, testNow)
	require.NoError(t, err)
	return a
}

func TestCreate_Root(t *testing.T) {
	a := newRoot(t)

	require.EqualValues(t, 1, a.Version)
	require.Equal(t, "Kanton St. Gallen", a.Name)
	require.Equal(t, "SG", a.Canton, "canton is upper-cased")
	require.Equal(t, unitkind.Canton, a.Kind)
	require.True(t, a.Exists())
}

func TestCreate_RootWithoutCanton(t *testing.T) {
	a := orgunit.New(uuid.New())
	_, err := a.Create(orgunit.CreateData{
		ID:       a.ID,
		Name:     "Bund",
		Kind:     unitkind.Federal,
		TenantID: "tenant",
	}, nil, testNow)

	var fe *orgunit.FieldError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, "canton", fe.Field)
}

func TestCreate_AlreadyExists(t *testing.T) {
	a := newRoot(t)
	_, err := a.Create(orgunit.CreateData{
		ID: a.ID, Name: "again", Kind: unitkind.Canton, Canton: "SG", TenantID: "tenant-sg",
	}, nil, testNow)
	require.ErrorIs(t, err, orgunit.ErrAlreadyExists)
}

func TestCreate_ChildValidation(t *testing.T) {
	parentID := uuid.New()
	parent := &orgunit.ParentInfo{ID: parentID, Kind: unitkind.Canton}

	t.Run("ok", func(t *testing.T) {
		a := orgunit.New(uuid.New())
		ev, err := a.Create(orgunit.CreateData{
			ID:       a.ID,
			Name:     "Stadt St. Gallen",
			Kind:     unitkind.Municipality,
			Canton:   "SG",
			TenantID: "tenant-sg",
			ParentID: &parentID,
		}, parent, testNow)
		require.NoError(t, err)
		require.Equal(t, events.TypeUnitCreated, ev.EventType)
		require.Empty(t, a.Canton, "canton is cleared below the root")
		require.Equal(t, &parentID, a.ParentID)
	})

	t.Run("parent missing", func(t *testing.T) {
		a := orgunit.New(uuid.New())
		_, err := a.Create(orgunit.CreateData{
			ID: a.ID, Name: "x", Kind: unitkind.Municipality, TenantID: "t", ParentID: &parentID,
		}, nil, testNow)
		require.ErrorIs(t, err, orgunit.ErrParentNotFound)
	})

	t.Run("parent deleted", func(t *testing.T) {
		deleted := testNow
		a := orgunit.New(uuid.New())
		_, err := a.Create(orgunit.CreateData{
			ID: a.ID, Name: "x", Kind: unitkind.Municipality, TenantID: "t", ParentID: &parentID,
		}, &orgunit.ParentInfo{ID: parentID, Kind: unitkind.Canton, DeletedOn: &deleted}, testNow)
		require.ErrorIs(t, err, orgunit.ErrParentNotFound)
	})

	t.Run("political mismatch", func(t *testing.T) {
		a := orgunit.New(uuid.New())
		_, err := a.Create(orgunit.CreateData{
			ID: a.ID, Name: "Kirchgemeinde", Kind: unitkind.Church, TenantID: "t", ParentID: &parentID,
		}, parent, testNow)
		require.ErrorIs(t, err, orgunit.ErrPoliticalMismatch)
	})

	t.Run("kind more general than parent", func(t *testing.T) {
		a := orgunit.New(uuid.New())
		_, err := a.Create(orgunit.CreateData{
			ID: a.ID, Name: "Bund", Kind: unitkind.Federal, TenantID: "t", ParentID: &parentID,
		}, parent, testNow)
		require.ErrorIs(t, err, orgunit.ErrKindLevelAboveParent)
	})
}

func TestUpdate(t *testing.T) {
	a := newRoot(t)
	_, err := a.Update(orgunit.UpdateData{
		Name:      "Kanton St.Gallen",
		ShortName: "SG",
		Kind:      unitkind.Canton,
		Canton:    "SG",
	}, nil, testNow)
	require.NoError(t, err)
	require.EqualValues(t, 2, a.Version)
	require.Equal(t, "Kanton St.Gallen", a.Name)
}

func TestUpdate_AfterDelete(t *testing.T) {
	a := newRoot(t)
	_, err := a.Delete(testNow)
	require.NoError(t, err)
	require.False(t, a.Exists())

	_, err = a.Update(orgunit.UpdateData{Name: "x", Kind: unitkind.Canton, Canton: "SG"}, nil, testNow)
	require.ErrorIs(t, err, orgunit.ErrDeleted)
}

func TestUpdateCountingCircleEntries(t *testing.T) {
	d1 := uuid.New()
	d2 := uuid.New()

	t.Run("replaces, dedups and sorts", func(t *testing.T) {
		a := newRoot(t)
		ev, err := a.UpdateCountingCircleEntries([]uuid.UUID{d2, d1, d2}, nil, nil, testNow)
		require.NoError(t, err)
		require.Equal(t, events.TypeCountingCircleEntriesUpdated, ev.EventType)
		require.Len(t, a.DistrictIDs, 2)
		require.True(t, a.DistrictIDs[0].String() < a.DistrictIDs[1].String())
	})

	t.Run("rejects district inherited from descendant", func(t *testing.T) {
		a := newRoot(t)
		_, err := a.UpdateCountingCircleEntries([]uuid.UUID{d1}, map[uuid.UUID]bool{d1: true}, nil, testNow)
		require.ErrorIs(t, err, orgunit.ErrDistrictAlreadyInherited)
	})

	t.Run("rejects district held directly by ancestor", func(t *testing.T) {
		a := newRoot(t)
		_, err := a.UpdateCountingCircleEntries([]uuid.UUID{d1}, nil, map[uuid.UUID]bool{d1: true}, testNow)
		require.ErrorIs(t, err, orgunit.ErrDistrictAlreadyInherited)
	})
}

func TestLogo(t *testing.T) {
	a := newRoot(t)
	_, err := a.DeleteLogo(testNow)
	require.ErrorIs(t, err, orgunit.ErrNoLogo)

	_, err = a.UpdateLogo("logos/sg.png", testNow)
	require.NoError(t, err)
	require.Equal(t, "logos/sg.png", a.LogoRef)

	_, err = a.DeleteLogo(testNow)
	require.NoError(t, err)
	require.Empty(t, a.LogoRef)
}

func TestParties(t *testing.T) {
	a := newRoot(t)

	ev, err := a.CreateParty(uuid.Nil, "Die Mitte", "MITTE", testNow)
	require.NoError(t, err)
	require.Len(t, a.Parties, 1)

	var created orgunit.PartyCreated
	require.NoError(t, json.Unmarshal(ev.Payload, &created))
	require.NotEqual(t, uuid.Nil, created.PartyID, "missing id is generated")

	_, err = a.UpdateParty(created.PartyID, "Die Mitte SG", "MITTE", testNow)
	require.NoError(t, err)
	require.Equal(t, "Die Mitte SG", a.Parties[created.PartyID].Name)

	_, err = a.DeleteParty(created.PartyID, testNow)
	require.NoError(t, err)
	require.True(t, a.Parties[created.PartyID].Deleted, "deleted party stays as tombstone")

	_, err = a.UpdateParty(created.PartyID, "x", "", testNow)
	require.ErrorIs(t, err, orgunit.ErrPartyNotFound)
	_, err = a.DeleteParty(created.PartyID, testNow)
	require.ErrorIs(t, err, orgunit.ErrPartyNotFound)
	_, err = a.UpdateParty(uuid.New(), "x", "", testNow)
	require.ErrorIs(t, err, orgunit.ErrPartyNotFound)
}

func TestDelete_TombstonesParties(t *testing.T) {
	a := newRoot(t)

	ev, err := a.CreateParty(uuid.Nil, "FDP", "FDP", testNow)
	require.NoError(t, err)
	var created orgunit.PartyCreated
	require.NoError(t, json.Unmarshal(ev.Payload, &created))

	_, err = a.Delete(testNow)
	require.NoError(t, err)
	require.False(t, a.Exists())

	p, ok := a.Parties[created.PartyID]
	require.True(t, ok, "party row survives the deletion")
	require.True(t, p.Deleted, "candidates on retained contests see a deleted party")
}

func TestReplay_RebuildsState(t *testing.T) {
	a := newRoot(t)
	evs := []events.EventV1{}

	// Re-run the same commands on a fresh aggregate and capture the stream.
	b := orgunit.New(a.ID)
	ev, err := b.Create(orgunit.CreateData{
		ID: b.ID, Name: "Kanton St. Gallen", ShortName: "SG",
		Kind: unitkind.Canton, Canton: "SG", TenantID: "tenant-sg",
	}, nil, testNow)
	require.NoError(t, err)
	evs = append(evs, ev)

	ev, err = b.UpdateContactPerson(orgunit.ContactPerson{FirstName: "Anna", Email: "anna@sg.ch"}, testNow)
	require.NoError(t, err)
	evs = append(evs, ev)

	ev, err = b.UpdateLogo("logos/sg.png", testNow)
	require.NoError(t, err)
	evs = append(evs, ev)

	replayed, err := orgunit.Replay(b.ID, evs)
	require.NoError(t, err)
	require.Equal(t, b.Version, replayed.Version)
	require.Equal(t, "Anna", replayed.ContactPerson.FirstName)
	require.Equal(t, "logos/sg.png", replayed.LogoRef)
	require.Equal(t, "tenant-sg", replayed.TenantID)
}

func TestReplay_RejectsGaps(t *testing.T) {
	a := orgunit.New(uuid.New())
	ev, err := a.Create(orgunit.CreateData{
		ID: a.ID, Name: "x", Kind: unitkind.Canton, Canton: "SG", TenantID: "t",
	}, nil, testNow)
	require.NoError(t, err)

	ev.StreamVersion = 5
	_, err = orgunit.Replay(a.ID, []events.EventV1{ev})
	require.Error(t, err)
}

func TestReplay_RejectsForeignStream(t *testing.T) {
	a := orgunit.New(uuid.New())
	ev, err := a.Create(orgunit.CreateData{
		ID: a.ID, Name: "x", Kind: unitkind.Canton, Canton: "SG", TenantID: "t",
	}, nil, testNow)
	require.NoError(t, err)

	_, err = orgunit.Replay(uuid.New(), []events.EventV1{ev})
	require.Error(t, err)
}
