package orgunit

import (
	"time"

	"github.com/google/uuid"

	"github.com/openelect/basis/modules/masterdata/domain/unitkind"
)

// ContactPerson is the administrative contact published for a unit.
type ContactPerson struct {
	FirstName   string `json:"first_name"`
	FamilyName  string `json:"family_name"`
	Phone       string `json:"phone"`
	MobilePhone string `json:"mobile_phone"`
	Email       string `json:"email"`
}

// VotingCardData configures the postal layout printed on voting cards
// issued under this unit.
type VotingCardData struct {
	SenderName         string `json:"sender_name"`
	SenderAddressLine1 string `json:"sender_address_line_1"`
	SenderAddressLine2 string `json:"sender_address_line_2"`
	FrankingAway       string `json:"franking_away"`
	FrankingReturn     string `json:"franking_return"`
}

// PlausibilisationConfiguration holds thresholds used by downstream result
// plausibilisation; the core only stores and projects it.
type PlausibilisationConfiguration struct {
	VoterParticipationThresholdPercent *float64 `json:"voter_participation_threshold_percent,omitempty"`
	ComparisonThresholdPercent         *float64 `json:"comparison_threshold_percent,omitempty"`
}

// Party is a political party registered at a unit. Deleted parties are kept
// as tombstones so historical candidate references stay resolvable.
type Party struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	ShortName string    `json:"short_name"`
	Deleted   bool      `json:"deleted"`
}

// ParentInfo is the read-model view of a prospective parent, supplied by the
// command handler. Cross-aggregate invariants (kind level, political flag)
// are validated against it instead of against another aggregate instance.
type ParentInfo struct {
	ID        uuid.UUID
	Kind      unitkind.Kind
	DeletedOn *time.Time
}

type CreateData struct {
	ID        uuid.UUID
	Name      string
	ShortName string
	Kind      unitkind.Kind
	Canton    string
	TenantID  string
	ParentID  *uuid.UUID
}

type UpdateData struct {
	Name      string
	ShortName string
	Kind      unitkind.Kind
	Canton    string
	ParentID  *uuid.UUID
}
