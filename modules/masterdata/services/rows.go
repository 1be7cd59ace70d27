package services

import (
	"time"

	"github.com/google/uuid"

	"github.com/openelect/basis/modules/masterdata/domain/unitkind"
)

// UnitRow is the projected current state of an organizational unit, the
// read model the builders and cross-aggregate validation work on.
type UnitRow struct {
	ID        uuid.UUID     `json:"id"`
	Name      string        `json:"name"`
	ShortName string        `json:"short_name"`
	Kind      unitkind.Kind `json:"kind"`
	Canton    string        `json:"canton,omitempty"`
	TenantID  string        `json:"tenant_id"`
	ParentID  *uuid.UUID    `json:"parent_id,omitempty"`
	DeletedOn *time.Time    `json:"deleted_on,omitempty"`
}

// DistrictRow is a counting district, a leaf-level voting area maintained
// outside the unit aggregate. AuthorityTenantID identifies the counting
// authority responsible for it.
type DistrictRow struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	AuthorityTenantID string    `json:"authority_tenant_id,omitempty"`
}

// Assignment is one row of the rebuilt district-assignment table.
type Assignment struct {
	UnitID     uuid.UUID `json:"unit_id"`
	DistrictID uuid.UUID `json:"district_id"`
	Inherited  bool      `json:"inherited"`
}

// PermissionEntry grants a tenant visibility of a unit and, when set, of a
// district reachable through that unit.
type PermissionEntry struct {
	TenantID   string     `json:"tenant_id"`
	UnitID     uuid.UUID  `json:"unit_id"`
	DistrictID *uuid.UUID `json:"district_id,omitempty"`
}

// SnapshotRow is one validity slice of a unit's history. ValidTo is nil for
// the open slice.
type SnapshotRow struct {
	UnitID            uuid.UUID     `json:"unit_id"`
	ValidFrom         time.Time     `json:"valid_from"`
	ValidTo           *time.Time    `json:"valid_to,omitempty"`
	Name              string        `json:"name"`
	ShortName         string        `json:"short_name"`
	Kind              unitkind.Kind `json:"kind"`
	Canton            string        `json:"canton,omitempty"`
	TenantID          string        `json:"tenant_id"`
	ParentID          *uuid.UUID    `json:"parent_id,omitempty"`
	DeletedOn         *time.Time    `json:"deleted_on,omitempty"`
	DirectDistrictIDs []uuid.UUID   `json:"direct_district_ids,omitempty"`
}

// TreeNode is one node of the forest returned by the tree queries.
type TreeNode struct {
	Unit                 UnitRow     `json:"unit"`
	DirectDistrictIDs    []uuid.UUID `json:"direct_district_ids,omitempty"`
	InheritedDistrictIDs []uuid.UUID `json:"inherited_district_ids,omitempty"`
	Children             []*TreeNode `json:"children,omitempty"`
}
