package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/openelect/basis/pkg/composables"
)

type DistrictRepository interface {
	UpsertDistrict(ctx context.Context, row DistrictRow) error
	ListDistricts(ctx context.Context) ([]DistrictRow, error)
}

// DistrictService maintains the counting-district registry. Changing a
// district's counting authority changes who may see parts of the tree, so an
// upsert triggers the same full rebuild as a structural change.
type DistrictService struct {
	districts DistrictRepository
	rebuild   *RebuildService
}

func NewDistrictService(districts DistrictRepository, rebuild *RebuildService) *DistrictService {
	return &DistrictService{districts: districts, rebuild: rebuild}
}

func (s *DistrictService) Upsert(ctx context.Context, row DistrictRow) (DistrictRow, error) {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.Name = strings.TrimSpace(row.Name)
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		if err := s.districts.UpsertDistrict(txCtx, row); err != nil {
			return mapPgError(err)
		}
		return s.rebuild.Rebuild(txCtx)
	})
	if err != nil {
		return DistrictRow{}, err
	}
	return row, nil
}

func (s *DistrictService) List(ctx context.Context) ([]DistrictRow, error) {
	rows, err := s.districts.ListDistricts(ctx)
	if err != nil {
		return nil, mapPgError(err)
	}
	return rows, nil
}
