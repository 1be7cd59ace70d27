package masterdata

import (
	"embed"

	"github.com/openelect/basis/modules/masterdata/infrastructure/persistence"
	"github.com/openelect/basis/modules/masterdata/presentation/controllers"
	"github.com/openelect/basis/modules/masterdata/services"
	"github.com/openelect/basis/pkg/application"
	"github.com/openelect/basis/pkg/outbox"
)

//go:embed infrastructure/persistence/schema/masterdata-schema.sql
var migrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	app.RegisterSchema(&migrationFiles)

	repo := persistence.NewMasterDataRepository()
	rebuild := services.NewRebuildService(repo, app.Logger())
	cascade := services.NewCascadeService(repo, app.Logger())

	app.RegisterServices(
		services.NewOrgUnitService(repo, repo, repo, rebuild, cascade, outbox.NewPublisher(), app.Logger()),
		services.NewTreeService(repo, repo, repo),
		services.NewSnapshotService(repo, repo),
		services.NewPartyService(repo, repo),
		services.NewDistrictService(repo, rebuild),
	)

	app.RegisterControllers(
		controllers.NewMasterDataAPIController(app),
	)

	return nil
}

func (m *Module) Name() string {
	return "masterdata"
}
