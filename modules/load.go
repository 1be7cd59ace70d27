package modules

import (
	"github.com/openelect/basis/modules/masterdata"
	"github.com/openelect/basis/pkg/application"
)

var BuiltInModules = []application.Module{
	masterdata.NewModule(),
}

// Load registers the built-in modules plus any externally supplied ones.
func Load(app application.Application, externalModules ...application.Module) error {
	modules := append([]application.Module{}, BuiltInModules...)
	modules = append(modules, externalModules...)
	return application.Load(app, modules...)
}
