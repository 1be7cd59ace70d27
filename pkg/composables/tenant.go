package composables

import (
	"context"
	"errors"

	"github.com/openelect/basis/pkg/constants"
)

var ErrNoTenantID = errors.New("no tenant id found in context")

// WithTenantID attaches the calling tenant to the context. The tenant scopes
// visibility (permission entries), not data partitioning: units are shared.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, constants.TenantIDKey, tenantID)
}

func UseTenantID(ctx context.Context) (string, error) {
	v := ctx.Value(constants.TenantIDKey)
	if v == nil {
		return "", ErrNoTenantID
	}
	return v.(string), nil
}
