// Package extensions holds the built-in FleetGate extensions: the Cloud
// Foundry and Kubernetes endpoint types and the admin diagnostics contributor.
package extensions

import (
	"context"

	"go.uber.org/zap"

	ext "github.com/HerbHall/fleetgate/pkg/extension"
	"github.com/HerbHall/fleetgate/pkg/models"
)

// Compile-time interface guard.
var _ ext.Extension = (*CloudFoundry)(nil)

// CloudFoundry owns the "cf" endpoint type.
type CloudFoundry struct {
	logger *zap.Logger
}

// NewCloudFoundry creates the Cloud Foundry extension.
func NewCloudFoundry() *CloudFoundry {
	return &CloudFoundry{}
}

func (c *CloudFoundry) Info() ext.ExtensionInfo {
	return ext.ExtensionInfo{
		Name:         "cloudfoundry",
		Version:      "0.1.0",
		Description:  "Cloud Foundry endpoint type",
		EndpointType: models.EndpointTypeCloudFoundry,
	}
}

func (c *CloudFoundry) Init(_ context.Context, deps ext.Dependencies) error {
	c.logger = deps.Logger
	return nil
}

func (c *CloudFoundry) Start(context.Context) error { return nil }
func (c *CloudFoundry) Stop(context.Context) error  { return nil }

// PostProcess annotates each Cloud Foundry endpoint with whether the caller
// still needs to connect before API calls can be brokered through it.
func (c *CloudFoundry) PostProcess(_ context.Context, snap *models.Snapshot, _ string, _ bool) error {
	for _, detail := range snap.Endpoints[models.EndpointTypeCloudFoundry] {
		if detail.Token == nil {
			detail.Metadata["login_required"] = "true"
		} else {
			detail.Metadata["login_required"] = "false"
		}
		if detail.Version != "" {
			detail.Metadata["cf_api_version"] = detail.Version
		}
	}
	return nil
}
