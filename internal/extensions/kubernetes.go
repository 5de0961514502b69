package extensions

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	ext "github.com/HerbHall/fleetgate/pkg/extension"
	"github.com/HerbHall/fleetgate/pkg/models"
)

// Compile-time interface guard.
var _ ext.Extension = (*Kubernetes)(nil)

// Kubernetes owns the "k8s" endpoint type.
type Kubernetes struct {
	logger *zap.Logger
}

// NewKubernetes creates the Kubernetes extension.
func NewKubernetes() *Kubernetes {
	return &Kubernetes{}
}

func (k *Kubernetes) Info() ext.ExtensionInfo {
	return ext.ExtensionInfo{
		Name:         "kubernetes",
		Version:      "0.1.0",
		Description:  "Kubernetes endpoint type",
		EndpointType: models.EndpointTypeKubernetes,
	}
}

func (k *Kubernetes) Init(_ context.Context, deps ext.Dependencies) error {
	k.logger = deps.Logger
	return nil
}

func (k *Kubernetes) Start(context.Context) error { return nil }
func (k *Kubernetes) Stop(context.Context) error  { return nil }

// PostProcess derives a kubectl-style context name for each cluster so
// consoles can present something more familiar than a GUID.
func (k *Kubernetes) PostProcess(_ context.Context, snap *models.Snapshot, _ string, _ bool) error {
	for _, detail := range snap.Endpoints[models.EndpointTypeKubernetes] {
		ctxName := detail.Name
		if u, err := url.Parse(detail.APIEndpoint); err == nil && u.Host != "" {
			ctxName = detail.Name + "@" + u.Host
		}
		detail.Metadata["kube_context"] = ctxName
		if detail.Token == nil {
			detail.Metadata["login_required"] = "true"
		}
	}
	return nil
}
