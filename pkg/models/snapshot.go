package models

// User identifies the requesting operator. Supplied by the identity layer;
// FleetGate treats the GUID as opaque.
type User struct {
	GUID  string `json:"guid"`
	Name  string `json:"name,omitempty"`
	Admin bool   `json:"admin"`
}

// EndpointDetail is the per-request aggregated view of one endpoint: the
// registry record, the resolved credential projection for the requesting
// user, the endpoint's relation lists, and extension-contributed metadata.
// Not persisted.
type EndpointDetail struct {
	Endpoint
	Token             *TokenDetail       `json:"token,omitempty"`
	SystemSharedToken bool               `json:"system_shared_token"`
	Relations         *EndpointRelations `json:"relations,omitempty"`
	// Metadata holds extension contributions. Extensions run in
	// registration order; the last writer of a key wins.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ExtensionStatus describes one registered extension in the snapshot.
type ExtensionStatus struct {
	Name         string       `json:"name"`
	Version      string       `json:"version"`
	EndpointType EndpointType `json:"endpoint_type,omitempty"`
}

// Snapshot is the aggregated response for one /info request. Endpoints are
// keyed by type tag, then by endpoint GUID. A type tag owned by a registered
// extension is always present, even with zero endpoints. Diagnostics is
// populated for admin requests only.
type Snapshot struct {
	User        *User                                       `json:"user"`
	Endpoints   map[EndpointType]map[string]*EndpointDetail `json:"endpoints"`
	Plugins     []ExtensionStatus                           `json:"plugins"`
	Diagnostics map[string]any                              `json:"diagnostics,omitempty"`
}

// Detail returns the EndpointDetail for a GUID under the given type tag,
// or nil if absent. Convenience for extensions and tests.
func (s *Snapshot) Detail(t EndpointType, guid string) *EndpointDetail {
	bucket, ok := s.Endpoints[t]
	if !ok {
		return nil
	}
	return bucket[guid]
}
