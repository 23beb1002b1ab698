package entity

// ServiceIdentity is a provisioned backend service and its shared secret.
// Identities are created at deployment time and are immutable for the
// lifetime of the process; the gate only ever reads them.
type ServiceIdentity struct {
	ID     string `yaml:"id"`
	Secret string `yaml:"secret"`
}

// AuthHeaders are the request-scoped authentication headers extracted
// from an inbound request to a service-only path.
type AuthHeaders struct {
	ServiceID string
	Signature string
	Timestamp string
}

// Complete reports whether all required auth headers are present.
func (h AuthHeaders) Complete() bool {
	return h.ServiceID != "" && h.Signature != "" && h.Timestamp != ""
}
