package tenants

import (
	"encoding/json"
	"fmt"
)

// Tenant is the tenant record returned by the backend. The gateway only reads a few
// fields; the original JSON is kept so the record is stored and forwarded unchanged.
type Tenant struct {
	Name       string `json:"name,omitempty"`
	SchemaName string `json:"schema_name,omitempty"`
	DomainURL  string `json:"domain_url,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// ParseTenant decodes a tenant record. A nil, empty or JSON null record yields (nil, nil).
func ParseTenant(raw json.RawMessage) (*Tenant, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var t Tenant
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("[tenants ParseTenant] %w", err)
	}
	t.Raw = append(json.RawMessage(nil), raw...)
	return &t, nil
}

// Slug is the normalised subdomain label of the tenant.
func (t *Tenant) Slug() string {
	if t == nil {
		return ""
	}
	return Normalize(t.SchemaName)
}
