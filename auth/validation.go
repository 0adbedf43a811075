package auth

import (
	"strings"

	"github.com/jrsteele09/go-tenant-gateway/internal/errors"
)

// Validator checks sign-in input before it is sent to the backend.
type Validator struct{}

// NewValidator creates a new Validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateLogin validates login credentials and the optional tenant schema.
func (v *Validator) ValidateLogin(email, password, tenantSchema string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.Wrapf(errors.ErrInvalidRequest, "email is required")
	}

	// Basic email format validation
	at := strings.LastIndex(email, "@")
	if at < 1 || !strings.Contains(email[at:], ".") {
		return errors.Wrapf(errors.ErrInvalidRequest, "invalid email format")
	}

	if password == "" {
		return errors.Wrapf(errors.ErrInvalidRequest, "password is required")
	}

	if tenantSchema != "" {
		return v.ValidateTenantSchema(tenantSchema)
	}
	return nil
}

// ValidateTenantSchema accepts schema names made of letters, digits, '_' and '-'.
func (v *Validator) ValidateTenantSchema(schema string) error {
	for _, r := range schema {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return errors.Wrapf(errors.ErrInvalidRequest, "invalid tenant schema %q", schema)
		}
	}
	return nil
}
