// Package transfer moves a session from one origin to another through the query
// string of a redirect.
//
// The values are base64 encoded. This is obfuscation only, NOT encryption: anyone
// who can read the URL can decode it and use the session. Treat an encoded payload
// like a bearer token and strip it from the address bar as soon as it is decoded.
package transfer

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-tenant-gateway/sessions"
)

// Query parameter names of a payload.
const (
	ParamAccessToken  = "token"
	ParamRefreshToken = "refresh"
	ParamUser         = "user"
	ParamTenant       = "tenant"
	ParamRedirect     = "redirect"
)

// DefaultDestination is used when a payload carries no usable redirect path.
const DefaultDestination = "/dashboard"

// Keys lists every parameter a payload may set.
var Keys = []string{ParamAccessToken, ParamRefreshToken, ParamUser, ParamTenant, ParamRedirect}

// Payload is a decoded handoff.
type Payload struct {
	sessions.Credentials
	DestinationPath string
}

// DecodeErrorKind classifies decode failures.
type DecodeErrorKind int

const (
	MissingField DecodeErrorKind = iota + 1
	MalformedEncoding
)

func (k DecodeErrorKind) String() string {
	switch k {
	case MissingField:
		return "missing field"
	case MalformedEncoding:
		return "malformed encoding"
	default:
		return "unknown"
	}
}

// DecodeError reports why a payload could not be rebuilt.
type DecodeError struct {
	Kind  DecodeErrorKind
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transfer: %s %q: %v", e.Kind, e.Field, e.Err)
	}
	return fmt.Sprintf("transfer: %s %q", e.Kind, e.Field)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is matches another DecodeError of the same kind, so callers can test with
// errors.Is(err, &transfer.DecodeError{Kind: transfer.MissingField}).
func (e *DecodeError) Is(target error) bool {
	t, ok := target.(*DecodeError)
	return ok && t.Kind == e.Kind && (t.Field == "" || t.Field == e.Field)
}

// Encode builds the query parameters of a handoff. The tenant parameter is omitted
// when the credentials carry no tenant.
func Encode(c sessions.Credentials, destinationPath string) url.Values {
	q := url.Values{}
	q.Set(ParamAccessToken, encode([]byte(c.AccessToken)))
	q.Set(ParamRefreshToken, encode([]byte(c.RefreshToken)))
	q.Set(ParamUser, encode(orNull(c.User)))
	if c.HasTenant() {
		q.Set(ParamTenant, encode(orNull(c.Tenant)))
	}
	q.Set(ParamRedirect, encode([]byte(destinationPath)))
	return q
}

// Decode rebuilds a payload. It never returns partially filled credentials.
func Decode(q url.Values) (*Payload, error) {
	for _, name := range []string{ParamAccessToken, ParamRefreshToken, ParamUser} {
		if q.Get(name) == "" {
			return nil, &DecodeError{Kind: MissingField, Field: name}
		}
	}

	access, err := decode(q, ParamAccessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := decode(q, ParamRefreshToken)
	if err != nil {
		return nil, err
	}
	user, err := decodeJSON(q, ParamUser)
	if err != nil {
		return nil, err
	}

	var tenant json.RawMessage
	if q.Get(ParamTenant) != "" {
		if tenant, err = decodeJSON(q, ParamTenant); err != nil {
			return nil, err
		}
	}

	destination := DefaultDestination
	if redirect := q.Get(ParamRedirect); redirect != "" {
		// Older senders put the path in clear text.
		if strings.HasPrefix(redirect, "/") {
			destination = SafeDestination(redirect)
		} else {
			raw, err := decode(q, ParamRedirect)
			if err != nil {
				return nil, err
			}
			destination = SafeDestination(string(raw))
		}
	}

	return &Payload{
		Credentials: sessions.Credentials{
			AccessToken:  string(access),
			RefreshToken: string(refresh),
			User:         user,
			Tenant:       tenant,
		},
		DestinationPath: destination,
	}, nil
}

// Strip removes every payload parameter from u and returns the cleaned URL.
func Strip(u *url.URL) *url.URL {
	cleaned := *u
	q := cleaned.Query()
	for _, k := range Keys {
		q.Del(k)
	}
	cleaned.RawQuery = q.Encode()
	return &cleaned
}

// SafeDestination keeps only local absolute paths, falling back to DefaultDestination.
func SafeDestination(p string) string {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, `\`) {
		return DefaultDestination
	}
	u, err := url.Parse(p)
	if err != nil || u.IsAbs() || u.Host != "" {
		return DefaultDestination
	}
	return p
}

func encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func decode(q url.Values, name string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(q.Get(name))
	if err != nil {
		return nil, &DecodeError{Kind: MalformedEncoding, Field: name, Err: err}
	}
	return b, nil
}

func decodeJSON(q url.Values, name string) (json.RawMessage, error) {
	b, err := decode(q, name)
	if err != nil {
		return nil, err
	}
	if !json.Valid(b) {
		return nil, &DecodeError{Kind: MalformedEncoding, Field: name, Err: fmt.Errorf("invalid JSON")}
	}
	return json.RawMessage(b), nil
}

func orNull(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}
