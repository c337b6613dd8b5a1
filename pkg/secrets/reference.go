package secrets

import (
	"errors"
	"strings"
)

// ProviderType names a secret backend
type ProviderType string

const (
	ProviderVault ProviderType = "vault"
	ProviderAWS   ProviderType = "aws"
	ProviderGCP   ProviderType = "gcp"
	ProviderFile  ProviderType = "file"
)

var (
	// ErrInvalidReference indicates an empty or malformed reference
	ErrInvalidReference = errors.New("secrets: invalid reference")
	// ErrKeyNotFound is returned when the secret payload lacks the requested key
	ErrKeyNotFound = errors.New("secrets: key not found")
)

// Reference locates one secret value. Syntax:
//
//	[provider://][mount::]path[@version][#key]
type Reference struct {
	Provider ProviderType
	Mount    string
	Path     string
	Version  string
	Key      string
}

// ParseReference parses raw, defaulting the provider to def
func ParseReference(raw string, def ProviderType) (Reference, error) {
	ref := Reference{Provider: def}

	s := strings.TrimSpace(raw)
	if s == "" {
		return ref, ErrInvalidReference
	}

	if i := strings.Index(s, "://"); i > 0 {
		ref.Provider = ProviderType(strings.ToLower(s[:i]))
		s = s[i+3:]
	}
	if i := strings.LastIndex(s, "#"); i >= 0 {
		ref.Key = strings.TrimSpace(s[i+1:])
		s = s[:i]
	}
	if i := strings.LastIndex(s, "@"); i >= 0 {
		ref.Version = strings.TrimSpace(s[i+1:])
		s = s[:i]
	}
	if i := strings.Index(s, "::"); i >= 0 {
		ref.Mount = strings.Trim(s[:i], "/ ")
		s = s[i+2:]
	}

	ref.Path = strings.Trim(s, "/ ")
	if ref.Path == "" {
		return ref, ErrInvalidReference
	}
	switch ref.Provider {
	case ProviderVault, ProviderAWS, ProviderGCP, ProviderFile:
	default:
		return ref, ErrInvalidReference
	}
	return ref, nil
}

func (r Reference) cacheKey() string {
	return string(r.Provider) + "|" + r.Mount + "|" + r.Path + "@" + r.Version
}
