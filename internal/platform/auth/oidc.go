package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// OIDCProvider holds the fields this service consumes from a provider's
// .well-known/openid-configuration document.
type OIDCProvider struct {
	Issuer                string   `json:"issuer"`
	AuthorizationEndpoint string   `json:"authorization_endpoint"`
	TokenEndpoint         string   `json:"token_endpoint"`
	UserinfoEndpoint      string   `json:"userinfo_endpoint"`
	JWKSURI               string   `json:"jwks_uri"`
	ScopesSupported       []string `json:"scopes_supported"`
}

// NewOIDCProvider fetches and parses the discovery document for the given
// issuer. Works with any OIDC-compliant provider (Keycloak, Auth0, Okta,
// Azure AD, Google).
func NewOIDCProvider(issuerURL string) (*OIDCProvider, error) {
	issuerURL = strings.TrimRight(issuerURL, "/")
	discoveryURL := issuerURL + "/.well-known/openid-configuration"

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(discoveryURL)
	if err != nil {
		return nil, fmt.Errorf("fetching OIDC discovery document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OIDC discovery endpoint returned status %d", resp.StatusCode)
	}

	var provider OIDCProvider
	if err := json.NewDecoder(resp.Body).Decode(&provider); err != nil {
		return nil, fmt.Errorf("decoding OIDC discovery document: %w", err)
	}

	if provider.JWKSURI == "" {
		return nil, fmt.Errorf("OIDC discovery document missing jwks_uri")
	}

	return &provider, nil
}

// JWKSKeyFunc returns a jwt.Keyfunc backed by the discovered JWKS URI. Keys
// are cached with a 5-minute TTL and refreshed when an unknown key ID shows
// up, which covers provider key rotation.
func (p *OIDCProvider) JWKSKeyFunc() jwt.Keyfunc {
	return jwksKeyFunc(p.JWKSURI)
}

// SupportsScope reports whether the provider advertises the given scope.
func (p *OIDCProvider) SupportsScope(scope string) bool {
	for _, s := range p.ScopesSupported {
		if s == scope {
			return true
		}
	}
	return false
}
