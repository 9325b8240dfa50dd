package refresh

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"apitap/internal/skillstore"
	"apitap/internal/store"
)

// oauthRefresh attempts the OAuth grant declared in cfg using whatever
// compatible credentials the store holds for domain: refresh_token grant
// needs a stored refresh token, client_credentials grant needs a stored
// client secret.
func (o *Orchestrator) oauthRefresh(ctx context.Context, domain string, cfg *skillstore.OAuthConfig) (*store.StoredAuth, error) {
	creds, ok := o.store.RetrieveOAuthCredentials(domain)
	if !ok {
		return nil, fmt.Errorf("refresh: no oauth credentials stored for %s", domain)
	}

	switch cfg.GrantType {
	case "client_credentials":
		if creds.ClientSecret == "" {
			return nil, fmt.Errorf("refresh: client_credentials grant needs a stored client secret")
		}
		ccConfig := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     cfg.TokenEndpoint,
			Scopes:       scopesOf(cfg.Scope),
		}
		token, err := ccConfig.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("refresh: client_credentials request: %w", err)
		}
		return authFromToken(token), nil

	default: // "refresh_token"
		if creds.RefreshToken == "" {
			return nil, fmt.Errorf("refresh: refresh_token grant needs a stored refresh token")
		}
		oauthConfig := oauth2.Config{
			ClientID: cfg.ClientID,
			Endpoint: oauth2.Endpoint{TokenURL: cfg.TokenEndpoint},
			Scopes:   scopesOf(cfg.Scope),
		}
		tokenSource := oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})
		token, err := tokenSource.Token()
		if err != nil {
			return nil, fmt.Errorf("refresh: refresh_token request: %w", err)
		}

		if token.RefreshToken != "" && token.RefreshToken != creds.RefreshToken {
			creds.RefreshToken = token.RefreshToken
			if err := o.store.StoreOAuthCredentials(domain, *creds); err != nil {
				return nil, fmt.Errorf("refresh: persist rotated refresh token: %w", err)
			}
		}
		return authFromToken(token), nil
	}
}

func authFromToken(token *oauth2.Token) *store.StoredAuth {
	auth := &store.StoredAuth{
		Type:   store.AuthBearer,
		Header: "authorization",
		Value:  "Bearer " + token.AccessToken,
	}
	if !token.Expiry.IsZero() {
		exp := token.Expiry
		auth.ExpiresAt = &exp
	}
	return auth
}

func scopesOf(scope string) []string {
	if scope == "" {
		return nil
	}
	return []string{scope}
}
