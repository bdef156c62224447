package mail

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// googleEndpoint avoids pulling the full google cloud SDK for one URL pair
var googleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

// googleTokenSource refreshes Gmail access tokens from a stored refresh
// token, caching the token until shortly before expiry
type googleTokenSource struct {
	mu     sync.Mutex
	source oauth2.TokenSource

	clientID     string
	clientSecret string
	refreshToken string
}

func newGoogleTokenSource(clientID, clientSecret, refreshToken string) *googleTokenSource {
	s := &googleTokenSource{
		clientID:     clientID,
		clientSecret: clientSecret,
		refreshToken: refreshToken,
	}
	if s.configured() {
		conf := &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     googleEndpoint,
		}
		seed := &oauth2.Token{
			RefreshToken: refreshToken,
			Expiry:       time.Now().Add(-time.Hour), // force refresh on first use
		}
		s.source = oauth2.ReuseTokenSource(nil, conf.TokenSource(context.Background(), seed))
	}
	return s
}

func (s *googleTokenSource) configured() bool {
	return s.clientID != "" && s.clientSecret != "" && s.refreshToken != ""
}

// accessToken returns a valid access token, refreshing if needed
func (s *googleTokenSource) accessToken() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source == nil {
		return "", ErrNotConfigured
	}
	token, err := s.source.Token()
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}
