package teamcity

import (
	"fmt"
	"net/http"
	"net/url"

	"prbuild-agent/src/config"
)

// CredentialFunc attaches credentials to an outgoing request.
type CredentialFunc func(req *http.Request) error

// BasicAuth attaches an HTTP basic-auth header.
func BasicAuth(username, password string) CredentialFunc {
	return func(req *http.Request) error {
		req.SetBasicAuth(username, password)
		return nil
	}
}

// SessionCookie attaches a fixed session cookie.
func SessionCookie(name, value string) CredentialFunc {
	return func(req *http.Request) error {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
		return nil
	}
}

// JarCookie reads the named session cookie for the server origin from jar on
// every request, so a login elsewhere is picked up without a restart. Without
// the cookie the request goes out anonymous and the server answers 401.
func JarCookie(jar http.CookieJar, serverURL, name string) CredentialFunc {
	return func(req *http.Request) error {
		origin, err := url.Parse(serverURL)
		if err != nil {
			return fmt.Errorf("invalid server URL: %w", err)
		}
		for _, cookie := range jar.Cookies(origin) {
			if cookie.Name == name {
				req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
				return nil
			}
		}
		return nil
	}
}

// CredentialsFor picks the credential attachment the config asks for.
func CredentialsFor(cfg *config.Config) CredentialFunc {
	name := cfg.SessionCookie
	if name == "" {
		name = config.DefaultSessionCookie
	}
	switch cfg.AuthMode {
	case config.AuthCookie:
		return SessionCookie(name, cfg.SessionToken)
	case config.AuthJar:
		return JarCookie(NewFileCookieJar(cfg.CookieFile), cfg.BaseURL, name)
	default:
		return BasicAuth(cfg.Username, cfg.Password)
	}
}
