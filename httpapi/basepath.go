package httpapi

import (
	"net/url"
	"strings"
)

func normalizeBasePath(value string) string {
	path := strings.TrimSpace(value)
	if path == "" || path == "/" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	path = strings.TrimRight(path, "/")
	if path == "/" {
		return ""
	}
	return path
}

func buildBaseHref(baseURL, basePath string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	path := normalizeBasePath(basePath)
	if base == "" && path == "" {
		return ""
	}
	if base == "" {
		return ensureTrailingSlash(path)
	}
	return ensureTrailingSlash(base + path)
}

func ensureTrailingSlash(value string) string {
	if value == "" {
		return ""
	}
	if strings.HasSuffix(value, "/") {
		return value
	}
	return value + "/"
}

// PanelURL returns the address the panel page is served at. The auth token
// is added as a query parameter since the page authenticates its own
// requests with it.
func PanelURL(cfg Config) string {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		host := strings.TrimSpace(cfg.Addr)
		if host == "" {
			host = defaultAPIAddr
		}
		if strings.HasPrefix(host, ":") {
			host = "127.0.0.1" + host
		}
		base = "http://" + host
	}
	return WithToken(buildBaseHref(base, cfg.BasePath), cfg.AuthToken)
}

// WithToken adds token to raw unless it already carries one.
func WithToken(raw, token string) string {
	if token == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Get("token") != "" {
		return raw
	}
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}
