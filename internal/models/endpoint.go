package models

import (
	"net"
	"net/url"
	"strconv"
)

// ServerEndpoint identifies one proxy-core controller. It is immutable once
// handed to a monitor.
type ServerEndpoint struct {
	Name   string `yaml:"name" json:"name"`
	Host   string `yaml:"host" json:"host"`
	Port   int    `yaml:"port" json:"port"`
	Secret string `yaml:"secret" json:"-"`
	TLS    bool   `yaml:"tls" json:"tls"`
}

// Addr returns host:port
func (e ServerEndpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// BaseURL returns the REST base URL (http or https).
func (e ServerEndpoint) BaseURL() string {
	scheme := "http"
	if e.TLS {
		scheme = "https"
	}
	return scheme + "://" + e.Addr()
}

// StreamURL returns the WebSocket URL for a path, carrying the secret as the
// token query parameter as well as in the Authorization header.
func (e ServerEndpoint) StreamURL(path string, query url.Values) string {
	scheme := "ws"
	if e.TLS {
		scheme = "wss"
	}
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	if e.Secret != "" {
		q.Set("token", e.Secret)
	}
	u := url.URL{Scheme: scheme, Host: e.Addr(), Path: path}
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}
