package models

// ProxyInfo is one entry of GET /proxies
type ProxyInfo struct {
	Name string   `json:"name"`
	Type string   `json:"type"`
	Now  string   `json:"now,omitempty"` // for selectors
	All  []string `json:"all,omitempty"` // for selectors
	UDP  bool     `json:"udp"`
}

// ProxiesResponse is the body of GET /proxies
type ProxiesResponse struct {
	Proxies map[string]ProxyInfo `json:"proxies"`
}

// Rule is one entry of GET /rules
type Rule struct {
	Type    string `json:"type"`
	Payload string `json:"payload"`
	Proxy   string `json:"proxy"`
}

// RulesResponse is the body of GET /rules
type RulesResponse struct {
	Rules []Rule `json:"rules"`
}

// Version is the body of GET /version, used as the reachability probe
type Version struct {
	Version string `json:"version"`
	Meta    bool   `json:"meta"`
	Premium bool   `json:"premium"`
}
