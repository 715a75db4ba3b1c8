package models

import (
	"slices"
	"time"
)

// ConnectionMetadata is the static part of a connection as reported by the core
type ConnectionMetadata struct {
	Network         string `json:"network"`
	Type            string `json:"type"`
	SourceIP        string `json:"sourceIP"`
	DestinationIP   string `json:"destinationIP"`
	SourcePort      string `json:"sourcePort"`
	DestinationPort string `json:"destinationPort"`
	Host            string `json:"host"`
	DNSMode         string `json:"dnsMode"`
	Process         string `json:"process"`
	ProcessPath     string `json:"processPath"`
}

// ConnectionSnapshot is one entry of a connections frame
type ConnectionSnapshot struct {
	ID          string             `json:"id"`
	Metadata    ConnectionMetadata `json:"metadata"`
	Upload      int64              `json:"upload"`
	Download    int64              `json:"download"`
	Start       time.Time          `json:"start"`
	Chains      []string           `json:"chains"`
	Rule        string             `json:"rule"`
	RulePayload string             `json:"rulePayload"`
}

// ConnectionsSnapshot is a full listing of every connection the core knows
// about. It supersedes any earlier listing.
type ConnectionsSnapshot struct {
	DownloadTotal int64                `json:"downloadTotal"`
	UploadTotal   int64                `json:"uploadTotal"`
	Connections   []ConnectionSnapshot `json:"connections"`
	Memory        int64                `json:"memory,omitempty"`
}

// ConnectionRecord is the reconciled view of one connection
type ConnectionRecord struct {
	ID            string             `json:"id"`
	Metadata      ConnectionMetadata `json:"metadata"`
	Chains        []string           `json:"chains"`
	Rule          string             `json:"rule"`
	RulePayload   string             `json:"rule_payload"`
	Upload        int64              `json:"upload"`
	Download      int64              `json:"download"`
	UploadSpeed   float64            `json:"upload_speed"`   // bytes/sec
	DownloadSpeed float64            `json:"download_speed"` // bytes/sec
	Alive         bool               `json:"alive"`
	Start         time.Time          `json:"start"`
}

// Equal compares every field of two records.
func (r ConnectionRecord) Equal(o ConnectionRecord) bool {
	return r.ID == o.ID &&
		r.Metadata == o.Metadata &&
		slices.Equal(r.Chains, o.Chains) &&
		r.Rule == o.Rule &&
		r.RulePayload == o.RulePayload &&
		r.Upload == o.Upload &&
		r.Download == o.Download &&
		r.UploadSpeed == o.UploadSpeed &&
		r.DownloadSpeed == o.DownloadSpeed &&
		r.Alive == o.Alive &&
		r.Start.Equal(o.Start)
}
