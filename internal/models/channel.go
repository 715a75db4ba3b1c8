package models

// Channel is one logical streaming subscription
type Channel string

const (
	ChannelTraffic     Channel = "traffic"
	ChannelMemory      Channel = "memory"
	ChannelConnections Channel = "connections"
	ChannelLogs        Channel = "logs"
)

// AllChannels lists every channel in display order.
var AllChannels = []Channel{ChannelTraffic, ChannelMemory, ChannelConnections, ChannelLogs}

// Path returns the controller API path serving the channel.
func (c Channel) Path() string {
	return "/" + string(c)
}

// Valid reports whether c names a known channel
func (c Channel) Valid() bool {
	switch c {
	case ChannelTraffic, ChannelMemory, ChannelConnections, ChannelLogs:
		return true
	}
	return false
}
