package models

// ProcessStatus describes the dashboard's own process
type ProcessStatus struct {
	PID        int32   `json:"pid"`
	Name       string  `json:"name"`
	CPUPercent float64 `json:"cpu_percent"`
	MemPercent float32 `json:"mem_percent"`
	RSSBytes   uint64  `json:"rss_bytes"`
	Threads    int32   `json:"threads"`
	Status     string  `json:"status"`
}

// ProcessTraffic aggregates the connections opened by one local process
type ProcessTraffic struct {
	Process       string  `json:"process"`
	Connections   int     `json:"connections"`
	Alive         int     `json:"alive"`
	Upload        int64   `json:"upload"`
	Download      int64   `json:"download"`
	UploadSpeed   float64 `json:"upload_speed"`
	DownloadSpeed float64 `json:"download_speed"`
}
