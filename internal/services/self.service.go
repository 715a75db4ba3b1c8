package services

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"corewatch/internal/models"

	"github.com/shirou/gopsutil/v3/process"
)

var startedAt = time.Now()

// GetSelfStatus returns resource usage of the dashboard process
func GetSelfStatus() (*models.SelfStatus, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("failed to open own process: %w", err)
	}

	name, err := proc.Name()
	if err != nil {
		name = "corewatch"
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		log.Printf("Warning: Could not get CPU usage: %v", err)
		cpuPercent = 0
	}

	memPercent, err := proc.MemoryPercent()
	if err != nil {
		log.Printf("Warning: Could not get memory percent: %v", err)
		memPercent = 0
	}

	var rss uint64
	if info, err := proc.MemoryInfo(); err == nil && info != nil {
		rss = info.RSS
	}

	threads, err := proc.NumThreads()
	if err != nil {
		threads = 0
	}

	status := "unknown"
	if states, err := proc.Status(); err == nil && len(states) > 0 {
		status = mapProcessState(states[0])
	}

	return &models.SelfStatus{
		Process: &models.ProcessStatus{
			PID:        proc.Pid,
			Name:       name,
			CPUPercent: cpuPercent,
			MemPercent: memPercent,
			RSSBytes:   rss,
			Threads:    threads,
			Status:     status,
		},
		Goroutines: runtime.NumGoroutine(),
		Uptime:     time.Since(startedAt).Round(time.Second).String(),
		Timestamp:  time.Now(),
	}, nil
}

// mapProcessState converts gopsutil state names and codes to readable strings
func mapProcessState(state string) string {
	switch state {
	case process.Running, "R":
		return "running"
	case process.Sleep, "S":
		return "sleeping"
	case process.Idle, "I":
		return "idle"
	case process.Stop, "T":
		return "stopped"
	case process.Zombie, "Z":
		return "zombie"
	case process.Wait, "W":
		return "waiting"
	case process.Lock, "L":
		return "locked"
	case "":
		return "unknown"
	default:
		return state
	}
}
