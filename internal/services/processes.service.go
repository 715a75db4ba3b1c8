package services

import (
	"path/filepath"
	"sort"

	"corewatch/internal/models"
)

const unknownProcess = "unknown"

// ProcessWithScore helps with sorting
type ProcessWithScore struct {
	models.ProcessTraffic
	Score float64
}

// TopProcesses groups connection records by local process and returns the
// busiest ones.
// Pipeline: Collect → Enrich → Sort → Limit
func TopProcesses(records []models.ConnectionRecord, limit int) []models.ProcessTraffic {
	// COLLECT
	collected := collectByProcess(records)

	// ENRICH
	enriched := enrichWithScores(collected)

	// SORT
	sorted := sortByScore(enriched)

	// LIMIT
	limited := limitTo(sorted, limit)

	result := make([]models.ProcessTraffic, 0, len(limited))
	for _, p := range limited {
		result = append(result, p.ProcessTraffic)
	}
	return result
}

// COLLECT: one entry per process name
func collectByProcess(records []models.ConnectionRecord) []ProcessWithScore {
	byName := make(map[string]*ProcessWithScore)
	var order []string

	for _, r := range records {
		name := processName(r.Metadata)
		p, ok := byName[name]
		if !ok {
			p = &ProcessWithScore{ProcessTraffic: models.ProcessTraffic{Process: name}}
			byName[name] = p
			order = append(order, name)
		}
		p.Connections++
		if r.Alive {
			p.Alive++
		}
		p.Upload += r.Upload
		p.Download += r.Download
		p.UploadSpeed += r.UploadSpeed
		p.DownloadSpeed += r.DownloadSpeed
	}

	processes := make([]ProcessWithScore, 0, len(order))
	for _, name := range order {
		processes = append(processes, *byName[name])
	}
	return processes
}

// processName prefers the reported name, falling back to the executable path
func processName(meta models.ConnectionMetadata) string {
	if meta.Process != "" {
		return meta.Process
	}
	if meta.ProcessPath != "" {
		return filepath.Base(meta.ProcessPath)
	}
	return unknownProcess
}

// ENRICH: current throughput dominates, total volume breaks ties
func enrichWithScores(processes []ProcessWithScore) []ProcessWithScore {
	enriched := make([]ProcessWithScore, len(processes))
	for i, p := range processes {
		p.Score = p.UploadSpeed + p.DownloadSpeed
		enriched[i] = p
	}
	return enriched
}

// SORT: By score descending
func sortByScore(processes []ProcessWithScore) []ProcessWithScore {
	sorted := make([]ProcessWithScore, len(processes))
	copy(sorted, processes)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		ti := sorted[i].Upload + sorted[i].Download
		tj := sorted[j].Upload + sorted[j].Download
		if ti != tj {
			return ti > tj
		}
		return sorted[i].Process < sorted[j].Process
	})
	return sorted
}

// LIMIT: Keep only top N
func limitTo(processes []ProcessWithScore, limit int) []ProcessWithScore {
	if limit > 0 && len(processes) > limit {
		return processes[:limit]
	}
	return processes
}
