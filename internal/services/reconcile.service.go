package services

import (
	"sort"
	"time"

	"corewatch/internal/models"
)

// counters is the cumulative byte count of one connection in a snapshot
type counters struct {
	upload   int64
	download int64
}

// Reconciler merges full connection snapshots into the authoritative
// connection table. It is not safe for concurrent use; the monitor's update
// loop owns it.
type Reconciler struct {
	table    map[string]models.ConnectionRecord
	previous map[string]counters
	lastAt   time.Time
	ordered  []models.ConnectionRecord

	uploadTotal   int64
	downloadTotal int64
	alive         int
}

// NewReconciler creates an empty table
func NewReconciler() *Reconciler {
	return &Reconciler{
		table:    make(map[string]models.ConnectionRecord),
		previous: make(map[string]counters),
		ordered:  []models.ConnectionRecord{},
	}
}

// Apply reconciles one snapshot received at now and reports whether the
// table changed.
//
// Speeds are derived from the previous snapshot's counters, never from the
// table, so a dead id that reappears starts over at speed 0.
func (r *Reconciler) Apply(snap models.ConnectionsSnapshot, now time.Time) bool {
	r.uploadTotal = snap.UploadTotal
	r.downloadTotal = snap.DownloadTotal

	elapsed := now.Sub(r.lastAt).Seconds()
	if r.lastAt.IsZero() || elapsed <= 0 {
		elapsed = 1
	}

	present := make(map[string]struct{}, len(snap.Connections))
	baseline := make(map[string]counters, len(snap.Connections))
	changed := false

	for _, conn := range snap.Connections {
		present[conn.ID] = struct{}{}
		baseline[conn.ID] = counters{upload: conn.Upload, download: conn.Download}

		var upSpeed, downSpeed float64
		if prev, ok := r.previous[conn.ID]; ok {
			upSpeed = rate(conn.Upload, prev.upload, elapsed)
			downSpeed = rate(conn.Download, prev.download, elapsed)
		}

		record := models.ConnectionRecord{
			ID:            conn.ID,
			Metadata:      conn.Metadata,
			Chains:        conn.Chains,
			Rule:          conn.Rule,
			RulePayload:   conn.RulePayload,
			Upload:        conn.Upload,
			Download:      conn.Download,
			UploadSpeed:   upSpeed,
			DownloadSpeed: downSpeed,
			Alive:         true,
			Start:         conn.Start,
		}
		if existing, ok := r.table[conn.ID]; ok && existing.Equal(record) {
			continue
		}
		r.table[conn.ID] = record
		changed = true
	}

	for id, record := range r.table {
		if !record.Alive {
			continue
		}
		if _, ok := present[id]; ok {
			continue
		}
		record.Alive = false
		record.UploadSpeed = 0
		record.DownloadSpeed = 0
		r.table[id] = record
		changed = true
	}

	if changed {
		r.reorder()
	}

	r.previous = baseline
	r.lastAt = now
	return changed
}

// rate returns bytes/sec between two cumulative counters, clamped at zero
// for counters reset by the core.
func rate(current, previous int64, elapsed float64) float64 {
	delta := float64(current-previous) / elapsed
	if delta < 0 {
		return 0
	}
	return delta
}

// reorder rebuilds the ordered sequence: newest start first, id as the tie
// breaker so equal start times render in a fixed order.
func (r *Reconciler) reorder() {
	ordered := make([]models.ConnectionRecord, 0, len(r.table))
	alive := 0
	for _, record := range r.table {
		ordered = append(ordered, record)
		if record.Alive {
			alive++
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Start.Equal(ordered[j].Start) {
			return ordered[i].Start.After(ordered[j].Start)
		}
		return ordered[i].ID < ordered[j].ID
	})
	r.ordered = ordered
	r.alive = alive
}

// Ordered returns the table sorted by start time, newest first. The slice is
// replaced, never mutated, so callers may keep it.
func (r *Reconciler) Ordered() []models.ConnectionRecord {
	return r.ordered
}

// Get returns one record by id
func (r *Reconciler) Get(id string) (models.ConnectionRecord, bool) {
	record, ok := r.table[id]
	return record, ok
}

// Totals returns the core-wide byte totals of the last snapshot
func (r *Reconciler) Totals() (upload, download int64) {
	return r.uploadTotal, r.downloadTotal
}

// Counts returns the number of alive and tracked records
func (r *Reconciler) Counts() (alive, tracked int) {
	return r.alive, len(r.table)
}

// Purge removes dead records and returns how many were removed
func (r *Reconciler) Purge() int {
	removed := 0
	for id, record := range r.table {
		if !record.Alive {
			delete(r.table, id)
			removed++
		}
	}
	if removed > 0 {
		r.reorder()
	}
	return removed
}

// Reset clears the table and the speed baseline
func (r *Reconciler) Reset() {
	r.table = make(map[string]models.ConnectionRecord)
	r.previous = make(map[string]counters)
	r.lastAt = time.Time{}
	r.ordered = []models.ConnectionRecord{}
	r.uploadTotal = 0
	r.downloadTotal = 0
	r.alive = 0
}
