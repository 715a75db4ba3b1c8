package services

import (
	"testing"
	"time"

	"corewatch/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func snapshot(conns ...models.ConnectionSnapshot) models.ConnectionsSnapshot {
	return models.ConnectionsSnapshot{Connections: conns}
}

func TestReconciler_SpeedsAndDeath(t *testing.T) {
	r := NewReconciler()
	start := t0.Add(-time.Minute)

	changed := r.Apply(snapshot(conn("A", 100, 100, start)), t0)
	assert.True(t, changed)
	a, ok := r.Get("A")
	require.True(t, ok)
	assert.True(t, a.Alive)
	assert.Zero(t, a.UploadSpeed, "first sighting has no baseline")
	assert.Zero(t, a.DownloadSpeed)

	r.Apply(snapshot(conn("A", 150, 140, start)), t0.Add(2*time.Second))
	a, _ = r.Get("A")
	assert.InDelta(t, 25.0, a.UploadSpeed, 1e-9)
	assert.InDelta(t, 20.0, a.DownloadSpeed, 1e-9)
	assert.Equal(t, int64(150), a.Upload)

	changed = r.Apply(snapshot(), t0.Add(3*time.Second))
	assert.True(t, changed)
	a, _ = r.Get("A")
	assert.False(t, a.Alive)
	assert.Zero(t, a.UploadSpeed)
	assert.Zero(t, a.DownloadSpeed)
	assert.Equal(t, int64(150), a.Upload, "dead records keep their last counters")

	alive, tracked := r.Counts()
	assert.Equal(t, 0, alive)
	assert.Equal(t, 1, tracked)
}

func TestReconciler_CounterResetClampsToZero(t *testing.T) {
	r := NewReconciler()
	r.Apply(snapshot(conn("A", 1000, 1000, t0)), t0)
	r.Apply(snapshot(conn("A", 10, 2000, t0)), t0.Add(time.Second))

	a, _ := r.Get("A")
	assert.Zero(t, a.UploadSpeed)
	assert.InDelta(t, 1000.0, a.DownloadSpeed, 1e-9)
}

func TestReconciler_NonPositiveElapsedUsesOneSecond(t *testing.T) {
	r := NewReconciler()
	r.Apply(snapshot(conn("A", 0, 0, t0)), t0)
	r.Apply(snapshot(conn("A", 300, 0, t0)), t0)

	a, _ := r.Get("A")
	assert.InDelta(t, 300.0, a.UploadSpeed, 1e-9)
}

func TestReconciler_DeadStaysDeadUntilSeenAgain(t *testing.T) {
	r := NewReconciler()
	r.Apply(snapshot(conn("A", 100, 100, t0)), t0)
	r.Apply(snapshot(conn("B", 1, 1, t0)), t0.Add(time.Second))

	changed := r.Apply(snapshot(conn("B", 1, 1, t0)), t0.Add(2*time.Second))
	a, _ := r.Get("A")
	assert.False(t, a.Alive)
	assert.False(t, changed, "identical snapshot changes nothing")

	// A reappears: alive again, but it was absent from the previous snapshot
	// so there is no baseline to derive a speed from.
	r.Apply(snapshot(conn("A", 500, 500, t0), conn("B", 1, 1, t0)), t0.Add(3*time.Second))
	a, _ = r.Get("A")
	assert.True(t, a.Alive)
	assert.Zero(t, a.UploadSpeed)
	assert.Zero(t, a.DownloadSpeed)
}

func TestReconciler_OrdersNewestFirstWithIDTieBreak(t *testing.T) {
	r := NewReconciler()
	r.Apply(snapshot(
		conn("b", 0, 0, t0),
		conn("old", 0, 0, t0.Add(-time.Hour)),
		conn("a", 0, 0, t0),
		conn("new", 0, 0, t0.Add(time.Hour)),
	), t0)

	var ids []string
	for _, rec := range r.Ordered() {
		ids = append(ids, rec.ID)
	}
	assert.Equal(t, []string{"new", "a", "b", "old"}, ids)
}

func TestReconciler_EmptySnapshotKillsEverything(t *testing.T) {
	r := NewReconciler()
	r.Apply(snapshot(conn("A", 1, 1, t0), conn("B", 1, 1, t0)), t0)
	r.Apply(snapshot(), t0.Add(time.Second))

	for _, rec := range r.Ordered() {
		assert.False(t, rec.Alive, rec.ID)
	}
}

func TestReconciler_PurgeAndReset(t *testing.T) {
	r := NewReconciler()
	r.Apply(snapshot(conn("A", 1, 1, t0), conn("B", 1, 1, t0)), t0)
	r.Apply(models.ConnectionsSnapshot{
		UploadTotal:   10,
		DownloadTotal: 20,
		Connections:   []models.ConnectionSnapshot{conn("B", 2, 2, t0)},
	}, t0.Add(time.Second))

	assert.Equal(t, 1, r.Purge())
	_, ok := r.Get("A")
	assert.False(t, ok)
	require.Len(t, r.Ordered(), 1)
	assert.Equal(t, 0, r.Purge())

	up, down := r.Totals()
	assert.Equal(t, int64(10), up)
	assert.Equal(t, int64(20), down)

	r.Reset()
	assert.Empty(t, r.Ordered())
	up, down = r.Totals()
	assert.Zero(t, up)
	assert.Zero(t, down)
}
