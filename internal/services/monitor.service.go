package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"corewatch/internal/models"
)

// ControlAPI is the slice of the controller REST API the monitor needs
type ControlAPI interface {
	Version(ctx context.Context) (models.Version, error)
	Connections(ctx context.Context) (models.ConnectionsSnapshot, error)
	CloseConnection(ctx context.Context, id string) error
	CloseAllConnections(ctx context.Context) error
	Proxies(ctx context.Context) (models.ProxiesResponse, error)
	SelectProxy(ctx context.Context, group, name string) error
	Rules(ctx context.Context) (models.RulesResponse, error)
}

// MonitorOptions tunes a Monitor
type MonitorOptions struct {
	Policy              StreamPolicy
	Alpha               float64
	SpeedPoints         int
	MemoryPoints        int
	LogEntries          int
	LogLevel            string
	ConnectionsInterval time.Duration
	QueueSize           int
	ProxiesTTL          time.Duration
	RulesTTL            time.Duration
	Metrics             *StreamMetrics
	Clock               func() time.Time
}

// DefaultMonitorOptions returns the observed dashboard defaults
func DefaultMonitorOptions() MonitorOptions {
	return MonitorOptions{
		Policy:       DefaultStreamPolicy(),
		Alpha:        DefaultSmoothingAlpha,
		SpeedPoints:  DefaultSpeedPoints,
		MemoryPoints: DefaultMemoryPoints,
		LogEntries:   DefaultLogEntries,
		LogLevel:     "info",
		QueueSize:    256,
		ProxiesTTL:   5 * time.Second,
		RulesTTL:     30 * time.Second,
	}
}

// monitorState is everything the presentation layer sees. Only the update
// loop touches it.
type monitorState struct {
	reconciler *Reconciler
	traffic    *TrafficSeries
	memory     *MemorySeries
	logs       *Ring[models.LogRecord]
	statuses   map[models.Channel]models.StreamStatus
	version    uint64

	// run after the next publish
	published []func()
}

// Monitor subscribes to every channel of one controller endpoint. Frames,
// statuses and commands are applied one at a time on a single update loop,
// and each applied batch is published as an immutable View.
type Monitor struct {
	endpoint models.ServerEndpoint
	api      ControlAPI
	opts     MonitorOptions
	now      func() time.Time

	controllers map[models.Channel]*StreamController
	updates     chan func(*monitorState)
	view        atomic.Pointer[models.View]

	proxies *TTLCache[models.ProxiesResponse]
	rules   *TTLCache[models.RulesResponse]

	subsMu sync.Mutex
	subs   map[chan struct{}]struct{}

	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewMonitor creates a monitor and starts its update loop. Streams are not
// opened until Start.
func NewMonitor(endpoint models.ServerEndpoint, transport Transport, api ControlAPI, opts MonitorOptions) *Monitor {
	defaults := DefaultMonitorOptions()
	if opts.Policy.RetryDelay <= 0 {
		opts.Policy.RetryDelay = defaults.Policy.RetryDelay
	}
	if opts.Policy.Threshold.Threshold <= 0 || opts.Policy.Threshold.Window <= 0 {
		opts.Policy.Threshold = defaults.Policy.Threshold
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaults.QueueSize
	}
	if opts.LogLevel == "" {
		opts.LogLevel = defaults.LogLevel
	}
	if opts.ProxiesTTL <= 0 {
		opts.ProxiesTTL = defaults.ProxiesTTL
	}
	if opts.RulesTTL <= 0 {
		opts.RulesTTL = defaults.RulesTTL
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	m := &Monitor{
		endpoint:    endpoint,
		api:         api,
		opts:        opts,
		now:         now,
		controllers: make(map[models.Channel]*StreamController, len(models.AllChannels)),
		updates:     make(chan func(*monitorState), opts.QueueSize),
		proxies:     NewTTLCache[models.ProxiesResponse](opts.ProxiesTTL),
		rules:       NewTTLCache[models.RulesResponse](opts.RulesTTL),
		subs:        make(map[chan struct{}]struct{}),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}

	state := &monitorState{
		reconciler: NewReconciler(),
		traffic:    NewTrafficSeries(opts.Alpha, orDefaultInt(opts.SpeedPoints, DefaultSpeedPoints)),
		memory:     NewMemorySeries(opts.Alpha, orDefaultInt(opts.MemoryPoints, DefaultMemoryPoints)),
		logs:       NewRing[models.LogRecord](orDefaultInt(opts.LogEntries, DefaultLogEntries)),
		statuses:   make(map[models.Channel]models.StreamStatus, len(models.AllChannels)),
	}

	for _, ch := range models.AllChannels {
		c := NewStreamController(ch, transport, m, opts.Policy, m.channelQuery(ch), opts.Metrics)
		c.now = now
		m.controllers[ch] = c
		state.statuses[ch] = c.Status()
	}

	m.publish(state)
	go m.run(state)
	return m
}

func orDefaultInt(val, def int) int {
	if val > 0 {
		return val
	}
	return def
}

func (m *Monitor) channelQuery(ch models.Channel) url.Values {
	switch ch {
	case models.ChannelLogs:
		return url.Values{"level": {m.opts.LogLevel}}
	case models.ChannelConnections:
		if m.opts.ConnectionsInterval > 0 {
			return url.Values{"interval": {strconv.FormatInt(m.opts.ConnectionsInterval.Milliseconds(), 10)}}
		}
	}
	return nil
}

// Endpoint returns the monitored endpoint
func (m *Monitor) Endpoint() models.ServerEndpoint {
	return m.endpoint
}

// Start probes the controller and opens every channel. Auth and TLS
// failures put every channel in Error and are returned; other probe
// failures are logged and left to the per-channel retry policy.
func (m *Monitor) Start(ctx context.Context) error {
	version, err := m.api.Version(ctx)
	if err != nil {
		serr := classifyError("", KindOpen, err)
		if serr.Kind == KindAuth || serr.Kind == KindTLS {
			log.Printf("[STREAM] probe of %s rejected: %v", m.endpoint.Addr(), err)
			for _, c := range m.controllers {
				c.Fail(err)
			}
			return err
		}
		log.Printf("[STREAM] probe of %s failed, starting streams anyway: %v", m.endpoint.Addr(), err)
	} else {
		log.Printf("[STREAM] connected to %s (core %s)", m.endpoint.Addr(), version.Version)
	}

	for _, ch := range models.AllChannels {
		m.controllers[ch].Start(m.endpoint)
	}
	return nil
}

// Controller returns the controller of a channel
func (m *Monitor) Controller(ch models.Channel) (*StreamController, error) {
	c, ok := m.controllers[ch]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, ch)
	}
	return c, nil
}

// Command runs start, pause, resume or stop on one channel
func (m *Monitor) Command(ch models.Channel, action string) error {
	c, err := m.Controller(ch)
	if err != nil {
		return err
	}
	switch action {
	case "start":
		c.Start(m.endpoint)
	case "pause":
		c.Pause()
	case "resume":
		return c.Resume()
	case "stop":
		c.Stop()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	return nil
}

// Refresh fetches a snapshot over REST and reconciles it like a streamed one
func (m *Monitor) Refresh(ctx context.Context) error {
	snap, err := m.api.Connections(ctx)
	if err != nil {
		return err
	}
	at := m.now()
	return m.applyWait(ctx, func(s *monitorState) {
		m.applySnapshot(s, snap, at)
	})
}

// CloseConnection closes one connection on the core and refreshes the table
func (m *Monitor) CloseConnection(ctx context.Context, id string) error {
	if err := m.api.CloseConnection(ctx, id); err != nil {
		return err
	}
	return m.Refresh(ctx)
}

// CloseAllConnections closes every connection and refreshes the table
func (m *Monitor) CloseAllConnections(ctx context.Context) error {
	if err := m.api.CloseAllConnections(ctx); err != nil {
		return err
	}
	return m.Refresh(ctx)
}

// SelectProxy switches a selector group and refreshes the table. The cached
// proxy listing is dropped whether or not the core accepted the change.
func (m *Monitor) SelectProxy(ctx context.Context, group, name string) error {
	err := m.api.SelectProxy(ctx, group, name)
	m.proxies.Clear()
	if err != nil {
		return err
	}
	return m.Refresh(ctx)
}

// Proxies lists the core's proxies and selector groups, cached for ProxiesTTL
func (m *Monitor) Proxies(ctx context.Context) (models.ProxiesResponse, error) {
	return m.proxies.Get(func() (models.ProxiesResponse, error) {
		return m.api.Proxies(ctx)
	})
}

// Rules lists the core's routing rules, cached for RulesTTL
func (m *Monitor) Rules(ctx context.Context) (models.RulesResponse, error) {
	return m.rules.Get(func() (models.RulesResponse, error) {
		return m.api.Rules(ctx)
	})
}

// PurgeDead removes dead connections from the table
func (m *Monitor) PurgeDead(ctx context.Context) (int, error) {
	removed := 0
	err := m.applyWait(ctx, func(s *monitorState) {
		removed = s.reconciler.Purge()
		alive, tracked := s.reconciler.Counts()
		m.opts.Metrics.table(alive, tracked, removed > 0)
	})
	return removed, err
}

// View returns the latest fully applied view
func (m *Monitor) View() models.View {
	return *m.view.Load()
}

// Subscribe returns a channel signalled after every published view. The
// returned func unsubscribes.
func (m *Monitor) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	m.subsMu.Lock()
	m.subs[ch] = struct{}{}
	m.subsMu.Unlock()

	return ch, func() {
		m.subsMu.Lock()
		delete(m.subs, ch)
		m.subsMu.Unlock()
	}
}

// Close stops every channel and the update loop
func (m *Monitor) Close() {
	m.closeOnce.Do(func() {
		for _, ch := range models.AllChannels {
			m.controllers[ch].Stop()
		}
		close(m.done)
		<-m.stopped
	})
}

// HandleFrame decodes a frame and queues it for the update loop
func (m *Monitor) HandleFrame(ch models.Channel, data []byte) error {
	at := m.now()
	switch ch {
	case models.ChannelTraffic:
		var frame models.Traffic
		if err := json.Unmarshal(data, &frame); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		m.enqueue(func(s *monitorState) { s.traffic.Add(frame, at) })

	case models.ChannelMemory:
		var frame models.Memory
		if err := json.Unmarshal(data, &frame); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		m.enqueue(func(s *monitorState) { s.memory.Add(frame, at) })

	case models.ChannelConnections:
		var snap models.ConnectionsSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		m.enqueue(func(s *monitorState) { m.applySnapshot(s, snap, at) })

	case models.ChannelLogs:
		var record models.LogRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		record.Received = at
		m.enqueue(func(s *monitorState) { s.logs.Push(record) })

	default:
		return fmt.Errorf("%w: %q", ErrUnknownChannel, ch)
	}
	return nil
}

// HandleStatus queues a controller transition for the view
func (m *Monitor) HandleStatus(status models.StreamStatus) {
	m.enqueue(func(s *monitorState) { s.statuses[status.Channel] = status })
}

// ResetChannel queues the clearing of a channel's buffers
func (m *Monitor) ResetChannel(ch models.Channel) {
	m.enqueue(func(s *monitorState) {
		switch ch {
		case models.ChannelTraffic:
			s.traffic.Reset()
		case models.ChannelMemory:
			s.memory.Reset()
		case models.ChannelConnections:
			s.reconciler.Reset()
			m.opts.Metrics.table(0, 0, false)
		case models.ChannelLogs:
			s.logs.Reset()
		}
	})
}

func (m *Monitor) applySnapshot(s *monitorState, snap models.ConnectionsSnapshot, at time.Time) {
	changed := s.reconciler.Apply(snap, at)
	alive, tracked := s.reconciler.Counts()
	m.opts.Metrics.table(alive, tracked, changed)
}

func (m *Monitor) enqueue(fn func(*monitorState)) bool {
	select {
	case m.updates <- fn:
		return true
	case <-m.done:
		return false
	}
}

// applyWait queues fn and waits until the view containing it is published
func (m *Monitor) applyWait(ctx context.Context, fn func(*monitorState)) error {
	applied := make(chan struct{})
	ok := m.enqueue(func(s *monitorState) {
		fn(s)
		s.published = append(s.published, func() { close(applied) })
	})
	if !ok {
		return errors.New("monitor closed")
	}
	select {
	case <-applied:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return errors.New("monitor closed")
	}
}

// run is the single update loop. It applies every queued update that is
// already waiting, then publishes one view for the batch.
func (m *Monitor) run(state *monitorState) {
	defer close(m.stopped)

	for {
		select {
		case <-m.done:
			return
		case fn := <-m.updates:
			fn(state)
		drain:
			for {
				select {
				case fn := <-m.updates:
					fn(state)
				default:
					break drain
				}
			}
			m.publish(state)
			for _, cb := range state.published {
				cb()
			}
			state.published = nil
		}
	}
}

func (m *Monitor) publish(s *monitorState) {
	s.version++
	statuses := make(map[models.Channel]models.StreamStatus, len(s.statuses))
	for ch, st := range s.statuses {
		statuses[ch] = st
	}
	upload, download := s.reconciler.Totals()

	view := &models.View{
		Endpoint:      m.endpoint.Addr(),
		Statuses:      statuses,
		Connections:   s.reconciler.Ordered(),
		UploadTotal:   upload,
		DownloadTotal: download,
		Traffic:       s.traffic.Samples(),
		Memory:        s.memory.Samples(),
		Logs:          s.logs.Values(),
		Version:       s.version,
		UpdatedAt:     m.now(),
	}
	m.view.Store(view)

	m.subsMu.Lock()
	for ch := range m.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	m.subsMu.Unlock()
}
