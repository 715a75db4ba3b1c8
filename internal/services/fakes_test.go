package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"corewatch/internal/models"
)

var errSessionClosed = errors.New("session closed")

// fakeSession is an in-memory Session fed by the test
type fakeSession struct {
	channel   models.Channel
	query     url.Values
	frames    chan []byte
	errs      chan error
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeSession(ch models.Channel, query url.Values) *fakeSession {
	return &fakeSession{
		channel: ch,
		query:   query,
		frames:  make(chan []byte, 16),
		errs:    make(chan error, 1),
		closed:  make(chan struct{}),
	}
}

func (s *fakeSession) Receive() ([]byte, error) {
	select {
	case f := <-s.frames:
		return f, nil
	case err := <-s.errs:
		return nil, err
	case <-s.closed:
		return nil, errSessionClosed
	}
}

func (s *fakeSession) Send([]byte) error { return nil }

func (s *fakeSession) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeSession) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// fakeTransport hands out fakeSessions. openErr, when set, decides the
// outcome of the n-th Open (1-based).
type fakeTransport struct {
	mu       sync.Mutex
	opens    int
	openErr  func(n int) error
	sessions chan *fakeSession
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{sessions: make(chan *fakeSession, 64)}
}

func (t *fakeTransport) Open(ctx context.Context, _ models.ServerEndpoint, ch models.Channel, query url.Values) (Session, error) {
	t.mu.Lock()
	t.opens++
	n := t.opens
	openErr := t.openErr
	t.mu.Unlock()

	if openErr != nil {
		if err := openErr(n); err != nil {
			return nil, err
		}
	}
	s := newFakeSession(ch, query)
	context.AfterFunc(ctx, func() { s.Close() })
	t.sessions <- s
	return s, nil
}

func (t *fakeTransport) setOpenErr(fn func(n int) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.openErr = fn
}

func (t *fakeTransport) openCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.opens
}

// next waits for the next opened session
func (t *fakeTransport) next(timeout time.Duration) (*fakeSession, error) {
	select {
	case s := <-t.sessions:
		return s, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("no session opened within %s", timeout)
	}
}

// recordingSink is a FrameSink that remembers everything it was given
type recordingSink struct {
	mu       sync.Mutex
	frames   [][]byte
	statuses []models.StreamStatus
	resets   int
}

func (s *recordingSink) HandleFrame(_ models.Channel, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if string(data) == "bad" {
		return fmt.Errorf("%w: unexpected token", ErrDecode)
	}
	s.frames = append(s.frames, data)
	return nil
}

func (s *recordingSink) HandleStatus(status models.StreamStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
}

func (s *recordingSink) ResetChannel(models.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
}

func (s *recordingSink) frameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *recordingSink) resetCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}

// fakeAPI is an in-memory ControlAPI
type fakeAPI struct {
	mu         sync.Mutex
	versionErr error
	snapshot   models.ConnectionsSnapshot
	closed     []string
	selected   map[string]string
	proxyCalls int
}

func (a *fakeAPI) Version(context.Context) (models.Version, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.versionErr != nil {
		return models.Version{}, a.versionErr
	}
	return models.Version{Version: "v1.18.0", Meta: true}, nil
}

func (a *fakeAPI) Connections(context.Context) (models.ConnectionsSnapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot, nil
}

func (a *fakeAPI) setSnapshot(snap models.ConnectionsSnapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snapshot = snap
}

func (a *fakeAPI) CloseConnection(_ context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = append(a.closed, id)
	kept := a.snapshot.Connections[:0:0]
	for _, c := range a.snapshot.Connections {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	a.snapshot.Connections = kept
	return nil
}

func (a *fakeAPI) CloseAllConnections(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range a.snapshot.Connections {
		a.closed = append(a.closed, c.ID)
	}
	a.snapshot.Connections = nil
	return nil
}

func (a *fakeAPI) Proxies(context.Context) (models.ProxiesResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.proxyCalls++
	return models.ProxiesResponse{}, nil
}

func (a *fakeAPI) SelectProxy(_ context.Context, group, name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.selected == nil {
		a.selected = make(map[string]string)
	}
	a.selected[group] = name
	return nil
}

func (a *fakeAPI) Rules(context.Context) (models.RulesResponse, error) {
	return models.RulesResponse{}, nil
}

func conn(id string, up, down int64, start time.Time) models.ConnectionSnapshot {
	return models.ConnectionSnapshot{
		ID:       id,
		Upload:   up,
		Download: down,
		Start:    start,
		Chains:   []string{"DIRECT"},
		Rule:     "Match",
		Metadata: models.ConnectionMetadata{Network: "tcp", Host: id + ".example.com", Process: "curl"},
	}
}
