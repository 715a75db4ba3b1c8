package services

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"corewatch/internal/models"

	"github.com/google/uuid"
)

// StreamPolicy holds the tunable retry parameters of a channel
type StreamPolicy struct {
	Threshold  ThresholdPolicy
	RetryDelay time.Duration
}

// DefaultStreamPolicy retries after 2 seconds and gives up after 3 failures
// within 5 seconds.
func DefaultStreamPolicy() StreamPolicy {
	return StreamPolicy{
		Threshold:  DefaultThresholdPolicy(),
		RetryDelay: 2 * time.Second,
	}
}

// FrameSink receives what a controller produces. The controller calls it
// while holding its own lock, so implementations must not call back into the
// controller and should only decode and enqueue.
type FrameSink interface {
	HandleFrame(channel models.Channel, data []byte) error
	HandleStatus(status models.StreamStatus)
	ResetChannel(channel models.Channel)
}

// StreamController runs the lifecycle of one channel's stream:
// Disconnected -> Connecting -> Connected -> {Error, Paused} -> Connecting.
// It owns its session exclusively; at most one session is live at a time.
type StreamController struct {
	channel   models.Channel
	transport Transport
	sink      FrameSink
	policy    StreamPolicy
	query     url.Values
	metrics   *StreamMetrics
	now       func() time.Time

	mu         sync.Mutex
	state      models.StreamState
	message    string
	since      time.Time
	endpoint   *models.ServerEndpoint
	window     ErrorWindow
	retryCount int
	generation uint64
	sessionID  string
	cancel     context.CancelFunc
	done       chan struct{}
	retry      *time.Timer
}

// NewStreamController creates a controller in the Disconnected state
func NewStreamController(channel models.Channel, transport Transport, sink FrameSink, policy StreamPolicy, query url.Values, metrics *StreamMetrics) *StreamController {
	c := &StreamController{
		channel:   channel,
		transport: transport,
		sink:      sink,
		policy:    policy,
		query:     query,
		metrics:   metrics,
		now:       time.Now,
		state:     models.StateDisconnected,
	}
	c.since = c.now()
	return c
}

// Channel returns the channel this controller drives
func (c *StreamController) Channel() models.Channel {
	return c.channel
}

// Status returns the current status
func (c *StreamController) Status() models.StreamStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// Start opens a session for endpoint. It is a no-op while Connecting or
// Connected. Starting from Error clears the failure window.
func (c *StreamController) Start(endpoint models.ServerEndpoint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == models.StateConnecting || c.state == models.StateConnected {
		return
	}
	c.endpoint = &endpoint
	c.window = ErrorWindow{}
	c.retryCount = 0
	c.stopRetryLocked()
	c.connectLocked()
}

// Pause cancels the session and any pending retry. Accumulated telemetry is
// kept.
func (c *StreamController) Pause() {
	c.mu.Lock()
	done := c.haltLocked()
	c.setStateLocked(models.StatePaused, "")
	c.mu.Unlock()

	wait(done)
}

// Resume reconnects unless the stream is already connecting or connected.
// A stream in Error stays there until Start is called.
func (c *StreamController) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case models.StateConnecting, models.StateConnected, models.StateError:
		return nil
	}
	if c.endpoint == nil {
		return ErrNotStarted
	}
	c.window = ErrorWindow{}
	c.stopRetryLocked()
	c.connectLocked()
	return nil
}

// Stop cancels the session and pending retries, returns to Disconnected and
// clears the channel's buffers.
func (c *StreamController) Stop() {
	c.mu.Lock()
	done := c.haltLocked()
	c.window = ErrorWindow{}
	c.retryCount = 0
	c.setStateLocked(models.StateDisconnected, "")
	c.sink.ResetChannel(c.channel)
	c.mu.Unlock()

	wait(done)
}

// Fail forces the controller into Error for a failure detected outside the
// stream, such as a rejected reachability probe.
func (c *StreamController) Fail(err error) {
	c.mu.Lock()
	done := c.haltLocked()
	serr := classifyError(c.channel, KindOpen, err)
	c.window = c.policy.Threshold.Trip(c.window, c.now())
	c.metrics.failure(c.channel, serr.Kind)
	c.setStateLocked(models.StateError, serr.Error())
	c.mu.Unlock()

	wait(done)
}

// connectLocked starts a fresh attempt. Caller must hold c.mu.
func (c *StreamController) connectLocked() {
	c.generation++
	gen := c.generation
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.sessionID = uuid.NewString()
	endpoint := *c.endpoint

	c.setStateLocked(models.StateConnecting, "")
	go c.run(ctx, gen, endpoint, c.done)
}

// haltLocked invalidates the current attempt, cancels its session and any
// pending retry, and returns a channel closed once the attempt has exited.
// Caller must hold c.mu.
func (c *StreamController) haltLocked() chan struct{} {
	c.generation++
	c.stopRetryLocked()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	done := c.done
	c.done = nil
	return done
}

func (c *StreamController) stopRetryLocked() {
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
}

func wait(done chan struct{}) {
	if done != nil {
		<-done
	}
}

// run is the receive loop of one attempt. It exits when the session fails or
// the attempt is superseded.
func (c *StreamController) run(ctx context.Context, gen uint64, endpoint models.ServerEndpoint, done chan struct{}) {
	defer close(done)

	session, err := c.transport.Open(ctx, endpoint, c.channel, c.query)
	if err != nil {
		c.fail(ctx, gen, classifyError(c.channel, KindOpen, err))
		return
	}
	defer session.Close()

	for {
		data, err := session.Receive()
		if err != nil {
			// the socket is gone before a retry can open the next one
			session.Close()
			c.fail(ctx, gen, classifyError(c.channel, KindReceive, err))
			return
		}
		if !c.deliver(gen, data) {
			return
		}
	}
}

// deliver hands one frame to the sink if gen is still current
func (c *StreamController) deliver(gen uint64, data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return false
	}
	c.window = ErrorWindow{}
	if c.state != models.StateConnected {
		c.retryCount = 0
		c.setStateLocked(models.StateConnected, "")
		log.Printf("[STREAM] %s connected (session %s)", c.channel, c.sessionID)
	}
	c.metrics.frame(c.channel)

	if err := c.sink.HandleFrame(c.channel, data); err != nil {
		serr := classifyError(c.channel, KindDecode, err)
		c.metrics.failure(c.channel, serr.Kind)
		c.setStateLocked(models.StateConnected, serr.Error())
		return true
	}
	if c.message != "" {
		c.setStateLocked(models.StateConnected, "")
	}
	return true
}

// fail applies the retry policy to a failed attempt
func (c *StreamController) fail(ctx context.Context, gen uint64, serr *StreamError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || ctx.Err() != nil || serr.Kind == KindCancelled {
		// superseded by Pause, Stop or a new Start
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.metrics.failure(c.channel, serr.Kind)

	var tripped bool
	if serr.Retryable() {
		c.window, tripped = c.policy.Threshold.Record(c.window, c.now())
	} else {
		c.window = c.policy.Threshold.Trip(c.window, c.now())
		tripped = true
	}

	if tripped {
		c.generation++
		log.Printf("[STREAM] %s giving up after %d failures: %v", c.channel, c.window.Count, serr)
		c.setStateLocked(models.StateError, serr.Error())
		return
	}

	c.retryCount++
	delay := c.policy.RetryDelay
	log.Printf("[STREAM] %s failed, retry %d in %s: %v", c.channel, c.retryCount, delay, serr)
	c.retry = time.AfterFunc(delay, func() { c.fireRetry(gen) })
	c.setStateLocked(models.StateDisconnected, fmt.Sprintf("%v; retrying in %s", serr, delay))
}

func (c *StreamController) fireRetry(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || c.retry == nil {
		return
	}
	c.retry = nil
	c.metrics.reconnect(c.channel)
	c.connectLocked()
}

// setStateLocked records a transition and publishes it. Caller must hold c.mu.
func (c *StreamController) setStateLocked(state models.StreamState, message string) {
	if c.state != state {
		c.since = c.now()
	}
	c.state = state
	c.message = message
	c.metrics.state(c.channel, state)
	c.sink.HandleStatus(c.statusLocked())
}

func (c *StreamController) statusLocked() models.StreamStatus {
	return models.StreamStatus{
		Channel:      c.channel,
		State:        c.state,
		Message:      c.message,
		SessionID:    c.sessionID,
		RetryCount:   c.retryCount,
		RetryPending: c.retry != nil,
		Since:        c.since,
	}
}
