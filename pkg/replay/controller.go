package replay

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"f1replaybot/log"
	"f1replaybot/pkg/layout"
	"f1replaybot/pkg/playback"
	"f1replaybot/pkg/render"
	"f1replaybot/pkg/telemetry"
)

var (
	ErrTornDown   = errors.New("replay controller torn down")
	ErrSuperseded = errors.New("lookup superseded by a newer request")
	ErrNoPayload  = errors.New("backend returned no telemetry")
)

// Fetcher loads the telemetry payload for a lookup key.
type Fetcher interface {
	Fetch(ctx context.Context, key telemetry.LookupKey) (*telemetry.Payload, error)
}

type FetcherFunc func(ctx context.Context, key telemetry.LookupKey) (*telemetry.Payload, error)

func (f FetcherFunc) Fetch(ctx context.Context, key telemetry.LookupKey) (*telemetry.Payload, error) {
	return f(ctx, key)
}

// FrameInfo describes a drawn frame.
type FrameInfo struct {
	Seq      int64
	Progress float64
	Markers  int
	At       time.Time
}

type Stats struct {
	ChainsStarted   int
	ChainsCancelled int
	Frames          int64
}

type (
	Controller struct {
		fetcher  Fetcher
		surface  render.Surface
		renderer *render.Renderer

		interval  time.Duration
		loop      time.Duration
		padding   float64
		newTicker TickerFactory
		onState   func(Event)
		onFrame   func(FrameInfo)
		l         *log.Logger

		mu          sync.Mutex
		state       State
		key         telemetry.LookupKey
		err         error
		scene       *render.Scene
		anim        *Animation
		fetchCancel context.CancelFunc
		gen         uint64
		started     int
		cancelled   int
		frames      atomic.Int64
	}
	Option func(*Controller)
)

// New mounts a controller on surface. The surface is drawn on only by the
// controller's animation.
func New(fetcher Fetcher, surface render.Surface, opts ...Option) *Controller {
	c := &Controller{
		fetcher:   fetcher,
		surface:   surface,
		renderer:  render.NewRenderer(render.DefaultStyle()),
		interval:  time.Second / 60,
		loop:      playback.DefaultLoop,
		padding:   layout.DefaultPadding,
		newTicker: NewTimeTicker,
		l:         log.Default().Named("replay"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithFrameInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

func WithLoop(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.loop = d
		}
	}
}

func WithPadding(p float64) Option {
	return func(c *Controller) {
		c.padding = p
	}
}

func WithStyle(style render.Style) Option {
	return func(c *Controller) {
		c.renderer = render.NewRenderer(style)
	}
}

func WithTickerFactory(f TickerFactory) Option {
	return func(c *Controller) {
		c.newTicker = f
	}
}

// WithStateHook registers a callback for state transitions. It is called
// with the controller lock held and must not call back into the controller.
func WithStateHook(f func(Event)) Option {
	return func(c *Controller) {
		c.onState = f
	}
}

// WithFrameHook registers a callback run after every drawn frame, on the
// animation goroutine. It must not call back into the controller.
func WithFrameHook(f func(FrameInfo)) Option {
	return func(c *Controller) {
		c.onFrame = f
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		c.l = l
	}
}

// Load requests the payload for key and starts animating it. Any previous
// animation and any fetch in flight are cancelled first. Loading the key that
// is already loading or playing is a no-op.
func (c *Controller) Load(ctx context.Context, key telemetry.LookupKey) error {
	c.mu.Lock()
	if c.state == TornDown {
		c.mu.Unlock()
		return ErrTornDown
	}
	if c.key == key && (c.state == Loading || c.state == Animating) {
		c.mu.Unlock()
		return nil
	}
	c.stopLocked()
	c.gen++
	gen := c.gen
	fetchCtx, cancel := context.WithCancel(ctx)
	c.fetchCancel = cancel
	c.key = key
	c.err = nil
	c.setStateLocked(Loading)
	c.mu.Unlock()

	c.l.Debug("fetching telemetry", log.String("key", key.String()))
	payload, err := c.fetcher.Fetch(fetchCtx, key)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.state == TornDown:
		return ErrTornDown
	case gen != c.gen:
		return ErrSuperseded
	}
	c.fetchCancel = nil
	if err == nil && payload == nil {
		err = ErrNoPayload
	}
	if err != nil {
		c.l.Warn("could not load telemetry", log.String("key", key.String()), log.ErrorField(err))
		c.err = err
		c.setStateLocked(Idle)
		return err
	}
	c.startLocked(payload)
	return nil
}

// Play starts animating a payload that is already at hand.
func (c *Controller) Play(key telemetry.LookupKey, payload *telemetry.Payload) error {
	if payload == nil {
		return ErrNoPayload
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == TornDown {
		return ErrTornDown
	}
	c.stopLocked()
	c.gen++
	c.key = key
	c.err = nil
	c.setStateLocked(Loading)
	c.startLocked(payload)
	return nil
}

// Teardown unmounts the controller. It returns after the tick goroutine has
// exited; no draw happens afterwards. Calling it again is a no-op.
func (c *Controller) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == TornDown {
		return
	}
	c.gen++
	c.stopLocked()
	c.scene = nil
	c.setStateLocked(TornDown)
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Key() telemetry.LookupKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key
}

// Err returns the error of the last failed load.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Controller) Scene() *render.Scene {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scene
}

func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		ChainsStarted:   c.started,
		ChainsCancelled: c.cancelled,
		Frames:          c.frames.Load(),
	}
}

func (c *Controller) startLocked(payload *telemetry.Payload) {
	width, height := c.surface.Size()
	scene := render.NewScene(payload, width, height, c.padding)
	c.scene = scene
	c.setStateLocked(Ready)

	clock := playback.NewClock(c.loop)
	renderer := c.renderer
	surface := c.surface
	onFrame := c.onFrame
	c.anim = startAnimation(c.newTicker(c.interval), func(now time.Time) {
		progress := clock.Tick(now)
		n := renderer.DrawFrame(surface, scene, progress)
		seq := c.frames.Add(1)
		if onFrame != nil {
			onFrame(FrameInfo{Seq: seq, Progress: progress, Markers: n, At: now})
		}
	})
	c.started++
	c.l.Debug("animation started",
		log.String("key", c.key.String()),
		log.String("payload", payload.String()),
		log.Float64("scale", scene.Transform.Scale))
	c.setStateLocked(Animating)
}

// stopLocked cancels the fetch in flight and the running animation.
func (c *Controller) stopLocked() {
	if c.fetchCancel != nil {
		c.fetchCancel()
		c.fetchCancel = nil
	}
	if c.anim != nil {
		if c.anim.Cancel() {
			c.cancelled++
		}
		c.anim = nil
	}
}

func (c *Controller) setStateLocked(s State) {
	c.state = s
	if c.onState != nil {
		c.onState(Event{Key: c.key, State: s, Err: c.err})
	}
}
