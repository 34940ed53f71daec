package livemap

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"f1replaybot/log"
	"f1replaybot/pkg/client"
	"f1replaybot/pkg/layout"
	"f1replaybot/pkg/playback"
	"f1replaybot/pkg/pubsub"
	"f1replaybot/pkg/render"
	"f1replaybot/pkg/replay"
	"f1replaybot/pkg/telemetry"
)

var upgrader = websocket.Upgrader{} // use default options

// writeWait bounds a single frame write to a slow page.
const writeWait = 10 * time.Second

// Message is what the page receives over the websocket.
type Message struct {
	Type  string        `json:"type"`
	Frame *render.Frame `json:"frame,omitempty"`
	Error string        `json:"error,omitempty"`
}

type (
	LiveMap struct {
		fetcher  replay.Fetcher
		width    int
		height   int
		padding  float64
		interval time.Duration
		loop     time.Duration
		events   *pubsub.PubSub[replay.Event]
		tickers  replay.TickerFactory
		l        *log.Logger
	}
	Option func(*LiveMap)
)

// NewLiveMap registers the replay pages on r. Every websocket connection
// mounts its own replay controller.
func NewLiveMap(r *mux.Router, fetcher replay.Fetcher, opts ...Option) *LiveMap {
	lm := &LiveMap{
		fetcher:  fetcher,
		width:    layout.DefaultWidth,
		height:   layout.DefaultHeight,
		padding:  layout.DefaultPadding,
		interval: 50 * time.Millisecond,
		loop:     playback.DefaultLoop,
		tickers:  replay.NewTimeTicker,
		l:        log.Default().Named("livemap"),
	}
	for _, opt := range opts {
		opt(lm)
	}
	lm.addHandlers(r)
	return lm
}

func WithViewport(width, height int, padding float64) Option {
	return func(lm *LiveMap) {
		if width > 0 && height > 0 {
			lm.width, lm.height = width, height
		}
		lm.padding = padding
	}
}

func WithFrameInterval(d time.Duration) Option {
	return func(lm *LiveMap) {
		if d > 0 {
			lm.interval = d
		}
	}
}

func WithLoop(d time.Duration) Option {
	return func(lm *LiveMap) {
		if d > 0 {
			lm.loop = d
		}
	}
}

// WithEvents publishes the state changes of every mounted replay.
func WithEvents(ps *pubsub.PubSub[replay.Event]) Option {
	return func(lm *LiveMap) {
		lm.events = ps
	}
}

func WithTickerFactory(f replay.TickerFactory) Option {
	return func(lm *LiveMap) {
		lm.tickers = f
	}
}

func WithLogger(l *log.Logger) Option {
	return func(lm *LiveMap) {
		lm.l = l
	}
}

const keyPath = "/replay/{year:[0-9]{4}}/{location}/{session}"

func (lm *LiveMap) addHandlers(r *mux.Router) {
	r.HandleFunc(keyPath, lm.pageHandler).Methods(http.MethodGet)
	r.HandleFunc(keyPath+"/ws", lm.websocketHandler)
	r.HandleFunc(keyPath+"/frame.png", lm.frameHandler).Methods(http.MethodGet)
	r.HandleFunc(keyPath+"/track.svg", lm.trackHandler).Methods(http.MethodGet)
}

func keyFromRequest(r *http.Request) (telemetry.LookupKey, error) {
	vars := mux.Vars(r)
	return telemetry.ParseKey(vars["year"], vars["location"], vars["session"], r.URL.Query().Get("driver"))
}

type pageData struct {
	Title        string
	WebSocketURL string
	TrackURL     string
	Width        int
	Height       int
}

func (lm *LiveMap) pageHandler(w http.ResponseWriter, r *http.Request) {
	key, err := keyFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	query := ""
	if key.Driver != "" {
		query = "?driver=" + key.Driver
	}
	data := pageData{
		Title:        key.String(),
		WebSocketURL: r.URL.Path + "/ws" + query,
		TrackURL:     r.URL.Path + "/track.svg" + query,
		Width:        lm.width,
		Height:       lm.height,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := homeTemplate.Execute(w, data); err != nil {
		lm.l.Warn("rendering page", log.ErrorField(err))
	}
}

func (lm *LiveMap) websocketHandler(w http.ResponseWriter, r *http.Request) {
	key, err := keyFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		lm.l.Warn("upgrade", log.ErrorField(err))
		return
	}
	defer c.Close()
	// the server's read timeout must not end the stream
	_ = c.SetReadDeadline(time.Time{})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	// the page never sends anything; a read error means it went away
	go func() {
		defer cancel()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	frames := make(chan render.Frame, 1)
	ctrl := lm.mount(latestFrame(frames))
	defer ctrl.Teardown()

	loaded := make(chan error, 1)
	go func() { loaded <- ctrl.Load(ctx, key) }()

	l := lm.l.With(log.String("key", key.String()))
	l.Debug("websocket opened")
	for {
		select {
		case <-ctx.Done():
			l.Debug("websocket closed")
			return
		case err := <-loaded:
			loaded = nil
			if err != nil {
				l.Info("replay failed", log.ErrorField(err))
				_ = c.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.WriteJSON(Message{Type: "error", Error: userMessage(err)})
				_ = c.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
		case f := <-frames:
			_ = c.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WriteJSON(Message{Type: "frame", Frame: &f}); err != nil {
				l.Debug("write", log.ErrorField(err))
				return
			}
		}
	}
}

// latestFrame returns a sender that replaces a frame the socket has not taken
// yet, so a slow page always gets the newest one. The returned func must be
// the only sender on frames.
func latestFrame(frames chan render.Frame) func(render.Frame) {
	return func(f render.Frame) {
		select {
		case <-frames:
		default:
		}
		frames <- f
	}
}

// mount creates a controller drawing on a recorder and forwarding every
// drawn frame to send.
func (lm *LiveMap) mount(send func(render.Frame)) *replay.Controller {
	rec := render.NewRecorder(float64(lm.width), float64(lm.height))
	opts := []replay.Option{
		replay.WithFrameInterval(lm.interval),
		replay.WithLoop(lm.loop),
		replay.WithPadding(lm.padding),
		replay.WithTickerFactory(lm.tickers),
		replay.WithLogger(lm.l.Named("replay")),
		replay.WithFrameHook(func(replay.FrameInfo) { send(rec.Frame()) }),
	}
	if lm.events != nil {
		opts = append(opts, replay.WithStateHook(func(e replay.Event) {
			lm.events.Publish(replay.TopicEvents, e)
		}))
	}
	return replay.New(lm.fetcher, rec, opts...)
}

func (lm *LiveMap) frameHandler(w http.ResponseWriter, r *http.Request) {
	key, err := keyFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	progress := 0.0
	if p := r.URL.Query().Get("progress"); p != "" {
		progress, err = strconv.ParseFloat(p, 64)
		if err != nil {
			http.Error(w, "invalid progress", http.StatusBadRequest)
			return
		}
	}
	scene, err := lm.scene(r.Context(), key)
	if err != nil {
		lm.fetchFailed(w, err)
		return
	}
	canvas := render.NewCanvas(lm.width, lm.height)
	render.NewRenderer(render.DefaultStyle()).DrawFrame(canvas, scene, progress)
	w.Header().Set("Content-Type", "image/png")
	if err := canvas.EncodePNG(w); err != nil {
		lm.l.Warn("encoding frame", log.ErrorField(err))
	}
}

func (lm *LiveMap) trackHandler(w http.ResponseWriter, r *http.Request) {
	key, err := keyFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	scene, err := lm.scene(r.Context(), key)
	if err != nil {
		lm.fetchFailed(w, err)
		return
	}
	style := render.DefaultStyle()
	w.Header().Set("Content-Type", "image/svg+xml")
	err = layout.WriteSVG(w, scene.Track, scene.Width, scene.Height, layout.SvgStyle{
		Background: style.Background,
		TrackColor: style.Track,
		TrackWidth: style.TrackWidth,
	})
	if err != nil {
		lm.l.Warn("encoding track", log.ErrorField(err))
	}
}

func (lm *LiveMap) scene(ctx context.Context, key telemetry.LookupKey) (*render.Scene, error) {
	p, err := lm.fetcher.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, replay.ErrNoPayload
	}
	return render.NewScene(p, float64(lm.width), float64(lm.height), lm.padding), nil
}

func (lm *LiveMap) fetchFailed(w http.ResponseWriter, err error) {
	lm.l.Info("fetch failed", log.ErrorField(err))
	code := http.StatusBadGateway
	if client.NotFound(err) {
		code = http.StatusNotFound
	}
	http.Error(w, userMessage(err), code)
}

func userMessage(err error) string {
	var se *client.StatusError
	switch {
	case errors.As(err, &se) && se.Detail != "":
		return "Could not load telemetry: " + se.Detail
	case errors.Is(err, context.DeadlineExceeded):
		return "Could not load telemetry: the backend timed out"
	default:
		return "Could not load telemetry: " + err.Error()
	}
}
