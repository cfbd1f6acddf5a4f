package messaging

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/mkim/mystory/internal/domain/player"
	"github.com/mkim/mystory/internal/domain/scrollsync"
	"github.com/mkim/mystory/internal/infrastructure/observability/logging"
)

// ErrSessionClosed is returned by the audio sink once its session has closed.
var ErrSessionClosed = errors.New("session closed")

const sendBuffer = 64

// Session is one connected page. It owns a resolver and a music player and
// turns their side effects into outbound frames.
type Session struct {
	id       string
	song     string
	resolver *scrollsync.Resolver
	player   *player.Player
	logger   *logging.ChanneledLogger
	now      func() time.Time

	send chan []byte
	done chan struct{}
	once sync.Once

	mu           sync.Mutex
	created      time.Time
	lastActivity time.Time
	received     int
	dropped      int
}

// SessionOptions configures NewSession.
type SessionOptions struct {
	Config    scrollsync.Config
	Song      string
	Scheduler scrollsync.Scheduler
	Clock     func() time.Time
}

// NewSession builds a session over tree. The caller must Close it.
func NewSession(id string, tree *scrollsync.Tree, opts SessionOptions, logger *logging.ChanneledLogger) *Session {
	now := time.Now
	if opts.Clock != nil {
		now = opts.Clock
	}
	s := &Session{
		id:           id,
		song:         opts.Song,
		logger:       logger,
		now:          now,
		send:         make(chan []byte, sendBuffer),
		done:         make(chan struct{}),
		created:      now(),
		lastActivity: now(),
	}

	resolverOpts := []scrollsync.Option{
		scrollsync.WithObserver(sessionObserver{s}),
		scrollsync.WithLogger(logger.Session().With("sessionId", id)),
	}
	if opts.Scheduler != nil {
		resolverOpts = append(resolverOpts, scrollsync.WithScheduler(opts.Scheduler))
	}
	s.resolver = scrollsync.New(tree, opts.Config, sessionScroller{s}, resolverOpts...)
	s.resolver.Subscribe(func(st scrollsync.State) {
		s.enqueue(OutboundFrame{Type: FrameState, State: &st})
	})
	s.player = player.New(sessionAudio{s}, player.WithClock(now))

	st := s.resolver.Snapshot()
	s.enqueue(OutboundFrame{Type: FrameHello, SessionID: id, State: &st})
	return s
}

func (s *Session) ID() string { return s.id }

// Send is the queue of encoded outbound frames.
func (s *Session) Send() <-chan []byte { return s.send }

// Done is closed when the session closes.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) Resolver() *scrollsync.Resolver { return s.resolver }

func (s *Session) Player() *player.Player { return s.player }

// Handle applies one inbound frame. Protocol and integration errors are
// reported to the client as error frames; the session stays open.
func (s *Session) Handle(data []byte) {
	s.mu.Lock()
	s.received++
	s.lastActivity = s.now()
	s.mu.Unlock()

	cmd, err := DecodeFrame(data)
	if err != nil {
		s.replyError(err)
		return
	}

	switch cmd.Type {
	case FrameMusicToggle:
		if _, err := s.player.Toggle(); err != nil {
			s.replyError(err)
		}
	case FrameMusicStatus:
		st := s.player.Status()
		s.enqueue(OutboundFrame{Type: FrameAudio, Audio: &AudioPayload{Status: st, Src: s.song}})
	default:
		if err := s.resolver.Dispatch(cmd.Message); err != nil {
			s.replyError(err)
		}
	}
}

func (s *Session) replyError(err error) {
	s.logger.Session().Debug("Frame rejected", "sessionId", s.id, "error", err.Error())
	s.enqueue(OutboundFrame{Type: FrameError, Error: err.Error()})
}

// enqueue never blocks: it runs under the resolver and player locks. Frames
// for a slow client are dropped.
func (s *Session) enqueue(f OutboundFrame) {
	select {
	case <-s.done:
		return
	default:
	}
	data, err := json.Marshal(f)
	if err != nil {
		s.logger.Session().Error("Failed to encode frame", "sessionId", s.id, "type", f.Type, "error", err.Error())
		return
	}
	select {
	case s.send <- data:
	default:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
		s.logger.Session().Warn("Outbound frame dropped", "sessionId", s.id, "type", f.Type)
	}
}

// Close tears down the resolver and player. Safe to call more than once.
func (s *Session) Close() {
	s.once.Do(func() {
		s.resolver.Close()
		s.player.Dispose()
		close(s.done)
	})
}

// SessionInfo is the admin view of a live session.
type SessionInfo struct {
	ID           string          `json:"id"`
	Created      time.Time       `json:"created"`
	LastActivity time.Time       `json:"lastActivity"`
	ActiveItemID string          `json:"activeItemId"`
	Mode         scrollsync.Mode `json:"mode"`
	Playing      bool            `json:"playing"`
	Received     int             `json:"framesReceived"`
	Dropped      int             `json:"framesDropped"`
}

func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	info := SessionInfo{
		ID:           s.id,
		Created:      s.created,
		LastActivity: s.lastActivity,
		Received:     s.received,
		Dropped:      s.dropped,
	}
	s.mu.Unlock()
	info.ActiveItemID = s.resolver.ActiveItemID()
	info.Mode = s.resolver.Mode()
	info.Playing = s.player.IsPlaying()
	return info
}

type sessionScroller struct{ s *Session }

func (c sessionScroller) ScrollTo(offset float64, smooth bool) {
	c.s.enqueue(OutboundFrame{Type: FrameScrollTo, Offset: &offset, Smooth: smooth})
}

type sessionObserver struct{ s *Session }

func (o sessionObserver) Observe(itemID string, _ scrollsync.Element) {
	cfg := o.s.resolver.Config()
	o.s.enqueue(OutboundFrame{
		Type:       FrameObserve,
		ItemID:     itemID,
		RootMargin: cfg.RootMargin,
		Thresholds: cfg.Thresholds,
	})
}

func (o sessionObserver) Unobserve(itemID string) {
	o.s.enqueue(OutboundFrame{Type: FrameUnobserve, ItemID: itemID})
}

type sessionAudio struct{ s *Session }

func (a sessionAudio) Play() error {
	select {
	case <-a.s.done:
		return ErrSessionClosed
	default:
	}
	a.s.enqueue(OutboundFrame{Type: FrameAudio, Audio: &AudioPayload{Status: player.Status{Playing: true}, Src: a.s.song}})
	return nil
}

func (a sessionAudio) Pause() {
	a.s.enqueue(OutboundFrame{Type: FrameAudio, Audio: &AudioPayload{Status: player.Status{Playing: false}}})
}
