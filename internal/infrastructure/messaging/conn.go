package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
)

const maxFrameSize = 16 * 1024

// ConnOptions bounds socket IO.
type ConnOptions struct {
	WriteTimeout time.Duration
	PingInterval time.Duration
}

// Serve pumps frames between conn and s until either side stops. It does not
// close s; the caller owns the session.
func Serve(ctx context.Context, conn *websocket.Conn, s *Session, opts ConnOptions) error {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	pongWait := opts.PingInterval * 2

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	errCh := make(chan error, 2)
	go func() { errCh <- readPump(ctx, conn, s, pongWait) }()
	go func() { errCh <- writePump(ctx, conn, s, opts) }()

	err := <-errCh
	cancel()
	// Unblock the reader if the writer stopped first.
	_ = conn.SetReadDeadline(time.Now())
	<-errCh

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func readPump(ctx context.Context, conn *websocket.Conn, s *Session, pongWait time.Duration) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if mt != websocket.TextMessage || len(data) == 0 {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		s.Handle(data)
	}
}

func writePump(ctx context.Context, conn *websocket.Conn, s *Session, opts ConnOptions) error {
	ticker := time.NewTicker(opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(opts.WriteTimeout))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
			return context.Canceled
		case data := <-s.Send():
			_ = conn.SetWriteDeadline(time.Now().Add(opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return err
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}
