package deapi

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"inkalbum/internal/logger"

	"github.com/gorilla/websocket"
)

// Pusher-protocol event names used by the deAPI realtime channel.
const (
	eventConnectionEstablished = "pusher:connection_established"
	eventSubscribe             = "pusher:subscribe"
	eventStatusUpdated         = "request.status.updated"
)

// ChannelAuthorizer performs the private-channel credential exchange.
// *Client satisfies it; tests substitute their own.
type ChannelAuthorizer interface {
	AuthenticateChannel(ctx context.Context, socketID, channelName string) (string, error)
}

// Listener resolves one submitted job over the realtime channel. Each call
// to Await opens its own connection; nothing is shared across jobs.
//
// The connection is owned by the internal read loop. The waiting caller only
// ever requests closure, which the read loop distinguishes from a close
// forced by the peer or the network.
type Listener struct {
	socketURL string
	clientID  string
	auth      ChannelAuthorizer
	dialer    *websocket.Dialer
	log       *logger.Logger
}

func NewListener(socketURL, clientID string, auth ChannelAuthorizer) *Listener {
	return &Listener{
		socketURL: socketURL,
		clientID:  clientID,
		auth:      auth,
		dialer:    websocket.DefaultDialer,
		log:       logger.New("DeAPIListener"),
	}
}

// envelope is the outer pusher frame. Data is usually a JSON-encoded string
// wrapping the real payload.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func decodeData(raw json.RawMessage, v interface{}) error {
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		return json.Unmarshal([]byte(s), v)
	}
	return json.Unmarshal(raw, v)
}

type listenOutcome struct {
	res JobResult
	err error
}

// Await connects, authenticates the private channel, and blocks until a
// terminal status event for requestID arrives, the deadline passes, or ctx
// is cancelled. Failures to establish or keep the channel surface as
// ErrRealtimeUnavailable so the caller can fall back to polling; they are
// never a job outcome.
func (l *Listener) Await(ctx context.Context, requestID string, deadline time.Time) (JobResult, error) {
	conn, _, err := l.dialer.DialContext(ctx, l.socketURL, nil)
	if err != nil {
		return JobResult{}, fmt.Errorf("%w: dial: %v", ErrRealtimeUnavailable, err)
	}

	// Buffered so the read loop can signal exactly once and exit without a
	// receiver; later signals are dropped.
	results := make(chan listenOutcome, 1)
	var ownerClosed atomic.Bool

	go l.readLoop(ctx, conn, requestID, results, &ownerClosed)

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	select {
	case out := <-results:
		ownerClosed.Store(true)
		conn.Close()
		return out.res, out.err
	case <-timer.C:
		ownerClosed.Store(true)
		conn.Close()
		l.log.LogWarnf("no terminal event for request %s before deadline", requestID)
		return JobResult{Outcome: OutcomeTimedOut}, nil
	case <-ctx.Done():
		ownerClosed.Store(true)
		conn.Close()
		return JobResult{}, ctx.Err()
	}
}

func (l *Listener) readLoop(ctx context.Context, conn *websocket.Conn, requestID string, results chan<- listenOutcome, ownerClosed *atomic.Bool) {
	signal := func(out listenOutcome) {
		select {
		case results <- out:
		default:
		}
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ownerClosed.Load() {
				// Close requested by the waiter; not a fault.
				return
			}
			signal(listenOutcome{err: fmt.Errorf("%w: read: %v", ErrRealtimeUnavailable, err)})
			return
		}

		var env envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			l.log.LogDebugf("unparseable frame ignored: %v", err)
			continue
		}

		switch env.Event {
		case eventConnectionEstablished:
			var hello struct {
				SocketID string `json:"socket_id"`
			}
			if err := decodeData(env.Data, &hello); err != nil || hello.SocketID == "" {
				l.log.LogDebugf("connection_established without socket_id")
				continue
			}
			if err := l.subscribe(ctx, conn, hello.SocketID); err != nil {
				signal(listenOutcome{err: fmt.Errorf("%w: %v", ErrRealtimeUnavailable, err)})
				return
			}

		case eventStatusUpdated:
			var p statusPayload
			if err := decodeData(env.Data, &p); err != nil {
				l.log.LogDebugf("bad status payload ignored: %v", err)
				continue
			}
			// The channel may carry other jobs' traffic; match strictly on
			// the awaited request id.
			if p.RequestID != requestID {
				continue
			}
			if prog := p.progress(); prog != "" {
				l.log.LogInfof("illustration %s%% complete", prog)
			}
			switch p.Status {
			case StatusDone:
				signal(listenOutcome{res: JobResult{Outcome: OutcomeDone, ResultURL: p.ResultURL}})
				return
			case StatusError:
				l.log.LogErrorf("remote job %s failed: %s", requestID, p.failureReason())
				signal(listenOutcome{res: JobResult{Outcome: OutcomeFailed, Reason: p.failureReason()}})
				return
			}
		}
	}
}

// subscribe runs the two-step private-channel handshake: exchange the socket
// id and channel name for a signed token, then send the subscribe frame.
func (l *Listener) subscribe(ctx context.Context, conn *websocket.Conn, socketID string) error {
	channel := "private-client." + l.clientID
	token, err := l.auth.AuthenticateChannel(ctx, socketID, channel)
	if err != nil {
		return fmt.Errorf("channel auth: %v", err)
	}
	frame := map[string]interface{}{
		"event": eventSubscribe,
		"data": map[string]string{
			"channel": channel,
			"auth":    token,
		},
	}
	if err := conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("subscribe: %v", err)
	}
	l.log.LogDebugf("subscribed to %s", channel)
	return nil
}
