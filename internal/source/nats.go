package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/hpungsan/glean/internal/snapshot"
)

// DefaultSubject is the subject snapshots are published on.
const DefaultSubject = "glean.snapshots"

// ErrConnClosed is returned by Run when the client gives up reconnecting.
var ErrConnClosed = errors.New("nats connection closed")

// NATS subscribes to a subject carrying JSON snapshot documents and feeds
// each message to Sink. Messages are handled serially; a slow pipeline
// makes the client drop messages rather than queue them.
type NATS struct {
	URL     string
	Subject string
	Sink    Sink
	Logger  *slog.Logger

	// Buffer is the pending message capacity. <= 0 uses 64.
	Buffer int
}

// Run connects, subscribes and processes messages until ctx is done.
// If the connection closes for good first, Run returns ErrConnClosed.
func (n *NATS) Run(ctx context.Context) error {
	log := n.logger()
	subject := n.Subject
	if subject == "" {
		subject = DefaultSubject
	}
	buf := n.Buffer
	if buf <= 0 {
		buf = 64
	}

	closed := make(chan struct{})
	var once sync.Once
	nc, err := nats.Connect(n.URL,
		nats.Name("glean"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			once.Do(func() { close(closed) })
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to nats at %s: %w", n.URL, err)
	}
	defer nc.Close()

	msgs := make(chan *nats.Msg, buf)
	sub, err := nc.ChanSubscribe(subject, msgs)
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", subject, err)
	}
	defer sub.Unsubscribe()

	log.Info("listening for snapshots", "url", n.URL, "subject", subject)
	return n.consume(ctx, msgs, closed)
}

// consume handles messages until ctx is done or closed is closed.
func (n *NATS) consume(ctx context.Context, msgs <-chan *nats.Msg, closed <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-closed:
			return ErrConnClosed
		case msg := <-msgs:
			n.HandleMsg(ctx, msg)
		}
	}
}

// HandleMsg decodes one message and delivers it. Undecodable payloads are
// logged and skipped; it reports whether the message reached the sink.
func (n *NATS) HandleMsg(ctx context.Context, msg *nats.Msg) bool {
	log := n.logger()
	doc, err := snapshot.Decode(msg.Data, snapshot.FormatJSON)
	if err != nil {
		log.Warn("skipping undecodable snapshot", "subject", msg.Subject, "bytes", len(msg.Data), "err", err)
		return false
	}
	res, _ := deliver(ctx, n.Sink, doc)
	log.Debug("snapshot handled", "event", res.EventID, "outcome", res.Outcome.String(), "saved", res.Saved)
	return true
}

func (n *NATS) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return slog.Default()
}
