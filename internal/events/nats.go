package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
)

// subscriptionBuffer is the per-subscription delivery queue length.
const subscriptionBuffer = 64

// connect dials NATS with the options shared by publishers and subscribers:
// a connection name for server monitoring, unlimited reconnects, and
// disconnect/reconnect logging. opts are applied last and may override them.
func connect(url, name string, opts ...nats.Option) (*nats.Conn, error) {
	defaults := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "conn", name, "err", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "conn", name, "url", nc.ConnectedUrl())
		}),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// NATSPublisher publishes registry and discovery events as JSON messages.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to the NATS server at url under the given
// connection name.
func NewNATSPublisher(url, name string, opts ...nats.Option) (*NATSPublisher, error) {
	nc, err := connect(url, name, opts...)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: nc}, nil
}

// Publish encodes event as JSON and sends it on topic with a JSON
// content-type header.
func (p *NATSPublisher) Publish(ctx context.Context, topic string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", topic, err)
	}
	msg := nats.NewMsg(topic)
	msg.Header.Set("Content-Type", "application/json")
	msg.Data = data
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publishing %s: %w", topic, err)
	}
	return nil
}

// Flush waits until the server has processed everything published so far.
func (p *NATSPublisher) Flush() error {
	return p.conn.FlushTimeout(time.Second)
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn.IsClosed() {
		return nil
	}
	_ = p.conn.FlushTimeout(time.Second)
	p.conn.Close()
	return nil
}

// NATSSubscriber delivers raw event payloads from NATS subjects.
type NATSSubscriber struct {
	conn *nats.Conn
	name string
}

// NewNATSSubscriber connects to NATS under the given connection name. Extra
// options (e.g. handlers) are applied after the defaults.
func NewNATSSubscriber(url, name string, opts ...nats.Option) (*NATSSubscriber, error) {
	nc, err := connect(url, name, opts...)
	if err != nil {
		return nil, err
	}
	return &NATSSubscriber{conn: nc, name: name}, nil
}

// Subscribe returns a channel of payloads for topic, which may use NATS
// wildcards ("appreg.>"). Messages arriving while the channel is full are
// dropped and counted; the count is logged on cancel. The returned cancel
// function unsubscribes, discards undelivered payloads and closes the channel.
func (s *NATSSubscriber) Subscribe(topic string) (<-chan []byte, func(), error) {
	ch := make(chan []byte, subscriptionBuffer)

	var (
		mu      sync.Mutex
		closed  bool
		once    sync.Once
		dropped atomic.Int64
	)

	sub, err := s.conn.Subscribe(topic, func(msg *nats.Msg) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- msg.Data:
		default:
			dropped.Add(1)
		}
	})
	if err != nil {
		close(ch)
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	// The subscription must be registered before anyone publishes on
	// another connection.
	if err := s.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		close(ch)
		return nil, nil, fmt.Errorf("flushing subscription to %s: %w", topic, err)
	}

	cancel := func() {
		once.Do(func() {
			_ = sub.Unsubscribe()
			mu.Lock()
			closed = true
			// Discard undelivered payloads so readers see the close at once.
		drain:
			for {
				select {
				case <-ch:
				default:
					break drain
				}
			}
			close(ch)
			mu.Unlock()
			if n := dropped.Load(); n > 0 {
				slog.Warn("nats subscription dropped events", "conn", s.name, "topic", topic, "dropped", n)
			}
		})
	}

	return ch, cancel, nil
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}
