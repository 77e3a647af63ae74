package channel

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Handler consumes the raw body of one push message.
type Handler func(data []byte)

// Subscription is one owned topic subscription.
type Subscription interface {
	Unsubscribe() error
}

// PushChannel is the persistent, reconnectable publish/subscribe transport
// the synchronizer consumes. Delivery is at-least-once and ordering is not
// guaranteed across reconnects; consumers deduplicate at the application
// layer.
type PushChannel interface {
	Subscribe(subject string, h Handler) (Subscription, error)
	Publish(subject string, v any) error
	IsConnected() bool
	// NotifyReconnect registers fn to run after the underlying connection is
	// re-established. The returned func removes the listener.
	NotifyReconnect(fn func()) (remove func())
}

// Config holds NATS connection settings.
type Config struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConfig returns default NATS connection configuration.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// NATSChannel implements PushChannel over a core NATS connection.
type NATSChannel struct {
	nc *nats.Conn

	mu         sync.Mutex
	reconnects map[int]func()
	nextID     int
}

// Connect dials NATS with automatic reconnection and returns the channel.
func Connect(cfg Config) (*NATSChannel, error) {
	ch := &NATSChannel{
		reconnects: make(map[int]func()),
	}

	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("push channel disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("push channel reconnected")
			ch.fanOutReconnect()
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("push channel error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to push channel: %w", err)
	}
	ch.nc = nc
	return ch, nil
}

// Subscribe registers h for every message published on subject.
func (c *NATSChannel) Subscribe(subject string, h Handler) (Subscription, error) {
	sub, err := c.nc.Subscribe(subject, func(msg *nats.Msg) {
		h(msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	log.Debug().Str("subject", subject).Msg("subscribed")
	return sub, nil
}

// Publish marshals v as JSON and publishes it on subject.
func (c *NATSChannel) Publish(subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message for %s: %w", subject, err)
	}
	if err := c.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// IsConnected reports whether the underlying connection is currently up.
func (c *NATSChannel) IsConnected() bool {
	return c.nc != nil && c.nc.IsConnected()
}

// NotifyReconnect registers fn to run after each reconnect.
func (c *NATSChannel) NotifyReconnect(fn func()) (remove func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.reconnects[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.reconnects, id)
	}
}

func (c *NATSChannel) fanOutReconnect() {
	c.mu.Lock()
	listeners := make([]func(), 0, len(c.reconnects))
	for _, fn := range c.reconnects {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// Close tears down the underlying connection. Only the process-wide owner
// calls this; sessions release their reference instead.
func (c *NATSChannel) Close() {
	if c.nc != nil {
		c.nc.Close()
	}
}
