package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBridge mirrors the in-process bus over a redis pub/sub channel so
// subscribers outside this process see the same stream. The bridge degrades
// silently: a missing or unreachable redis never fails a publish.
type RedisBridge struct {
	client redis.UniversalClient
	bus    *Bus
}

// NewRedisBridgeFromEnv builds a bridge against REDIS_URL (or
// REDIS_ADDR host:port). Returns nil when neither is set; callers treat a
// nil bridge as disabled.
func NewRedisBridgeFromEnv(bus *Bus) *RedisBridge {
	if rawURL := os.Getenv("REDIS_URL"); rawURL != "" {
		opts, err := redis.ParseURL(rawURL)
		if err != nil {
			slog.Error("Invalid REDIS_URL, event bridge disabled", "error", err)
			return nil
		}
		return &RedisBridge{client: redis.NewClient(opts), bus: bus}
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return &RedisBridge{client: redis.NewClient(&redis.Options{Addr: addr}), bus: bus}
	}
	return nil
}

// NewRedisBridge wraps an existing client; used by tests.
func NewRedisBridge(client redis.UniversalClient, bus *Bus) *RedisBridge {
	return &RedisBridge{client: client, bus: bus}
}

// Publish sends the update on the job_updates channel. Errors are logged
// and swallowed.
func (r *RedisBridge) Publish(ctx context.Context, update JobUpdate) {
	data, err := json.Marshal(update)
	if err != nil {
		slog.Error("Failed to marshal job update", "job_id", update.JobID, "error", err)
		return
	}
	if err := r.client.Publish(ctx, ChannelJobUpdates, data).Err(); err != nil {
		slog.Debug("Redis publish failed", "job_id", update.JobID, "error", err)
	}
}

// Listen subscribes to the job_updates channel and re-broadcasts incoming
// messages on the in-process bus. Blocks until ctx is cancelled; intended to
// run in its own goroutine.
func (r *RedisBridge) Listen(ctx context.Context) {
	for {
		if err := r.listenOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("Redis listener disconnected, retrying", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
		}
	}
}

func (r *RedisBridge) listenOnce(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, ChannelJobUpdates)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var update JobUpdate
			if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
				slog.Warn("Invalid job update payload on redis channel", "error", err)
				continue
			}
			r.bus.Publish(update)
		}
	}
}

// Close releases the redis connection.
func (r *RedisBridge) Close() error {
	return r.client.Close()
}

// Publisher fans job updates out to the in-process bus and, when bridged,
// to redis. The runner publishes every transition through one of these.
type Publisher struct {
	bus    *Bus
	bridge *RedisBridge
}

func NewPublisher(bus *Bus, bridge *RedisBridge) *Publisher {
	return &Publisher{bus: bus, bridge: bridge}
}

// Publish stamps and delivers the update.
func (p *Publisher) Publish(ctx context.Context, update JobUpdate) {
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now().UTC()
	}
	p.bus.Publish(update)
	if p.bridge != nil {
		p.bridge.Publish(ctx, update)
	}
}
