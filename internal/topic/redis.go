package topic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/park285/chess-relay/internal/obslog"
	"github.com/park285/chess-relay/pkg/relaydto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultChannel = "relay:events"

// envelope is the redis wire form of a published event.
type envelope struct {
	Origin string          `json:"origin"`
	Topic  string          `json:"topic"`
	Except string          `json:"except,omitempty"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// RedisBus delivers locally right away and mirrors every publish to a redis channel so
// other relay processes can reach their own subscribers. Frames that originate here
// are ignored when they come back from redis.
type RedisBus struct {
	*LocalBus
	rdb     *redis.Client
	ps      *redis.PubSub
	channel string
	origin  string
	wg      sync.WaitGroup
}

func NewRedisBus(ctx context.Context, rdb *redis.Client, channel string) (*RedisBus, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if strings.TrimSpace(channel) == "" {
		channel = DefaultChannel
	}
	ps := rdb.Subscribe(ctx, channel)
	// 구독 확정까지 대기: 이후 Publish가 유실되지 않도록
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}
	b := &RedisBus{
		LocalBus: NewLocalBus(),
		rdb:      rdb,
		ps:       ps,
		channel:  channel,
		origin:   uuid.NewString(),
	}
	b.wg.Add(1)
	go b.listen()
	return b, nil
}

func (b *RedisBus) Publish(ctx context.Context, topic string, ev relaydto.Event, except string) {
	b.LocalBus.Publish(ctx, topic, ev, except)

	var data json.RawMessage
	if ev.Data != nil {
		raw, err := json.Marshal(ev.Data)
		if err != nil {
			obslog.L().Warn("topic_encode_error", zap.String("topic", topic), zap.String("event", ev.Name), zap.Error(err))
			return
		}
		data = raw
	}
	raw, _ := json.Marshal(envelope{Origin: b.origin, Topic: topic, Except: except, Event: ev.Name, Data: data})
	if err := b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		obslog.L().Warn("topic_publish_error", zap.String("topic", topic), zap.String("event", ev.Name), zap.Error(err))
	}
}

func (b *RedisBus) listen() {
	defer b.wg.Done()
	for msg := range b.ps.Channel() {
		var env envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			obslog.L().Warn("topic_decode_error", zap.String("channel", msg.Channel), zap.Error(err))
			continue
		}
		if env.Origin == b.origin {
			continue
		}
		ev := relaydto.Event{Name: env.Event}
		if len(env.Data) > 0 {
			ev.Data = env.Data
		}
		b.LocalBus.Publish(context.Background(), env.Topic, ev, env.Except)
	}
}

// Close stops the listener. The redis client is owned by the caller.
func (b *RedisBus) Close() error {
	err := b.ps.Close()
	b.wg.Wait()
	return err
}

// NewRedisClient builds a client from a redis:// or rediss:// URL and pings it.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// ParseRedisURL accepts redis:// and rediss:// URLs. rediss gets a TLS config.
func ParseRedisURL(raw string) (*redis.Options, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "redis://") && !strings.HasPrefix(raw, "rediss://") {
		return nil, fmt.Errorf("unsupported redis url: %q", raw)
	}
	return redis.ParseURL(raw)
}
