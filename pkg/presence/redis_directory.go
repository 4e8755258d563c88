package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"ridehub/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const (
	userKeyPrefix         = "presence:user:"
	instanceChannelPrefix = "presence:instance:"
)

// releaseScript deletes the user key only while it still names this instance,
// so a disconnect here never erases a newer registration elsewhere.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// refreshScript extends the user key while it names this instance and restores
// it when it has expired. A key held by another instance is left alone.
var refreshScript = redis.NewScript(`
local owner = redis.call("GET", KEYS[1])
if owner == false or owner == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
	return 1
end
return 0
`)

type relayMessage struct {
	UserID  string          `json:"user_id"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// RedisDirectory records user -> instance ownership in Redis and relays events
// between instances over pub/sub.
type RedisDirectory struct {
	client     *redis.Client
	instanceID string
	ttl        time.Duration
	logger     *logger.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
}

func NewRedisDirectory(client *redis.Client, instanceID string, ttl time.Duration, log *logger.Logger) *RedisDirectory {
	return &RedisDirectory{
		client:     client,
		instanceID: instanceID,
		ttl:        ttl,
		logger:     log.WithField("instance_id", instanceID),
	}
}

func (d *RedisDirectory) InstanceID() string {
	return d.instanceID
}

func (d *RedisDirectory) Start(ctx context.Context, deliver DeliverFunc) error {
	pubsub := d.client.Subscribe(ctx, instanceChannelPrefix+d.instanceID)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("failed to subscribe to presence channel: %w", err)
	}

	d.mu.Lock()
	d.pubsub = pubsub
	d.done = make(chan struct{})
	d.mu.Unlock()

	go d.consume(pubsub, deliver)
	return nil
}

func (d *RedisDirectory) consume(pubsub *redis.PubSub, deliver DeliverFunc) {
	defer close(d.done)

	for msg := range pubsub.Channel() {
		var relay relayMessage
		if err := json.Unmarshal([]byte(msg.Payload), &relay); err != nil {
			d.logger.WithError(err).Warn("Discarding malformed presence relay message")
			continue
		}
		if !deliver(relay.UserID, relay.Event, relay.Payload) {
			d.logger.WithField("user_id", relay.UserID).Debug("Relayed event dropped, user no longer connected")
		}
	}
}

func (d *RedisDirectory) Claim(ctx context.Context, userID string) error {
	return d.client.Set(ctx, userKeyPrefix+userID, d.instanceID, d.ttl).Err()
}

func (d *RedisDirectory) Refresh(ctx context.Context, userID string) error {
	return refreshScript.Run(ctx, d.client, []string{userKeyPrefix + userID}, d.instanceID, d.ttl.Milliseconds()).Err()
}

func (d *RedisDirectory) Release(ctx context.Context, userID string) error {
	return releaseScript.Run(ctx, d.client, []string{userKeyPrefix + userID}, d.instanceID).Err()
}

// Relay publishes the event to the instance owning userID. It returns false
// when no instance owns the user, or when this instance is the recorded owner
// but the user has already disconnected locally.
func (d *RedisDirectory) Relay(ctx context.Context, userID, event string, payload interface{}) (bool, error) {
	owner, err := d.client.Get(ctx, userKeyPrefix+userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up presence owner: %w", err)
	}
	if owner == d.instanceID {
		return false, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("failed to encode relayed payload: %w", err)
	}
	body, err := json.Marshal(relayMessage{UserID: userID, Event: event, Payload: raw})
	if err != nil {
		return false, fmt.Errorf("failed to encode relay message: %w", err)
	}

	receivers, err := d.client.Publish(ctx, instanceChannelPrefix+owner, body).Result()
	if err != nil {
		return false, fmt.Errorf("failed to publish relay message: %w", err)
	}
	return receivers > 0, nil
}

func (d *RedisDirectory) Close() error {
	d.mu.Lock()
	pubsub := d.pubsub
	done := d.done
	d.pubsub = nil
	d.mu.Unlock()

	if pubsub == nil {
		return nil
	}
	err := pubsub.Close()
	<-done
	return err
}
