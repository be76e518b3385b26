package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

const redisChannel = "shule:broadcast"

type redisEnvelope struct {
	Group string     `json:"group"`
	Frame core.Frame `json:"frame"`
}

// Redis is a Broadcaster backed by Redis Pub/Sub so that broadcasts reach
// subscribers on every running instance. Local membership is tracked by an
// embedded InProc broker; Broadcast publishes to Redis and each instance
// relays the envelope to its own members.
type Redis struct {
	local  *InProc
	client *redis.Client
	logger core.Logger
	cancel context.CancelFunc
}

var _ core.Broadcaster = (*Redis)(nil)

func NewRedis(conf *core.Config, logger core.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Broker.RedisAddr,
		Password: conf.Broker.RedisPassword,
		DB:       conf.Broker.RedisDB,
	})
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelPing()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, errors.Wrap(err, "pinging redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Redis{
		local:  NewInProc(logger),
		client: client,
		logger: logger,
		cancel: cancel,
	}
	go b.relay(ctx)
	return b, nil
}

func (b *Redis) Subscribe(group string, sub core.Subscriber) {
	b.local.Subscribe(group, sub)
}

func (b *Redis) Unsubscribe(group string, sub core.Subscriber) {
	b.local.Unsubscribe(group, sub)
}

func (b *Redis) Broadcast(group string, f core.Frame) {
	data, err := json.Marshal(redisEnvelope{Group: group, Frame: f})
	if err != nil {
		b.logger.Error("broker: marshaling broadcast envelope", err)
		return
	}
	if err := b.client.Publish(context.Background(), redisChannel, data).Err(); err != nil {
		// fire-and-forget: deliver locally even if the bus is down
		b.logger.Error(fmt.Sprintf("broker: publishing to %s", redisChannel), err)
		b.local.Broadcast(group, f)
	}
}

func (b *Redis) Close() error {
	b.cancel()
	return b.client.Close()
}

// relay feeds bus envelopes to this instance's local members.
func (b *Redis) relay(ctx context.Context) {
	sub := b.client.Subscribe(ctx, redisChannel)
	defer func() { _ = sub.Close() }()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			var env redisEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warn("broker: dropping malformed bus envelope", err)
				continue
			}
			b.local.Broadcast(env.Group, env.Frame)
		}
	}
}
