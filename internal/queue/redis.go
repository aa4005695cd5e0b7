package queue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// bodyField is the stream entry field carrying the JSON message body
const bodyField = "body"

// RedisStreams implements Client on Redis Streams with a consumer group.
// Entries left pending longer than the visibility timeout are reclaimed on
// receive, which gives the same redelivery semantics as a queue lease.
type RedisStreams struct {
	client   redis.UniversalClient
	stream   string
	group    string
	consumer string
	logger   *zap.Logger
}

// NewRedisStreams creates the client and ensures the consumer group exists
func NewRedisStreams(ctx context.Context, client redis.UniversalClient, stream, group, consumer string, logger *zap.Logger) (*RedisStreams, error) {
	r := &RedisStreams{
		client:   client,
		stream:   stream,
		group:    group,
		consumer: consumer,
		logger:   logger,
	}

	if err := r.ensureConsumerGroup(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure consumer group: %w", err)
	}

	return r, nil
}

// ensureConsumerGroup creates the consumer group if it doesn't exist
func (r *RedisStreams) ensureConsumerGroup(ctx context.Context) error {
	err := r.client.XGroupCreateMkStream(ctx, r.stream, r.group, "0").Err()
	if err != nil {
		// BUSYGROUP means the group already exists, which is fine
		if strings.HasPrefix(err.Error(), "BUSYGROUP") {
			r.logger.Debug("consumer group already exists",
				zap.String("group", r.group),
			)
			return nil
		}
		return newError("create_group", err, isTransientRedisError)
	}

	r.logger.Info("created consumer group",
		zap.String("group", r.group),
		zap.String("stream", r.stream),
	)
	return nil
}

// Receive reclaims expired leases first, then reads new entries
func (r *RedisStreams) Receive(ctx context.Context, opts ReceiveOptions) ([]Message, error) {
	count := int64(opts.MaxMessages)
	if count <= 0 {
		count = 1
	}

	if opts.VisibilityTimeout > 0 {
		claimed, _, err := r.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   r.stream,
			Group:    r.group,
			Consumer: r.consumer,
			MinIdle:  opts.VisibilityTimeout,
			Start:    "0-0",
			Count:    count,
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, newError("receive", err, isTransientRedisError)
		}
		if len(claimed) > 0 {
			r.logger.Debug("reclaimed expired entries",
				zap.String("stream", r.stream),
				zap.Int("count", len(claimed)),
			)
			return r.toMessages(claimed), nil
		}
	}

	// go-redis treats a zero Block as "forever"; a negative one omits BLOCK
	block := opts.WaitTime
	if block <= 0 {
		block = -1
	}

	streams, err := r.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    r.group,
		Consumer: r.consumer,
		Streams:  []string{r.stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, newError("receive", err, isTransientRedisError)
	}

	var messages []Message
	for _, s := range streams {
		messages = append(messages, r.toMessages(s.Messages)...)
	}
	return messages, nil
}

func (r *RedisStreams) toMessages(entries []redis.XMessage) []Message {
	messages := make([]Message, 0, len(entries))
	for _, e := range entries {
		msg := Message{
			ID:         e.ID,
			AckToken:   e.ID,
			Attributes: make(map[string]any, len(e.Values)),
		}
		for k, v := range e.Values {
			if k == bodyField {
				msg.Body = []byte(fmt.Sprint(v))
				continue
			}
			msg.Attributes[k] = v
		}
		messages = append(messages, msg)
	}
	return messages
}

// Send appends body to the target stream
func (r *RedisStreams) Send(ctx context.Context, queueID string, body []byte) error {
	_, err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: queueID,
		Values: map[string]interface{}{
			bodyField: string(body),
		},
	}).Result()
	return newError("send", err, isTransientRedisError)
}

// Delete acknowledges the entry and removes it from the source stream
func (r *RedisStreams) Delete(ctx context.Context, ackToken string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.XAck(ctx, r.stream, r.group, ackToken)
		pipe.XDel(ctx, r.stream, ackToken)
		return nil
	})
	return newError("delete", err, isTransientRedisError)
}

// Ping checks the Redis connection
func (r *RedisStreams) Ping(ctx context.Context) error {
	return newError("ping", r.client.Ping(ctx).Err(), isTransientRedisError)
}

// Close closes the underlying client
func (r *RedisStreams) Close() error {
	return r.client.Close()
}

func isTransientRedisError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, redis.ErrClosed) {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	for _, prefix := range []string{"LOADING", "TRYAGAIN", "CLUSTERDOWN", "MASTERDOWN", "BUSY ", "READONLY"} {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}
