// Package redis implements the grading queue transport and the attempt
// state store on Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"capa-grader/internal/domain"
	"capa-grader/internal/xqueue"
	"github.com/redis/go-redis/v9"
)

// Queue submits grading requests by pushing them onto a Redis list named
// after the target queue; external graders pop from the other end.
type Queue struct {
	client *redis.Client
}

func NewQueue(client *redis.Client) *Queue {
	return &Queue{client: client}
}

func queueKey(name string) string { return "xqueue:" + name }

func (q *Queue) Submit(ctx context.Context, req xqueue.Request) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode queue request: %w", err)
	}
	if err := q.client.LPush(ctx, queueKey(req.Header.QueueName), payload).Err(); err != nil {
		return &domain.GraderCommunicationError{Err: err}
	}
	return nil
}

// ReplyHandler processes one grader reply.
type ReplyHandler interface {
	HandleReply(ctx context.Context, reply xqueue.Reply) error
}

// ReplyConsumer pops grader replies off a Redis list and dispatches them.
type ReplyConsumer struct {
	client  *redis.Client
	queue   string
	handler ReplyHandler
}

func NewReplyConsumer(client *redis.Client, replyQueue string, handler ReplyHandler) *ReplyConsumer {
	return &ReplyConsumer{client: client, queue: replyQueue, handler: handler}
}

// Run consumes replies until the context is canceled. Malformed messages
// and handler failures are logged and skipped so one bad reply cannot
// stall the queue.
func (c *ReplyConsumer) Run(ctx context.Context) error {
	key := queueKey(c.queue)
	for {
		vals, err := c.client.BRPop(ctx, 5*time.Second, key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("reply queue pop failed: %v", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}
		if len(vals) != 2 {
			continue
		}
		var reply xqueue.Reply
		if err := json.Unmarshal([]byte(vals[1]), &reply); err != nil {
			log.Printf("dropping undecodable grader reply: %v", err)
			continue
		}
		if err := c.handler.HandleReply(ctx, reply); err != nil {
			log.Printf("grader reply not applied: %v", err)
		}
	}
}
