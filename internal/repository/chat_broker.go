package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-portal-api/internal/models"
)

// ChatBroker fans new messages out to live subscribers of a channel. With a
// Redis client it uses pub/sub on chat:<channel>, so every API instance sees
// every message; without one it delivers in process.
type ChatBroker struct {
	client *redis.Client
	logger *zap.Logger

	mu   sync.RWMutex
	subs map[string]map[chan models.Message]struct{}
}

// NewChatBroker constructs a broker.
func NewChatBroker(client *redis.Client, logger *zap.Logger) *ChatBroker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatBroker{client: client, logger: logger, subs: make(map[string]map[chan models.Message]struct{})}
}

func chatTopic(channelID string) string {
	return "chat:" + channelID
}

// Publish sends msg to every subscriber of its channel.
func (b *ChatBroker) Publish(ctx context.Context, msg models.Message) error {
	if b.client == nil {
		b.deliver(msg)
		return nil
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal chat message: %w", err)
	}
	if err := b.client.Publish(ctx, chatTopic(msg.ChannelID), payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", chatTopic(msg.ChannelID), err)
	}
	return nil
}

// Subscribe returns a stream of messages for channelID and a cancel func
// that must be called to release it.
func (b *ChatBroker) Subscribe(ctx context.Context, channelID string) (<-chan models.Message, func()) {
	if b.client == nil {
		return b.subscribeLocal(channelID)
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := b.client.Subscribe(ctx, chatTopic(channelID))
	out := make(chan models.Message, 16)

	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-ch:
				if !ok {
					return
				}
				var msg models.Message
				if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
					b.logger.Warn("discarding malformed chat payload", zap.String("channel", channelID), zap.Error(err))
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, cancel
}

func (b *ChatBroker) subscribeLocal(channelID string) (<-chan models.Message, func()) {
	ch := make(chan models.Message, 16)
	b.mu.Lock()
	if b.subs[channelID] == nil {
		b.subs[channelID] = make(map[chan models.Message]struct{})
	}
	b.subs[channelID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[channelID], ch)
			if len(b.subs[channelID]) == 0 {
				delete(b.subs, channelID)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *ChatBroker) deliver(msg models.Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[msg.ChannelID] {
		select {
		case ch <- msg:
		default:
			b.logger.Warn("dropping chat message for slow subscriber", zap.String("channel", msg.ChannelID))
		}
	}
}
