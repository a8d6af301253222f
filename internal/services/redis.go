package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chachabrian/railparcel-backend/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	ChannelMessages = "parcel:messages"
	ChannelUpdates  = "parcel:updates"
)

// NewRedisClient parses a redis:// URL and checks the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisPublisher mirrors parcel events onto Redis pub/sub for other
// processes (dashboards, other API replicas).
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

type messageEvent struct {
	Messages  []models.Message `json:"messages"`
	Timestamp int64            `json:"timestamp"`
}

type parcelEvent struct {
	ParcelID       uint                `json:"parcelId"`
	TrackingNumber string              `json:"trackingNumber"`
	Status         models.ParcelStatus `json:"status"`
	Timestamp      int64               `json:"timestamp"`
}

func (p *RedisPublisher) MessagesCreated(ctx context.Context, messages []models.Message) error {
	if len(messages) == 0 {
		return nil
	}
	return p.publish(ctx, ChannelMessages, messageEvent{Messages: messages, Timestamp: time.Now().Unix()})
}

func (p *RedisPublisher) ParcelUpdated(ctx context.Context, parcel models.Parcel) error {
	return p.publish(ctx, ChannelUpdates, parcelEvent{
		ParcelID:       parcel.ID,
		TrackingNumber: parcel.TrackingNumber,
		Status:         parcel.Status,
		Timestamp:      time.Now().Unix(),
	})
}

func (p *RedisPublisher) publish(ctx context.Context, channel string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, channel, data).Err()
}
