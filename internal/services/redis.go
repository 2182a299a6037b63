package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chachabrian/mooveit-carpool/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	searchKeyPrefix = "trips:search:"
	// EventsChannel carries every published domain event as JSON.
	EventsChannel = "carpool:events"
)

// InitRedis connects to REDIS_URL and checks the connection.
func InitRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}
	return client, nil
}

// TripCache keeps trip search results for a short time. Any booking or trip
// change drops every cached search.
type TripCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewTripCache(client *redis.Client, ttl time.Duration) *TripCache {
	return &TripCache{client: client, ttl: ttl}
}

func searchKey(departureCity, arrivalCity string) string {
	return fmt.Sprintf("%s%s:%s", searchKeyPrefix,
		strings.ToLower(strings.TrimSpace(departureCity)),
		strings.ToLower(strings.TrimSpace(arrivalCity)))
}

// GetSearch returns the cached result and whether there was one.
func (c *TripCache) GetSearch(ctx context.Context, departureCity, arrivalCity string) ([]models.Trip, bool, error) {
	data, err := c.client.Get(ctx, searchKey(departureCity, arrivalCity)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var trips []models.Trip
	if err := json.Unmarshal(data, &trips); err != nil {
		return nil, false, err
	}
	return trips, true, nil
}

func (c *TripCache) SetSearch(ctx context.Context, departureCity, arrivalCity string, trips []models.Trip) error {
	data, err := json.Marshal(trips)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, searchKey(departureCity, arrivalCity), data, c.ttl).Err()
}

// Invalidate removes every cached search.
func (c *TripCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, searchKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// PublishEvent publishes an event update to Redis pub/sub so other API
// instances can forward it to their websocket clients.
func PublishEvent(ctx context.Context, client *redis.Client, msg EventMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return client.Publish(ctx, EventsChannel, data).Err()
}

// SubscribeEvents forwards events published by other instances to the local
// hub until ctx is done. Events this instance published itself are skipped.
func SubscribeEvents(ctx context.Context, client *redis.Client, hub *Hub, instanceID string) {
	sub := client.Subscribe(ctx, EventsChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var msg EventMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				continue
			}
			if msg.Origin == instanceID {
				continue
			}
			hub.Deliver(msg)
		}
	}
}
