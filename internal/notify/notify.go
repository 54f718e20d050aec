package notify

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/in-nis/timetable-back/internal/models"
)

const publishChannel = "timetable:published"

// RedisNotifier fans publish events out on a Redis channel. Subscribers
// (the notification service, the frontend gateway) decide who to tell;
// this side is fire-and-forget.
type RedisNotifier struct {
	rdb *redis.Client
}

// New returns nil when no Redis URL is configured, which disables
// notifications entirely.
func New(redisURL string) *RedisNotifier {
	if redisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Println("⚠️ Invalid REDIS_URL, notifications disabled:", err)
		return nil
	}
	return &RedisNotifier{rdb: redis.NewClient(opts)}
}

type publishedMessage struct {
	TimetableID    string `json:"timetable_id"`
	Level          int    `json:"level"`
	Section        string `json:"section"`
	PublishCounter int    `json:"publish_counter"`
	Audience       string `json:"audience"`
}

func (n *RedisNotifier) TimetablePublished(ctx context.Context, t *models.Timetable, audience string) error {
	payload, err := json.Marshal(publishedMessage{
		TimetableID:    t.ID.String(),
		Level:          t.Level,
		Section:        t.Section,
		PublishCounter: t.PublishCounter,
		Audience:       audience,
	})
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, publishChannel, payload).Err()
}
