// internal/cache/cache.go
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Rdb is the shared client. It stays nil when redis is not configured, in
// which case action logging is skipped.
var Rdb *redis.Client

// ErrNotConnected is returned when Rdb has not been set up.
var ErrNotConnected = errors.New("redis not connected")

// GameActionRecord is one entry of a game's action log.
type GameActionRecord struct {
	GameID        uuid.UUID              `json:"gameId"`
	ActionIndex   int                    `json:"actionIndex"`
	ActorUserID   uuid.UUID              `json:"actorUserId"`
	ActionType    string                 `json:"actionType"`
	ActionPayload map[string]interface{} `json:"actionPayload"`
	Timestamp     int64                  `json:"timestamp"`
}

// ActionsKey is the list holding a game's ordered actions.
func ActionsKey(gameID uuid.UUID) string { return fmt.Sprintf("boardshow:game:%s:actions", gameID) }

// ActionsChannel is the pub/sub channel live consumers subscribe to.
const ActionsChannel = "boardshow:actions"

// actionTTL bounds how long a finished game's log is kept.
const actionTTL = 7 * 24 * time.Hour

// Connect parses url, connects and pings.
func Connect(ctx context.Context, url string) error {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("ping redis: %w", err)
	}
	Rdb = client
	log.Infof("Connected to redis at %s", opt.Addr)
	return nil
}

// Close releases the client.
func Close() error {
	if Rdb == nil {
		return nil
	}
	err := Rdb.Close()
	Rdb = nil
	return err
}

// PublishGameAction appends rec to its game's log and publishes it.
func PublishGameAction(ctx context.Context, rec GameActionRecord) error {
	if Rdb == nil {
		return ErrNotConnected
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode action %d: %w", rec.ActionIndex, err)
	}
	key := ActionsKey(rec.GameID)
	pipe := Rdb.TxPipeline()
	pipe.RPush(ctx, key, b)
	pipe.Expire(ctx, key, actionTTL)
	pipe.Publish(ctx, ActionsChannel, b)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish action %d: %w", rec.ActionIndex, err)
	}
	return nil
}

// GameActions reads back a game's log in order.
func GameActions(ctx context.Context, gameID uuid.UUID) ([]GameActionRecord, error) {
	if Rdb == nil {
		return nil, ErrNotConnected
	}
	raw, err := Rdb.LRange(ctx, ActionsKey(gameID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read actions: %w", err)
	}
	out := make([]GameActionRecord, 0, len(raw))
	for _, s := range raw {
		var rec GameActionRecord
		if err := json.UnmarshalFromString(s, &rec); err != nil {
			log.Warnf("Game %s: skipping undecodable action: %v", gameID, err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
