// internal/cache/cache_test.go
package cache

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPublishWithoutRedis(t *testing.T) {
	Rdb = nil
	err := PublishGameAction(context.Background(), GameActionRecord{GameID: uuid.New()})
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = GameActions(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.NoError(t, Close())
}

func TestActionsKey(t *testing.T) {
	id := uuid.MustParse("0b6f4f3c-94f1-4d0b-9a0c-2f9d6a1b5e11")
	assert.Equal(t, "boardshow:game:0b6f4f3c-94f1-4d0b-9a0c-2f9d6a1b5e11:actions", ActionsKey(id))
}

func TestConnectBadURL(t *testing.T) {
	err := Connect(context.Background(), "not a url")
	assert.Error(t, err)
	assert.Nil(t, Rdb)
}
