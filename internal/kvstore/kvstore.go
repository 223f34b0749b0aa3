// Package kvstore はミュート施設や応募途中の選択など、ページをまたいで残す小さな状態の保存先。
package kvstore

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("kvstore: key not found")

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	// ttl が 0 の場合は期限なし
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error

	AddMember(ctx context.Context, key, member string) error
	RemoveMember(ctx context.Context, key, member string) error
	Members(ctx context.Context, key string) ([]string, error)
}
