package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	apperrors "github.com/authweave/idkit/errors"
	"github.com/authweave/idkit/persistence"
)

type adapter struct {
	store      *Store
	collection string
}

var _ persistence.Adapter = (*adapter)(nil)

// consumeScript atomically flags a live record as consumed and returns the
// pre-consumption payload, preserving the remaining TTL. Returning false
// maps to a nil reply, so missing, expired, and already-consumed records
// are indistinguishable to the caller.
var consumeScript = goredis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
  return false
end
local obj = cjson.decode(raw)
if obj['consumed'] then
  return false
end
obj['consumed'] = tonumber(ARGV[1])
local ttl = redis.call('PTTL', KEYS[1])
if ttl > 0 then
  redis.call('SET', KEYS[1], cjson.encode(obj), 'PX', ttl)
else
  redis.call('SET', KEYS[1], cjson.encode(obj))
end
return raw
`)

func (a *adapter) Upsert(ctx context.Context, id string, payload persistence.Payload, expiresIn time.Duration) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload for %s/%s: %w", a.collection, id, err)
	}

	key := a.store.recordKey(a.collection, id)
	keys := persistence.ExtractKeys(payload)
	rdb := a.store.client.Unwrap()

	// The grant set may outlive this record; only ever extend its TTL.
	extendGrant := false
	if keys.GrantID != "" && expiresIn > 0 {
		current, err := rdb.PTTL(ctx, a.store.grantKey(keys.GrantID)).Result()
		if err != nil {
			return a.wrap(err)
		}
		extendGrant = current < expiresIn
	}

	if expiresIn < 0 {
		expiresIn = 0
	}
	_, err = rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, key, raw, expiresIn)
		if keys.UserCode != "" {
			pipe.Set(ctx, a.store.userCodeKey(keys.UserCode), id, expiresIn)
		}
		if keys.UID != "" {
			pipe.Set(ctx, a.store.uidKey(keys.UID), id, expiresIn)
		}
		if keys.GrantID != "" {
			grantKey := a.store.grantKey(keys.GrantID)
			pipe.SAdd(ctx, grantKey, key)
			if extendGrant {
				pipe.PExpire(ctx, grantKey, expiresIn)
			}
		}
		return nil
	})
	if err != nil {
		return a.wrap(err)
	}
	return nil
}

func (a *adapter) Find(ctx context.Context, id string) (persistence.Payload, error) {
	raw, err := a.store.client.Get(ctx, a.store.recordKey(a.collection, id))
	if errors.Is(err, goredis.Nil) {
		a.store.metrics.Add(ctx, a.store.metrics.Misses, 1, backendName)
		return nil, nil
	}
	if err != nil {
		return nil, a.wrap(err)
	}
	a.store.metrics.Add(ctx, a.store.metrics.Hits, 1, backendName)
	return a.decode(id, raw)
}

func (a *adapter) FindByUserCode(ctx context.Context, userCode string) (persistence.Payload, error) {
	return a.findByKey(ctx, a.store.userCodeKey(userCode))
}

func (a *adapter) FindByUid(ctx context.Context, uid string) (persistence.Payload, error) {
	return a.findByKey(ctx, a.store.uidKey(uid))
}

func (a *adapter) findByKey(ctx context.Context, indexKey string) (persistence.Payload, error) {
	id, err := a.store.client.Get(ctx, indexKey)
	if errors.Is(err, goredis.Nil) {
		a.store.metrics.Add(ctx, a.store.metrics.Misses, 1, backendName)
		return nil, nil
	}
	if err != nil {
		return nil, a.wrap(err)
	}
	return a.Find(ctx, id)
}

func (a *adapter) Consume(ctx context.Context, id string) (persistence.Payload, error) {
	key := a.store.recordKey(a.collection, id)
	res, err := consumeScript.Run(ctx, a.store.client.Unwrap(), []string{key}, time.Now().Unix()).Result()
	if errors.Is(err, goredis.Nil) {
		a.store.metrics.Add(ctx, a.store.metrics.Misses, 1, backendName)
		return nil, nil
	}
	if err != nil {
		return nil, a.wrap(err)
	}
	raw, ok := res.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected consume reply for %s/%s: %T", a.collection, id, res)
	}
	a.store.metrics.Add(ctx, a.store.metrics.Consumed, 1, backendName)
	return a.decode(id, raw)
}

func (a *adapter) Destroy(ctx context.Context, id string) error {
	key := a.store.recordKey(a.collection, id)
	rdb := a.store.client.Unwrap()

	// Index entries are derived from the record's own payload, so read it
	// before deleting anything.
	raw, err := a.store.client.Get(ctx, key)
	if errors.Is(err, goredis.Nil) {
		return nil
	}
	if err != nil {
		return a.wrap(err)
	}

	payload, err := a.decode(id, raw)
	if err != nil {
		return err
	}
	keys := persistence.ExtractKeys(payload)

	_, err = rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, key)
		if keys.UserCode != "" {
			pipe.Del(ctx, a.store.userCodeKey(keys.UserCode))
		}
		if keys.UID != "" {
			pipe.Del(ctx, a.store.uidKey(keys.UID))
		}
		if keys.GrantID != "" {
			pipe.SRem(ctx, a.store.grantKey(keys.GrantID), key)
		}
		return nil
	})
	if err != nil {
		return a.wrap(err)
	}
	return nil
}

func (a *adapter) RevokeByGrantID(ctx context.Context, grantID string) error {
	grantKey := a.store.grantKey(grantID)
	rdb := a.store.client.Unwrap()

	// The set holds full record keys, so the cascade crosses collections.
	members, err := rdb.SMembers(ctx, grantKey).Result()
	if err != nil {
		return a.wrap(err)
	}
	if err := a.store.client.Del(ctx, append(members, grantKey)...); err != nil {
		return a.wrap(err)
	}
	a.store.metrics.Add(ctx, a.store.metrics.Revoked, int64(len(members)), backendName)
	return nil
}

func (a *adapter) decode(id, raw string) (persistence.Payload, error) {
	var p persistence.Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("failed to decode payload for %s/%s: %w", a.collection, id, err)
	}
	return p, nil
}

func (a *adapter) wrap(err error) error {
	a.store.log.Error("Redis operation failed", map[string]interface{}{
		"collection": a.collection,
		"error":      err.Error(),
	})
	return apperrors.NetworkError(backendName, err)
}
