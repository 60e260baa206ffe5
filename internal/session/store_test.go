package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskbot/internal/identity"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "test:", time.Hour), mr
}

func stores(t *testing.T) map[string]Store {
	rs, _ := newRedisStore(t)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  rs,
	}
}

func TestStore_EmptyLoads(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			rec, err := store.LoadUser(ctx, "u1")
			require.NoError(t, err)
			assert.Nil(t, rec.Profile)
			assert.NotNil(t, rec.Data)
			assert.Empty(t, rec.Data)

			data, err := store.LoadConversation(ctx, "c1")
			require.NoError(t, err)
			assert.NotNil(t, data)
			assert.Empty(t, data)
		})
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			profile := &identity.Profile{EmailAddress: "ann@microsoft.com", DisplayName: "Ann"}

			require.NoError(t, store.SaveUser(ctx, "u1", &UserRecord{Profile: profile, Data: Data{"lang": "en"}}))
			require.NoError(t, store.SaveConversation(ctx, "c1", Data{"color": "blue"}))

			rec, err := store.LoadUser(ctx, "u1")
			require.NoError(t, err)
			require.NotNil(t, rec.Profile)
			assert.Equal(t, "ann@microsoft.com", rec.Profile.EmailAddress)
			assert.Equal(t, "en", rec.Data["lang"])

			data, err := store.LoadConversation(ctx, "c1")
			require.NoError(t, err)
			assert.Equal(t, "blue", data["color"])
		})
	}
}

func TestStore_UpdateUser(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.SaveUser(ctx, "u1", &UserRecord{Data: Data{"k": "v"}}))

			err := store.UpdateUser(ctx, "u1", func(rec *UserRecord) error {
				rec.Profile = &identity.Profile{EmailAddress: "ann@skype.com"}
				return nil
			})
			require.NoError(t, err)

			rec, err := store.LoadUser(ctx, "u1")
			require.NoError(t, err)
			require.NotNil(t, rec.Profile)
			assert.Equal(t, "ann@skype.com", rec.Profile.EmailAddress)
			assert.Equal(t, "v", rec.Data["k"])

			boom := errors.New("boom")
			err = store.UpdateUser(ctx, "u1", func(rec *UserRecord) error {
				rec.Profile = nil
				return boom
			})
			assert.ErrorIs(t, err, boom)

			rec, err = store.LoadUser(ctx, "u1")
			require.NoError(t, err)
			assert.NotNil(t, rec.Profile, "failed update must not be written")
		})
	}
}

func TestStore_ConcurrentUpdates(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var wg sync.WaitGroup
			for i := 0; i < 4; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := store.UpdateUser(ctx, "u1", func(rec *UserRecord) error {
						n, _ := rec.Data["n"].(float64)
						rec.Data["n"] = n + 1
						return nil
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			rec, err := store.LoadUser(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, float64(4), rec.Data["n"])
		})
	}
}

func TestStore_EmptyKey(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := store.LoadUser(ctx, "")
			assert.ErrorIs(t, err, ErrEmptyKey)
			assert.ErrorIs(t, store.SaveConversation(ctx, "", Data{}), ErrEmptyKey)
		})
	}
}

func TestRedisStore_KeysAndTTL(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveUser(ctx, "u1", &UserRecord{Data: Data{}}))
	require.NoError(t, store.SaveConversation(ctx, "c1", Data{"a": 1}))

	assert.True(t, mr.Exists("test:user:u1"))
	assert.True(t, mr.Exists("test:conversation:c1"))
	assert.Equal(t, time.Hour, mr.TTL("test:user:u1"))

	mr.FastForward(2 * time.Hour)
	assert.False(t, mr.Exists("test:user:u1"))
}

func TestRedisStore_CorruptValue(t *testing.T) {
	store, mr := newRedisStore(t)
	require.NoError(t, mr.Set("test:user:u1", "{not json"))

	_, err := store.LoadUser(context.Background(), "u1")
	assert.Error(t, err)
}
