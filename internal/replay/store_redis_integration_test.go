//go:build integration

package replay_test

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	platformredis "attesto/internal/platform/redis"
	"attesto/internal/replay"
	dErrors "attesto/pkg/domain-errors"
	"attesto/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *replay.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = replay.NewRedisStore(&platformredis.Client{Client: s.redis.Client})
}

func (s *RedisStoreSuite) SetupTest() {
	err := s.redis.FlushAll(context.Background())
	s.Require().NoError(err)
}

func (s *RedisStoreSuite) TestPutIfAbsent() {
	ctx := context.Background()

	inserted, err := s.store.PutIfAbsent(ctx, "fp-1", time.Minute)
	s.Require().NoError(err)
	s.True(inserted)

	inserted, err = s.store.PutIfAbsent(ctx, "fp-1", time.Minute)
	s.Require().NoError(err)
	s.False(inserted)

	// A different key is independent.
	inserted, err = s.store.PutIfAbsent(ctx, "fp-2", time.Minute)
	s.Require().NoError(err)
	s.True(inserted)
}

func (s *RedisStoreSuite) TestKeyExpiresAfterTTL() {
	ctx := context.Background()

	inserted, err := s.store.PutIfAbsent(ctx, "fp-ttl", 200*time.Millisecond)
	s.Require().NoError(err)
	s.True(inserted)

	s.Eventually(func() bool {
		inserted, err := s.store.PutIfAbsent(ctx, "fp-ttl", time.Minute)
		return err == nil && inserted
	}, 3*time.Second, 50*time.Millisecond, "key should become insertable again after expiry")
}

func (s *RedisStoreSuite) TestConcurrentInsertSingleWinner() {
	ctx := context.Background()
	const goroutines = 32

	var wg sync.WaitGroup
	var winners atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inserted, err := s.store.PutIfAbsent(ctx, "fp-race", time.Minute)
			s.NoError(err)
			if inserted {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), winners.Load(), "exactly one insert should win")
}

func (s *RedisStoreSuite) TestGuardRejectsReplayAcrossInstances() {
	ctx := context.Background()
	digest := strings.Repeat("a", 64)

	// Two guards over the same Redis simulate two verifier instances.
	first := replay.NewGuard(s.store)
	second := replay.NewGuard(s.store)

	err := first.CheckAndRecord(ctx, "jwt_vp", "nonce-1", "verifier.example", digest)
	s.Require().NoError(err)

	err = second.CheckAndRecord(ctx, "jwt_vp", "nonce-1", "verifier.example", digest)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeProofReplayDetected))
}
