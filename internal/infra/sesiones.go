package infra

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const sesionRevocadaPrefix = "sesion:revocada:"

// SesionesRevocadas records logged-out session ids until their token expires.
type SesionesRevocadas struct {
	rdb *redis.Client
}

func NewSesionesRevocadas(rdb *redis.Client) *SesionesRevocadas {
	return &SesionesRevocadas{rdb: rdb}
}

func (s *SesionesRevocadas) Revocar(ctx context.Context, sid string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, sesionRevocadaPrefix+sid, 1, ttl).Err()
}

func (s *SesionesRevocadas) Revocada(ctx context.Context, sid string) (bool, error) {
	n, err := s.rdb.Exists(ctx, sesionRevocadaPrefix+sid).Result()
	return n > 0, err
}
