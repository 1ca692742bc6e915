package infra

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/gianlucacontedesign/terpenitos/internal/dto"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	catalogoPrefix = "catalogo:producto:"
	catalogoGenKey = "catalogo:gen"
)

// guardarSiVigente stores the entry only while the generation still matches
// the one the caller read before loading from the database.
var guardarSiVigente = redis.NewScript(`
local gen = redis.call('GET', KEYS[1]) or '0'
if gen ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[2], ARGV[2])
end
return 1
`)

// CatalogoCache keeps product detail responses in Redis with a TTL.
// Redis failures degrade to cache misses.
type CatalogoCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCatalogoCache(rdb *redis.Client, ttl time.Duration) *CatalogoCache {
	return &CatalogoCache{rdb: rdb, ttl: ttl}
}

func catalogoKey(id uint) string {
	return catalogoPrefix + strconv.FormatUint(uint64(id), 10)
}

func (c *CatalogoCache) Producto(ctx context.Context, id uint) (*dto.ProductoResponse, bool) {
	raw, err := c.rdb.Get(ctx, catalogoKey(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Uint("producto_id", id).Msg("catalogo: redis get")
		}
		return nil, false
	}
	var p dto.ProductoResponse
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Warn().Err(err).Uint("producto_id", id).Msg("catalogo: entrada corrupta")
		return nil, false
	}
	return &p, true
}

// Generacion returns the current invalidation generation, or -1 when Redis
// cannot answer so that the following store is skipped.
func (c *CatalogoCache) Generacion(ctx context.Context) int64 {
	gen, err := c.rdb.Get(ctx, catalogoGenKey).Int64()
	if err == redis.Nil {
		return 0
	}
	if err != nil {
		log.Warn().Err(err).Msg("catalogo: redis get generacion")
		return -1
	}
	return gen
}

func (c *CatalogoCache) GuardarProducto(ctx context.Context, p *dto.ProductoResponse, gen int64) {
	if gen < 0 {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	keys := []string{catalogoGenKey, catalogoKey(p.ID)}
	err = guardarSiVigente.Run(ctx, c.rdb, keys, gen, data, c.ttl.Milliseconds()).Err()
	if err != nil {
		log.Warn().Err(err).Uint("producto_id", p.ID).Msg("catalogo: redis set")
	}
}

func (c *CatalogoCache) InvalidarProductos(ctx context.Context, ids ...uint) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, catalogoKey(id))
	}
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, catalogoGenKey)
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("catalogo: redis del")
	}
}

// InvalidarTodo drops every cached product using SCAN, never KEYS.
func (c *CatalogoCache) InvalidarTodo(ctx context.Context) {
	if err := c.rdb.Incr(ctx, catalogoGenKey).Err(); err != nil {
		log.Warn().Err(err).Msg("catalogo: redis incr generacion")
	}
	iter := c.rdb.Scan(ctx, 0, catalogoPrefix+"*", 200).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 200 {
			c.rdb.Del(ctx, batch...)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		c.rdb.Del(ctx, batch...)
	}
	if err := iter.Err(); err != nil {
		log.Warn().Err(err).Msg("catalogo: redis scan")
	}
}
