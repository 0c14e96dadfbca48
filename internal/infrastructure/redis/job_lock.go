package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// releaseScript borra la llave solo si sigue siendo nuestra.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// JobLock candado entre réplicas para que un disparador periódico corra una sola vez a la vez.
type JobLock struct {
	rdb    *redis.Client
	prefix string
}

// NewJobLock construye el candado con el prefijo de llaves indicado.
func NewJobLock(rdb *redis.Client, prefix string) *JobLock {
	return &JobLock{rdb: rdb, prefix: prefix}
}

func (l *JobLock) key(job string) string {
	return fmt.Sprintf("%s:lock:%s", l.prefix, job)
}

// TryAcquire toma el candado por ttl. acquired=false si otra instancia ya lo tiene.
func (l *JobLock) TryAcquire(ctx context.Context, job string, ttl time.Duration) (func(), bool, error) {
	token := uuid.New().String()
	ok, err := l.rdb.SetNX(ctx, l.key(job), token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire %s: %w", job, err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.rdb, []string{l.key(job)}, token).Err()
	}
	return release, true, nil
}
