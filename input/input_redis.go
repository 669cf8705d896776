package input

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"fmt"
	"iter"
	"time"

	"github.com/DCSO/mtucorr/util"

	"github.com/gomodule/redigo/redis"
	log "github.com/sirupsen/logrus"
)

// DefaultRedisPattern is the default strftime pattern for hourly Redis lists.
const DefaultRedisPattern = "nsd-dnstap:%Y%m%d-%H"

// RedisSource is a LogSource reading JSON log lines from Redis lists, one
// list per hour.
type RedisSource struct {
	Pool     *redis.Pool
	Addr     string
	Proto    string
	Template *util.HourTemplate
}

func makeRedisPool(proto, addr string) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     5,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			c, err := redis.Dial(proto, addr)
			if err != nil {
				return nil, err
			}
			log.Debugf("Dialing %s... result: %v", addr, err == nil)
			return c, err
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			_, err := c.Do("PING")
			return err
		},
	}
}

// MakeRedisSource returns a new RedisSource, where the addr parameter denotes
// a hostname:port combination.
func MakeRedisSource(addr string, pattern string) (*RedisSource, error) {
	tpl, err := util.MakeHourTemplate(pattern)
	if err != nil {
		return nil, err
	}
	return &RedisSource{
		Pool:     makeRedisPool("tcp", addr),
		Addr:     addr,
		Proto:    "tcp",
		Template: tpl,
	}, nil
}

// MakeRedisSourceSocket returns a new RedisSource, where the addr parameter
// denotes a socket.
func MakeRedisSourceSocket(addr string, pattern string) (*RedisSource, error) {
	tpl, err := util.MakeHourTemplate(pattern)
	if err != nil {
		return nil, err
	}
	return &RedisSource{
		Pool:     makeRedisPool("unix", addr),
		Addr:     addr,
		Proto:    "unix",
		Template: tpl,
	}, nil
}

// GetName returns a printable name for the source.
func (rs *RedisSource) GetName() string {
	return "Redis source"
}

// Identifier returns the list key for the given hour.
func (rs *RedisSource) Identifier(hour time.Time) string {
	return rs.Template.Format(hour)
}

// Open returns the elements of the list stored at the given key.
func (rs *RedisSource) Open(id string) (iter.Seq2[[]byte, error], error) {
	conn := rs.Pool.Get()
	defer conn.Close()
	exists, err := redis.Bool(conn.Do("EXISTS", id))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: no key %s", ErrSourceUnavailable, id)
	}
	return func(yield func([]byte, error) bool) {
		conn := rs.Pool.Get()
		defer conn.Close()
		vals, err := redis.ByteSlices(conn.Do("LRANGE", id, 0, -1))
		if err != nil {
			yield(nil, err)
			return
		}
		for _, v := range vals {
			if !yield(v, nil) {
				return
			}
		}
	}, nil
}

// Close releases the connection pool.
func (rs *RedisSource) Close() error {
	return rs.Pool.Close()
}
