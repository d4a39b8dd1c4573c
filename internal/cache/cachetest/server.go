// Package cachetest answers the Redis commands the cache package issues
// from memory, so cache behaviour can be tested without a Redis server.
package cachetest

import (
	"context"
	"path"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Server holds the keys. TTLs are ignored.
type Server struct {
	mu   sync.Mutex
	data map[string]string
}

func New() *Server {
	return &Server{data: map[string]string{}}
}

// Client returns a go-redis client whose commands never leave the process
func (s *Server) Client() *redis.Client {
	c := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	c.AddHook(s)
	return c
}

// Get reads a key directly
func (s *Server) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *Server) DialHook(next redis.DialHook) redis.DialHook { return next }

func (s *Server) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (s *Server) ProcessHook(redis.ProcessHook) redis.ProcessHook {
	return func(_ context.Context, cmd redis.Cmder) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		args := cmd.Args()
		switch c := cmd.(type) {
		case *redis.StatusCmd:
			if cmd.Name() == "set" {
				s.data[str(args[1])] = str(args[2])
			}
			c.SetVal("OK")
		case *redis.StringCmd:
			v, ok := s.data[str(args[1])]
			if !ok {
				return redis.Nil
			}
			c.SetVal(v)
		case *redis.IntCmd:
			switch cmd.Name() {
			case "incr":
				n, _ := strconv.ParseInt(s.data[str(args[1])], 10, 64)
				n++
				s.data[str(args[1])] = strconv.FormatInt(n, 10)
				c.SetVal(n)
			case "del":
				var n int64
				for _, k := range args[1:] {
					if _, ok := s.data[str(k)]; ok {
						delete(s.data, str(k))
						n++
					}
				}
				c.SetVal(n)
			}
		case *redis.ScanCmd:
			pattern := "*"
			for i := 2; i+1 < len(args); i++ {
				if str(args[i]) == "match" {
					pattern = str(args[i+1])
				}
			}
			var keys []string
			for k := range s.data {
				if ok, _ := path.Match(pattern, k); ok {
					keys = append(keys, k)
				}
			}
			c.SetVal(keys, 0)
		}
		return nil
	}
}

func str(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}
