package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"fixtrack/internal/cache"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestCheckBasic(t *testing.T) {
	ok := NewHealthChecker(pinger{}).CheckBasic(context.Background())
	assert.Equal(t, "healthy", ok.Status)
	assert.Equal(t, "healthy", ok.Database.Status)

	down := NewHealthChecker(pinger{err: errors.New("refused")}).CheckBasic(context.Background())
	assert.Equal(t, "unhealthy", down.Status)
	assert.Equal(t, "unhealthy", down.Database.Status)
}

func TestCheckDetailedWithoutRedis(t *testing.T) {
	cache.SetClient(nil)

	st := NewHealthChecker(pinger{}).CheckDetailed(context.Background())
	assert.Equal(t, "healthy", st.Status)
	assert.Equal(t, "disabled", st.Redis.Status)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512.0 MB", formatBytes(512*1024*1024))
	assert.Equal(t, "2.0 GB", formatBytes(2*1024*1024*1024))
}
