package questions

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enem-practice/backend/internal/apperr"
	"github.com/enem-practice/backend/internal/logger"
	"github.com/enem-practice/backend/internal/models"
)

// countingSource answers every question and counts upstream calls.
type countingSource struct {
	calls atomic.Int32
	delay time.Duration
}

func (s *countingSource) ListExams(context.Context) ([]models.Exam, error) {
	s.calls.Add(1)
	return []models.Exam{{Year: 2023}, {Year: 2022}}, nil
}

func (s *countingSource) ListQuestions(_ context.Context, year, limit, offset int) (*models.QuestionPage, error) {
	s.calls.Add(1)
	return &models.QuestionPage{
		Questions: []models.Question{{Year: year, Index: offset + 1}},
		Metadata:  models.PageMetadata{Total: 180, Limit: limit, Offset: offset},
	}, nil
}

func (s *countingSource) GetQuestion(_ context.Context, year, index int) (*models.Question, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if index > 180 {
		return nil, fmt.Errorf("%w: question", apperr.ErrNotFound)
	}
	return &models.Question{Year: year, Index: index, CorrectAlternative: "D"}, nil
}

// gatedSource holds GetQuestion until gate closes and fails if its context
// ended meanwhile.
type gatedSource struct {
	countingSource
	entered chan struct{}
	gate    chan struct{}
}

func (s *gatedSource) GetQuestion(ctx context.Context, year, index int) (*models.Question, error) {
	s.calls.Add(1)
	close(s.entered)
	<-s.gate
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &models.Question{Year: year, Index: index, CorrectAlternative: "A"}, nil
}

func newCached(t *testing.T, upstream Source) (*CachedSource, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewCachedSource(upstream, rdb, time.Hour, logger.NewNop()), mr
}

func TestCachedSource_ReadThrough(t *testing.T) {
	upstream := &countingSource{}
	cache, mr := newCached(t, upstream)
	ctx := context.Background()

	first, err := cache.GetQuestion(ctx, 2023, 5)
	require.NoError(t, err)
	second, err := cache.GetQuestion(ctx, 2023, 5)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), upstream.calls.Load())
	assert.True(t, mr.Exists("questions:item:2023:5"))
	assert.Equal(t, time.Hour, mr.TTL("questions:item:2023:5"))

	page, err := cache.ListQuestions(ctx, 2023, 10, 20)
	require.NoError(t, err)
	_, err = cache.ListQuestions(ctx, 2023, 10, 20)
	require.NoError(t, err)
	assert.Equal(t, 180, page.Metadata.Total)
	assert.Equal(t, int32(2), upstream.calls.Load())

	exams, err := cache.ListExams(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2023, 2022}, Years(exams))
}

func TestCachedSource_ExpiresAfterTTL(t *testing.T) {
	upstream := &countingSource{}
	cache, mr := newCached(t, upstream)
	ctx := context.Background()

	_, err := cache.ListExams(ctx)
	require.NoError(t, err)
	mr.FastForward(2 * time.Hour)
	_, err = cache.ListExams(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(2), upstream.calls.Load())
}

func TestCachedSource_DoesNotCacheErrors(t *testing.T) {
	upstream := &countingSource{}
	cache, mr := newCached(t, upstream)
	ctx := context.Background()

	_, err := cache.GetQuestion(ctx, 2023, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.False(t, mr.Exists("questions:item:2023:999"))
}

func TestCachedSource_CoalescesConcurrentMisses(t *testing.T) {
	upstream := &countingSource{delay: 50 * time.Millisecond}
	cache, _ := newCached(t, upstream)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q, err := cache.GetQuestion(context.Background(), 2021, 3)
			assert.NoError(t, err)
			assert.Equal(t, 3, q.Index)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), upstream.calls.Load())
}

func TestCachedSource_BypassesBrokenRedis(t *testing.T) {
	upstream := &countingSource{}
	cache, mr := newCached(t, upstream)
	mr.Close()

	q, err := cache.GetQuestion(context.Background(), 2023, 1)
	require.NoError(t, err)
	assert.Equal(t, "D", q.CorrectAlternative)
}

func TestCachedSource_DiscardsCorruptEntry(t *testing.T) {
	upstream := &countingSource{}
	cache, mr := newCached(t, upstream)
	require.NoError(t, mr.Set("questions:item:2023:2", "{not json"))

	q, err := cache.GetQuestion(context.Background(), 2023, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, q.Index)
	assert.Equal(t, int32(1), upstream.calls.Load())
}

func TestCachedSource_Invalidate(t *testing.T) {
	upstream := &countingSource{}
	cache, mr := newCached(t, upstream)
	ctx := context.Background()
	require.NoError(t, mr.Set("unrelated", "keep"))

	_, err := cache.GetQuestion(ctx, 2023, 1)
	require.NoError(t, err)
	_, err = cache.ListExams(ctx)
	require.NoError(t, err)

	require.NoError(t, cache.Invalidate(ctx))
	assert.False(t, mr.Exists("questions:item:2023:1"))
	assert.False(t, mr.Exists("questions:exams"))
	assert.True(t, mr.Exists("unrelated"))
}

func TestCachedSource_CanceledCallerDoesNotAbortSharedLoad(t *testing.T) {
	upstream := &gatedSource{entered: make(chan struct{}), gate: make(chan struct{})}
	cache, mr := newCached(t, upstream)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := cache.GetQuestion(ctx, 2022, 7)
		firstErr <- err
	}()
	<-upstream.entered
	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(upstream.gate)
	assert.Eventually(t, func() bool { return mr.Exists("questions:item:2022:7") }, time.Second, 5*time.Millisecond)

	q, err := cache.GetQuestion(context.Background(), 2022, 7)
	require.NoError(t, err)
	assert.Equal(t, "A", q.CorrectAlternative)
	assert.Equal(t, int32(1), upstream.calls.Load())
}
