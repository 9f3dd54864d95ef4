package sources_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NewcastleRSE/rse-admin-strapi-sub000/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginate_StopsWhenNoMorePages(t *testing.T) {
	var pages []int
	items, err := sources.Paginate(context.Background(), func(_ context.Context, page int) ([]int, bool, error) {
		pages = append(pages, page)
		return []int{page * 10, page*10 + 1}, page < 3, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, pages)
	assert.Equal(t, []int{10, 11, 20, 21, 30, 31}, items)
}

func TestPaginate_PropagatesPageError(t *testing.T) {
	boom := errors.New("boom")
	_, err := sources.Paginate(context.Background(), func(_ context.Context, page int) ([]string, bool, error) {
		if page == 2 {
			return nil, false, boom
		}
		return []string{"x"}, true, nil
	})

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "page 2")
}

func TestPaginate_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sources.Paginate(ctx, func(context.Context, int) ([]int, bool, error) {
		t.Fatal("fetch should not be called")
		return nil, false, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_NonSuccessIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = sources.Do(sources.NewHTTPClient(time.Second), "test", req)

	require.Error(t, err)
	assert.True(t, sources.IsUpstream(err))
	var upErr *sources.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusServiceUnavailable, upErr.Status)
	assert.Contains(t, upErr.Body, "maintenance")
}
