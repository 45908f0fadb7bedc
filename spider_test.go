package crawlfront_test

import (
	"context"
	"testing"

	"github.com/fwojciec/crawlfront"
	"github.com/fwojciec/crawlfront/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSpider(name string) *mock.Spider {
	h := crawlfront.NewHandlers()
	h.Handle("parse", func(ctx context.Context, resp *crawlfront.Response) ([]crawlfront.Output, error) {
		return nil, nil
	})
	h.Handle("parse2", func(ctx context.Context, resp *crawlfront.Response) ([]crawlfront.Output, error) {
		return nil, nil
	})
	h.HandleError("errback", func(ctx context.Context, f *crawlfront.Failure) ([]crawlfront.Output, error) {
		return nil, nil
	})
	return &mock.Spider{SpiderName: name, HandlerTable: h}
}

func TestSession_CallbackName(t *testing.T) {
	t.Parallel()

	t.Run("resolves a bound method", func(t *testing.T) {
		t.Parallel()

		spider := newSpider("test")
		session := crawlfront.NewSession(spider)

		name, err := session.CallbackName(crawlfront.Method(spider, "parse2"))

		require.NoError(t, err)
		assert.Equal(t, "parse2", name)
	})

	t.Run("zero callback resolves to empty name", func(t *testing.T) {
		t.Parallel()

		session := crawlfront.NewSession(newSpider("test"))

		name, err := session.CallbackName(crawlfront.Callback{})

		require.NoError(t, err)
		assert.Empty(t, name)
	})

	t.Run("rejects a method of another spider", func(t *testing.T) {
		t.Parallel()

		session := crawlfront.NewSession(newSpider("test"))
		other := newSpider("other")

		_, err := session.CallbackName(crawlfront.Method(other, "parse"))

		require.Error(t, err)
		assert.Equal(t, crawlfront.EBINDING, crawlfront.ErrorCode(err))
	})

	t.Run("rejects an undeclared method", func(t *testing.T) {
		t.Parallel()

		spider := newSpider("test")
		session := crawlfront.NewSession(spider)

		_, err := session.ErrbackName(crawlfront.Method(spider, "parse"))

		require.Error(t, err)
		assert.Equal(t, crawlfront.EBINDING, crawlfront.ErrorCode(err))
	})
}

func TestSession_ResolveCallback(t *testing.T) {
	t.Parallel()

	t.Run("binds a declared name to the spider", func(t *testing.T) {
		t.Parallel()

		spider := newSpider("test")
		session := crawlfront.NewSession(spider)

		cb, err := session.ResolveCallback("parse2")

		require.NoError(t, err)
		assert.True(t, session.Owns(cb))
		assert.Equal(t, "parse2", cb.Name)
	})

	t.Run("fails for an unknown name", func(t *testing.T) {
		t.Parallel()

		session := crawlfront.NewSession(newSpider("test"))

		_, err := session.ResolveErrback("missing")

		require.Error(t, err)
		assert.Equal(t, crawlfront.EBINDING, crawlfront.ErrorCode(err))
	})
}

func TestSession_Handler(t *testing.T) {
	t.Parallel()

	t.Run("zero callback uses the default callback", func(t *testing.T) {
		t.Parallel()

		session := crawlfront.NewSession(newSpider("test"))

		fn, ok := session.Handler(crawlfront.Callback{})

		assert.True(t, ok)
		assert.NotNil(t, fn)
	})

	t.Run("zero errback has no handler", func(t *testing.T) {
		t.Parallel()

		session := crawlfront.NewSession(newSpider("test"))

		_, ok := session.ErrHandler(crawlfront.Callback{})

		assert.False(t, ok)
	})
}

func TestRoutingName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "parse", crawlfront.RoutingName(crawlfront.Callback{}))
	assert.Equal(t, "parse2", crawlfront.RoutingName(crawlfront.Callback{Name: "parse2"}))
}
