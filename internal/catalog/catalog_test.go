package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/apiscout/internal/metrics"
	"github.com/mark3labs/apiscout/internal/spec"
)

func petstore(title string) string {
	return fmt.Sprintf(`openapi: 3.0.0
info: { title: %s, version: "1" }
paths:
  /pets:
    get:
      tags: [pets]
      summary: List pets
      responses: { "200": { description: ok } }
`, title)
}

func TestCatalog_EmptyUntilLoaded(t *testing.T) {
	t.Parallel()
	c := New()
	assert.Nil(t, c.Current())
	src, at := c.Source()
	assert.Empty(t, src)
	assert.True(t, at.IsZero())
}

func TestCatalog_LoadBytes(t *testing.T) {
	t.Parallel()
	c := New(WithMetrics(metrics.NewCollector(prometheus.NewRegistry())))
	doc, err := c.LoadBytes(context.Background(), []byte(petstore("First")), "upload")
	require.NoError(t, err)
	assert.Same(t, doc, c.Current())
	assert.Equal(t, "First", doc.Title)

	src, _ := c.Source()
	assert.Equal(t, "upload", src)
}

func TestCatalog_FailedLoadKeepsPrevious(t *testing.T) {
	t.Parallel()
	c := New()
	first, err := c.LoadBytes(context.Background(), []byte(petstore("First")), "upload")
	require.NoError(t, err)

	_, err = c.LoadBytes(context.Background(), []byte("{ not json"), "broken")
	require.Error(t, err)
	assert.True(t, spec.IsCode(err, spec.ParseError))

	_, err = c.LoadBytes(context.Background(), []byte("openapi: 3.0.0\n"), "no-paths")
	assert.True(t, spec.IsCode(err, spec.ValidationError))

	assert.Same(t, first, c.Current())
}

func TestCatalog_LoadSourceFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "api.yaml")
	require.NoError(t, os.WriteFile(path, []byte(petstore("FromFile")), 0o644))

	c := New(WithBuildOptions(spec.WithMethods([]spec.HttpMethod{spec.GET})))
	doc, err := c.LoadSource(context.Background(), "  "+path+" ")
	require.NoError(t, err)
	assert.Equal(t, "FromFile", doc.Title)
	require.Len(t, doc.Endpoints, 1)

	src, _ := c.Source()
	assert.Equal(t, path, src)
}

func TestCatalog_StrictLoadStillSucceeds(t *testing.T) {
	t.Parallel()
	// The info version is missing, which kin-openapi rejects.
	text := "openapi: 3.0.0\ninfo: { title: Loose }\npaths:\n  /a:\n    get: { responses: {} }\n"
	c := New(WithStrict(true))
	doc, err := c.LoadBytes(context.Background(), []byte(text), "loose")
	require.NoError(t, err)
	assert.Equal(t, "Loose", doc.Title)
}

func TestCatalog_LastStartedLoadWins(t *testing.T) {
	t.Parallel()
	c := New()
	older, newer := c.seq.Add(1), c.seq.Add(1)
	docOld := &spec.Document{Title: "old"}
	docNew := &spec.Document{Title: "new"}

	require.NoError(t, c.publish(newer, docNew, "b"))
	assert.ErrorIs(t, c.publish(older, docOld, "a"), ErrSuperseded)
	assert.Same(t, docNew, c.Current())
}

func TestCatalog_OlderLoadFinishingFirstIsReplaced(t *testing.T) {
	t.Parallel()
	c := New()
	older, newer := c.seq.Add(1), c.seq.Add(1)
	require.NoError(t, c.publish(older, &spec.Document{Title: "old"}, "a"))
	require.NoError(t, c.publish(newer, &spec.Document{Title: "new"}, "b"))
	assert.Equal(t, "new", c.Current().Title)
}

func TestCatalog_DuplicateSourceLoadsShareOneFetch(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			close(started)
		}
		<-release
		_, _ = w.Write([]byte(petstore("Remote")))
	}))
	defer srv.Close()

	c := New()
	const callers = 5
	docs := make([]*spec.Document, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		docs[0], errs[0] = c.LoadSource(context.Background(), srv.URL)
	}()
	<-started
	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			docs[i], errs[i] = c.LoadSource(context.Background(), srv.URL)
		}(i)
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
	for i := range docs {
		require.NoError(t, errs[i])
		assert.Same(t, docs[0], docs[i])
	}
	assert.Same(t, docs[0], c.Current())
}

func TestCatalog_CancelledCallerDoesNotFailJoinedLoad(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			close(started)
		}
		<-release
		_, _ = w.Write([]byte(petstore("Remote")))
	}))
	defer srv.Close()

	c := New()
	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.LoadSource(firstCtx, srv.URL)
		firstErr <- err
	}()
	<-started

	type result struct {
		doc *spec.Document
		err error
	}
	second := make(chan result, 1)
	go func() {
		doc, err := c.LoadSource(context.Background(), srv.URL)
		second <- result{doc, err}
	}()
	time.Sleep(100 * time.Millisecond)

	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)
	close(release)

	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "Remote", got.doc.Title)
	assert.Same(t, got.doc, c.Current())
	assert.Equal(t, int32(1), hits.Load())
}

func TestCatalog_ConcurrentReadersSeeWholeDocuments(t *testing.T) {
	t.Parallel()
	c := New()
	ctx := context.Background()
	_, err := c.LoadBytes(ctx, []byte(petstore("v0")), "v0")
	require.NoError(t, err)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				doc := c.Current()
				if assert.NotNil(t, doc) {
					assert.Len(t, doc.Endpoints, 1)
				}
			}
		}()
	}
	for i := 1; i <= 20; i++ {
		_, err := c.LoadBytes(ctx, []byte(petstore(fmt.Sprintf("v%d", i))), "upload")
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()
	assert.Equal(t, "v20", c.Current().Title)
}
