package query

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	catalog "github.com/eugener/arcscout/internal"
	"github.com/eugener/arcscout/internal/cache"
	"github.com/eugener/arcscout/internal/client"
	"github.com/eugener/arcscout/internal/telemetry"
	fakes "github.com/eugener/arcscout/internal/testutil"
)

// waitFor blocks until cond holds for the controller state.
func waitFor[T any](t *testing.T, c *Controller[T], cond func(State[T]) bool) State[T] {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if s := c.Snapshot(); cond(s) {
			return s
		}
		select {
		case <-c.Changes():
		case <-deadline:
			t.Fatalf("timed out; state = %+v", c.Snapshot())
		}
	}
}

func settled[T any](s State[T]) bool { return !s.Result.Loading }

func pageOf(ids ...string) catalog.Page[catalog.Item] {
	items := make([]catalog.Item, len(ids))
	for i, id := range ids {
		items[i] = catalog.Item{ID: id}
	}
	return catalog.Page[catalog.Item]{Items: items, Total: len(ids)}
}

func TestControllerInitialRequest(t *testing.T) {
	t.Parallel()

	src := &fakes.FakeSource[catalog.Item]{
		FetchFn: func(context.Context, catalog.ListParams) (catalog.Page[catalog.Item], error) {
			return pageOf("a", "b"), nil
		},
	}
	c := New[catalog.Item](src, Options{Name: "items", Fields: catalog.ItemFilterFields})
	defer c.Close()

	s := waitFor(t, c, settled)
	if len(s.Result.Items) != 2 || s.Result.Total != 2 {
		t.Errorf("result = %+v", s.Result)
	}
	calls := src.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	p := calls[0]
	if p.FreeText != "" || len(p.Filters) != 0 || p.Limit != catalog.DefaultPageSize || p.Offset != 0 {
		t.Errorf("initial params = %+v", p)
	}
}

func TestControllerIntents(t *testing.T) {
	t.Parallel()

	src := &fakes.FakeSource[catalog.Item]{}
	c := New[catalog.Item](src, Options{Name: "items", Fields: catalog.ItemFilterFields})
	defer c.Close()
	waitFor(t, c, settled)

	steps := []struct {
		do         func() error
		wantOffset int
	}{
		{c.NextPage, 50},
		{c.NextPage, 100},
		{func() error { return c.SetFreeText("anvil") }, 0},
		{c.NextPage, 50},
		{func() error { return c.SetFilter(catalog.FieldRarity, "Rare") }, 0},
		{c.PrevPage, 0},
		{c.Refresh, 0},
	}
	for i, st := range steps {
		if err := st.do(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		s := waitFor(t, c, settled)
		if s.Params.Offset != st.wantOffset {
			t.Errorf("step %d: offset = %d, want %d", i, s.Params.Offset, st.wantOffset)
		}
	}

	last, _ := src.LastCall()
	if last.FreeText != "anvil" || last.Filter(catalog.FieldRarity) != "Rare" {
		t.Errorf("last call = %+v", last)
	}
	if got := len(src.Calls()); got != len(steps)+1 {
		t.Errorf("calls = %d, want %d", got, len(steps)+1)
	}
}

func TestControllerUnknownFilter(t *testing.T) {
	t.Parallel()

	src := &fakes.FakeSource[catalog.Item]{}
	c := New[catalog.Item](src, Options{Name: "items", Fields: catalog.ItemFilterFields})
	defer c.Close()
	before := waitFor(t, c, settled)

	err := c.SetFilter(catalog.FieldGiver, "Celeste")
	if !errors.Is(err, catalog.ErrUnknownFilter) {
		t.Fatalf("err = %v, want ErrUnknownFilter", err)
	}
	if after := c.Snapshot(); after.Seq != before.Seq {
		t.Errorf("seq = %d, want unchanged %d", after.Seq, before.Seq)
	}
	if got := len(src.Calls()); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestControllerOutOfOrder(t *testing.T) {
	t.Parallel()

	release := map[string]chan struct{}{
		"a": make(chan struct{}),
		"b": make(chan struct{}),
	}
	src := &fakes.FakeSource[catalog.Item]{
		FetchFn: func(_ context.Context, p catalog.ListParams) (catalog.Page[catalog.Item], error) {
			if ch, ok := release[p.FreeText]; ok {
				<-ch
			}
			return pageOf(p.FreeText), nil
		},
	}
	m := telemetry.NewMetrics(prometheus.NewPedanticRegistry())
	c := New[catalog.Item](src, Options{Name: "items", Fields: catalog.ItemFilterFields, Metrics: m})
	defer c.Close()
	waitFor(t, c, settled)

	if err := c.SetFreeText("a"); err != nil {
		t.Fatal(err)
	}
	if err := c.SetFreeText("b"); err != nil {
		t.Fatal(err)
	}

	close(release["b"])
	waitFor(t, c, func(s State[catalog.Item]) bool {
		return settled(s) && len(s.Result.Items) == 1 && s.Result.Items[0].ID == "b"
	})

	close(release["a"])
	deadline := time.Now().Add(2 * time.Second)
	for testutil.ToFloat64(m.StaleDiscards.WithLabelValues("items")) != 1 {
		if time.Now().After(deadline) {
			t.Fatal("stale response for A was never discarded")
		}
		time.Sleep(5 * time.Millisecond)
	}

	s := c.Snapshot()
	if len(s.Result.Items) != 1 || s.Result.Items[0].ID != "b" {
		t.Errorf("items = %+v, want B's result", s.Result.Items)
	}
	if v := testutil.ToFloat64(m.ControllerIssued.WithLabelValues("items")); v != 3 {
		t.Errorf("issued = %v, want 3", v)
	}
}

func TestControllerFailureAndDismiss(t *testing.T) {
	t.Parallel()

	var fail atomic.Bool
	src := &fakes.FakeSource[catalog.Item]{
		FetchFn: func(context.Context, catalog.ListParams) (catalog.Page[catalog.Item], error) {
			if fail.Load() {
				return catalog.Page[catalog.Item]{}, errors.New("network down")
			}
			return pageOf("a", "b", "c"), nil
		},
	}
	c := New[catalog.Item](src, Options{Name: "items", Fields: catalog.ItemFilterFields})
	defer c.Close()
	waitFor(t, c, settled)

	fail.Store(true)
	if err := c.NextPage(); err != nil {
		t.Fatal(err)
	}
	s := waitFor(t, c, settled)
	if s.Result.Err != "network down" {
		t.Errorf("Err = %q", s.Result.Err)
	}
	if len(s.Result.Items) != 0 || s.Result.Total != 3 {
		t.Errorf("result = %+v, want empty items and unchanged total", s.Result)
	}

	if err := c.DismissError(); err != nil {
		t.Fatal(err)
	}
	if s := c.Snapshot(); s.Result.Err != "" {
		t.Errorf("Err = %q after dismiss", s.Result.Err)
	}
}

func TestControllerCachedFallback(t *testing.T) {
	t.Parallel()

	var down atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if down.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"items":[{"id":"w1","name":"Anvil"}],"total":1}`)
	}))
	defer srv.Close()

	mem, err := cache.NewMemory(nil)
	if err != nil {
		t.Fatal(err)
	}
	cl, err := client.New(srv.URL, client.Options{Cache: mem})
	if err != nil {
		t.Fatal(err)
	}
	items := NewItems(SourceFunc[catalog.Item](cl.SearchItems), 0, nil, nil)
	defer items.Close()
	first := waitFor(t, items.Controller, settled)

	down.Store(true)
	if err := items.Refresh(); err != nil {
		t.Fatal(err)
	}
	s := waitFor(t, items.Controller, func(s State[catalog.Item]) bool { return settled(s) && s.Seq > first.Seq })
	if s.Result.Err != "" {
		t.Errorf("Err = %q, want none with a cache hit", s.Result.Err)
	}
	if len(s.Result.Items) != 1 || s.Result.Items[0].Name != "Anvil" {
		t.Errorf("items = %+v, want cached page", s.Result.Items)
	}

	// A different signature has nothing cached and surfaces the error.
	if err := items.SetCategoryFilter("Weapon"); err != nil {
		t.Fatal(err)
	}
	s = waitFor(t, items.Controller, settled)
	if !strings.Contains(s.Result.Err, "HTTP 502") {
		t.Errorf("Err = %q, want network error", s.Result.Err)
	}
}

func TestControllerClose(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	src := &fakes.FakeSource[catalog.Item]{
		FetchFn: func(ctx context.Context, _ catalog.ListParams) (catalog.Page[catalog.Item], error) {
			close(started)
			<-ctx.Done()
			return catalog.Page[catalog.Item]{}, ctx.Err()
		},
	}
	c := New[catalog.Item](src, Options{Name: "items"})
	<-started
	c.Close()

	if err := c.Refresh(); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
	if s := c.Snapshot(); s.Result.Err != "" {
		t.Errorf("Err = %q, cancelled outcome should be dropped", s.Result.Err)
	}
	// Drain any pending signal; the channel must then be closed.
	for range c.Changes() {
	}
}

func TestViewsWrappers(t *testing.T) {
	t.Parallel()

	quests := &fakes.FakeSource[catalog.Quest]{}
	q := NewQuests(quests, 25, nil, nil)
	defer q.Close()
	waitFor(t, q.Controller, settled[catalog.Quest])

	for _, set := range []func() error{
		func() error { return q.SetGiverFilter("Celeste") },
		func() error { return q.SetTypeFilter("Main") },
		func() error { return q.SetLocationFilter("Dam") },
	} {
		if err := set(); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, q.Controller, func(s State[catalog.Quest]) bool { return settled(s) && s.Seq == 4 })
	last, _ := quests.LastCall()
	if last.Limit != 25 {
		t.Errorf("limit = %d, want 25", last.Limit)
	}
	for field, want := range map[string]string{
		catalog.FieldGiver:    "Celeste",
		catalog.FieldType:     "Main",
		catalog.FieldLocation: "Dam",
	} {
		if got := last.Filter(field); got != want {
			t.Errorf("%s = %q, want %q", field, got, want)
		}
	}
	if err := q.SetFilter(catalog.FieldCategory, "Weapon"); !errors.Is(err, catalog.ErrUnknownFilter) {
		t.Errorf("quests accepted an item filter: %v", err)
	}

	items := &fakes.FakeSource[catalog.Item]{}
	it := NewItems(items, 0, nil, nil)
	defer it.Close()
	if err := it.SetCategoryFilter("Weapon"); err != nil {
		t.Fatal(err)
	}
	if err := it.SetRarityFilter("Epic"); err != nil {
		t.Fatal(err)
	}
	s := waitFor(t, it.Controller, func(s State[catalog.Item]) bool { return settled(s) && s.Seq == 3 })
	if s.Params.Filter(catalog.FieldCategory) != "Weapon" || s.Params.Filter(catalog.FieldRarity) != "Epic" {
		t.Errorf("params = %+v", s.Params)
	}
	if s.Params.Limit != catalog.DefaultPageSize {
		t.Errorf("limit = %d, want default", s.Params.Limit)
	}
}
