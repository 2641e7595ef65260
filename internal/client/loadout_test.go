package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	catalog "github.com/eugener/arcscout/internal"
	"github.com/eugener/arcscout/internal/telemetry"
)

func TestCalculateLoadout(t *testing.T) {
	t.Parallel()

	bodies := make(chan catalog.LoadoutRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/loadouts/calculate" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req catalog.LoadoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		bodies <- req
		fmt.Fprint(w, `{"weapons":[{"id":"w1"}],"armor":[],"stats":{"total_dps":123.5,"total_armor":0,"total_weight":4.2,"movement_penalty":0,"survivability_score":10}}`)
	}))
	defer srv.Close()

	reg := prometheus.NewPedanticRegistry()
	m := telemetry.NewMetrics(reg)
	c, mem := newTestClient(t, srv.URL, Options{Metrics: m})

	res, err := c.CalculateLoadout(context.Background(), catalog.LoadoutRequest{WeaponIDs: []string{"w1"}})
	if err != nil {
		t.Fatalf("CalculateLoadout: %v", err)
	}
	if res.Stats.TotalDPS != 123.5 {
		t.Errorf("TotalDPS = %v, want 123.5", res.Stats.TotalDPS)
	}
	if res.Stats.TotalWeight != 4.2 {
		t.Errorf("TotalWeight = %v, want 4.2", res.Stats.TotalWeight)
	}

	sent := <-bodies
	if len(sent.WeaponIDs) != 1 || sent.WeaponIDs[0] != "w1" {
		t.Errorf("weapon_ids = %v", sent.WeaponIDs)
	}
	if sent.ArmorIDs == nil {
		t.Error("armor_ids should be sent as an empty array, not null")
	}
	if mem.Len() != 0 {
		t.Error("calculation must not be cached")
	}
	if v := testutil.ToFloat64(m.Computations.WithLabelValues(telemetry.OutcomeOK)); v != 1 {
		t.Errorf("computations ok = %v, want 1", v)
	}
}

func TestCalculateLoadoutEmpty(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, Options{})
	_, err := c.CalculateLoadout(context.Background(), catalog.LoadoutRequest{})
	if !errors.Is(err, catalog.ErrEmptyLoadout) {
		t.Errorf("err = %v, want ErrEmptyLoadout", err)
	}
	if !errors.Is(err, catalog.ErrComputation) {
		t.Errorf("err = %v, want ErrComputation", err)
	}
	if hits.Load() != 0 {
		t.Error("empty selection must not reach the network")
	}
}

func TestCalculateLoadoutErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantIs  error
		wantAPI bool
	}{
		{"server error", http.StatusInternalServerError, `{"detail":"boom"}`, catalog.ErrComputation, true},
		{"bad request", http.StatusBadRequest, `{"detail":"unknown weapon"}`, catalog.ErrComputation, true},
		{"malformed", http.StatusOK, `{"stats":`, catalog.ErrParse, false},
		{"wrong shape", http.StatusOK, `{"stats":"high"}`, catalog.ErrParse, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			c, _ := newTestClient(t, srv.URL, Options{})
			res, err := c.CalculateLoadout(context.Background(), catalog.LoadoutRequest{ArmorIDs: []string{"a1"}})
			if res != nil {
				t.Errorf("result = %+v, want nil", res)
			}
			if !errors.Is(err, tt.wantIs) {
				t.Errorf("err = %v, want %v", err, tt.wantIs)
			}
			if !errors.Is(err, catalog.ErrComputation) {
				t.Errorf("err = %v, want ErrComputation", err)
			}
			var apiErr *APIError
			if got := errors.As(err, &apiErr); got != tt.wantAPI {
				t.Errorf("APIError = %v, want %v", got, tt.wantAPI)
			}
		})
	}
}
