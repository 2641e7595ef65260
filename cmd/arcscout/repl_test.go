package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eugener/arcscout/internal/cache"
	"github.com/eugener/arcscout/internal/client"
)

// fakeAPI serves a small catalog and records the item queries it receives.
type fakeAPI struct {
	mu         sync.Mutex
	itemQuery  []string
	itemsDown  bool
	calculated []json.RawMessage

	// categoryFailures makes the next n category loads fail.
	categoryFailures atomic.Int32
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /items", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.itemQuery = append(f.itemQuery, r.URL.RawQuery)
		down := f.itemsDown
		f.mu.Unlock()
		if down {
			http.Error(w, `{"detail":"maintenance"}`, http.StatusServiceUnavailable)
			return
		}
		if r.URL.Query().Get("category") == "Material" {
			fmt.Fprint(w, `{"items":[{"id":"m1","name":"Scrap","category":"Material"}],"total":1}`)
			return
		}
		fmt.Fprint(w, `{"items":[{"id":"a1","name":"Anvil","category":"Weapon","value":640},{"id":"f1","name":"Ferro","category":"Weapon"}],"total":2}`)
	})
	mux.HandleFunc("GET /items/categories", func(w http.ResponseWriter, _ *http.Request) {
		if f.categoryFailures.Add(-1) >= 0 {
			http.Error(w, `{"detail":"starting"}`, http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"categories":["Weapon","Material"]}`)
	})
	mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id":%q,"name":"Anvil","category":"Weapon","traders":["Lance"]}`, r.PathValue("id"))
	})
	mux.HandleFunc("GET /quests", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"quests":[{"id":"q1","name":"Picking Up The Pieces","giver":"Shani"}],"total":1}`)
	})
	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"total_items":312,"categories":9,"rarities":5}`)
	})
	mux.HandleFunc("GET /loadouts/weapons", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"weapons":[{"id":"w1","name":"Kettle","type":%q,"base_damage":20}]}`, r.URL.Query().Get("type"))
	})
	mux.HandleFunc("POST /loadouts/calculate", func(w http.ResponseWriter, r *http.Request) {
		var body json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.calculated = append(f.calculated, body)
		f.mu.Unlock()
		fmt.Fprint(w, `{"stats":{"total_dps":42,"total_armor":10,"total_weight":3.5,"movement_penalty":0,"survivability_score":7}}`)
	})
	return mux
}

func newTestSession(t *testing.T, api *fakeAPI, out *bytes.Buffer) *session {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	mem, err := cache.NewMemory(nil)
	if err != nil {
		t.Fatal(err)
	}
	c, err := client.New(srv.URL, client.Options{Cache: mem})
	if err != nil {
		t.Fatal(err)
	}
	s := newSession(c, 2, nil, nil, out)
	t.Cleanup(s.close)
	return s
}

func runScript(t *testing.T, api *fakeAPI, script string) string {
	t.Helper()
	var out bytes.Buffer
	s := newTestSession(t, api, &out)
	if err := s.repl(context.Background(), strings.NewReader(script)); err != nil {
		t.Fatalf("repl: %v", err)
	}
	return out.String()
}

func TestREPL_InitialPage(t *testing.T) {
	t.Parallel()
	out := runScript(t, &fakeAPI{}, "")
	for _, want := range []string{"items (1-2 of 2)", "Anvil", "640", "Ferro", "items> "} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestREPL_FilterSuggestsAndCanonicalizes(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{}
	out := runScript(t, api, "filter category materil\nfilter category material\n")

	if !strings.Contains(out, `did you mean "Material"?`) {
		t.Errorf("missing suggestion:\n%s", out)
	}
	if !strings.Contains(out, `category="Material"`) || !strings.Contains(out, "Scrap") {
		t.Errorf("filtered page not rendered:\n%s", out)
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	// initial load plus the canonicalized filter; the typo never hits the API
	if len(api.itemQuery) != 2 {
		t.Fatalf("item queries = %v", api.itemQuery)
	}
	if got := api.itemQuery[1]; got != "category=Material&limit=2" {
		t.Errorf("filtered query = %q", got)
	}
}

func TestREPL_SearchAndPaginate(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{}
	runScript(t, api, "search rifle\nnext\nprev\n")

	api.mu.Lock()
	defer api.mu.Unlock()
	want := []string{"limit=2", "limit=2&q=rifle", "limit=2&offset=2&q=rifle", "limit=2&q=rifle"}
	if fmt.Sprint(api.itemQuery) != fmt.Sprint(want) {
		t.Errorf("queries = %v, want %v", api.itemQuery, want)
	}
}

func TestREPL_ErrorBannerAndDismiss(t *testing.T) {
	t.Parallel()
	out := runScript(t, &fakeAPI{itemsDown: true}, "dismiss\n")

	if strings.Count(out, "dismiss to hide") != 1 {
		t.Errorf("banner should show once, before dismiss:\n%s", out)
	}
	if !strings.Contains(out, "HTTP 503") {
		t.Errorf("banner missing status:\n%s", out)
	}
}

func TestREPL_QuestView(t *testing.T) {
	t.Parallel()
	out := runScript(t, &fakeAPI{}, "quests\nfilter giver Shani\n")
	if !strings.Contains(out, "Picking Up The Pieces") {
		t.Errorf("quest list not rendered:\n%s", out)
	}
	if !strings.Contains(out, "quests> ") {
		t.Errorf("prompt did not switch view:\n%s", out)
	}
}

func TestREPL_Details(t *testing.T) {
	t.Parallel()
	out := runScript(t, &fakeAPI{}, "item a1\nstats\nweapons type=Rifle\n")
	for _, want := range []string{"Anvil (a1)", "sold by:  Lance", "items: 312", "Kettle", "Rifle"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestREPL_Loadout(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{}
	out := runScript(t, api, "equip w1\nclear\n")

	if !strings.Contains(out, "weapons: w1") || !strings.Contains(out, "dps 42") {
		t.Errorf("loadout not rendered:\n%s", out)
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	// clear empties the selection, which never reaches the API
	if len(api.calculated) != 1 {
		t.Fatalf("calculations = %d, want 1", len(api.calculated))
	}
	if got := string(api.calculated[0]); got != `{"weapon_ids":["w1"],"armor_ids":[]}` {
		t.Errorf("body = %s", got)
	}
}

func TestREPL_Errors(t *testing.T) {
	t.Parallel()
	out := runScript(t, &fakeAPI{}, "bogus\nitem\nfilter colour red\nweapons kind=Rifle\nquit\nstats\n")
	for _, want := range []string{
		`unknown command "bogus"`,
		"usage: item <id>",
		"unknown filter",
		`unknown parameter "kind"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "items: 312") {
		t.Error("commands after quit were executed")
	}
}

func TestParseKV(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		args    []string
		want    map[string]string
		wantErr bool
	}{
		{"empty", nil, map[string]string{}, false},
		{"known", []string{"type=Rifle", "Rarity=Epic"}, map[string]string{"type": "Rifle", "rarity": "Epic"}, false},
		{"empty value", []string{"type="}, map[string]string{"type": ""}, false},
		{"no equals", []string{"Rifle"}, nil, true},
		{"unknown key", []string{"slot=head"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseKV(tt.args, "type", "rarity")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestREPL_OptionsLoadLazilyAfterFailure(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{}
	api.categoryFailures.Store(1)
	out := runScript(t, api, "filter category materil\n")

	if !strings.Contains(out, `did you mean "Material"?`) {
		t.Errorf("categories were not reloaded for the filter:\n%s", out)
	}
}

func TestREPL_RefreshReloadsOptions(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{}
	api.categoryFailures.Store(1)
	out := runScript(t, api, "options category\nrefresh\noptions category\n")

	if !strings.Contains(out, "categories: none available") {
		t.Errorf("first listing should be empty:\n%s", out)
	}
	if !strings.Contains(out, "categories: Weapon, Material") {
		t.Errorf("refresh did not reload categories:\n%s", out)
	}
}

func TestREPL_CancelWhileWaitingForInput(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	s := newTestSession(t, &fakeAPI{}, &out)
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.repl(ctx, pr) }()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("repl kept waiting for input after cancel")
	}
}
