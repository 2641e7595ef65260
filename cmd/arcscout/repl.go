package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	catalog "github.com/eugener/arcscout/internal"
	"github.com/eugener/arcscout/internal/loadout"
	"github.com/eugener/arcscout/internal/query"
)

const settleTimeout = 30 * time.Second

var errUsage = errors.New("usage")

const helpText = `views:
  items | quests              switch the list view
  search [text]               set free text on the current view (empty clears)
  filter <field> [value]      set a filter on the current view (no value clears)
  next | prev | refresh       paginate or re-run the current view
  dismiss                     hide the error banner
  show                        render the current view
  options <field>             list known values for a filter
details:
  item <id> | related <id>
  quest <id> | chain <id> | reqs <id>
  maps | map <id> | markers <map-id> [type=...]
  weapons [type=...] [rarity=...] | armor [slot=...] [rarity=...] | tiers
  events | traders | stats
loadout:
  equip <weapon-id> | wear <armor-id> | clear | loadout
  quit`

// repl reads commands from in until EOF, quit, or ctx is done. Lines are
// read on their own goroutine so cancellation does not wait for input; that
// goroutine exits once in is closed.
func (s *session) repl(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.loadOptions(ctx)
	s.renderItems(awaitList(ctx, s.items.Controller))

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	s.prompt()
	for {
		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return ctx.Err()
				}
			}
			line = l
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			s.prompt()
			continue
		}
		cmd, args := strings.ToLower(fields[0]), fields[1:]
		if cmd == "quit" || cmd == "exit" {
			return nil
		}
		if err := s.exec(ctx, cmd, args); err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
		s.prompt()
	}
}

// loadOptions fetches every option list that is still empty.
func (s *session) loadOptions(ctx context.Context) {
	for _, o := range s.options {
		if len(o.Values()) == 0 {
			o.Load(ctx)
		}
	}
}

func (s *session) prompt() { fmt.Fprintf(s.out, "%s> ", s.view) }

func (s *session) exec(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help", "?":
		fmt.Fprintln(s.out, helpText)
		return nil

	case "items", "quests":
		s.view = cmd
		return s.showView(ctx)
	case "search":
		return s.listIntent(ctx, query.SetFreeText{Text: strings.Join(args, " ")})
	case "filter":
		return s.filter(ctx, args)
	case "next":
		return s.listIntent(ctx, query.NextPage{})
	case "prev":
		return s.listIntent(ctx, query.PrevPage{})
	case "refresh":
		s.loadOptions(ctx)
		return s.listIntent(ctx, query.Refresh{})
	case "dismiss":
		return s.listIntent(ctx, query.DismissError{})
	case "show":
		return s.showView(ctx)
	case "options":
		if len(args) != 1 {
			return fmt.Errorf("%w: options <field>", errUsage)
		}
		o, ok := s.options[args[0]]
		if !ok {
			return fmt.Errorf("no option list for %q", args[0])
		}
		renderOptions(s.out, o)
		return nil

	case "item", "related", "quest", "chain", "reqs", "map":
		if len(args) != 1 {
			return fmt.Errorf("%w: %s <id>", errUsage, cmd)
		}
		return s.detail(ctx, cmd, args[0])
	case "markers":
		if len(args) == 0 {
			return fmt.Errorf("%w: markers <map-id> [type=...]", errUsage)
		}
		kv, err := parseKV(args[1:], "type")
		if err != nil {
			return err
		}
		markers, err := s.api.MapMarkers(ctx, args[0], kv["type"])
		if err != nil {
			return err
		}
		renderMarkers(s.out, markers)
		return nil
	case "maps":
		list, err := s.api.Maps(ctx)
		if err != nil {
			return err
		}
		renderMaps(s.out, list)
		return nil
	case "weapons":
		kv, err := parseKV(args, "type", "rarity")
		if err != nil {
			return err
		}
		weapons, err := s.api.Weapons(ctx, kv["type"], kv["rarity"])
		if err != nil {
			return err
		}
		renderWeapons(s.out, weapons)
		return nil
	case "armor":
		kv, err := parseKV(args, "slot", "rarity")
		if err != nil {
			return err
		}
		armor, err := s.api.Armor(ctx, kv["slot"], kv["rarity"])
		if err != nil {
			return err
		}
		renderArmor(s.out, armor)
		return nil
	case "tiers":
		tiers, err := s.api.TierList(ctx)
		if err != nil {
			return err
		}
		renderTiers(s.out, tiers)
		return nil
	case "events":
		events, err := s.api.Events(ctx)
		if err != nil {
			return err
		}
		renderEvents(s.out, events)
		return nil
	case "traders":
		traders, err := s.api.Traders(ctx)
		if err != nil {
			return err
		}
		renderTraders(s.out, traders)
		return nil
	case "stats":
		st, err := s.api.Stats(ctx)
		if err != nil {
			return err
		}
		renderStats(s.out, st)
		return nil

	case "equip", "wear":
		if len(args) != 1 {
			return fmt.Errorf("%w: %s <id>", errUsage, cmd)
		}
		toggle := s.loadout.ToggleWeapon
		if cmd == "wear" {
			toggle = s.loadout.ToggleArmor
		}
		if err := toggle(args[0]); err != nil {
			return err
		}
		renderLoadout(s.out, awaitLoadout(ctx, s.loadout))
		return nil
	case "clear":
		if err := s.loadout.Clear(); err != nil {
			return err
		}
		renderLoadout(s.out, s.loadout.Snapshot())
		return nil
	case "loadout":
		renderLoadout(s.out, awaitLoadout(ctx, s.loadout))
		return nil
	}
	return fmt.Errorf("unknown command %q (try help)", cmd)
}

// listIntent dispatches in to the current view and renders the settled state.
func (s *session) listIntent(ctx context.Context, in query.Intent) error {
	if s.view == "quests" {
		if err := s.quests.Dispatch(in); err != nil {
			return err
		}
	} else if err := s.items.Dispatch(in); err != nil {
		return err
	}
	return s.showView(ctx)
}

func (s *session) showView(ctx context.Context) error {
	if s.view == "quests" {
		s.renderQuests(awaitList(ctx, s.quests.Controller))
	} else {
		s.renderItems(awaitList(ctx, s.items.Controller))
	}
	return nil
}

// filter resolves a filter value against its option list before dispatching,
// so typos get a suggestion instead of an empty page.
func (s *session) filter(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: filter <field> [value]", errUsage)
	}
	field, value := strings.ToLower(args[0]), strings.Join(args[1:], " ")
	if value == "-" {
		value = ""
	}
	o, ok := s.options[field]
	if ok && value != "" && len(o.Values()) == 0 {
		o.Load(ctx)
	}
	if ok && value != "" && len(o.Values()) > 0 {
		if canon, ok := o.Canonical(value); ok {
			value = canon
		} else if guess, ok := o.Closest(value); ok {
			return fmt.Errorf("unknown %s %q, did you mean %q?", field, value, guess)
		} else {
			return fmt.Errorf("unknown %s %q; see: options %s", field, value, field)
		}
	}
	return s.listIntent(ctx, query.SetFilter{Field: field, Value: value})
}

func (s *session) detail(ctx context.Context, cmd, id string) error {
	switch cmd {
	case "item":
		item, err := s.api.Item(ctx, id)
		if err != nil {
			return err
		}
		renderItem(s.out, item)
	case "related":
		items, err := s.api.RelatedItems(ctx, id)
		if err != nil {
			return err
		}
		renderItemRows(s.out, items)
	case "quest":
		q, err := s.api.Quest(ctx, id)
		if err != nil {
			return err
		}
		renderQuest(s.out, q)
	case "chain":
		chain, err := s.api.QuestChain(ctx, id)
		if err != nil {
			return err
		}
		renderChain(s.out, chain)
	case "reqs":
		reqs, err := s.api.QuestRequirements(ctx, id)
		if err != nil {
			return err
		}
		renderRequirements(s.out, reqs)
	case "map":
		m, err := s.api.Map(ctx, id)
		if err != nil {
			return err
		}
		renderMap(s.out, m)
	}
	return nil
}

// parseKV parses key=value arguments, accepting only the given keys.
func parseKV(args []string, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok {
			return nil, fmt.Errorf("%w: expected key=value, got %q", errUsage, a)
		}
		k = strings.ToLower(k)
		known := false
		for _, want := range keys {
			if k == want {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown parameter %q (accepted: %s)", k, strings.Join(keys, ", "))
		}
		out[k] = v
	}
	return out, nil
}

// awaitList waits for the latest request of c to settle.
func awaitList[T any](ctx context.Context, c *query.Controller[T]) query.State[T] {
	timer := time.NewTimer(settleTimeout)
	defer timer.Stop()
	for {
		st := c.Snapshot()
		if !st.Result.Loading {
			return st
		}
		select {
		case _, ok := <-c.Changes():
			if !ok {
				return c.Snapshot()
			}
		case <-timer.C:
			return c.Snapshot()
		case <-ctx.Done():
			return c.Snapshot()
		}
	}
}

// awaitLoadout waits for the latest calculation to settle.
func awaitLoadout(ctx context.Context, c *loadout.Controller) loadout.State {
	timer := time.NewTimer(settleTimeout)
	defer timer.Stop()
	for {
		st := c.Snapshot()
		if !st.Loading {
			return st
		}
		select {
		case _, ok := <-c.Changes():
			if !ok {
				return c.Snapshot()
			}
		case <-timer.C:
			return c.Snapshot()
		case <-ctx.Done():
			return c.Snapshot()
		}
	}
}

func (s *session) renderItems(st query.State[catalog.Item]) {
	renderListHeader(s.out, "items", st.Params, st.Result.Total, len(st.Result.Items), st.Result.Err, st.Result.Loading)
	renderItemRows(s.out, st.Result.Items)
}

func (s *session) renderQuests(st query.State[catalog.Quest]) {
	renderListHeader(s.out, "quests", st.Params, st.Result.Total, len(st.Result.Items), st.Result.Err, st.Result.Loading)
	renderQuestRows(s.out, st.Result.Items)
}
