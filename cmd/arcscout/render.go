package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	catalog "github.com/eugener/arcscout/internal"
	"github.com/eugener/arcscout/internal/loadout"
	"github.com/eugener/arcscout/internal/query"
)

func table(w io.Writer, header []string, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func intPtr(p *int) string {
	if p == nil {
		return "-"
	}
	return strconv.Itoa(*p)
}

func num(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func renderListHeader(w io.Writer, view string, p catalog.ListParams, total, shown int, errMsg string, loading bool) {
	var b strings.Builder
	b.WriteString(view)
	if p.FreeText != "" {
		fmt.Fprintf(&b, " q=%q", p.FreeText)
	}
	for _, f := range slices.Sorted(maps.Keys(p.Filters)) {
		fmt.Fprintf(&b, " %s=%q", f, p.Filters[f])
	}
	switch {
	case loading:
		b.WriteString(" (loading)")
	case shown == 0:
		fmt.Fprintf(&b, " (none of %d)", total)
	default:
		fmt.Fprintf(&b, " (%d-%d of %d)", p.Offset+1, p.Offset+shown, total)
	}
	fmt.Fprintln(w, b.String())
	if errMsg != "" {
		fmt.Fprintf(w, "! %s (dismiss to hide)\n", errMsg)
	}
}

func renderItemRows(w io.Writer, items []catalog.Item) {
	if len(items) == 0 {
		return
	}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{it.ID, it.Name, orDash(it.Category), orDash(it.Rarity), intPtr(it.Value)})
	}
	table(w, []string{"ID", "NAME", "CATEGORY", "RARITY", "VALUE"}, rows)
}

func renderQuestRows(w io.Writer, quests []catalog.Quest) {
	if len(quests) == 0 {
		return
	}
	rows := make([][]string, 0, len(quests))
	for _, q := range quests {
		rows = append(rows, []string{q.ID, q.Name, orDash(q.Giver), orDash(q.Type), orDash(q.Location)})
	}
	table(w, []string{"ID", "NAME", "GIVER", "TYPE", "LOCATION"}, rows)
}

func renderItem(w io.Writer, it catalog.Item) {
	fmt.Fprintf(w, "%s (%s)\n", it.Name, it.ID)
	fmt.Fprintf(w, "  category: %s", orDash(it.Category))
	if it.Subcategory != "" {
		fmt.Fprintf(w, " / %s", it.Subcategory)
	}
	fmt.Fprintf(w, "\n  rarity:   %s\n  value:    %s\n", orDash(it.Rarity), intPtr(it.Value))
	if it.Description != "" {
		fmt.Fprintf(w, "  %s\n", it.Description)
	}
	if len(it.Traders) > 0 {
		fmt.Fprintf(w, "  sold by:  %s\n", strings.Join(it.Traders, ", "))
	}
	if it.Crafting != nil && len(it.Crafting.Ingredients) > 0 {
		fmt.Fprintf(w, "  crafting: %s\n", formatCounts(it.Crafting.Ingredients))
	}
	if it.Recycle != nil && len(it.Recycle.Materials) > 0 {
		fmt.Fprintf(w, "  recycles: %s\n", formatCounts(it.Recycle.Materials))
	}
}

func formatCounts(m map[string]int) string {
	parts := make([]string, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		parts = append(parts, fmt.Sprintf("%s x%d", k, m[k]))
	}
	return strings.Join(parts, ", ")
}

func renderQuest(w io.Writer, q catalog.Quest) {
	fmt.Fprintf(w, "%s (%s)\n", q.Name, q.ID)
	fmt.Fprintf(w, "  giver: %s  type: %s  location: %s  level: %s\n",
		orDash(q.Giver), orDash(q.Type), orDash(q.Location), intPtr(q.LevelRequirement))
	if q.Description != "" {
		fmt.Fprintf(w, "  %s\n", q.Description)
	}
	for i, o := range q.Objectives {
		fmt.Fprintf(w, "  %d. %s\n", i+1, o.Description)
	}
	if q.Rewards != nil {
		fmt.Fprintf(w, "  rewards: xp %s, currency %s\n", intPtr(q.Rewards.Experience), intPtr(q.Rewards.Currency))
	}
}

func renderChain(w io.Writer, c catalog.QuestChain) {
	names := func(qs []catalog.Quest) string {
		if len(qs) == 0 {
			return "-"
		}
		out := make([]string, 0, len(qs))
		for _, q := range qs {
			out = append(out, q.Name)
		}
		return strings.Join(out, ", ")
	}
	fmt.Fprintf(w, "%s\n  after: %s\n  then:  %s\n", c.Quest.Name, names(c.Prerequisites), names(c.FollowUps))
}

func renderRequirements(w io.Writer, r catalog.QuestRequirements) {
	fmt.Fprintf(w, "%s needs:\n", orDash(r.QuestName))
	if len(r.RequiredItems) == 0 {
		fmt.Fprintln(w, "  nothing")
		return
	}
	rows := make([][]string, 0, len(r.RequiredItems))
	for _, ri := range r.RequiredItems {
		rows = append(rows, []string{ri.Item.ID, ri.Item.Name, strconv.Itoa(ri.Count)})
	}
	table(w, []string{"ID", "ITEM", "COUNT"}, rows)
}

func renderMaps(w io.Writer, list []catalog.GameMap) {
	rows := make([][]string, 0, len(list))
	for _, m := range list {
		rows = append(rows, []string{m.ID, m.Name, strconv.Itoa(len(m.Markers))})
	}
	table(w, []string{"ID", "NAME", "MARKERS"}, rows)
}

func renderMap(w io.Writer, m catalog.GameMap) {
	fmt.Fprintf(w, "%s (%s)\n", m.Name, m.ID)
	if m.Description != "" {
		fmt.Fprintf(w, "  %s\n", m.Description)
	}
	fmt.Fprintf(w, "  markers: %d  zones: %d  extractions: %d\n", len(m.Markers), len(m.Zones), len(m.Extractions))
}

func renderMarkers(w io.Writer, markers []catalog.MapMarker) {
	rows := make([][]string, 0, len(markers))
	for _, mk := range markers {
		rows = append(rows, []string{mk.ID, mk.Name, mk.Type, num(mk.X) + "," + num(mk.Y)})
	}
	table(w, []string{"ID", "NAME", "TYPE", "POS"}, rows)
}

func renderWeapons(w io.Writer, weapons []catalog.Weapon) {
	rows := make([][]string, 0, len(weapons))
	for _, wp := range weapons {
		dps := "-"
		if wp.CalculatedDPS != nil {
			dps = num(*wp.CalculatedDPS)
		}
		rows = append(rows, []string{wp.ID, wp.Name, wp.Type, orDash(wp.Rarity), num(wp.BaseDamage), dps})
	}
	table(w, []string{"ID", "NAME", "TYPE", "RARITY", "DAMAGE", "DPS"}, rows)
}

func renderArmor(w io.Writer, armor []catalog.ArmorPiece) {
	rows := make([][]string, 0, len(armor))
	for _, a := range armor {
		rows = append(rows, []string{a.ID, a.Name, a.Slot, orDash(a.Rarity), num(a.ArmorValue), num(a.Weight)})
	}
	table(w, []string{"ID", "NAME", "SLOT", "RARITY", "ARMOR", "WEIGHT"}, rows)
}

func renderTiers(w io.Writer, tiers catalog.TierList) {
	if len(tiers) == 0 {
		fmt.Fprintln(w, "no tier list")
		return
	}
	for _, tier := range slices.Sorted(maps.Keys(tiers)) {
		names := make([]string, 0, len(tiers[tier]))
		for _, wp := range tiers[tier] {
			names = append(names, wp.Name)
		}
		fmt.Fprintf(w, "%s: %s\n", tier, strings.Join(names, ", "))
	}
}

func renderEvents(w io.Writer, events []catalog.Event) {
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, []string{e.ID, e.DisplayName(), orDash(e.Location), orDash(e.StartTime), orDash(e.EndTime)})
	}
	table(w, []string{"ID", "EVENT", "LOCATION", "START", "END"}, rows)
}

func renderTraders(w io.Writer, traders []catalog.Trader) {
	rows := make([][]string, 0, len(traders))
	for _, t := range traders {
		rows = append(rows, []string{t.ID, t.Name, orDash(t.Location), orDash(t.Specialization)})
	}
	table(w, []string{"ID", "NAME", "LOCATION", "SPECIALIZATION"}, rows)
}

func renderStats(w io.Writer, st catalog.Stats) {
	fmt.Fprintf(w, "items: %d  categories: %d  rarities: %d\n", st.TotalItems, st.Categories, st.Rarities)
	if len(st.DataSources) > 0 {
		fmt.Fprintf(w, "sources: %s\n", strings.Join(st.DataSources, ", "))
	}
}

func renderOptions(w io.Writer, o *query.OptionList) {
	vals := o.Values()
	if len(vals) == 0 {
		fmt.Fprintf(w, "%s: none available\n", o.Name())
		return
	}
	fmt.Fprintf(w, "%s: %s\n", o.Name(), strings.Join(vals, ", "))
}

func renderLoadout(w io.Writer, st loadout.State) {
	sel := st.Selection
	fmt.Fprintf(w, "weapons: %s\narmor:   %s\n",
		orDash(strings.Join(sel.WeaponIDs(), ", ")), orDash(strings.Join(sel.ArmorIDs(), ", ")))
	switch {
	case st.Loading:
		fmt.Fprintln(w, "calculating...")
	case st.Err != "":
		fmt.Fprintf(w, "! %s\n", st.Err)
	case st.Result != nil:
		s := st.Result.Stats
		fmt.Fprintf(w, "dps %s  armor %s  weight %s  movement %s  survivability %s\n",
			num(s.TotalDPS), num(s.TotalArmor), num(s.TotalWeight), num(s.MovementPenalty), num(s.SurvivabilityScore))
	}
}
