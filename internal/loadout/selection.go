// Package loadout owns the weapon and armor selection of the loadout view
// and the server-computed stats derived from it.
package loadout

import (
	"maps"
	"slices"

	catalog "github.com/eugener/arcscout/internal"
)

type idSet map[string]struct{}

// toggle removes id if present, otherwise adds it. It reports whether id is
// selected afterwards.
func (s idSet) toggle(id string) bool {
	if _, ok := s[id]; ok {
		delete(s, id)
		return false
	}
	s[id] = struct{}{}
	return true
}

func (s idSet) sorted() []string { return slices.Sorted(maps.Keys(s)) }

// Selection is the set of selected weapon and armor ids. The zero value is
// an empty selection.
type Selection struct {
	weapons idSet
	armor   idSet
}

// ToggleWeapon flips the membership of a weapon id and reports whether it is
// now selected.
func (s *Selection) ToggleWeapon(id string) bool {
	if s.weapons == nil {
		s.weapons = idSet{}
	}
	return s.weapons.toggle(id)
}

// ToggleArmor flips the membership of an armor id and reports whether it is
// now selected.
func (s *Selection) ToggleArmor(id string) bool {
	if s.armor == nil {
		s.armor = idSet{}
	}
	return s.armor.toggle(id)
}

// HasWeapon reports whether the weapon id is selected.
func (s Selection) HasWeapon(id string) bool {
	_, ok := s.weapons[id]
	return ok
}

// HasArmor reports whether the armor id is selected.
func (s Selection) HasArmor(id string) bool {
	_, ok := s.armor[id]
	return ok
}

// WeaponIDs returns the selected weapon ids in sorted order.
func (s Selection) WeaponIDs() []string { return s.weapons.sorted() }

// ArmorIDs returns the selected armor ids in sorted order.
func (s Selection) ArmorIDs() []string { return s.armor.sorted() }

// Len returns the number of selected ids.
func (s Selection) Len() int { return len(s.weapons) + len(s.armor) }

// Empty reports whether nothing is selected.
func (s Selection) Empty() bool { return s.Len() == 0 }

// Request builds the calculation body for the selection.
func (s Selection) Request() catalog.LoadoutRequest {
	return catalog.LoadoutRequest{WeaponIDs: s.WeaponIDs(), ArmorIDs: s.ArmorIDs()}
}

// Clone returns an independent copy.
func (s Selection) Clone() Selection {
	return Selection{weapons: maps.Clone(s.weapons), armor: maps.Clone(s.armor)}
}
