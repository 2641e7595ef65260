// Package catalog defines domain types for the arcscout game-reference client.
// This package has no project imports -- it is the dependency root.
package catalog

import (
	"encoding/json"
	"maps"
	"net/url"
	"slices"
	"strconv"
)

// --- Request signatures ---

// Signature identifies a cacheable read request: the endpoint path plus its
// canonical query string. Equal signatures are equivalent for caching.
type Signature struct {
	Path  string
	Query string
}

// NewSignature builds a Signature from a path and query values. Empty values
// are dropped and keys are sorted, so identical parameter sets always produce
// identical signatures.
func NewSignature(path string, q url.Values) Signature {
	clean := make(url.Values, len(q))
	for k, vs := range q {
		for _, v := range vs {
			if v != "" {
				clean.Add(k, v)
			}
		}
	}
	return Signature{Path: path, Query: clean.Encode()} // Encode sorts by key
}

// String returns the signature in request-URI form.
func (s Signature) String() string {
	if s.Query == "" {
		return s.Path
	}
	return s.Path + "?" + s.Query
}

// --- List queries ---

// Filter field names accepted by the list endpoints.
const (
	FieldCategory    = "category"
	FieldRarity      = "rarity"
	FieldSubcategory = "subcategory"
	FieldTrader      = "trader"
	FieldMinValue    = "min_value"
	FieldMaxValue    = "max_value"

	FieldGiver    = "giver"
	FieldType     = "type"
	FieldLocation = "location"
)

// ItemFilterFields lists the filters /items understands.
var ItemFilterFields = []string{FieldCategory, FieldRarity, FieldSubcategory, FieldTrader, FieldMinValue, FieldMaxValue}

// QuestFilterFields lists the filters /quests understands.
var QuestFilterFields = []string{FieldGiver, FieldType, FieldLocation}

// DefaultPageSize is the page size list views start with.
const DefaultPageSize = 50

// ListParams is the query state of a paginated, filterable list view.
type ListParams struct {
	FreeText string            `json:"q,omitempty"`
	Filters  map[string]string `json:"filters,omitempty"` // field -> value; empty value = unset
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// DefaultListParams returns the params a list view is constructed with.
func DefaultListParams() ListParams {
	return ListParams{Limit: DefaultPageSize}
}

// Filter returns the value of the named filter, or "" when unset.
func (p ListParams) Filter(field string) string { return p.Filters[field] }

// Clone returns a copy that shares no mutable state with p.
func (p ListParams) Clone() ListParams {
	p.Filters = maps.Clone(p.Filters)
	return p
}

// Values encodes p as query values. Unset strings and zero numbers are
// omitted rather than sent empty.
func (p ListParams) Values() url.Values {
	v := url.Values{}
	if p.FreeText != "" {
		v.Set("q", p.FreeText)
	}
	for _, field := range slices.Sorted(maps.Keys(p.Filters)) {
		if val := p.Filters[field]; val != "" {
			v.Set(field, val)
		}
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		v.Set("offset", strconv.Itoa(p.Offset))
	}
	return v
}

// Page is one page of a list endpoint.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// --- Items ---

// Item is a game item record.
type Item struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description,omitempty"`
	Category          string          `json:"category"`
	Subcategory       string          `json:"subcategory,omitempty"`
	Rarity            string          `json:"rarity,omitempty"`
	Weight            *float64        `json:"weight,omitempty"`
	Value             *int            `json:"value,omitempty"`
	Stats             *ItemStats      `json:"stats,omitempty"`
	Crafting          *CraftingRecipe `json:"crafting,omitempty"`
	Recycle           *RecycleYield   `json:"recycle,omitempty"`
	Traders           []string        `json:"traders,omitempty"`
	QuestRequirements []string        `json:"quest_requirements,omitempty"`
	ImageURL          string          `json:"image_url,omitempty"`
}

// ItemStats holds optional combat and handling stats.
type ItemStats struct {
	Damage     *float64 `json:"damage,omitempty"`
	FireRate   *float64 `json:"fire_rate,omitempty"`
	Accuracy   *float64 `json:"accuracy,omitempty"`
	Range      *float64 `json:"range,omitempty"`
	Armor      *float64 `json:"armor,omitempty"`
	Durability *float64 `json:"durability,omitempty"`
	Weight     *float64 `json:"weight,omitempty"`
}

// CraftingRecipe describes how an item is crafted.
type CraftingRecipe struct {
	ResultQuantity       int            `json:"result_quantity"`
	Ingredients          map[string]int `json:"ingredients,omitempty"`
	CraftingTime         *int           `json:"crafting_time,omitempty"`
	RequiredHideoutLevel *int           `json:"required_hideout_level,omitempty"`
}

// RecycleYield lists materials returned by recycling an item.
type RecycleYield struct {
	Materials map[string]int `json:"materials,omitempty"`
}

// --- Quests ---

// Quest is a quest record.
type Quest struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Description      string            `json:"description,omitempty"`
	Giver            string            `json:"giver,omitempty"`
	Type             string            `json:"type,omitempty"`
	LevelRequirement *int              `json:"level_requirement,omitempty"`
	Prerequisites    []string          `json:"prerequisites,omitempty"`
	Objectives       []QuestObjective  `json:"objectives,omitempty"`
	RequiredItems    []json.RawMessage `json:"required_items,omitempty"`
	Rewards          *QuestReward      `json:"rewards,omitempty"`
	Location         string            `json:"location,omitempty"`
	ImageURL         string            `json:"image_url,omitempty"`
}

// QuestObjective is a single step of a quest.
type QuestObjective struct {
	Description string `json:"description"`
	Type        string `json:"type"`
	Target      string `json:"target,omitempty"`
	Count       *int   `json:"count,omitempty"`
	Location    string `json:"location,omitempty"`
}

// QuestReward is what completing a quest pays out.
type QuestReward struct {
	Experience *int              `json:"experience,omitempty"`
	Currency   *int              `json:"currency,omitempty"`
	Items      []json.RawMessage `json:"items,omitempty"`
	Reputation json.RawMessage   `json:"reputation,omitempty"`
}

// QuestChain is a quest with its prerequisites and follow-ups.
type QuestChain struct {
	Quest         Quest   `json:"quest"`
	Prerequisites []Quest `json:"prerequisites"`
	FollowUps     []Quest `json:"follow_ups"`
}

// QuestRequirements lists the items a quest needs.
type QuestRequirements struct {
	QuestID       string         `json:"quest_id"`
	QuestName     string         `json:"quest_name"`
	RequiredItems []RequiredItem `json:"required_items"`
}

// RequiredItem is an item and the count a quest needs of it.
type RequiredItem struct {
	Item  Item `json:"item"`
	Count int  `json:"count"`
}

// --- Maps ---

// GameMap is a map record.
type GameMap struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description,omitempty"`
	ImageURL     string      `json:"image_url,omitempty"`
	ThumbnailURL string      `json:"thumbnail_url,omitempty"`
	Width        *int        `json:"width,omitempty"`
	Height       *int        `json:"height,omitempty"`
	Markers      []MapMarker `json:"markers,omitempty"`
	Zones        []MapZone   `json:"zones,omitempty"`
	Extractions  []MapMarker `json:"extractions,omitempty"`
}

// MapMarker is a point of interest on a map.
type MapMarker struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Type        string   `json:"type"` // extraction, loot, enemy, quest, trader, landmark
	X           float64  `json:"x"`
	Y           float64  `json:"y"`
	Description string   `json:"description,omitempty"`
	Icon        string   `json:"icon,omitempty"`
	Items       []string `json:"items,omitempty"`
	Quests      []string `json:"quests,omitempty"`
}

// MapZone is a polygonal region of a map.
type MapZone struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	Bounds      []json.RawMessage `json:"bounds,omitempty"`
	ThreatLevel *int              `json:"threat_level,omitempty"`
	Description string            `json:"description,omitempty"`
}

// --- Loadouts ---

// Weapon is a weapon record with the server-computed DPS.
type Weapon struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Type          string   `json:"type"`
	Rarity        string   `json:"rarity,omitempty"`
	BaseDamage    float64  `json:"base_damage"`
	FireRate      float64  `json:"fire_rate"` // rounds per minute
	Accuracy      float64  `json:"accuracy"`  // percent
	Recoil        float64  `json:"recoil"`
	Range         float64  `json:"range"`
	MagazineSize  int      `json:"magazine_size"`
	ReloadTime    float64  `json:"reload_time"` // seconds
	ModSlots      []string `json:"mod_slots,omitempty"`
	ImageURL      string   `json:"image_url,omitempty"`
	CalculatedDPS *float64 `json:"calculated_dps,omitempty"`
}

// ArmorPiece is an armor record.
type ArmorPiece struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Slot           string   `json:"slot"` // head, chest, legs
	Rarity         string   `json:"rarity,omitempty"`
	ArmorValue     float64  `json:"armor_value"`
	Durability     float64  `json:"durability"`
	Weight         float64  `json:"weight"`
	SpecialEffects []string `json:"special_effects,omitempty"`
	ImageURL       string   `json:"image_url,omitempty"`
}

// TierList maps a tier label (S, A, B, ...) to its weapons.
type TierList map[string][]Weapon

// LoadoutRequest is the body of a loadout calculation.
type LoadoutRequest struct {
	WeaponIDs []string `json:"weapon_ids"`
	ArmorIDs  []string `json:"armor_ids"`
}

// Empty reports whether the request selects nothing.
func (r LoadoutRequest) Empty() bool { return len(r.WeaponIDs) == 0 && len(r.ArmorIDs) == 0 }

// LoadoutStats is the aggregate computed for a loadout.
type LoadoutStats struct {
	TotalDPS           float64 `json:"total_dps"`
	TotalArmor         float64 `json:"total_armor"`
	TotalWeight        float64 `json:"total_weight"`
	MovementPenalty    float64 `json:"movement_penalty"`
	SurvivabilityScore float64 `json:"survivability_score"`
}

// LoadoutResult is the calculation response. Weapons and Armor echo the
// resolved selection and are passed through untouched.
type LoadoutResult struct {
	Stats   LoadoutStats    `json:"stats"`
	Weapons json.RawMessage `json:"weapons,omitempty"`
	Armor   json.RawMessage `json:"armor,omitempty"`
}

// --- Events ---

// Event is a timed in-game event.
type Event struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Title       string `json:"title,omitempty"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	StartTime   string `json:"start_time,omitempty"`
	EndTime     string `json:"end_time,omitempty"`
	Rewards     string `json:"rewards,omitempty"`
}

// DisplayName returns Name, falling back to Title.
func (e Event) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Title
}

// Trader is a vendor NPC.
type Trader struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Location       string            `json:"location,omitempty"`
	Description    string            `json:"description,omitempty"`
	Specialization string            `json:"specialization,omitempty"`
	Inventory      []json.RawMessage `json:"inventory,omitempty"`
	ResetTime      string            `json:"reset_time,omitempty"`
	ImageURL       string            `json:"image_url,omitempty"`
}

// Stats is the database summary served by /stats.
type Stats struct {
	TotalItems  int      `json:"total_items"`
	Categories  int      `json:"categories"`
	Rarities    int      `json:"rarities"`
	DataSources []string `json:"data_sources,omitempty"`
}
