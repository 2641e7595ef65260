package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/tidwall/gjson"

	catalog "github.com/eugener/arcscout/internal"
)

// getJSON fetches sig and decodes the whole payload into T.
func getJSON[T any](ctx context.Context, c *Client, sig catalog.Signature) (T, error) {
	var out T
	_, err := c.fetch(ctx, sig, func(payload json.RawMessage) error {
		var v T
		if err := json.Unmarshal(payload, &v); err != nil {
			return fmt.Errorf("decode %s: %w: %v", sig, catalog.ErrParse, err)
		}
		out = v
		return nil
	})
	return out, err
}

// getList fetches sig and decodes the array under the first present key.
// A payload with none of the keys yields an empty, non-nil slice.
func getList[T any](ctx context.Context, c *Client, sig catalog.Signature, keys ...string) ([]T, error) {
	var out []T
	_, err := c.fetch(ctx, sig, func(payload json.RawMessage) error {
		items, err := decodeList[T](payload, sig, keys...)
		if err != nil {
			return err
		}
		out = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// getPage fetches a paginated list whose items live under key.
func getPage[T any](ctx context.Context, c *Client, sig catalog.Signature, key string) (catalog.Page[T], error) {
	var page catalog.Page[T]
	_, err := c.fetch(ctx, sig, func(payload json.RawMessage) error {
		items, err := decodeList[T](payload, sig, key)
		if err != nil {
			return err
		}
		page = catalog.Page[T]{Items: items, Total: int(gjson.GetBytes(payload, "total").Int())}
		return nil
	})
	if err != nil {
		return catalog.Page[T]{}, err
	}
	return page, nil
}

func decodeList[T any](payload json.RawMessage, sig catalog.Signature, keys ...string) ([]T, error) {
	for _, k := range keys {
		r := gjson.GetBytes(payload, k)
		if !r.Exists() || r.Type == gjson.Null {
			continue
		}
		var out []T
		if err := json.Unmarshal([]byte(r.Raw), &out); err != nil {
			return nil, fmt.Errorf("decode %s: %w: %v", sig, catalog.ErrParse, err)
		}
		if out == nil {
			out = []T{}
		}
		return out, nil
	}
	return []T{}, nil
}

func idPath(collection, id string, rest ...string) string {
	p := "/" + collection + "/" + url.PathEscape(id)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

// --- Items ---

// SearchItems returns one page of items matching p.
func (c *Client) SearchItems(ctx context.Context, p catalog.ListParams) (catalog.Page[catalog.Item], error) {
	return getPage[catalog.Item](ctx, c, catalog.NewSignature("/items", p.Values()), "items")
}

// Item returns a single item.
func (c *Client) Item(ctx context.Context, id string) (catalog.Item, error) {
	return getJSON[catalog.Item](ctx, c, catalog.NewSignature(idPath("items", id), nil))
}

// Categories returns the item categories.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	return getList[string](ctx, c, catalog.NewSignature("/items/categories", nil), "categories")
}

// Rarities returns the item rarities.
func (c *Client) Rarities(ctx context.Context) ([]string, error) {
	return getList[string](ctx, c, catalog.NewSignature("/items/rarities", nil), "rarities")
}

// RelatedItems returns items related to id. The API has served the list
// under both "items" and "related".
func (c *Client) RelatedItems(ctx context.Context, id string) ([]catalog.Item, error) {
	return getList[catalog.Item](ctx, c, catalog.NewSignature(idPath("items", id, "related"), nil), "items", "related")
}

// --- Quests ---

// SearchQuests returns one page of quests matching p.
func (c *Client) SearchQuests(ctx context.Context, p catalog.ListParams) (catalog.Page[catalog.Quest], error) {
	return getPage[catalog.Quest](ctx, c, catalog.NewSignature("/quests", p.Values()), "quests")
}

// Quest returns a single quest.
func (c *Client) Quest(ctx context.Context, id string) (catalog.Quest, error) {
	return getJSON[catalog.Quest](ctx, c, catalog.NewSignature(idPath("quests", id), nil))
}

// QuestGivers returns the names of quest givers.
func (c *Client) QuestGivers(ctx context.Context) ([]string, error) {
	return getList[string](ctx, c, catalog.NewSignature("/quests/givers", nil), "givers")
}

// QuestTypes returns the quest types.
func (c *Client) QuestTypes(ctx context.Context) ([]string, error) {
	return getList[string](ctx, c, catalog.NewSignature("/quests/types", nil), "types")
}

// QuestLocations returns the locations quests take place in.
func (c *Client) QuestLocations(ctx context.Context) ([]string, error) {
	return getList[string](ctx, c, catalog.NewSignature("/quests/locations", nil), "locations")
}

// QuestChain returns a quest with its prerequisites and follow-ups.
func (c *Client) QuestChain(ctx context.Context, id string) (catalog.QuestChain, error) {
	return getJSON[catalog.QuestChain](ctx, c, catalog.NewSignature(idPath("quests", id, "chain"), nil))
}

// QuestRequirements returns the items a quest needs.
func (c *Client) QuestRequirements(ctx context.Context, id string) (catalog.QuestRequirements, error) {
	return getJSON[catalog.QuestRequirements](ctx, c, catalog.NewSignature(idPath("quests", id, "requirements"), nil))
}

// --- Maps ---

// Maps returns all maps.
func (c *Client) Maps(ctx context.Context) ([]catalog.GameMap, error) {
	return getList[catalog.GameMap](ctx, c, catalog.NewSignature("/maps", nil), "maps")
}

// Map returns a single map.
func (c *Client) Map(ctx context.Context, id string) (catalog.GameMap, error) {
	return getJSON[catalog.GameMap](ctx, c, catalog.NewSignature(idPath("maps", id), nil))
}

// MapMarkers returns the markers of a map, optionally of one type.
func (c *Client) MapMarkers(ctx context.Context, mapID, markerType string) ([]catalog.MapMarker, error) {
	sig := catalog.NewSignature(idPath("maps", mapID, "markers"), url.Values{"type": {markerType}})
	return getList[catalog.MapMarker](ctx, c, sig, "markers")
}

// --- Loadouts ---

// Weapons returns weapons, optionally filtered by type and rarity.
func (c *Client) Weapons(ctx context.Context, weaponType, rarity string) ([]catalog.Weapon, error) {
	sig := catalog.NewSignature("/loadouts/weapons", url.Values{"type": {weaponType}, "rarity": {rarity}})
	return getList[catalog.Weapon](ctx, c, sig, "weapons")
}

// Armor returns armor pieces, optionally filtered by slot and rarity.
func (c *Client) Armor(ctx context.Context, slot, rarity string) ([]catalog.ArmorPiece, error) {
	sig := catalog.NewSignature("/loadouts/armor", url.Values{"slot": {slot}, "rarity": {rarity}})
	return getList[catalog.ArmorPiece](ctx, c, sig, "armor")
}

// TierList returns weapons grouped by tier.
func (c *Client) TierList(ctx context.Context) (catalog.TierList, error) {
	out, err := getJSON[struct {
		Tiers catalog.TierList `json:"tiers"`
	}](ctx, c, catalog.NewSignature("/loadouts/tier-list", nil))
	if err != nil {
		return nil, err
	}
	if out.Tiers == nil {
		out.Tiers = catalog.TierList{}
	}
	return out.Tiers, nil
}

// --- Events ---

// Events returns the current events.
func (c *Client) Events(ctx context.Context) ([]catalog.Event, error) {
	return getList[catalog.Event](ctx, c, catalog.NewSignature("/events", nil), "events")
}

// Traders returns the traders.
func (c *Client) Traders(ctx context.Context) ([]catalog.Trader, error) {
	return getList[catalog.Trader](ctx, c, catalog.NewSignature("/events/traders", nil), "traders")
}

// Stats returns the database summary.
func (c *Client) Stats(ctx context.Context) (catalog.Stats, error) {
	return getJSON[catalog.Stats](ctx, c, catalog.NewSignature("/stats", nil))
}
