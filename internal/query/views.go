package query

import (
	"log/slog"

	catalog "github.com/eugener/arcscout/internal"
	"github.com/eugener/arcscout/internal/telemetry"
)

// Items is the item list view.
type Items struct {
	*Controller[catalog.Item]
}

// NewItems creates the item list view over src.
func NewItems(src Source[catalog.Item], pageSize int, logger *slog.Logger, m *telemetry.Metrics) *Items {
	return &Items{New(src, Options{
		Name:    "items",
		Fields:  catalog.ItemFilterFields,
		Params:  pageParams(pageSize),
		Logger:  logger,
		Metrics: m,
	})}
}

// SetCategoryFilter filters by category; "" clears it.
func (v *Items) SetCategoryFilter(category string) error {
	return v.SetFilter(catalog.FieldCategory, category)
}

// SetRarityFilter filters by rarity; "" clears it.
func (v *Items) SetRarityFilter(rarity string) error {
	return v.SetFilter(catalog.FieldRarity, rarity)
}

// Quests is the quest list view.
type Quests struct {
	*Controller[catalog.Quest]
}

// NewQuests creates the quest list view over src.
func NewQuests(src Source[catalog.Quest], pageSize int, logger *slog.Logger, m *telemetry.Metrics) *Quests {
	return &Quests{New(src, Options{
		Name:    "quests",
		Fields:  catalog.QuestFilterFields,
		Params:  pageParams(pageSize),
		Logger:  logger,
		Metrics: m,
	})}
}

// SetGiverFilter filters by quest giver; "" clears it.
func (v *Quests) SetGiverFilter(giver string) error {
	return v.SetFilter(catalog.FieldGiver, giver)
}

// SetTypeFilter filters by quest type; "" clears it.
func (v *Quests) SetTypeFilter(typ string) error {
	return v.SetFilter(catalog.FieldType, typ)
}

// SetLocationFilter filters by location; "" clears it.
func (v *Quests) SetLocationFilter(location string) error {
	return v.SetFilter(catalog.FieldLocation, location)
}

func pageParams(pageSize int) *catalog.ListParams {
	p := catalog.DefaultListParams()
	if pageSize > 0 {
		p.Limit = pageSize
	}
	return &p
}
