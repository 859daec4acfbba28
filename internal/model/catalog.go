package model

import (
	"encoding/json"
	"time"
)

// ItemKind names the sellable or bookable things the studio lists.
type ItemKind string

const (
	KindTattoo   ItemKind = "tattoo"
	KindPiercing ItemKind = "piercing"
	KindClass    ItemKind = "class"
	KindEvent    ItemKind = "event"
	KindArtwork  ItemKind = "artwork"
)

// ParseItemKind accepts singular or plural route segments ("tattoos").
func ParseItemKind(s string) (ItemKind, bool) {
	switch s {
	case "tattoo", "tattoos", "design", "designs":
		return KindTattoo, true
	case "piercing", "piercings":
		return KindPiercing, true
	case "class", "classes":
		return KindClass, true
	case "event", "events":
		return KindEvent, true
	case "artwork", "artworks":
		return KindArtwork, true
	}
	return "", false
}

// Bookable reports whether items of this kind are booked against slots.
func (k ItemKind) Bookable() bool {
	return k == KindTattoo || k == KindPiercing || k == KindClass
}

// CatalogItem is reference data edited by admins: a tattoo design, a class,
// an event, a piercing service or an artwork for sale.
type CatalogItem struct {
	ID          uint64          `json:"id"`
	Kind        ItemKind        `json:"kind"`
	CategoryID  *uint64         `json:"category_id,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	PriceCents  uint64          `json:"price_cents"`
	DurationMin uint32          `json:"duration_min"`
	ImageURL    string          `json:"image_url,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Category groups catalog items of one kind.
type Category struct {
	ID        uint64    `json:"id"`
	Kind      ItemKind  `json:"kind"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}
