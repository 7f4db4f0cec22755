package workflow

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"bitbucket.org/mmdatafocus/invoices_backend/models"
	"bitbucket.org/mmdatafocus/invoices_backend/utils"
	"gorm.io/gorm"
)

const (
	itemSuggestionLimit = 3
	// fuzzy candidates at or below this score are discarded outright
	fuzzyCandidateFloor = 0.2
	// best candidate must reach this score to count as a match
	fuzzyMatchThreshold = 0.6
)

// ItemCatalog is the tenant's active catalog loaded once per document, with
// lookup maps for the exact-code cascade steps.
type ItemCatalog struct {
	Items     []*models.CatalogItem
	byNumber  map[string]*models.CatalogItem
	byAlias   map[string]*models.CatalogItem
	byShortNo map[int]*models.CatalogItem
}

// ItemResolution is the outcome of resolving one raw line item.
type ItemResolution struct {
	Item        *models.CatalogItem    `json:"item"`
	Method      models.ItemMatchMethod `json:"method"`
	Confidence  float64                `json:"confidence"`
	Suggestions []*ItemSuggestion      `json:"suggestions,omitempty"`
	Skipped     bool                   `json:"skipped"`
}

// ItemSuggestion is a near-miss surfaced for manual linking. Confidence is a
// percentage rounded to one decimal.
type ItemSuggestion struct {
	Item       *models.CatalogItem `json:"item"`
	Confidence float64             `json:"confidence"`
}

// LoadItemCatalog reads the tenant's active items and aliases and builds the
// exact-match indexes. Codes are indexed case-insensitively.
func LoadItemCatalog(tx *gorm.DB, businessId string) (*ItemCatalog, error) {
	var items []*models.CatalogItem
	if err := tx.
		Where("business_id = ?", businessId).
		Where("is_active = ?", true).
		Find(&items).Error; err != nil {
		return nil, err
	}
	var aliases []*models.ItemAlias
	if err := tx.
		Where("business_id = ?", businessId).
		Find(&aliases).Error; err != nil {
		return nil, err
	}
	return NewItemCatalog(items, aliases), nil
}

func NewItemCatalog(items []*models.CatalogItem, aliases []*models.ItemAlias) *ItemCatalog {
	catalog := &ItemCatalog{
		Items:     items,
		byNumber:  make(map[string]*models.CatalogItem, len(items)),
		byAlias:   make(map[string]*models.CatalogItem),
		byShortNo: make(map[int]*models.CatalogItem),
	}
	byId := make(map[int]*models.CatalogItem, len(items))
	for _, item := range items {
		byId[item.ID] = item
		catalog.byNumber[strings.ToLower(strings.TrimSpace(item.ItemNumber))] = item
		if item.ShortItemNo != nil {
			catalog.byShortNo[*item.ShortItemNo] = item
		}
	}
	for _, alias := range aliases {
		// aliases pointing at inactive or deleted items are ignored
		if parent, ok := byId[alias.CatalogItemId]; ok {
			catalog.byAlias[strings.ToLower(strings.TrimSpace(alias.AliasCode))] = parent
		}
	}
	return catalog
}

// Resolve runs the item cascade for one raw line item: exact item number,
// then alias code, then short numeric code, then fuzzy description matching.
func (c *ItemCatalog) Resolve(raw *models.ExtractedLineItem) *ItemResolution {
	code := strings.TrimSpace(raw.ItemCode)
	description := strings.TrimSpace(raw.Description)

	if code == "" && description == "" {
		// nothing usable to match on; not an error
		return &ItemResolution{Method: models.ItemMatchNone, Skipped: true}
	}

	if code != "" {
		key := strings.ToLower(code)
		if item, ok := c.byNumber[key]; ok {
			return &ItemResolution{Item: item, Method: models.ItemMatchItemNumber, Confidence: 1.0}
		}
		if item, ok := c.byAlias[key]; ok {
			return &ItemResolution{Item: item, Method: models.ItemMatchAlias, Confidence: 1.0}
		}
		if shortNo, err := strconv.Atoi(code); err == nil {
			if item, ok := c.byShortNo[shortNo]; ok {
				return &ItemResolution{Item: item, Method: models.ItemMatchShortItemNo, Confidence: 1.0}
			}
		}
	}

	if description == "" {
		return &ItemResolution{Method: models.ItemMatchNone}
	}
	return c.fuzzyResolve(description)
}

type scoredItem struct {
	item  *models.CatalogItem
	score float64
}

func (c *ItemCatalog) fuzzyResolve(description string) *ItemResolution {
	var candidates []scoredItem
	for _, item := range c.Items {
		score := utils.Similarity(description, item.Description)
		if s := utils.Similarity(description, item.SearchText); s > score {
			score = s
		}
		if score > fuzzyCandidateFloor {
			candidates = append(candidates, scoredItem{item: item, score: score})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > 0 && candidates[0].score >= fuzzyMatchThreshold {
		return &ItemResolution{
			Item:       candidates[0].item,
			Method:     models.ItemMatchFuzzy,
			Confidence: candidates[0].score,
		}
	}

	resolution := &ItemResolution{Method: models.ItemMatchNone}
	for i := 0; i < len(candidates) && i < itemSuggestionLimit; i++ {
		resolution.Suggestions = append(resolution.Suggestions, &ItemSuggestion{
			Item:       candidates[i].item,
			Confidence: roundPercent(candidates[i].score),
		})
	}
	return resolution
}

// roundPercent converts a [0,1] score to a percentage with one decimal.
func roundPercent(score float64) float64 {
	return math.Round(score*1000) / 10
}
