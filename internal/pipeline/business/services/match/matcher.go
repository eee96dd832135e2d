// Package match resolves parsed import rows against the local catalog mirror.
//
// Resolution is tiered: an exact external-ID lookup, then an exact name
// lookup, then an advisory fuzzy suggestion. The external marketplace id is
// the only join key trusted to auto-match; fuzzy hits are surfaced for a
// human to decide, never applied silently.
package match

import (
	"fmt"

	"gadgetsync/internal/pipeline/business/models"
)

// CatalogIndex is the precomputed lookup structure over the mirror. Build it
// once per job and pass it in; matchers hold no process-global state.
type CatalogIndex struct {
	byExternalID map[models.Marketplace]map[string]*models.ProductRecord
	byName       map[string]*models.ProductRecord
	records      []*models.ProductRecord
}

// NewCatalogIndex indexes mirror records by marketplace external id and by
// case-folded name.
func NewCatalogIndex(records []models.ProductRecord) *CatalogIndex {
	idx := &CatalogIndex{
		byExternalID: map[models.Marketplace]map[string]*models.ProductRecord{
			models.MarketplaceShopee: {},
			models.MarketplaceLazada: {},
		},
		byName: make(map[string]*models.ProductRecord, len(records)),
	}
	for i := range records {
		rec := &records[i]
		idx.records = append(idx.records, rec)
		for mp := range idx.byExternalID {
			if ext := rec.ExternalID(mp); ext != "" {
				idx.byExternalID[mp][ext] = rec
			}
		}
		idx.byName[foldName(rec.Name)] = rec
	}
	return idx
}

// Len reports how many records are indexed.
func (idx *CatalogIndex) Len() int { return len(idx.records) }

// Resolve runs the tiered resolution for one import row. On a tier-1 or
// tier-2 hit the result carries the catalog's canonical name and slug, which
// callers must adopt over the sheet's values: once identity is established
// the catalog is authoritative.
func (idx *CatalogIndex) Resolve(row *models.ImportRow) models.MatchResult {
	// Tier 1: exact external-ID match, the golden key.
	if row.Marketplace != "" && row.ProductID != "" {
		if rec, ok := idx.byExternalID[row.Marketplace][row.ProductID]; ok {
			return models.MatchResult{
				Status:         models.StatusMatched,
				MatchedID:      rec.ID,
				MatchedName:    rec.Name,
				MatchedSlug:    rec.Slug,
				ConfidenceNote: fmt.Sprintf("exact %s id", row.Marketplace),
			}
		}
	}

	// Tier 2: exact cleaned-name match.
	if rec, ok := idx.byName[foldName(row.Name)]; ok && row.Name != "" {
		return models.MatchResult{
			Status:         models.StatusMatched,
			MatchedID:      rec.ID,
			MatchedName:    rec.Name,
			MatchedSlug:    rec.Slug,
			ConfidenceNote: "exact name",
		}
	}

	// Tier 3: fuzzy suggestion only. Auto-matching here would risk writing a
	// price update onto the wrong catalog item.
	result := models.MatchResult{Status: models.StatusUnmatched}
	if nearest, score := idx.nearestByName(row.Name); nearest != nil {
		result.NearestMatchName = nearest.Name
		result.ConfidenceNote = fmt.Sprintf("fuzzy %.0f%%", score*100)
	}
	return result
}

// nearestByName returns the catalog record whose name scores highest against
// the given name, or nil for an empty catalog.
func (idx *CatalogIndex) nearestByName(name string) (*models.ProductRecord, float64) {
	var (
		best      *models.ProductRecord
		bestScore float64
	)
	for _, rec := range idx.records {
		if score := tokenSetSimilarity(name, rec.Name); best == nil || score > bestScore {
			best = rec
			bestScore = score
		}
	}
	return best, bestScore
}
