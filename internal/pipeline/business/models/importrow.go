package models

import "fmt"

// MatchStatus is the outcome of identity resolution for one import row.
type MatchStatus string

const (
	StatusMatched   MatchStatus = "MATCHED"
	StatusUnmatched MatchStatus = "UNMATCHED"
)

// RowAction is the decision a reviewer attached to a staged row.
type RowAction string

const (
	ActionApprove RowAction = "approve"
	ActionLink    RowAction = "link"
	ActionIgnore  RowAction = "ignore"
)

// ImportRow is one parsed spreadsheet line. It lives for a single staging
// cycle: created by the import job, held in staging until a reviewer acts on
// it, consumed by the sync job.
type ImportRow struct {
	RawText      string      `json:"raw_text"`
	Name         string      `json:"name"`
	Slug         string      `json:"slug"`
	SalePrice    *float64    `json:"sale_price,omitempty"`
	RegularPrice *float64    `json:"regular_price,omitempty"`
	SourceURL    string      `json:"source_url,omitempty"`
	AffiliateURL string      `json:"affiliate_url,omitempty"`
	Marketplace  Marketplace `json:"marketplace,omitempty"`
	ProductID    string      `json:"product_id,omitempty"`
	ShopID       string      `json:"shop_id,omitempty"`

	Status           MatchStatus `json:"status"`
	MatchedCatalogID int         `json:"matched_catalog_id,omitempty"`
	NearestMatchName string      `json:"nearest_match_name,omitempty"`
	ConfidenceNote   string      `json:"confidence_note,omitempty"`

	Action RowAction `json:"action,omitempty"`
	// LinkedCatalogID is the reviewer-supplied target when Action is "link".
	LinkedCatalogID int `json:"linked_catalog_id,omitempty"`
}

// TargetCatalogID resolves the catalog id a row's action points at. Ignored
// rows and unknown actions resolve to (0, false).
func (r *ImportRow) TargetCatalogID() (int, bool) {
	switch r.Action {
	case ActionApprove:
		if r.MatchedCatalogID > 0 {
			return r.MatchedCatalogID, true
		}
		return 0, false
	case ActionLink:
		if r.LinkedCatalogID > 0 {
			return r.LinkedCatalogID, true
		}
		return 0, false
	case ActionIgnore:
		return 0, false
	default:
		return 0, false
	}
}

// MatchResult is what the catalog matcher reports for one row.
type MatchResult struct {
	Status           MatchStatus
	MatchedID        int
	MatchedName      string
	MatchedSlug      string
	NearestMatchName string
	ConfidenceNote   string
}

func (m MatchResult) String() string {
	if m.Status == StatusMatched {
		return fmt.Sprintf("MATCHED id=%d (%s)", m.MatchedID, m.ConfidenceNote)
	}
	return fmt.Sprintf("UNMATCHED nearest=%q", m.NearestMatchName)
}
