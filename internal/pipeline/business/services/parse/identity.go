package parse

import (
	"net/url"
	"regexp"
	"strings"

	"gadgetsync/internal/pipeline/business/models"
)

// SourceIdentity is the (marketplace, product, shop) triple extracted from a
// product URL. Product ids are the only fully reliable join key against the
// catalog, since sellers rewrite names freely.
type SourceIdentity struct {
	Marketplace models.Marketplace
	ProductID   string
	ShopID      string
}

var (
	// Shopee path convention: ...name.i.SHOP_ID.PRODUCT_ID
	reShopeeIDs = regexp.MustCompile(`[-.]i\.(\d+)\.(\d+)`)
	// Lazada path convention: ...name-iPRODUCT_ID.html
	reLazadaProduct = regexp.MustCompile(`-i(\d+)\.html`)
)

// ParseSourceURL extracts the source identity from a marketplace product URL.
// Unrecognized hostnames or missing patterns yield a zero SourceIdentity;
// this never fails, a bad URL just means the row has no golden key.
func ParseSourceURL(rawURL string) SourceIdentity {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return SourceIdentity{}
	}
	host := u.Hostname()

	if strings.Contains(host, "shopee") {
		if m := reShopeeIDs.FindStringSubmatch(rawURL); m != nil {
			return SourceIdentity{
				Marketplace: models.MarketplaceShopee,
				ShopID:      m[1],
				ProductID:   m[2],
			}
		}
	}

	if strings.Contains(host, "lazada") {
		if m := reLazadaProduct.FindStringSubmatch(rawURL); m != nil {
			return SourceIdentity{
				Marketplace: models.MarketplaceLazada,
				ProductID:   m[1],
				ShopID:      u.Query().Get("shop_id"),
			}
		}
	}

	return SourceIdentity{}
}
