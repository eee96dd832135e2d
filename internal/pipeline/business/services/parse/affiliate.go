package parse

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// AffiliateParams carries the campaign identifiers used when rebuilding
// outbound tracking links. Values come from configuration, one set per site.
type AffiliateParams struct {
	ShopeeCampaignID string
	ShopeeSourceID   string
	LazadaPID        string
	UTMFallback      string
}

const (
	trackIDLength       = 12
	lazadaClickPrefix   = "clk"
	utmContentMaxLength = 18
)

const lowerAlnum = "abcdefghijklmnopqrstuvwxyz0123456789"

var reNonAlnum = regexp.MustCompile(`[^A-Za-z0-9]`)

// randLowerAlnum returns n characters of [a-z0-9] from a CSPRNG.
func randLowerAlnum(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(lowerAlnum))))
		if err != nil {
			// crypto/rand only fails when the platform source is broken;
			// a constant char keeps link generation from ever erroring.
			b.WriteByte('0')
			continue
		}
		b.WriteByte(lowerAlnum[idx.Int64()])
	}
	return b.String()
}

// GenerateShopeeTrackID returns a Shopee-style uls_trackid, e.g. "53llb9n700l0".
func GenerateShopeeTrackID() string {
	return randLowerAlnum(trackIDLength)
}

// GenerateLazadaClickID returns a Lazada-style mkttid, "clk" plus random
// alphanumerics to a total of 20 or 21 characters.
func GenerateLazadaClickID() string {
	total := 20
	if n, err := rand.Int(rand.Reader, big.NewInt(2)); err == nil && n.Int64() == 1 {
		total = 21
	}
	return lazadaClickPrefix + randLowerAlnum(total-len(lazadaClickPrefix))
}

// GenerateUTMContent derives a Shopee-friendly utm_content value from a
// product slug: alphanumeric only, lowercased, truncated.
func GenerateUTMContent(productSlug, fallback string) string {
	if strings.TrimSpace(productSlug) == "" {
		return "default"
	}
	alnum := strings.ToLower(reNonAlnum.ReplaceAllString(productSlug, ""))
	if len(alnum) > utmContentMaxLength {
		alnum = alnum[:utmContentMaxLength]
	}
	if alnum == "" {
		return fallback
	}
	return alnum
}

// ConvertToAffiliateLink strips any existing query parameters from a product
// URL and re-appends a fresh tracking set for the detected marketplace.
// Unrecognized marketplaces get the clean base URL back; empty input stays
// empty.
func ConvertToAffiliateLink(rawURL, productSlug string, params AffiliateParams) string {
	if rawURL == "" {
		return ""
	}

	baseURL, _, _ := strings.Cut(rawURL, "?")

	switch {
	case strings.Contains(rawURL, "shopee.ph"):
		return fmt.Sprintf("%s?uls_trackid=%s&utm_campaign=%s&utm_content=%s&utm_medium=affiliates&utm_source=%s",
			baseURL,
			GenerateShopeeTrackID(),
			params.ShopeeCampaignID,
			GenerateUTMContent(productSlug, params.UTMFallback),
			params.ShopeeSourceID,
		)

	case strings.Contains(rawURL, "lazada.com.ph"):
		if params.LazadaPID == "" {
			// Without a publisher id there is no valid link to build.
			return baseURL
		}
		clickID := GenerateLazadaClickID()
		return fmt.Sprintf("%s?laz_trackid=2:%s:%s&mkttid=%s", baseURL, params.LazadaPID, clickID, clickID)

	default:
		return baseURL
	}
}
