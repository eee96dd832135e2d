package parse

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	reBracketed     = regexp.MustCompile(`\[.*?\]`)
	reParenthetical = regexp.MustCompile(`\(.*?\)`)
	reFullWidth     = regexp.MustCompile(`【.*?】`)

	// First occurrence of sales noise: currency, percent, sold counts,
	// shipping blurbs. Everything from the marker on is clutter.
	reNoiseMarker       = regexp.MustCompile(`(?i)(₱|%|\d+K\s*sold|\d+\s*sold|Fast Shipping)`)
	reNoiseMarkerLazada = regexp.MustCompile(`(?i)(丨|\d{4,5}mAh|\d+W Fast Charge|IP\d+)`)

	reComboMemory      = regexp.MustCompile(`(?i)\b\d+\s*\+\s*\d+\s*(GB)?\b`)
	reStandaloneMemory = regexp.MustCompile(`(?i)\b\d+\s*GB\b`)
	reMemoryRAM        = regexp.MustCompile(`(?i)\b\d+\s*GB\s*RAM\b`)
	reSpecKeywords     = regexp.MustCompile(`(?i)\b(RAM|ROM|Storage|Wi[- ]?Fi|Android|Tablet|Phone|Smartphone|Global Version|With Warranty|Online Exclusive|Official Store)\b`)
	reYearWarranty     = regexp.MustCompile(`(?i)With\s+\d+-year\s+Warranty`)
	reGenericKeywords  = regexp.MustCompile(`(?i)\b(cellphone|phone|smartphone)\b`)

	reResidualPunct = regexp.MustCompile(`[-,.|+]`)
	reMultiSpace    = regexp.MustCompile(`\s{2,}`)
)

// variantKeywords are model-variant suffixes. The cleaned name is cut right
// after the last one found, which keeps "S24 Ultra" and drops what trails it.
var variantKeywords = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bPro Plus\b`),
	regexp.MustCompile(`(?i)\bPro\+\b`),
	regexp.MustCompile(`(?i)\bPro\b`),
	regexp.MustCompile(`(?i)\bUltra\b`),
	regexp.MustCompile(`(?i)\bPlus\b`),
	regexp.MustCompile(`(?i)\bLite\b`),
	regexp.MustCompile(`(?i)\bSE\b`),
	regexp.MustCompile(`(?i)\b5G\b`),
	regexp.MustCompile(`(?i)\b4G\b`),
	regexp.MustCompile(`(?i)\bLTE\b`),
	regexp.MustCompile(`(?i)\bFE\b`),
}

// CleanName strips sales noise from a raw product-name cell in two stages:
// first isolate the name by cutting at the first noise marker, then run the
// keyword cleaner on what is left.
func CleanName(raw string) string {
	raw = reBracketed.ReplaceAllString(raw, "")
	raw = reParenthetical.ReplaceAllString(raw, "")

	if loc := reNoiseMarker.FindStringIndex(raw); loc != nil {
		raw = raw[:loc[0]]
	}

	raw = reComboMemory.ReplaceAllString(raw, "")
	raw = reStandaloneMemory.ReplaceAllString(raw, "")
	raw = reMemoryRAM.ReplaceAllString(raw, "")
	raw = reSpecKeywords.ReplaceAllString(raw, "")
	raw = reYearWarranty.ReplaceAllString(raw, "")

	// Keep everything up to and including the last variant keyword.
	cut := -1
	for _, re := range variantKeywords {
		matches := re.FindAllStringIndex(raw, -1)
		if len(matches) == 0 {
			continue
		}
		if end := matches[len(matches)-1][1]; end > cut {
			cut = end
		}
	}
	if cut > -1 {
		raw = raw[:cut]
	}

	raw = reResidualPunct.ReplaceAllString(raw, "")
	raw = reMultiSpace.ReplaceAllString(raw, " ")
	return strings.TrimSpace(raw)
}

// CleanNameLazada handles the Lazada sheet format, where names carry spec
// blurbs behind a '丨' separator or battery/charging clutter instead of
// inline prices.
func CleanNameLazada(raw string) string {
	raw = reBracketed.ReplaceAllString(raw, "")
	raw = reParenthetical.ReplaceAllString(raw, "")
	raw = reFullWidth.ReplaceAllString(raw, "")

	if loc := reNoiseMarkerLazada.FindStringIndex(raw); loc != nil {
		raw = raw[:loc[0]]
	}

	raw = reGenericKeywords.ReplaceAllString(raw, "")
	return strings.TrimSpace(raw)
}

var (
	reDecimalSpec = regexp.MustCompile(`(\d+)\.(\d+)`)
	reWhitespace  = regexp.MustCompile(`\s+`)
	reNonSlug     = regexp.MustCompile(`[^a-z0-9\-_]`)
	reMultiDash   = regexp.MustCompile(`-{2,}`)

	asciiFold = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
)

// Slugify produces a URL-safe slug: ASCII-folded, lowercased, with "+" kept
// as "-plus" and decimal specs like "5.5" preserved as "5_5".
func Slugify(value string) string {
	if folded, _, err := transform.String(asciiFold, value); err == nil {
		value = folded
	}
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, "+", "-plus")
	value = reDecimalSpec.ReplaceAllString(value, "${1}_${2}")
	value = reWhitespace.ReplaceAllString(value, "-")
	value = reNonSlug.ReplaceAllString(value, "")
	value = reMultiDash.ReplaceAllString(value, "-")
	return strings.Trim(value, "-")
}
