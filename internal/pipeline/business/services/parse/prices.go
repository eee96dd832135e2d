package parse

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	// Prices explicitly prefixed by the peso symbol, e.g. "₱10,000".
	rePesoPrice = regexp.MustCompile(`₱\s*([\d,]+\.?\d*)`)
	// Bare price candidates: runs of digits and commas. A run qualifies as a
	// price when it is 4-8 characters long (commas included), which filters
	// out spec numbers like "128" and sold counts like "10".
	reBarePrice = regexp.MustCompile(`₱?\s*([\d,]+)`)

	// "-27%" as Shopee renders discounts.
	reShopeeDiscount = regexp.MustCompile(`-(\d{1,2})%`)
	// "27%" / "27% OFF" for sources without the leading dash.
	reGenericDiscount = regexp.MustCompile(`(?i)(\d{1,2})%\s*(?:OFF)?`)
)

// ExtractPricesShopee parses a Shopee price cell. Only ₱-anchored amounts are
// considered candidates.
func ExtractPricesShopee(rawText string) (sale, regular *float64) {
	amounts := pesoAmounts(rawText)
	return resolvePriceScenario(amounts, discountPercent(reShopeeDiscount, rawText))
}

// ExtractPricesLazada parses a Lazada price cell, where amounts appear as
// bare 4-8 digit figures with optional thousands separators.
func ExtractPricesLazada(rawText string) (sale, regular *float64) {
	amounts := bareAmounts(rawText)
	return resolvePriceScenario(amounts, discountPercent(reGenericDiscount, rawText))
}

// resolvePriceScenario applies the shared disambiguation rules:
//
//  1. two or more amounts: min is the sale price, max the regular price;
//  2. one amount plus a discount: the amount is the sale price and the
//     regular price is derived from the discount;
//  3. one amount, no discount: the item is not on sale, the amount is the
//     regular price;
//  4. nothing found: both nil.
//
// regular >= sale is enforced throughout.
func resolvePriceScenario(amounts []float64, discount *float64) (sale, regular *float64) {
	switch {
	case len(amounts) >= 2:
		sorted := append([]float64(nil), amounts...)
		sort.Float64s(sorted)
		sale = ptr(sorted[0])
		regular = ptr(sorted[len(sorted)-1])

	case len(amounts) == 1 && discount != nil:
		sale = ptr(amounts[0])
		frac := *discount / 100
		if frac > 0 && frac < 1 {
			regular = ptr(round2(amounts[0] / (1 - frac)))
		}

	case len(amounts) == 1:
		regular = ptr(amounts[0])
	}

	if sale != nil && regular != nil && *regular < *sale {
		sale, regular = regular, sale
	}
	return sale, regular
}

func pesoAmounts(rawText string) []float64 {
	var amounts []float64
	for _, m := range rePesoPrice.FindAllStringSubmatch(rawText, -1) {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
			amounts = append(amounts, v)
		}
	}
	return amounts
}

func bareAmounts(rawText string) []float64 {
	var amounts []float64
	for _, m := range reBarePrice.FindAllStringSubmatch(rawText, -1) {
		run := m[1]
		if len(run) < 4 || len(run) > 8 {
			continue
		}
		if v, err := strconv.ParseFloat(strings.ReplaceAll(run, ",", ""), 64); err == nil {
			amounts = append(amounts, v)
		}
	}
	return amounts
}

func discountPercent(re *regexp.Regexp, rawText string) *float64 {
	m := re.FindStringSubmatch(rawText)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func ptr(v float64) *float64 { return &v }
