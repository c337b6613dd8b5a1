package paymentcards

import (
	"strconv"
	"strings"
)

type binRange struct {
	lo, hi int
	digits int
	brand  Brand
}

// ordered so longer, more specific prefixes win
var binRanges = []binRange{
	{2221, 2720, 4, BrandMastercard},
	{3528, 3589, 4, BrandJCB},
	{6011, 6011, 4, BrandDiscover},
	{300, 305, 3, BrandDiners},
	{644, 649, 3, BrandDiscover},
	{34, 34, 2, BrandAmex},
	{37, 37, 2, BrandAmex},
	{36, 36, 2, BrandDiners},
	{38, 39, 2, BrandDiners},
	{51, 55, 2, BrandMastercard},
	{65, 65, 2, BrandDiscover},
	{4, 4, 1, BrandVisa},
}

// DetectBrand returns the card network for number. Spaces are ignored.
func DetectBrand(number string) Brand {
	n := strings.ReplaceAll(number, " ", "")
	for _, r := range binRanges {
		if len(n) < r.digits {
			continue
		}
		prefix, err := strconv.Atoi(n[:r.digits])
		if err != nil {
			return BrandUnknown
		}
		if prefix >= r.lo && prefix <= r.hi {
			return r.brand
		}
	}
	return BrandUnknown
}

// lastFour returns the final four digits of number
func lastFour(number string) string {
	n := strings.ReplaceAll(number, " ", "")
	if len(n) < 4 {
		return n
	}
	return n[len(n)-4:]
}
