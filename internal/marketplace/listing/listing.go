// Package listing holds the normalization rules applied to extracted listings:
// price parsing, id derivation, URL canonicalization and currency codes.
package listing

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/currency"
)

// DefaultCurrency is used when a listing has no valid ISO 4217 code.
const DefaultCurrency = "USD"

var priceNumber = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// trackingParams are dropped from canonical listing URLs.
var trackingParams = map[string]bool{
	"ref":      true,
	"referral": true,
	"fbclid":   true,
	"tracking": true,
	"_branch":  true,
}

// ParsePrice extracts the first number from a display price such as
// "$1,234.56". Unparsable input yields 0, which callers must read as
// "unparsed" rather than "free".
func ParsePrice(raw string) float64 {
	match := priceNumber.FindString(raw)
	if match == "" {
		return 0
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil || value < 0 {
		return 0
	}
	return value
}

// DeriveID builds a deterministic id for listings without a native one.
// Two listings with the same title, price and location/brand collide; that
// is accepted.
func DeriveID(platform, title string, price float64, locationOrBrand string) string {
	h := sha1.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(title))))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatFloat(price, 'f', 2, 64)))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(strings.TrimSpace(locationOrBrand))))
	return platform + "-" + hex.EncodeToString(h.Sum(nil))[:16]
}

// CanonicalURL resolves href against base and strips the fragment and
// tracking parameters. It returns "" when either URL is unusable.
func CanonicalURL(base, href string) string {
	baseURL, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return ""
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}

	resolved := baseURL.ResolveReference(ref)
	if resolved.Scheme == "" || resolved.Host == "" {
		return ""
	}
	if resolved.Scheme == "http" {
		resolved.Scheme = "https"
	}
	resolved.Host = strings.ToLower(resolved.Host)
	resolved.Fragment = ""

	q := resolved.Query()
	for key := range q {
		if trackingParams[strings.ToLower(key)] || strings.HasPrefix(strings.ToLower(key), "utm_") {
			q.Del(key)
		}
	}
	resolved.RawQuery = q.Encode()

	return resolved.String()
}

// NormalizeCurrency returns the upper-case ISO 4217 code, or USD when code
// is empty or unknown.
func NormalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return DefaultCurrency
	}
	return unit.String()
}
