// Package phone canonicalises user supplied phone numbers into E.164 strings.
//
// The canonical form is the identity key used to deduplicate representatives,
// so every accepted spelling of one number must produce the same output:
//
//	08012345678, 0801 234 5678, 2348012345678, +234 (801) 234-5678 -> +2348012345678
package phone

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when a Normalizer is built without an explicit region.
const DefaultRegion = "NG"

// ErrInvalidPhone is returned when the input cannot be read as a phone number.
var ErrInvalidPhone = errors.New("invalid phone number")

// Normalizer parses numbers relative to a default region.
type Normalizer struct {
	region      string
	countryCode string
}

// NewNormalizer builds a Normalizer for the given ISO 3166 region code.
func NewNormalizer(region string) *Normalizer {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = DefaultRegion
	}
	code := phonenumbers.GetCountryCodeForRegion(region)
	if code == 0 {
		region = DefaultRegion
		code = phonenumbers.GetCountryCodeForRegion(region)
	}
	return &Normalizer{region: region, countryCode: strconv.Itoa(code)}
}

// Region returns the default region in use.
func (n *Normalizer) Region() string {
	return n.region
}

// Normalize returns the E.164 representation of raw or ErrInvalidPhone.
func (n *Normalizer) Normalize(raw string) (string, error) {
	cleaned := clean(raw)
	if cleaned == "" {
		return "", ErrInvalidPhone
	}
	// Bare digits that already carry the country code ("2348012345678") are
	// otherwise read as a national number with a stray prefix.
	if !strings.HasPrefix(cleaned, "+") && !strings.HasPrefix(cleaned, "0") &&
		strings.HasPrefix(cleaned, n.countryCode) && len(cleaned) > len(n.countryCode)+7 {
		cleaned = "+" + cleaned
	}

	num, err := phonenumbers.Parse(cleaned, n.region)
	if err != nil {
		return "", ErrInvalidPhone
	}
	if !phonenumbers.IsPossibleNumber(num) {
		return "", ErrInvalidPhone
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

var defaultNormalizer = NewNormalizer(DefaultRegion)

// Normalize canonicalises raw using the default region.
func Normalize(raw string) (string, error) {
	return defaultNormalizer.Normalize(raw)
}

// clean keeps digits and one plus sign placed before the first digit, as in
// "(+234) 801 234 5678".
func clean(raw string) string {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && b.Len() == 0:
			b.WriteRune(r)
		case unicode.IsSpace(r) || strings.ContainsRune("-().", r):
		default:
			return ""
		}
	}
	out := b.String()
	if out == "+" {
		return ""
	}
	return out
}
