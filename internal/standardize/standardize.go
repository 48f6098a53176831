// Package standardize holds the pure text-normalization rules applied to
// owner name and address fields. Every function is idempotent: running it
// over already-standardized output is a no-op.
package standardize

import "strings"

// CleanText uppercases, trims, and collapses internal whitespace runs to a
// single space. Empty input stays empty.
func CleanText(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}

// Address is the standardized form of one owner address.
type Address struct {
	AddressAll string // line1 + line2, cleaned and joined
	City       string
	State      string // canonical two-letter code where known
	Zip5       string // zero-padded 5-digit ZIP, or empty
}

// Standardize normalizes a raw address tuple. No field is ever dropped:
// empty inputs standardize to empty outputs, unknown states pass through
// cleaned rather than being discarded.
func Standardize(line1, line2, city, state, zip string) Address {
	l1, l2 := CleanText(line1), CleanText(line2)
	combined := l1
	if l2 != "" {
		if combined != "" {
			combined += " " + l2
		} else {
			combined = l2
		}
	}
	return Address{
		AddressAll: combined,
		City:       CleanText(city),
		State:      State(state),
		Zip5:       Zip5(zip),
	}
}

// State maps a raw state field to its canonical two-letter code. Inputs not
// in the lookup table pass through cleaned, never dropped.
func State(s string) string {
	cleaned := CleanText(s)
	if code, ok := stateCodes[cleaned]; ok {
		return code
	}
	return cleaned
}

// Zip5 left-pads an all-digit ZIP to 5 digits. Longer digit strings keep
// their first five (ZIP+4 without the hyphen). Anything non-numeric or empty
// becomes empty rather than a padded garbage value.
func Zip5(s string) string {
	z := strings.TrimSpace(s)
	if z == "" {
		return ""
	}
	for _, r := range z {
		if r < '0' || r > '9' {
			return ""
		}
	}
	if len(z) > 5 {
		return z[:5]
	}
	return strings.Repeat("0", 5-len(z)) + z
}

// stateCodes canonicalizes spelled-out state and territory names. Two-letter
// codes already in canonical form fall through the lookup unchanged.
var stateCodes = map[string]string{
	"ALABAMA": "AL", "ALASKA": "AK", "ARIZONA": "AZ", "ARKANSAS": "AR",
	"CALIFORNIA": "CA", "COLORADO": "CO", "CONNECTICUT": "CT",
	"DELAWARE": "DE", "DISTRICT OF COLUMBIA": "DC", "FLORIDA": "FL",
	"GEORGIA": "GA", "HAWAII": "HI", "IDAHO": "ID", "ILLINOIS": "IL",
	"INDIANA": "IN", "IOWA": "IA", "KANSAS": "KS", "KENTUCKY": "KY",
	"LOUISIANA": "LA", "MAINE": "ME", "MARYLAND": "MD",
	"MASSACHUSETTS": "MA", "MICHIGAN": "MI", "MINNESOTA": "MN",
	"MISSISSIPPI": "MS", "MISSOURI": "MO", "MONTANA": "MT",
	"NEBRASKA": "NE", "NEVADA": "NV", "NEW HAMPSHIRE": "NH",
	"NEW JERSEY": "NJ", "NEW MEXICO": "NM", "NEW YORK": "NY",
	"NORTH CAROLINA": "NC", "NORTH DAKOTA": "ND", "OHIO": "OH",
	"OKLAHOMA": "OK", "OREGON": "OR", "PENNSYLVANIA": "PA",
	"RHODE ISLAND": "RI", "SOUTH CAROLINA": "SC", "SOUTH DAKOTA": "SD",
	"TENNESSEE": "TN", "TEXAS": "TX", "UTAH": "UT", "VERMONT": "VT",
	"VIRGINIA": "VA", "WASHINGTON": "WA", "WEST VIRGINIA": "WV",
	"WISCONSIN": "WI", "WYOMING": "WY",
	"PUERTO RICO": "PR", "GUAM": "GU", "AMERICAN SAMOA": "AS",
	"NORTHERN MARIANA ISLANDS": "MP", "VIRGIN ISLANDS": "VI",
}
