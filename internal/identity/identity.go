// Package identity derives the stable synthetic owner key.
package identity

import "github.com/cespare/xxhash/v2"

// ownerFieldSep joins the identity fields. A unit separator cannot appear in
// the source extract, so distinct field tuples never collide by concatenation.
const ownerFieldSep = "\x1f"

// DeriveOwnerID computes the synthetic owner key from the raw owner fields,
// before any standardization is applied. The hash input is the UTF-8 bytes of
// the fields joined with a fixed separator in this exact order; identical raw
// input yields the identical id across runs and machines. The value is the
// xxhash64 digest bit-cast to int64 so it can double as an SQLite rowid.
func DeriveOwnerID(name, street, street2, city, state, zip string) int64 {
	d := xxhash.New()
	for i, field := range [...]string{name, street, street2, city, state, zip} {
		if i > 0 {
			d.WriteString(ownerFieldSep)
		}
		d.WriteString(field)
	}
	return int64(d.Sum64())
}
