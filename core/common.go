/*Package core provides the small shared vocabulary of the shelfd backend,
most notably the pluralization rule used to derive REST routes from
resource names.
*/
package core

import "strings"

// Plural returns the plural form of the passed singular string.
//
// This is the algorithm used to create idiomatic REST routes
func Plural(singular string) string {
	if strings.HasSuffix(singular, "y") {
		return strings.TrimSuffix(singular, "y") + "ies"
	}
	if strings.HasSuffix(singular, "s") {
		return singular + "es"
	}
	return singular + "s"
}
