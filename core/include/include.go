/*Package include parses the "include" query parameter into the set of
relations a request wants eagerly loaded.
*/
package include

import (
	"strings"

	"github.com/shelfd-tech/shelfd/core/errs"
)

// Include names an eagerly loadable relation.
type Include string

// the recognized relations
const (
	Aliases      Include = "aliases"
	LentBooks    Include = "lent_books"
	BaseSetBooks Include = "base_set_books"
)

// Set is a set of requested includes. Order is irrelevant.
type Set map[Include]struct{}

// Contains reports whether the set contains inc.
func (s Set) Contains(inc Include) bool {
	_, ok := s[inc]
	return ok
}

// ParseQuery extracts the include set from a raw query string in a single
// pass. The first include parameter wins, later ones are ignored.
// Unrecognized tokens are silently dropped. A missing parameter yields the
// empty set, never an error.
func ParseQuery(rawQuery string) Set {
	set := Set{}
	for _, param := range strings.Split(rawQuery, "&") {
		value, ok := strings.CutPrefix(param, "include=")
		if !ok {
			continue
		}
		for _, token := range strings.Split(value, ",") {
			switch strings.ToLower(token) {
			case "aliases":
				set[Aliases] = struct{}{}
			case "lendings", "lendings.book":
				set[LentBooks] = struct{}{}
			case "basesets", "basesets.book":
				set[BaseSetBooks] = struct{}{}
			}
		}
		break
	}
	return set
}

// Validate checks the requested set against a resource's fixed allow-list
// and fails on the first tag the resource cannot honor. It must run before
// the main query of any read operation.
func Validate(requested Set, allowed ...Include) error {
	for _, inc := range []Include{Aliases, LentBooks, BaseSetBooks} {
		if !requested.Contains(inc) {
			continue
		}
		supported := false
		for _, a := range allowed {
			if a == inc {
				supported = true
				break
			}
		}
		if !supported {
			return errs.UnsupportedInclude(string(inc))
		}
	}
	return nil
}
