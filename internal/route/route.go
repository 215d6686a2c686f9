// Package route classifies forecast resource paths.
//
// A path is the authority segment, optionally followed by one day segment
// holding a millisecond timestamp:
//
//	/forecast                -> Collection
//	/forecast/1700000000000  -> CollectionWithDay (Day = 1700000000000)
//	anything else            -> Unrecognized
//
// Matching is pure: no I/O, no state beyond the configured authority.
package route

import (
	"errors"
	"strconv"
	"strings"
)

// ErrUnrecognized is returned when a path matches no known route.
var ErrUnrecognized = errors.New("unrecognized route")

// Kind is the classification of a path.
type Kind int

const (
	Unrecognized Kind = iota
	Collection
	CollectionWithDay
)

func (k Kind) String() string {
	switch k {
	case Collection:
		return "COLLECTION"
	case CollectionWithDay:
		return "COLLECTION_WITH_DAY"
	default:
		return "UNRECOGNIZED"
	}
}

// Route is a resolved path.
type Route struct {
	Kind Kind
	Day  int64 // set only for CollectionWithDay
}

// DefaultAuthority is the authority segment used when none is configured.
const DefaultAuthority = "forecast"

// Matcher resolves paths under a fixed authority.
type Matcher struct {
	authority string
}

// NewMatcher creates a Matcher. An empty authority falls back to DefaultAuthority.
func NewMatcher(authority string) Matcher {
	authority = strings.Trim(authority, "/")
	if authority == "" {
		authority = DefaultAuthority
	}
	return Matcher{authority: authority}
}

// Resolve classifies path. A single trailing slash is tolerated.
func (m Matcher) Resolve(path string) Route {
	if !strings.HasPrefix(path, "/") {
		return Route{Kind: Unrecognized}
	}
	path = strings.TrimSuffix(path[1:], "/")

	segments := strings.Split(path, "/")
	if segments[0] != m.authority {
		return Route{Kind: Unrecognized}
	}

	switch len(segments) {
	case 1:
		return Route{Kind: Collection}
	case 2:
		day, err := strconv.ParseInt(segments[1], 10, 64)
		if err != nil || segments[1][0] == '+' {
			return Route{Kind: Unrecognized}
		}
		return Route{Kind: CollectionWithDay, Day: day}
	default:
		return Route{Kind: Unrecognized}
	}
}

// CollectionPath returns the path of the whole collection.
func (m Matcher) CollectionPath() string {
	return "/" + m.authority
}

// DayPath returns the path of a single day.
func (m Matcher) DayPath(day int64) string {
	return "/" + m.authority + "/" + strconv.FormatInt(day, 10)
}
