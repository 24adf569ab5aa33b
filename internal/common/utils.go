// Package common holds small string helpers shared by providers and geocoding.
package common

import "strings"

// ContainsAny reports whether s contains any of subs, ignoring case.
func ContainsAny(s string, subs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}
