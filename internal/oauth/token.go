package oauth

import (
	"net/url"
	"strings"
)

const (
	accessTokenField = "access_token"
	errorField       = "error"
)

// Pair is one key/value entry of a query-shaped string, kept in order.
type Pair struct {
	Key   string
	Value string
}

// Pairs splits a query-shaped string ("a=1&b=2") into ordered pairs.
//
// Only '&' separates segments; a ';' is part of the value. Segments that fail to unescape are
// skipped rather than reported.
func Pairs(raw string) []Pair {
	var pairs []Pair
	for segment := range strings.SplitSeq(raw, "&") {
		if segment == "" {
			continue
		}
		k, v, _ := strings.Cut(segment, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			continue
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			continue
		}
		pairs = append(pairs, Pair{Key: key, Value: value})
	}
	return pairs
}

// ExtractField returns the first value for name in pairs.
func ExtractField(name string, pairs []Pair) (string, bool) {
	for _, p := range pairs {
		if p.Key == name {
			return p.Value, true
		}
	}
	return "", false
}

// Extract returns the access token carried by u, checking the query string before the fragment.
func Extract(u *url.URL) (string, bool) {
	return lookup(u, accessTokenField)
}

// ExtractString parses raw and calls [Extract]. A malformed URL has no token.
func ExtractString(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	return Extract(u)
}

// ErrorMessage returns the provider's error field from u, or "" when there is none.
func ErrorMessage(u *url.URL) string {
	msg, _ := lookup(u, errorField)
	return msg
}

func lookup(u *url.URL, name string) (string, bool) {
	if u == nil {
		return "", false
	}
	if v, ok := ExtractField(name, Pairs(u.RawQuery)); ok {
		return v, true
	}
	if frag := u.EscapedFragment(); frag != "" {
		return ExtractField(name, Pairs(frag))
	}
	return "", false
}
