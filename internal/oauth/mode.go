package oauth

import "strings"

// Mode selects how a login attempt obtains its token.
type Mode int

const (
	ModeImplicit Mode = iota // token arrives in the redirect fragment
	ModeCode                 // token comes from a direct request to the provider
)

// ParseMode returns [ModeCode] for "code" and [ModeImplicit] for anything else.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), "code") {
		return ModeCode
	}
	return ModeImplicit
}

func (m Mode) String() string {
	if m == ModeCode {
		return "code"
	}
	return "implicit"
}
