package domain

import "strings"

// UnknownVersionLabel is the bucket label for players whose protocol version
// could not be decoded.
const UnknownVersionLabel = "Unknown"

// UndisclosedLocaleLabel is the bucket label for players who did not report a
// locale.
const UndisclosedLocaleLabel = "undisclosed"

// Version is a tagged-option protocol version. The zero value is absent.
type Version struct {
	name    string
	present bool
}

// ParseVersion decodes a raw protocol version tag. Valid tags are non-empty
// dotted-numeric strings ("1.21.4"); anything else decodes to absent rather
// than an error.
func ParseVersion(raw string) Version {
	if raw == "" {
		return Version{}
	}
	for _, part := range strings.Split(raw, ".") {
		if part == "" {
			return Version{}
		}
		for _, c := range part {
			if c < '0' || c > '9' {
				return Version{}
			}
		}
	}
	return Version{name: raw, present: true}
}

// Get returns the version name and whether it is present.
func (v Version) Get() (string, bool) {
	return v.name, v.present
}

// Present reports whether the version is known.
func (v Version) Present() bool {
	return v.present
}

// Label returns the version name, or UnknownVersionLabel when absent.
func (v Version) Label() string {
	if !v.present {
		return UnknownVersionLabel
	}
	return v.name
}

// Locale is a tagged-option locale. The zero value is absent.
type Locale struct {
	code    string
	present bool
}

// ParseLocale decodes a raw locale tag, normalizing to lower case. Empty
// decodes to absent.
func ParseLocale(raw string) Locale {
	if raw == "" {
		return Locale{}
	}
	return Locale{code: strings.ToLower(raw), present: true}
}

// Get returns the locale code and whether it is present.
func (l Locale) Get() (string, bool) {
	return l.code, l.present
}

// Present reports whether the locale was disclosed.
func (l Locale) Present() bool {
	return l.present
}

// Label returns the locale code, or UndisclosedLocaleLabel when absent.
func (l Locale) Label() string {
	if !l.present {
		return UndisclosedLocaleLabel
	}
	return l.code
}
