package ranks

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMalformedKey = errors.New("malformed rank list key")

// Key names one rank list inside a run.
//
// Group tells where the list came from (a zip of .rnk files, a
// contrast family, ...), Name tells the list apart within its group.
type Key struct {
	Group string
	Name  string
}

func (k Key) String() string {
	return k.Group + "/" + k.Name
}

const keySeparator = "~"

// Encode renders the key as a single string for use in documents.
//
// Both halves are escaped so that the separator occurs exactly once in
// the result, whatever the halves contain. DecodeKey reverses it.
func (k Key) Encode() string {
	return escapeKeyPart(k.Group) + keySeparator + escapeKeyPart(k.Name)
}

// DecodeKey parses the encoding produced by Key.Encode.
//
// Input without exactly one separator, or with a broken escape, is
// rejected with ErrMalformedKey.
func DecodeKey(s string) (Key, error) {
	parts := strings.Split(s, keySeparator)
	if len(parts) != 2 {
		return Key{}, fmt.Errorf(
			"%w: %q should contain exactly one %q", ErrMalformedKey, s, keySeparator,
		)
	}

	group, err := unescapeKeyPart(parts[0])
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q: %s", ErrMalformedKey, s, err)
	}
	name, err := unescapeKeyPart(parts[1])
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q: %s", ErrMalformedKey, s, err)
	}

	return Key{Group: group, Name: name}, nil
}

func escapeKeyPart(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, keySeparator, "%7E")
	return s
}

func unescapeKeyPart(s string) (string, error) {
	b := strings.Builder{}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if len(s) < i+3 {
			return "", fmt.Errorf("truncated escape at offset %d", i)
		}
		switch code := s[i+1 : i+3]; code {
		case "25":
			b.WriteByte('%')
		case "7E", "7e":
			b.WriteString(keySeparator)
		default:
			return "", fmt.Errorf("unknown escape %%%s at offset %d", code, i)
		}
		i += 2
	}
	return b.String(), nil
}
