package domain

import (
	"errors"
	"net/mail"
	"strings"
)

type IdentifierKind string

const (
	KindEmail IdentifierKind = "email"
	KindPhone IdentifierKind = "phone"
)

// Identifier is an email-or-phone string classified once at the boundary
// and threaded through as a typed value.
type Identifier struct {
	Kind  IdentifierKind
	Value string
}

var ErrIdentifierInvalid = errors.New("identifier_invalid")

// ParseIdentifier classifies raw as an email when it contains '@',
// otherwise as a phone number with every non-digit stripped. Emails are
// lowercased.
func ParseIdentifier(raw string) (Identifier, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identifier{}, ErrIdentifierInvalid
	}
	if strings.Contains(raw, "@") {
		email := strings.ToLower(raw)
		if _, err := mail.ParseAddress(email); err != nil {
			return Identifier{}, ErrIdentifierInvalid
		}
		return Identifier{Kind: KindEmail, Value: email}, nil
	}
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	phone := b.String()
	if len(phone) < 7 {
		return Identifier{}, ErrIdentifierInvalid
	}
	return Identifier{Kind: KindPhone, Value: phone}, nil
}

func (i Identifier) Channel() Channel {
	if i.Kind == KindEmail {
		return ChannelEmail
	}
	return ChannelPhone
}
