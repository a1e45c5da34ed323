package contact

import (
	"net/mail"
	"strings"
)

// Contact is a schema-less record. ID is the internal identity used to address
// the record and is unrelated to any business key.
type Contact struct {
	ID     string `json:"id"`
	Fields Fields `json:"fields"`
}

func (c Contact) Clone() Contact {
	return Contact{ID: c.ID, Fields: c.Fields.Clone()}
}

// FieldText returns the text of field key and whether the field is present and non-null.
func (c Contact) FieldText(key string) (string, bool) {
	v, ok := c.Fields.Get(key)
	if !ok || v.IsNull() {
		return "", false
	}
	return v.Text(), true
}

type QuickFilter string

const (
	QuickFilterInvalidEmail      QuickFilter = "invalidEmail"
	QuickFilterDuplicate         QuickFilter = "duplicate"
	QuickFilterMissingPrimaryKey QuickFilter = "missingPrimaryKey"
)

func (q QuickFilter) Valid() bool {
	switch q {
	case QuickFilterInvalidEmail, QuickFilterDuplicate, QuickFilterMissingPrimaryKey:
		return true
	}
	return false
}

// ValidEmail reports whether s is a bare address with a dotted domain.
func ValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndex(s, "@")
	domain := s[at+1:]
	dot := strings.Index(domain, ".")
	return dot > 0 && dot < len(domain)-1 && !strings.HasSuffix(domain, ".")
}
