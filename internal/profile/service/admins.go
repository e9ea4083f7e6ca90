package service

import (
	"givetrack/pkg/email"
)

// AdminList is the configured set of administrator emails.
type AdminList struct {
	emails map[string]struct{}
}

func NewAdminList(emails []string) *AdminList {
	l := &AdminList{emails: make(map[string]struct{})}
	for _, e := range email.NormalizeList(emails) {
		l.emails[e] = struct{}{}
	}
	return l
}

func (l *AdminList) IsAdmin(address string) bool {
	if l == nil || address == "" {
		return false
	}
	_, ok := l.emails[email.Normalize(address)]
	return ok
}
