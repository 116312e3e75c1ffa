package service

import "strings"

// NormalizePhone strips the +91 country prefix and whitespace so that the
// same number always maps to the same identity.
func NormalizePhone(phone string) string {
	phone = strings.ReplaceAll(phone, "+91", "")
	phone = strings.Join(strings.Fields(phone), "")
	return strings.TrimSpace(phone)
}
