// redact маскирует персональные данные и секреты перед записью в лог.
package redact

import "strings"

const mask = "***"

// Email оставляет первые две руны локальной части и домен: "fo***@example.com".
// Строка без ровно одного '@' маскируется целиком.
func Email(s string) string {
	local, domain, ok := strings.Cut(s, "@")
	if !ok || strings.Contains(domain, "@") {
		return mask
	}

	return prefix(local) + "@" + domain
}

// Username оставляет первые две руны имени пользователя.
func Username(s string) string {
	return prefix(s)
}

// prefix: первые две руны + маска; короткие значения маскируются целиком.
func prefix(s string) string {
	r := []rune(s)
	if len(r) <= 2 {
		return mask
	}

	return string(r[:2]) + mask
}

func Token() string    { return "[REDACTED_TOKEN]" }
func Password() string { return "[REDACTED_PASSWORD]" }
func Code() string     { return "[REDACTED_CODE]" }
