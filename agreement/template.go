package agreement

import (
	"strings"
	"time"
)

// Placeholder tokens recognised verbatim in template content.
const (
	TokenClientName     = "{{CLIENT_NAME}}"
	TokenStaffName      = "{{STAFF_NAME}}"
	TokenDate           = "{{DATE}}"
	TokenToday          = "{{TODAY}}"
	TokenAgreementTitle = "{{AGREEMENT_TITLE}}"
)

// Literal fallbacks used when a name token has no resolved value. Substitution
// is total: no {{...}} token survives into the rendered content.
const (
	fallbackClientName = "[Client Name]"
	fallbackStaffName  = "[Staff Name]"
)

// RenderTemplate substitutes every placeholder token in content. Only the side
// matching the signer carries a name; the other side renders as its fallback.
func RenderTemplate(content, clientName, staffName, title string, now time.Time) string {
	if clientName == "" {
		clientName = fallbackClientName
	}
	if staffName == "" {
		staffName = fallbackStaffName
	}
	today := now.Format("2 January 2006")

	replacer := strings.NewReplacer(
		TokenClientName, clientName,
		TokenStaffName, staffName,
		TokenDate, today,
		TokenToday, today,
		TokenAgreementTitle, title,
	)
	return replacer.Replace(content)
}
