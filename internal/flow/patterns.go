package flow

import (
	"regexp"
	"strings"
)

// greetingPattern matches a message that is only a salutation. A greeting
// resets the conversation regardless of any active flow.
var greetingPattern = regexp.MustCompile(`(?i)^(hola+|buen\s*dia|buen[oa]s(\s*(dias|tardes|noches))?|saludos|que\s*tal|hey|hello)[!¡.,\s]*$`)

// switchPattern matches an explicit request to leave the current flow and
// start over.
var switchPattern = regexp.MustCompile(`(?i)\b(men[uú]|inicio|reiniciar|empezar\s+de\s+nuevo|otro\s+tema|cambiar\s+de\s+tema|otro\s+tr[aá]mite)\b`)

// accountPattern matches a service-account-shaped token: 6 to 10 digits.
var accountPattern = regexp.MustCompile(`\b\d{6,10}\b`)

// isGreeting reports whether the trimmed input is a bare salutation.
func isGreeting(text string) bool {
	return greetingPattern.MatchString(strings.TrimSpace(text))
}

// wantsSwitch reports whether the input explicitly asks to change topic.
func wantsSwitch(text string) bool {
	return switchPattern.MatchString(text)
}

// findAccountNumber returns the first account-shaped token in the input.
func findAccountNumber(text string) string {
	return accountPattern.FindString(text)
}

// isTicketAction reports whether an invoked action name signals ticket
// creation, which terminates the active flow.
func isTicketAction(name string) bool {
	n := strings.ToLower(name)
	if !strings.Contains(n, "ticket") {
		return false
	}
	return strings.Contains(n, "crear") || strings.Contains(n, "create")
}
