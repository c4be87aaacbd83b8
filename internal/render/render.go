// Package render builds the application email body from the configured
// template: a personal greeting, the configured body text and a signature
// that is appended only when the body does not already carry one.
package render

import (
	"html"
	"regexp"
	"strings"
)

// Params are the inputs for one rendered message.
type Params struct {
	RecipientName  string
	RecipientEmail string
	Subject        string
	Body           string
	// Signature lines appended below the body. The first non-empty line is
	// also used to detect whether the body already ends in a signature.
	Signature []string
	// SenderName is matched case-insensitively when checking whether the
	// body already contains a signature.
	SenderName string
}

// Message is a rendered email in both representations.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

const fallbackGreeting = "Hiring Team"

// Address markers of a shared hiring inbox rather than a person.
var sharedInboxHints = []string{"hr", "hiring", "recruit", "talent", "peopleops", "people-ops"}

var reRegards = regexp.MustCompile(`(?i)warm\s+regards|regards\s*,`)

// Build renders the message for one recipient.
func Build(p Params) Message {
	greeting := firstNameOnly(p.RecipientName)
	if greeting == "" {
		greeting = greetingForAddress(p.RecipientEmail)
	}

	body := strings.TrimSpace(p.Body)
	addSignature := len(p.Signature) > 0 && !hasSignature(body, p.SenderName)

	textParts := []string{"Hi " + greeting + ",", "", body}
	if addSignature {
		textParts = append(textParts, "", strings.Join(p.Signature, "\n"))
	}
	text := strings.TrimSpace(strings.Join(textParts, "\n")) + "\n"

	var sb strings.Builder
	sb.WriteString("<p>Hi " + html.EscapeString(greeting) + ",</p>\n")
	sb.WriteString("<p>" + bodyToHTML(body) + "</p>")
	if addSignature {
		sb.WriteString("\n<p>" + bodyToHTML(strings.Join(p.Signature, "\n")) + "</p>")
	}

	return Message{Subject: p.Subject, Text: text, HTML: sb.String()}
}

// hasSignature reports whether body already ends in a sign-off, either a
// "regards" phrase or the sender's own name.
func hasSignature(body, senderName string) bool {
	if strings.TrimSpace(body) == "" {
		return false
	}
	if reRegards.MatchString(body) {
		return true
	}
	name := strings.ToLower(strings.TrimSpace(senderName))
	return name != "" && strings.Contains(strings.ToLower(body), name)
}

// greetingForAddress picks the salutation when the source row carries no
// usable name. Shared hiring inboxes (hr@, recruiting@, talent@) get the
// generic greeting, and so does every other address: a personal name is
// never guessed from the local part.
func greetingForAddress(email string) string {
	e := strings.ToLower(email)
	for _, h := range sharedInboxHints {
		if strings.Contains(e, h) {
			return fallbackGreeting
		}
	}
	return fallbackGreeting
}

// firstNameOnly reduces a full display name to its first token, so
// "Priya Sharma (HR)" greets as "Priya". Generic team names pass through.
func firstNameOnly(full string) string {
	name := strings.TrimSpace(full)
	if name == "" {
		return ""
	}
	if strings.EqualFold(name, fallbackGreeting) {
		return fallbackGreeting
	}
	cleaned := strings.NewReplacer("(", " ", ")", " ", ",", " ").Replace(name)
	fields := strings.Fields(cleaned)
	if len(fields) == 0 {
		return name
	}
	return fields[0]
}

func bodyToHTML(body string) string {
	lines := strings.Split(body, "\n")
	for i, l := range lines {
		lines[i] = html.EscapeString(l)
	}
	return strings.Join(lines, "<br />")
}
