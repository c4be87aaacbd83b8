// Package recipients parses the delimited recipient source file.
//
// The source is newline-delimited text, one recipient per line:
//
//	email[,name]
//
// An optional header line is tolerated: if the first token does not parse
// as an email address the line is skipped. Loading is pure and stateless;
// the watcher relies on that to diff two snapshots of the same file.
package recipients

import (
	"bufio"
	"os"
	"regexp"
	"strings"
)

// Recipient is one entry of the recipient source. Identity is the
// normalized (lowercased) email; the display name is optional.
type Recipient struct {
	Email string
	Name  string
}

// Basic shape only: local@domain.tld. Proper validation is the SMTP
// server's job; this just keeps headers and junk lines out.
var reEmail = regexp.MustCompile(`^[^\s@,]+@[^\s@,]+\.[^\s@,]+$`)

// NormalizeEmail lowercases and trims an address for use as an identity key.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidEmail reports whether s has the basic email shape after normalization.
func ValidEmail(s string) bool {
	return reEmail.MatchString(NormalizeEmail(s))
}

// Load reads the recipient source at path.
//
// A missing or unreadable file yields an empty list: having no recipients
// is a normal, reportable state, not an error. Duplicate emails keep the
// first occurrence's name and original position (first-seen-wins).
func Load(path string) []Recipient {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var out []Recipient
	seen := map[string]struct{}{}

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		// At most two fields; names may not contain commas in this format.
		parts := strings.SplitN(line, ",", 2)
		email := NormalizeEmail(parts[0])
		if !reEmail.MatchString(email) {
			// Header line or malformed; skip.
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		r := Recipient{Email: email}
		if len(parts) == 2 {
			r.Name = strings.TrimSpace(parts[1])
		}
		out = append(out, r)
	}
	if err := sc.Err(); err != nil {
		// Treat a torn read like an absent file.
		return nil
	}
	return out
}

// EmailSet returns the set of emails in rs.
func EmailSet(rs []Recipient) map[string]struct{} {
	set := make(map[string]struct{}, len(rs))
	for _, r := range rs {
		set[r.Email] = struct{}{}
	}
	return set
}
