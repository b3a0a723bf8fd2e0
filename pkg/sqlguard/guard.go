// Package sqlguard decides whether a generated statement may run against the
// warehouse. Only a single read-only SELECT or WITH statement is accepted.
package sqlguard

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
)

var (
	ErrEmptyStatement     = errors.New("empty SQL statement")
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")
)

var (
	leadingKeyword = regexp.MustCompile(`^[\s(]*([A-Za-z]+)`)

	// Matched against the statement with literals and comments blanked.
	writeKeyword = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|MERGE|UPSERT|REPLACE\s+INTO|DROP|ALTER|CREATE|TRUNCATE|GRANT|REVOKE|CALL|EXEC|EXECUTE|COPY|PUT|REMOVE|UNDROP|USE)\b`)
)

// InjectionFinding records a string literal that libinjection flagged.
type InjectionFinding struct {
	Literal     string
	Fingerprint string
}

// Check normalizes sqlQuery and returns it if it is a single read-only
// statement. Rejections wrap apperrors.ErrUnsafeQuery.
func Check(sqlQuery string) (string, error) {
	normalized := Normalize(sqlQuery)
	if normalized == "" {
		return "", fmt.Errorf("%w: %w", apperrors.ErrUnsafeQuery, ErrEmptyStatement)
	}

	masked, literals := scan(normalized)
	if strings.Contains(masked, ";") {
		return "", fmt.Errorf("%w: %w", apperrors.ErrUnsafeQuery, ErrMultipleStatements)
	}

	m := leadingKeyword.FindStringSubmatch(masked)
	if m == nil {
		return "", fmt.Errorf("%w: statement has no leading keyword", apperrors.ErrUnsafeQuery)
	}
	switch strings.ToUpper(m[1]) {
	case "SELECT", "WITH":
	default:
		return "", fmt.Errorf("%w: only SELECT or WITH statements may run, got %s", apperrors.ErrUnsafeQuery, strings.ToUpper(m[1]))
	}

	if kw := writeKeyword.FindString(masked); kw != "" {
		return "", fmt.Errorf("%w: statement contains %s", apperrors.ErrUnsafeQuery, strings.ToUpper(kw))
	}

	if findings := CheckLiterals(literals); len(findings) > 0 {
		return "", fmt.Errorf("%w: string literal matches injection pattern %q", apperrors.ErrUnsafeQuery, findings[0].Fingerprint)
	}
	return normalized, nil
}

// Normalize trims whitespace and a single trailing semicolon.
func Normalize(sqlQuery string) string {
	s := strings.TrimSpace(sqlQuery)
	s = strings.TrimSuffix(s, ";")
	return strings.TrimRight(s, " \t\n\r")
}

// CheckLiterals runs libinjection over each literal.
func CheckLiterals(literals []string) []InjectionFinding {
	var findings []InjectionFinding
	for _, lit := range literals {
		if lit == "" {
			continue
		}
		if isSQLi, fp := libinjection.IsSQLi(lit); isSQLi {
			findings = append(findings, InjectionFinding{Literal: lit, Fingerprint: string(fp)})
		}
	}
	return findings
}
