// Package redact scrubs secrets out of run reports before they leave the
// machine. Known literals (the access token in use) are always removed;
// everything else is found with the gitleaks default rule set.
package redact

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// Placeholder replaces every redacted secret.
const Placeholder = "[REDACTED]"

// minLiteral keeps short strings such as "a" from wiping out whole reports.
const minLiteral = 8

// Redactor replaces secrets in text.
type Redactor struct {
	detector *detect.Detector
	literals []string
}

// New creates a Redactor with the gitleaks default configuration. literals
// are always redacted whether or not a rule matches them.
func New(literals ...string) (*Redactor, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load secret rules: %w", err)
	}
	r := &Redactor{detector: detector}
	r.AddLiteral(literals...)
	return r, nil
}

// AddLiteral registers additional values to redact.
func (r *Redactor) AddLiteral(literals ...string) {
	for _, l := range literals {
		l = strings.TrimSpace(l)
		if len(l) < minLiteral {
			continue
		}
		r.literals = append(r.literals, l)
	}
	// Longest first so a literal containing another is replaced whole.
	sort.Slice(r.literals, func(i, j int) bool {
		return len(r.literals[i]) > len(r.literals[j])
	})
}

// String returns s with every known literal and detected secret replaced.
func (r *Redactor) String(s string) string {
	if s == "" {
		return s
	}
	for _, l := range r.literals {
		s = strings.ReplaceAll(s, l, Placeholder)
	}
	if r.detector == nil {
		return s
	}
	for _, finding := range r.detector.DetectString(s) {
		secret := finding.Secret
		if secret == "" {
			secret = finding.Match
		}
		if secret == "" || secret == Placeholder {
			continue
		}
		s = strings.ReplaceAll(s, secret, Placeholder)
	}
	return s
}
