package orders

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	referencePrefix    = "ORD"
	referenceSuffixLen = 6
	base36             = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// ReferenceGenerator builds human-facing order references.
type ReferenceGenerator struct {
	Rand io.Reader
	Now  func() time.Time
}

var defaultReferences = ReferenceGenerator{Rand: rand.Reader, Now: time.Now}

// GenerateOrderReference returns reference unchanged when it is not blank.
// Otherwise it returns ORD-<YYYYMMDD>-<6 base36 chars> using date (or now) in UTC.
func GenerateOrderReference(date *time.Time, reference string) (string, error) {
	return defaultReferences.Generate(date, reference)
}

func (g ReferenceGenerator) Generate(date *time.Time, reference string) (string, error) {
	if strings.TrimSpace(reference) != "" {
		return reference, nil
	}

	var at time.Time
	switch {
	case date != nil:
		at = *date
	case g.Now != nil:
		at = g.Now()
	default:
		at = time.Now()
	}

	suffix, err := g.suffix()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%s", referencePrefix, at.UTC().Format("20060102"), suffix), nil
}

func (g ReferenceGenerator) suffix() (string, error) {
	src := g.Rand
	if src == nil {
		src = rand.Reader
	}

	// 252 is the largest multiple of 36 below 256; higher bytes are rejected
	// so every symbol is equally likely.
	const limit = 252
	out := make([]byte, 0, referenceSuffixLen)
	buf := make([]byte, referenceSuffixLen*2)
	for len(out) < referenceSuffixLen {
		if _, err := io.ReadFull(src, buf); err != nil {
			return "", fmt.Errorf("reading reference entropy: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, base36[int(b)%len(base36)])
			if len(out) == referenceSuffixLen {
				break
			}
		}
	}
	return string(out), nil
}
