package domain

import (
	"fmt"
	"math/rand/v2"
	"time"
)

const orderNumberPrefix = "ORD-"

// NumberGenerator produces candidate order numbers. Candidates are unique
// with high probability within a day but not guaranteed unique; the
// repository's uniqueness constraint plus a bounded retry in the placement
// path close that gap.
type NumberGenerator interface {
	Generate(now time.Time) string
}

type numberGenerator struct {
	intn func(n int) int
}

// NewNumberGenerator returns a generator backed by the shared math/rand
// source.
func NewNumberGenerator() NumberGenerator {
	return numberGenerator{intn: rand.IntN}
}

// NewNumberGeneratorFromSource returns a generator with an injected random
// source, for deterministic tests.
func NewNumberGeneratorFromSource(intn func(n int) int) NumberGenerator {
	return numberGenerator{intn: intn}
}

// Generate encodes the date as YYMMDD and appends a four digit
// disambiguator in [1000, 9999].
func (g numberGenerator) Generate(now time.Time) string {
	datePart := now.UTC().Format("060102")
	randomPart := 1000 + g.intn(9000)
	return fmt.Sprintf("%s%s-%d", orderNumberPrefix, datePart, randomPart)
}
