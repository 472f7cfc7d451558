package code

import (
	"crypto/rand"
	"errors"
	"fmt"
)

//go:generate mockgen -package=mocks -destination=mocks/mock_generator.go github.com/KirkDiggler/d20duel/internal/common/code Generator

// Generator produces session codes
type Generator interface {
	Generate() (string, error)
}

const (
	// DefaultAlphabet is the set of characters a session code is drawn from
	DefaultAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// DefaultLength is the number of characters in a session code
	DefaultLength = 6
)

// Config for the random generator
type Config struct {
	// Alphabet defaults to DefaultAlphabet
	Alphabet string

	// Length defaults to DefaultLength
	Length int
}

// RandomGenerator draws codes from crypto/rand
type RandomGenerator struct {
	alphabet string
	length   int
}

// New creates a random code generator
func New(cfg *Config) (*RandomGenerator, error) {
	g := &RandomGenerator{
		alphabet: DefaultAlphabet,
		length:   DefaultLength,
	}
	if cfg != nil {
		if cfg.Alphabet != "" {
			g.alphabet = cfg.Alphabet
		}
		if cfg.Length != 0 {
			g.length = cfg.Length
		}
	}
	if g.length < 1 {
		return nil, errors.New("code length must be positive")
	}
	if len(g.alphabet) < 2 || len(g.alphabet) > 256 {
		return nil, errors.New("code alphabet must hold between 2 and 256 characters")
	}

	return g, nil
}

// Generate returns a fresh code. Bytes that would bias the distribution are
// discarded and redrawn.
func (g *RandomGenerator) Generate() (string, error) {
	n := len(g.alphabet)
	limit := 256 - (256 % n)

	out := make([]byte, 0, g.length)
	buf := make([]byte, g.length)
	for len(out) < g.length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, g.alphabet[int(b)%n])
			if len(out) == g.length {
				break
			}
		}
	}

	return string(out), nil
}
