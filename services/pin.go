package services

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// PINGenerator draws guest PINs uniformly from an alphabet.
type PINGenerator struct {
	length    int
	alphabet  []rune
	upperOnly bool
}

func NewPINGenerator(length int, alphabet string) (*PINGenerator, error) {
	if length < 4 {
		return nil, errors.New("pin length must be at least 4")
	}
	runes := []rune(alphabet)
	if len(runes) < 10 {
		return nil, errors.New("pin alphabet must have at least 10 symbols")
	}
	return &PINGenerator{
		length:    length,
		alphabet:  runes,
		upperOnly: alphabet == strings.ToUpper(alphabet),
	}, nil
}

func (p *PINGenerator) Generate() (string, error) {
	max := big.NewInt(int64(len(p.alphabet)))
	var sb strings.Builder
	for i := 0; i < p.length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteRune(p.alphabet[n.Int64()])
	}
	return sb.String(), nil
}

// Normalize trims what guests typically paste around a PIN and, for upper-case
// alphabets, accepts lower-case input.
func (p *PINGenerator) Normalize(pin string) string {
	pin = strings.TrimSpace(pin)
	if p.upperOnly {
		pin = strings.ToUpper(pin)
	}
	return pin
}
