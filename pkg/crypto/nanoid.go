package crypto

import (
	"crypto/rand"
	"errors"
	"math"
)

const (
	// URLAlphabet is the 64-symbol URL-safe alphabet
	URLAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

	DefaultIDSize   = 22 // 132 bits with URLAlphabet
	minAlphabetSize = 8
	maxAlphabetSize = 255
)

var (
	ErrAlphabetTooShort = errors.New("alphabet must contain at least 8 characters")
	ErrAlphabetTooLong  = errors.New("alphabet must contain no more than 255 characters")
	ErrAlphabetNotASCII = errors.New("alphabet must contain only ASCII characters")
)

// NanoID produces random identifiers over a fixed alphabet. It is safe for
// concurrent use.
type NanoID struct {
	alphabet string
	mask     byte
}

// NewNanoID validates alphabet. An empty alphabet selects URLAlphabet.
func NewNanoID(alphabet string) (*NanoID, error) {
	if alphabet == "" {
		alphabet = URLAlphabet
	}

	// Generate indexes by byte
	for i := 0; i < len(alphabet); i++ {
		if alphabet[i] > 127 {
			return nil, ErrAlphabetNotASCII
		}
	}
	if len(alphabet) < minAlphabetSize {
		return nil, ErrAlphabetTooShort
	}
	if len(alphabet) > maxAlphabetSize {
		return nil, ErrAlphabetTooLong
	}

	return &NanoID{alphabet: alphabet, mask: maskFor(len(alphabet))}, nil
}

// maskFor returns the smallest 2^n-1 covering every index of the alphabet
func maskFor(size int) byte {
	m := 1
	for m < size-1 {
		m = m<<1 | 1
	}
	return byte(m)
}

// Generate returns an id of size characters, DefaultIDSize when size <= 0
func (n *NanoID) Generate(size int) (string, error) {
	if size <= 0 {
		size = DefaultIDSize
	}

	// Bytes are drawn in batches; masked values outside the alphabet are discarded
	step := int(math.Ceil(1.6 * float64(int(n.mask)*size) / float64(len(n.alphabet))))
	buf := make([]byte, step)
	id := make([]byte, 0, size)

	for len(id) < size {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			idx := b & n.mask
			if int(idx) >= len(n.alphabet) {
				continue
			}
			id = append(id, n.alphabet[idx])
			if len(id) == size {
				break
			}
		}
	}

	return string(id), nil
}
