// Copyright © 2024 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package motifscan

import (
	"github.com/pkg/errors"
)

// ErrIllegalBase means that a base beyond the IUPAC alphabet was detected.
var ErrIllegalBase = errors.New("motifscan: illegal base")

// ErrTooManyPatterns means that expanding a motif would grow the pattern
// set, reverse complements and words of earlier motifs included, beyond
// MaxPatterns words.
var ErrTooManyPatterns = errors.New("motifscan: too many patterns")

// MaxPatterns is the maximum size of a pattern set.
// A motif of five N's already denotes 4^5 = 1024 words, so the cap is hit
// quickly by very ambiguous motifs.
const MaxPatterns = 512

// degenerateBaseMap maps a base to the concrete bases it denotes.
// Placeholder symbols (-, ., =, space) carry no base and are absent.
var degenerateBaseMap = map[byte]string{
	'A': "A",
	'T': "T",
	'U': "U",
	'C': "C",
	'G': "G",
	'R': "AG",
	'Y': "CT",
	'M': "AC",
	'K': "GT",
	'S': "CG",
	'W': "AT",
	'H': "ACT",
	'B': "CGT",
	'V': "ACG",
	'D': "AGT",
	'N': "ACGT",
	'X': "ACGT",
	'a': "a",
	't': "t",
	'u': "u",
	'c': "c",
	'g': "g",
	'r': "ag",
	'y': "ct",
	'm': "ac",
	'k': "gt",
	's': "cg",
	'w': "at",
	'h': "act",
	'b': "cgt",
	'v': "acg",
	'd': "agt",
	'n': "acgt",
	'x': "acgt",
}

// ntComplementTable maps a nucleotide or IUPAC ambiguity code to its
// Watson-Crick partner. Symbols beyond the alphabet map to 0.
var ntComplementTable = func() [256]byte {
	var t [256]byte
	for b, c := range map[byte]byte{
		'A': 'T', 'C': 'G', 'G': 'C', 'T': 'A', 'U': 'A',
		'R': 'Y', 'Y': 'R', 'M': 'K', 'K': 'M', 'S': 'S', 'W': 'W',
		'V': 'B', 'H': 'D', 'D': 'H', 'B': 'V', 'N': 'N', 'X': 'N',
		'-': '-', '.': '.', '=': '=', ' ': ' ',
	} {
		t[b] = c
		if b >= 'A' && b <= 'Z' {
			lc := c
			if c >= 'A' && c <= 'Z' {
				lc = c + 'a' - 'A'
			}
			t[b+'a'-'A'] = lc
		}
	}
	return t
}()

// Complement returns the complementary base of b, or 0 for symbols
// beyond the IUPAC alphabet.
func Complement(b byte) byte {
	return ntComplementTable[b]
}

// ReverseComplement returns the reverse complement of s in a new slice.
func ReverseComplement(s []byte) []byte {
	rc := make([]byte, len(s))
	for i, b := range s {
		rc[len(s)-1-i] = ntComplementTable[b]
	}
	return rc
}

// IsDNA reports whether s is non-empty and contains concrete bases
// (A/C/G/T/U, either case) only.
func IsDNA(s []byte) bool {
	if len(s) == 0 {
		return false
	}
	for _, b := range s {
		switch b {
		case 'A', 'C', 'G', 'T', 'U', 'a', 'c', 'g', 't', 'u':
		default:
			return false
		}
	}
	return true
}

// IsAmbiguity reports whether s is non-empty and contains IUPAC codes
// and placeholder symbols (-, ., =, space) only.
func IsAmbiguity(s []byte) bool {
	if len(s) == 0 {
		return false
	}
	for _, b := range s {
		if ntComplementTable[b] == 0 {
			return false
		}
	}
	return true
}

// PatternSet is an ordered set of concrete DNA words with stable integer
// ids assigned in insertion order. When reverse complements are included,
// a forward word is followed directly by its reverse complement. A
// palindromic word, or a word whose reverse complement is already in the
// set, is stored alone on the forward strand, which shifts the ids of the
// words after it; the id parity therefore encodes the strand only up to
// the first such word. Strand returns the recorded strand of a word.
type PatternSet struct {
	words   [][]byte
	strands []byte
	index   map[string]int
}

// NewPatternSet returns an empty pattern set.
func NewPatternSet() *PatternSet {
	return &PatternSet{index: make(map[string]int)}
}

// Len returns the number of words in the set.
func (s *PatternSet) Len() int {
	return len(s.words)
}

// Words returns the words in insertion order. The slice is shared, not a
// copy.
func (s *PatternSet) Words() [][]byte {
	return s.words
}

// Word returns the word with the given id.
func (s *PatternSet) Word(id int) []byte {
	return s.words[id]
}

// Strand returns '+' or '-' for the word with the given id.
func (s *PatternSet) Strand(id int) byte {
	return s.strands[id]
}

// Contains reports whether w is already in the set.
func (s *PatternSet) Contains(w []byte) bool {
	_, ok := s.index[string(w)]
	return ok
}

func (s *PatternSet) add(w []byte, strand byte) {
	word := make([]byte, len(w))
	copy(word, w)
	s.index[string(word)] = len(s.words)
	s.words = append(s.words, word)
	s.strands = append(s.strands, strand)
}

// ExpandMotif expands a motif over the IUPAC alphabet into the concrete
// DNA words it denotes and appends them to set, skipping words already
// present. With revcomp, the reverse complement of every admitted word is
// appended right after it unless it duplicates an existing word.
// Symbols beyond the accepted alphabet yield ErrIllegalBase; exceeding
// MaxPatterns yields ErrTooManyPatterns.
func ExpandMotif(motif []byte, set *PatternSet, revcomp bool) error {
	if len(motif) == 0 {
		return ErrIllegalBase
	}
	return expandMotif(motif, set, revcomp)
}

// expandMotif substitutes each concrete base for the first ambiguous
// symbol and recurses, admitting the motif once it is concrete.
func expandMotif(motif []byte, set *PatternSet, revcomp bool) error {
	if IsDNA(motif) {
		if set.Contains(motif) {
			return nil
		}
		if set.Len() >= MaxPatterns {
			return ErrTooManyPatterns
		}
		set.add(motif, '+')
		if !revcomp {
			return nil
		}
		rc := ReverseComplement(motif)
		if set.Contains(rc) {
			return nil
		}
		if set.Len() >= MaxPatterns {
			return ErrTooManyPatterns
		}
		set.add(rc, '-')
		return nil
	}

	for i := 0; i < len(motif); i++ {
		bases, ok := degenerateBaseMap[motif[i]]
		if !ok {
			if ntComplementTable[motif[i]] == 0 {
				return ErrIllegalBase
			}
			continue // placeholder symbol, no base to substitute
		}
		if len(bases) == 1 {
			continue
		}
		tmp := make([]byte, len(motif))
		copy(tmp, motif)
		for j := 0; j < len(bases); j++ {
			tmp[i] = bases[j]
			if err := expandMotif(tmp, set, revcomp); err != nil {
				return err
			}
		}
		return nil
	}

	// Only concrete bases and placeholder symbols left: a word with a
	// placeholder denotes no concrete DNA word, so nothing is admitted.
	return nil
}
