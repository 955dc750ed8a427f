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
	"bytes"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"testing"
)

// scanMotif expands a motif and scans seq, returning "pos:strand"
// strings in lexicographic order.
func scanMotif(t *testing.T, motif, seq string) []string {
	t.Helper()
	set := NewPatternSet()
	if err := ExpandMotif([]byte(motif), set, true); err != nil {
		t.Fatalf("expand %s: %s", motif, err)
	}
	a := NewAutomaton()
	for id, w := range set.Words() {
		a.AddPattern(w, id)
	}
	a.Build()
	var hits []string
	a.Scan([]byte(seq), func(id, pos int) {
		hits = append(hits, fmt.Sprintf("%d:%c", pos, set.Strand(id)))
	})
	sort.Strings(hits)
	return hits
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestScanScenarios(t *testing.T) {
	tests := []struct {
		seq, motif string
		hits       []string
	}{
		// ACGT is its own reverse complement, one + word
		{"ACGTACGT", "ACGT", []string{"0:+", "4:+"}},
		// AAA forward, TTT as its reverse complement
		{"AAATTT", "AAA", []string{"0:+", "3:-"}},
		// GG forward at 0,1,2; CC never occurs
		{"GGGG", "GG", []string{"0:+", "1:+", "2:+"}},
		// TACG spans the former line boundary; CGTA is its reverse complement
		{"ACGTACGT", "TACG", []string{"1:-", "3:+"}},
		// N expands to A(+), T(-), C(+), G(-); the N in the sequence
		// matches nothing
		{"ACGTN", "N", []string{"0:+", "1:+", "2:-", "3:-"}},
	}
	for _, test := range tests {
		if got := scanMotif(t, test.motif, test.seq); !sameStrings(got, test.hits) {
			t.Errorf("motif %s on %s: expected %v, got %v", test.motif, test.seq, test.hits, got)
		}
	}
}

// Patterns are upper case, so sequences must be uppercased before
// matching; uppercasing an already upper-case sequence changes nothing.
func TestScanUppercaseBeforeMatching(t *testing.T) {
	lower := "acgtacgt"
	if got := scanMotif(t, "ACGT", lower); len(got) != 0 {
		t.Errorf("expected no hits on a lower-case sequence, got %v", got)
	}
	upper := strings.ToUpper(lower)
	if got := scanMotif(t, "ACGT", upper); len(got) != 2 {
		t.Errorf("expected 2 hits after uppercasing, got %v", got)
	}
	if got, want := scanMotif(t, "ACGT", strings.ToUpper(upper)), scanMotif(t, "ACGT", upper); !sameStrings(got, want) {
		t.Errorf("uppercasing twice changed the hits: %v vs %v", got, want)
	}
}

// The minus-strand hits of a word are exactly the plus-strand hits of
// its reverse complement.
func TestStrandDuality(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	bases := []byte("ACGT")
	seq := make([]byte, 500)
	for i := range seq {
		seq[i] = bases[r.Intn(4)]
	}

	word := []byte("AAC")
	rc := ReverseComplement(word) // GTT

	minus := []string{}
	for _, h := range scanMotif(t, string(word), string(seq)) {
		i := strings.IndexByte(h, ':')
		if h[i+1:] == "-" {
			minus = append(minus, h[:i])
		}
	}

	direct := []string{}
	for i := 0; i+len(rc) <= len(seq); i++ {
		if bytes.Equal(seq[i:i+len(rc)], rc) {
			direct = append(direct, fmt.Sprintf("%d", i))
		}
	}
	sort.Strings(minus)
	sort.Strings(direct)
	if !sameStrings(minus, direct) {
		t.Errorf("minus-strand hits %v differ from occurrences of the reverse complement %v", minus, direct)
	}
}
