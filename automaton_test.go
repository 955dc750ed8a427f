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
	"testing"
)

type hit struct {
	id  int
	pos int
}

func scanAll(patterns [][]byte, text []byte) []hit {
	a := NewAutomaton()
	for id, p := range patterns {
		a.AddPattern(p, id)
	}
	a.Build()
	var hits []hit
	a.Scan(text, func(id, pos int) {
		hits = append(hits, hit{id, pos})
	})
	return hits
}

// bruteForce finds all occurrences by direct comparison.
func bruteForce(patterns [][]byte, text []byte) []hit {
	var hits []hit
	for i := 0; i <= len(text); i++ {
		for id, p := range patterns {
			if i+len(p) <= len(text) && bytes.Equal(text[i:i+len(p)], p) {
				hits = append(hits, hit{id, i})
			}
		}
	}
	return hits
}

func sortHits(hits []hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].pos != hits[j].pos {
			return hits[i].pos < hits[j].pos
		}
		return hits[i].id < hits[j].id
	})
}

func sameHits(a, b []hit) bool {
	if len(a) != len(b) {
		return false
	}
	sortHits(a)
	sortHits(b)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestScanOverlapping(t *testing.T) {
	hits := scanAll([][]byte{[]byte("AAA")}, []byte("AAAAA"))
	want := []hit{{0, 0}, {0, 1}, {0, 2}}
	if !sameHits(hits, want) {
		t.Errorf("expected %v, got %v", want, hits)
	}
}

func TestScanNested(t *testing.T) {
	patterns := [][]byte{[]byte("A"), []byte("AC"), []byte("ACGT"), []byte("CG")}
	text := []byte("ACGTACGT")
	hits := scanAll(patterns, text)
	want := bruteForce(patterns, text)
	if !sameHits(hits, want) {
		t.Errorf("expected %v, got %v", want, hits)
	}
}

func TestScanAdjacent(t *testing.T) {
	hits := scanAll([][]byte{[]byte("ACGT")}, []byte("ACGTACGT"))
	want := []hit{{0, 0}, {0, 4}}
	if !sameHits(hits, want) {
		t.Errorf("expected %v, got %v", want, hits)
	}
}

func TestScanRandom(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	bases := []byte("ACGT")
	for round := 0; round < 50; round++ {
		text := make([]byte, 200)
		for i := range text {
			text[i] = bases[r.Intn(4)]
		}
		n := r.Intn(8) + 1
		patterns := make([][]byte, n)
		for i := range patterns {
			p := make([]byte, r.Intn(6)+1)
			for j := range p {
				p[j] = bases[r.Intn(4)]
			}
			patterns[i] = p
		}
		got := scanAll(patterns, text)
		want := bruteForce(patterns, text)
		if !sameHits(got, want) {
			t.Fatalf("round %d: expected %d hits, got %d", round, len(want), len(got))
		}
	}
}

func TestScanDeterministic(t *testing.T) {
	patterns := [][]byte{[]byte("ACG"), []byte("CGT"), []byte("GTA"), []byte("ACGT")}
	text := bytes.Repeat([]byte("ACGTA"), 20)
	first := fmt.Sprint(scanAll(patterns, text))
	for i := 0; i < 10; i++ {
		if got := fmt.Sprint(scanAll(patterns, text)); got != first {
			t.Fatal("emission order changed between identical runs")
		}
	}
}

func TestScanNoMatchOnN(t *testing.T) {
	hits := scanAll([][]byte{[]byte("AC")}, []byte("ANCAC"))
	want := []hit{{0, 3}}
	if !sameHits(hits, want) {
		t.Errorf("expected %v, got %v", want, hits)
	}
}
