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

// Automaton is an Aho-Corasick automaton over a set of patterns,
// supporting linear-time multi-pattern matching. Patterns are inserted
// with AddPattern, failure links are computed by Build, and Scan reports
// every occurrence. An Automaton is immutable after Build and safe for
// concurrent Scan calls.
type Automaton struct {
	nodes []acNode
}

type acNode struct {
	children map[byte]int32
	fail     int32
	// pattern ids ending at this node, own ids first, then those
	// inherited along the failure chain
	out []acOut
}

type acOut struct {
	id  int
	len int
}

// NewAutomaton returns an automaton containing only the root node.
func NewAutomaton() *Automaton {
	return &Automaton{nodes: []acNode{{children: make(map[byte]int32)}}}
}

// AddPattern inserts pattern p under the caller-assigned id.
// All patterns must be added before Build.
func (a *Automaton) AddPattern(p []byte, id int) {
	cur := int32(0)
	for _, b := range p {
		next, ok := a.nodes[cur].children[b]
		if !ok {
			next = int32(len(a.nodes))
			a.nodes = append(a.nodes, acNode{children: make(map[byte]int32)})
			a.nodes[cur].children[b] = next
		}
		cur = next
	}
	a.nodes[cur].out = append(a.nodes[cur].out, acOut{id: id, len: len(p)})
}

// Build computes the failure links breadth first. A node's failure link
// points to the longest proper suffix of its word that is also a node;
// its output list additionally inherits the outputs reachable along the
// failure chain, so Scan needs no chain walking per position.
func (a *Automaton) Build() {
	queue := make([]int32, 0, len(a.nodes))
	for _, c := range a.nodes[0].children {
		a.nodes[c].fail = 0
		queue = append(queue, c)
	}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for b, c := range a.nodes[u].children {
			f := a.nodes[u].fail
			for {
				if next, ok := a.nodes[f].children[b]; ok {
					a.nodes[c].fail = next
					break
				}
				if f == 0 {
					a.nodes[c].fail = 0
					break
				}
				f = a.nodes[f].fail
			}
			a.nodes[c].out = append(a.nodes[c].out, a.nodes[a.nodes[c].fail].out...)
			queue = append(queue, c)
		}
	}
}

// Scan visits text once and calls emit with the pattern id and 0-based
// start position of every occurrence, including overlapping and nested
// ones. For a fixed insertion order the emission order at each position
// is deterministic. Scan must be called after Build.
func (a *Automaton) Scan(text []byte, emit func(id, pos int)) {
	cur := int32(0)
	for i := 0; i < len(text); i++ {
		b := text[i]
		for {
			if next, ok := a.nodes[cur].children[b]; ok {
				cur = next
				break
			}
			if cur == 0 {
				break
			}
			cur = a.nodes[cur].fail
		}
		for _, o := range a.nodes[cur].out {
			emit(o.id, i-o.len+1)
		}
	}
}
