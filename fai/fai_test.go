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

package fai

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func writeFasta(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "test.fa")
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return file
}

// extract maps the file and returns the sequence of name.
func extract(t *testing.T, file string, idx *Index, name string) string {
	t.Helper()
	e, err := idx.Entry(name)
	if err != nil {
		t.Fatal(err)
	}
	m, err := Map(file)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	return string(m.Extract(e))
}

func TestCreateAndExtract(t *testing.T) {
	file := writeFasta(t, ">chr1 primary\nACGTACGT\nACGTACGT\nACG\n>chr2\nGGGG\n")
	idx, err := Create(file, false)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", idx.Len())
	}

	e := idx.Entries[0]
	if e.Name != "chr1 primary" {
		t.Errorf("expected full header in memory, got %q", e.Name)
	}
	if e.Length != 19 || e.Offset != 14 || e.LineBases != 8 || e.LineWidth != 9 {
		t.Errorf("unexpected entry: %+v", e)
	}

	if seq := extract(t, file, idx, "chr1 primary"); seq != "ACGTACGTACGTACGTACG" {
		t.Errorf("unexpected sequence: %q", seq)
	}
	if seq := extract(t, file, idx, "chr2"); seq != "GGGG" {
		t.Errorf("unexpected sequence: %q", seq)
	}
}

func TestIndexRoundTrip(t *testing.T) {
	fastas := map[string]map[string]string{
		">a\nACGT\n":                        {"a": "ACGT"},
		">a\nACGT\nACGT\n>b\nGG\n":          {"a": "ACGTACGT", "b": "GG"},
		">a desc\nAC\nGT\nA\n>b\nTTTT\nTT\n": {"a desc": "ACGTA", "b": "TTTTTT"},
		">a\nACGTACGTAC\n>b\nA\n":           {"a": "ACGTACGTAC", "b": "A"},
	}
	for content, seqs := range fastas {
		file := writeFasta(t, content)
		if _, err := Create(file, true); err != nil {
			t.Fatalf("create %q: %s", content, err)
		}
		idx, err := Read(IndexName(file))
		if err != nil {
			t.Fatalf("read %q: %s", content, err)
		}
		for name, want := range seqs {
			if got := extract(t, file, idx, name); got != want {
				t.Errorf("%q: sequence of %s: expected %q, got %q", content, name, want, got)
			}
		}
	}
}

func TestCreateNoTrailingNewline(t *testing.T) {
	file := writeFasta(t, ">a\nACGT\nAC")
	idx, err := Create(file, false)
	if err != nil {
		t.Fatal(err)
	}
	e := idx.Entries[0]
	if e.Length != 6 {
		t.Errorf("expected length 6, got %d", e.Length)
	}
	if seq := extract(t, file, idx, "a"); seq != "ACGTAC" {
		t.Errorf("unexpected sequence: %q", seq)
	}
}

func TestCreateCRLF(t *testing.T) {
	file := writeFasta(t, ">a\r\nACGT\r\nACGT\r\nAC\r\n")
	idx, err := Create(file, false)
	if err != nil {
		t.Fatal(err)
	}
	e := idx.Entries[0]
	if e.Length != 10 || e.LineBases != 4 || e.LineWidth != 6 {
		t.Errorf("unexpected entry: %+v", e)
	}
	if seq := extract(t, file, idx, "a"); seq != "ACGTACGTAC" {
		t.Errorf("unexpected sequence: %q", seq)
	}
}

func TestCreateCommentAndAtHeader(t *testing.T) {
	file := writeFasta(t, ";a comment\n>a\nACGT\n@b\nTT\n")
	idx, err := Create(file, false)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", idx.Len())
	}
	if seq := extract(t, file, idx, "b"); seq != "TT" {
		t.Errorf("unexpected sequence: %q", seq)
	}
}

func TestCreateMalformed(t *testing.T) {
	malformed := []string{
		">a\nACGT\nAC\nACGT\n",  // short line not last
		">a\nACGT\n\nACGT\n",    // empty line inside sequence
		">a\nACGT\nACGTACGT\n",  // line longer than the first
	}
	for _, content := range malformed {
		file := writeFasta(t, content)
		if _, err := Create(file, false); errors.Cause(err) != ErrMalformedFasta {
			t.Errorf("%q: expected ErrMalformedFasta, got %v", content, err)
		}
	}
}

func TestCreateDuplicateName(t *testing.T) {
	file := writeFasta(t, ">a\nACGT\n>a\nTTTT\n")
	if _, err := Create(file, false); errors.Cause(err) != ErrDuplicateName {
		t.Errorf("expected ErrDuplicateName, got %v", err)
	}
}

func TestRecordNameCutting(t *testing.T) {
	file := writeFasta(t, ">chr1 assembled from contigs\nACGT\n")
	if _, err := Create(file, false); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(IndexName(file))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "chr1\t") {
		t.Errorf("expected record name cut at whitespace, got %q", data)
	}

	if _, err = Create(file, true); err != nil {
		t.Fatal(err)
	}
	data, err = os.ReadFile(IndexName(file))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "chr1 assembled from contigs\t") {
		t.Errorf("expected full header record name, got %q", data)
	}
}

func TestReadMalformed(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "x.fai")
	if err := os.WriteFile(file, []byte("a\t4\t3\t4\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(file); errors.Cause(err) != ErrMalformedIndex {
		t.Errorf("expected ErrMalformedIndex for four fields, got %v", err)
	}
	if err := os.WriteFile(file, []byte("a\tfour\t3\t4\t5\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(file); errors.Cause(err) != ErrMalformedIndex {
		t.Errorf("expected ErrMalformedIndex for a non-numeric field, got %v", err)
	}
}

func TestNameNotFound(t *testing.T) {
	file := writeFasta(t, ">a\nACGT\n")
	idx, err := Create(file, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = idx.Entry("b"); errors.Cause(err) != ErrNameNotFound {
		t.Errorf("expected ErrNameNotFound, got %v", err)
	}
}

func TestNewCreatesAndReuses(t *testing.T) {
	file := writeFasta(t, ">a\nACGT\n>b\nTT\n")
	indexFile := IndexName(file)

	if _, err := os.Stat(indexFile); !os.IsNotExist(err) {
		t.Fatal("index file should not exist yet")
	}
	idx, err := New(file, false)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", idx.Len())
	}
	info, err := os.Stat(indexFile)
	if err != nil {
		t.Fatalf("index file should have been created: %s", err)
	}

	// a second call reuses the persisted index
	mtime := info.ModTime()
	idx2, err := New(file, false)
	if err != nil {
		t.Fatal(err)
	}
	if idx2.Len() != 2 {
		t.Fatalf("expected 2 entries from the reused index, got %d", idx2.Len())
	}
	info2, err := os.Stat(indexFile)
	if err != nil {
		t.Fatal(err)
	}
	if !info2.ModTime().Equal(mtime) {
		t.Error("index file should not have been rewritten")
	}
}

func TestMapClose(t *testing.T) {
	file := writeFasta(t, ">a\nACGT\n")
	m, err := Map(file)
	if err != nil {
		t.Fatal(err)
	}
	if m.Len() != 8 {
		t.Errorf("expected mapping of 8 bytes, got %d", m.Len())
	}
	if err = m.Close(); err != nil {
		t.Fatal(err)
	}
	if err = m.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
}
