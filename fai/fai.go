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

// Package fai builds and reads the samtools-compatible .fai byte-offset
// index of a FASTA file, and extracts whole sequences through a
// read-only memory mapping for random access without loading the file
// into memory.
package fai

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrMalformedFasta means that the FASTA file violates the fixed
// line-width layout an index requires.
var ErrMalformedFasta = errors.New("fai: malformed fasta file")

// ErrMalformedIndex means that a .fai record does not have five
// tab-separated fields, or that one of its numeric fields is not an
// integer.
var ErrMalformedIndex = errors.New("fai: malformed index file")

// ErrDuplicateName means that two sequences share one name.
var ErrDuplicateName = errors.New("fai: duplicate sequence name")

// ErrNameNotFound means that a sequence name is absent from the index.
var ErrNameNotFound = errors.New("fai: sequence name not found")

// Entry is one record of a .fai file.
type Entry struct {
	Name      string
	Length    int64 // sequence bytes, line terminators excluded
	Offset    int64 // offset of the first sequence byte after the header
	LineBases int64 // sequence bytes per line
	LineWidth int64 // bytes per line including the terminator
}

// Index is the ordered list of entries of a .fai file, with O(1) lookup
// by name. Order follows sequence appearance in the source FASTA.
type Index struct {
	Entries []*Entry

	byName     map[string]*Entry
	fullHeader bool
}

func newIndex(fullHeader bool) *Index {
	return &Index{byName: make(map[string]*Entry), fullHeader: fullHeader}
}

func (idx *Index) add(e *Entry) error {
	if _, ok := idx.byName[e.Name]; ok {
		return errors.Wrap(ErrDuplicateName, e.Name)
	}
	idx.byName[e.Name] = e
	idx.Entries = append(idx.Entries, e)
	return nil
}

// Len returns the number of indexed sequences.
func (idx *Index) Len() int {
	return len(idx.Entries)
}

// Entry returns the entry of the sequence with the given name.
func (idx *Index) Entry(name string) (*Entry, error) {
	e, ok := idx.byName[name]
	if !ok {
		return nil, errors.Wrap(ErrNameNotFound, name)
	}
	return e, nil
}

// IndexName returns the companion index file path of a FASTA file.
func IndexName(file string) string {
	return file + ".fai"
}

// RecordName returns the name as written to a .fai record: the full
// header, or the header cut at the first whitespace.
func RecordName(name string, fullHeader bool) string {
	if fullHeader {
		return name
	}
	if i := strings.IndexAny(name, " \t"); i >= 0 {
		return name[:i]
	}
	return name
}

// Write writes the index as tab-separated .fai records.
func (idx *Index) Write(w io.Writer) error {
	for _, e := range idx.Entries {
		_, err := fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n",
			RecordName(e.Name, idx.fullHeader), e.Length, e.Offset, e.LineBases, e.LineWidth)
		if err != nil {
			return errors.Wrap(err, "fai: write index")
		}
	}
	return nil
}

// Create scans fastaFile, builds its index and persists it next to the
// file as <fastaFile>.fai. With fullHeader, the whole header line is
// recorded as the name; otherwise the name is cut at the first
// whitespace. The in-memory entries always keep the full header.
//
// Lines starting with ';' are comments. Headers start with '>' or,
// tolerating FASTQ-like input, '@'; a '+' line and the quality line
// after it are skipped. All sequence lines of one entry must share one
// width, except the last one which may be shorter.
func Create(fastaFile string, fullHeader bool) (*Index, error) {
	f, err := os.Open(fastaFile)
	if err != nil {
		return nil, errors.Wrap(err, "fai: open fasta file")
	}
	defer f.Close()

	idx, err := build(bufio.NewReaderSize(f, os.Getpagesize()), fullHeader)
	if err != nil {
		return nil, err
	}

	op, err := os.Create(IndexName(fastaFile))
	if err != nil {
		return nil, errors.Wrap(err, "fai: create index file")
	}
	bw := bufio.NewWriter(op)
	if err = idx.Write(bw); err != nil {
		op.Close()
		return nil, err
	}
	if err = bw.Flush(); err != nil {
		op.Close()
		return nil, errors.Wrap(err, "fai: write index file")
	}
	if err = op.Close(); err != nil {
		return nil, errors.Wrap(err, "fai: close index file")
	}
	return idx, nil
}

func build(br *bufio.Reader, fullHeader bool) (*Index, error) {
	idx := newIndex(fullHeader)

	var cur *Entry
	var offset int64
	var lineNum int
	var mismatched, empty, skipQuality bool

	flush := func() error {
		if cur == nil || cur.Name == "" {
			cur = nil
			return nil
		}
		if cur.Offset < 0 {
			cur.Offset = offset
		}
		err := idx.add(cur)
		cur = nil
		return err
	}

	for {
		line, rerr := br.ReadBytes('\n')
		if len(line) > 0 {
			lineNum++
			body := chompLine(line)
			switch {
			case skipQuality:
				skipQuality = false
			case len(body) > 0 && body[0] == ';':
				// fasta comment
			case len(body) > 0 && body[0] == '+':
				// fastq separator, the quality line follows
				skipQuality = true
			case len(body) > 0 && (body[0] == '>' || body[0] == '@'):
				if err := flush(); err != nil {
					return nil, err
				}
				mismatched, empty = false, false
				cur = &Entry{Name: string(body[1:]), Offset: -1}
			case cur != nil:
				if cur.LineWidth > 0 {
					if mismatched || empty {
						// a short or empty line was not the last
						// sequence line of its entry
						if len(body) == 0 {
							empty = true
							break
						}
						if empty {
							return nil, errors.Wrapf(ErrMalformedFasta, "empty line inside sequence at line %d", lineNum)
						}
						return nil, errors.Wrapf(ErrMalformedFasta, "mismatched line length at line %d", lineNum)
					}
					if int64(len(body)) > cur.LineBases {
						return nil, errors.Wrapf(ErrMalformedFasta, "mismatched line length at line %d", lineNum)
					}
					if int64(len(line)) != cur.LineWidth {
						mismatched = true
						if len(body) == 0 {
							empty = true
						}
					}
				} else if len(body) > 0 {
					cur.Offset = offset
					cur.LineWidth = int64(len(line))
					cur.LineBases = int64(len(body))
				} else {
					empty = true
				}
				cur.Length += int64(len(body))
			}
			offset += int64(len(line))
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, errors.Wrap(rerr, "fai: read fasta file")
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return idx, nil
}

// chompLine cuts the trailing LF or CRLF terminator.
func chompLine(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
	}
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line
}

// Read parses an existing .fai file. Every record must have exactly
// five tab-separated fields.
func Read(indexFile string) (*Index, error) {
	f, err := os.Open(indexFile)
	if err != nil {
		return nil, errors.Wrap(err, "fai: open index file")
	}
	defer f.Close()

	idx := newIndex(true)
	scanner := bufio.NewScanner(f)
	var lineNum int
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 5 {
			return nil, errors.Wrapf(ErrMalformedIndex, "expected 5 fields at line %d, got %d", lineNum, len(fields))
		}
		e := &Entry{Name: fields[0]}
		for i, p := range []*int64{&e.Length, &e.Offset, &e.LineBases, &e.LineWidth} {
			v, perr := strconv.ParseInt(fields[i+1], 10, 64)
			if perr != nil {
				return nil, errors.Wrapf(ErrMalformedIndex, "invalid field %q at line %d", fields[i+1], lineNum)
			}
			*p = v
		}
		if err = idx.add(e); err != nil {
			return nil, err
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "fai: read index file")
	}
	return idx, nil
}

// New returns the index for fastaFile, reading <fastaFile>.fai when it
// exists and building and persisting it otherwise.
func New(fastaFile string, fullHeader bool) (*Index, error) {
	indexFile := IndexName(fastaFile)
	if _, err := os.Stat(indexFile); err == nil {
		return Read(indexFile)
	}
	return Create(fastaFile, fullHeader)
}
