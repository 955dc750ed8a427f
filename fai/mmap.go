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
	"sync"

	mmap "github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
)

// MappedFile is a read-only memory mapping of a FASTA file, shared by
// all scan jobs for its lifetime.
type MappedFile struct {
	f    *os.File
	data mmap.MMap
	once sync.Once
}

// Map maps fastaFile read-only.
func Map(fastaFile string) (*MappedFile, error) {
	f, err := os.Open(fastaFile)
	if err != nil {
		return nil, errors.Wrap(err, "fai: open fasta file")
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "fai: mmap fasta file")
	}
	return &MappedFile{f: f, data: data}, nil
}

// Len returns the size of the mapping in bytes.
func (m *MappedFile) Len() int {
	return len(m.data)
}

// Close unmaps the file and closes it. Only the first call releases the
// mapping; later calls are no-ops.
func (m *MappedFile) Close() error {
	var err error
	m.once.Do(func() {
		err = m.data.Unmap()
		if cerr := m.f.Close(); err == nil {
			err = cerr
		}
	})
	return err
}

// Extract returns the sequence of e as a fresh buffer of e.Length
// bytes: the raw bytes at e.Offset, including internal line
// terminators, are read from the mapping and the terminator bytes are
// filtered out in one pass.
func (m *MappedFile) Extract(e *Entry) []byte {
	if e.Length <= 0 || e.LineBases <= 0 {
		return []byte{}
	}
	nterm := e.LineWidth - e.LineBases
	if nterm < 0 {
		nterm = 0
	}
	raw := e.Length + e.Length/e.LineBases*nterm

	start := e.Offset
	if start < 0 {
		start = 0
	}
	if start > int64(len(m.data)) {
		start = int64(len(m.data))
	}
	end := start + raw
	if end > int64(len(m.data)) {
		end = int64(len(m.data))
	}

	seq := make([]byte, 0, e.Length)
	for _, b := range m.data[start:end] {
		if b != '\n' && b != '\r' {
			seq = append(seq, b)
		}
	}
	if int64(len(seq)) > e.Length {
		seq = seq[:e.Length]
	}
	return seq
}
