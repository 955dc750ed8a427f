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

package cmd

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/breader"
	"github.com/spf13/cobra"
)

// Options contains the global flags
type Options struct {
	NumCPUs int
	Verbose bool
}

func getOptions(cmd *cobra.Command) *Options {
	threads := getFlagPositiveInt(cmd, "threads")
	if threads > runtime.NumCPU() {
		threads = runtime.NumCPU()
	}
	return &Options{
		NumCPUs: threads,
		Verbose: getFlagBool(cmd, "verbose"),
	}
}

// chromName returns the sequence name as reported in output: the header
// cut at the first whitespace.
func chromName(name string) string {
	if i := strings.IndexAny(name, " \t"); i >= 0 {
		return name[:i]
	}
	return name
}

// upperInPlace converts sequence bytes to upper case.
func upperInPlace(s []byte) {
	for i, b := range s {
		if b >= 'a' && b <= 'z' {
			s[i] = b - 'a' + 'A'
		}
	}
}

// readMotifs reads motifs from a file: FASTA-formatted when the content
// starts with '>', otherwise one motif per line. Gzip input is handled
// transparently.
func readMotifs(file string) ([][]byte, error) {
	infh, r, err := inStream(file)
	if err != nil {
		return nil, err
	}
	first, err := infh.Peek(1)
	r.Close()
	if err != nil {
		return nil, fmt.Errorf("fail to read motif file %s: %s", file, err)
	}

	motifs := [][]byte{}
	if first[0] == '>' {
		reader, err := fastx.NewDefaultReader(file)
		if err != nil {
			return nil, err
		}
		for {
			record, err := reader.Read()
			if err != nil {
				if err == io.EOF {
					break
				}
				return nil, err
			}
			m := make([]byte, len(record.Seq.Seq))
			copy(m, record.Seq.Seq)
			motifs = append(motifs, m)
		}
		return motifs, nil
	}

	reader, err := breader.NewDefaultBufferedReader(file)
	if err != nil {
		return nil, err
	}
	for chunk := range reader.Ch {
		if chunk.Err != nil {
			return nil, chunk.Err
		}
		for _, data := range chunk.Data {
			line := strings.TrimSpace(data.(string))
			if line == "" {
				continue
			}
			motifs = append(motifs, []byte(line))
		}
	}
	return motifs, nil
}
