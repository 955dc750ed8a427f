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
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shenwei356/motifscan"
	"github.com/shenwei356/motifscan/fai"
	"github.com/shenwei356/motifscan/tpool"
	"github.com/shenwei356/util/pathutil"
	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "locate motifs in a FASTA file",
	Long: `locate motifs in a FASTA file

Motifs are plain DNA sequences which may contain IUPAC ambiguity codes
like "N", "R" or "W". Every motif is expanded to the concrete words it
denotes plus their reverse complements, and all words are matched in a
single pass per chromosome, so heavily ambiguous motifs cost no extra
scan time.

One line is printed per hit:

    chrom <tab> start <tab> end <tab> . <tab> . <tab> strand <tab> matched

with a 0-based start, end = start + motif length, and the strand taken
from whether the matched word is a motif word (+) or a reverse
complement (-).

The FASTA file is accessed through its .fai index, which is created
next to the file on the first run and reused afterwards. Chromosomes
are scanned in parallel and each hit line is written whole, but with
more than one thread the lines of different chromosomes may interleave,
and the output order depends on scheduling.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		runtime.GOMAXPROCS(opt.NumCPUs)

		fastaFile := getFlagString(cmd, "fasta")
		motifs := getFlagStringSlice(cmd, "motif")
		motifFile := getFlagString(cmd, "motif-file")
		outFile := getFlagString(cmd, "out-file")
		qsize := getFlagPositiveInt(cmd, "queue-size")
		fullHeader := getFlagBool(cmd, "full-header")
		onlyPositiveStrand := getFlagBool(cmd, "only-positive-strand")

		if fastaFile == "" {
			checkError(fmt.Errorf("flag -f/--fasta needed"))
		}
		if len(motifs) == 0 && motifFile == "" {
			checkError(fmt.Errorf("one of flags -m/--motif and -M/--motif-file needed"))
		}

		words := make([][]byte, 0, len(motifs))
		for _, m := range motifs {
			words = append(words, []byte(m))
		}
		if motifFile != "" {
			ok, err := pathutil.Exists(motifFile)
			checkError(err)
			if !ok {
				checkError(fmt.Errorf("motif file not found: %s", motifFile))
			}
			ms, err := readMotifs(motifFile)
			checkError(err)
			words = append(words, ms...)
		}

		set := motifscan.NewPatternSet()
		for _, m := range words {
			upperInPlace(m)
			if err := motifscan.ExpandMotif(m, set, !onlyPositiveStrand); err != nil {
				checkError(errors.Wrapf(err, "invalid motif: %s", m))
			}
		}
		if set.Len() == 0 {
			checkError(fmt.Errorf("motif(s) expand to no concrete DNA words"))
		}
		if opt.Verbose {
			log.Infof("%d motif(s) expanded to %d patterns", len(words), set.Len())
		}

		indexFile := fai.IndexName(fastaFile)
		existed, err := pathutil.Exists(indexFile)
		checkError(err)
		var idx *fai.Index
		if existed {
			idx, err = fai.Read(indexFile)
		} else {
			if opt.Verbose {
				log.Infof("no index file found, creating %s ...", indexFile)
			}
			idx, err = fai.Create(fastaFile, fullHeader)
		}
		checkError(err)
		if opt.Verbose {
			log.Infof("%d sequence(s) in %s", idx.Len(), fastaFile)
		}

		mm, err := fai.Map(fastaFile)
		checkError(err)
		defer func() {
			checkError(mm.Close())
		}()

		outfh, err := xopen.Wopen(outFile)
		checkError(err)
		defer func() {
			outfh.Flush()
			outfh.Close()
		}()

		nthreads := opt.NumCPUs
		var outMu sync.Mutex

		pool := tpool.New(nthreads)
		queue := tpool.NewProcess(pool, qsize, true)

		patterns := set.Words()
		for _, e := range idx.Entries {
			e := e
			chrom := chromName(e.Name)
			job := func() interface{} {
				seq := mm.Extract(e)
				upperInPlace(seq)

				a := motifscan.NewAutomaton()
				for id, w := range patterns {
					a.AddPattern(w, id)
				}
				a.Build()

				a.Scan(seq, func(id, pos int) {
					end := pos + len(patterns[id])
					if nthreads > 1 {
						outMu.Lock()
					}
					fmt.Fprintf(outfh, "%s\t%d\t%d\t.\t.\t%c\t%s\n",
						chrom, pos, end, set.Strand(id), seq[pos:end])
					if nthreads > 1 {
						outMu.Unlock()
					}
				})
				return nil
			}

			for {
				err = queue.Dispatch(job, nil, nil, true)
				if err == nil {
					break
				}
				if err == tpool.ErrQueueFull {
					time.Sleep(10 * time.Millisecond)
					continue
				}
				checkError(err)
			}
		}

		queue.Flush()
		failed := queue.IsError()
		queue.Destroy()
		pool.Destroy()
		if failed {
			checkError(fmt.Errorf("search aborted: a scan job failed"))
		}
	},
}

func init() {
	RootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringP("fasta", "f", "", `FASTA file (required)`)
	searchCmd.Flags().StringSliceP("motif", "m", []string{}, `motif sequence, IUPAC ambiguity codes allowed, case insensitive. Multiple values supported`)
	searchCmd.Flags().StringP("motif-file", "M", "", `file of motifs: FASTA format, or one motif per line`)
	searchCmd.Flags().StringP("out-file", "o", "-", `out file ("-" for stdout, suffix .gz for gzipped out)`)
	searchCmd.Flags().IntP("queue-size", "q", 16, `number of pending scan jobs before dispatching blocks`)
	searchCmd.Flags().BoolP("full-header", "", false, `use full header instead of just ID when creating the index`)
	searchCmd.Flags().BoolP("only-positive-strand", "P", false, `only search on the positive strand`)
}
