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

	"github.com/shenwei356/motifscan/fai"
	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"
)

// faidxCmd represents the faidx command
var faidxCmd = &cobra.Command{
	Use:   "faidx",
	Short: "create the .fai index of a FASTA file",
	Long: `create the .fai index of a FASTA file

The index is written next to the FASTA file as <file>.fai, in the
format of samtools faidx: one record per sequence with five
tab-separated fields, name, length, offset, bases per line and bytes
per line. An existing index is overwritten.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		fastaFile := getFlagString(cmd, "fasta")
		if fastaFile == "" {
			checkError(fmt.Errorf("flag -f/--fasta needed"))
		}
		fullHeader := getFlagBool(cmd, "full-header")

		idx, err := fai.Create(fastaFile, fullHeader)
		checkError(err)
		if opt.Verbose {
			log.Infof("%d sequence(s) indexed to %s", idx.Len(), fai.IndexName(fastaFile))
		}

		if getFlagBool(cmd, "stdout") {
			outfh, err := xopen.Wopen("-")
			checkError(err)
			checkError(idx.Write(outfh))
			outfh.Flush()
			outfh.Close()
		}
	},
}

func init() {
	RootCmd.AddCommand(faidxCmd)

	faidxCmd.Flags().StringP("fasta", "f", "", `FASTA file (required)`)
	faidxCmd.Flags().BoolP("full-header", "", false, `use full header instead of just ID as the record name`)
	faidxCmd.Flags().BoolP("stdout", "", false, `also print the index records to stdout`)
}
