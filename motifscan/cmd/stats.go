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

	humanize "github.com/dustin/go-humanize"
	"github.com/shenwei356/motifscan/fai"
	"github.com/shenwei356/stable"
	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "statistics of the sequences in a FASTA file",
	Long: `statistics of the sequences in a FASTA file

One row is printed per sequence, in order of appearance, from the .fai
index: name, length, byte offset of the sequence data, bases per line
and bytes per line. The index is created when absent and reused
otherwise.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		fastaFile := getFlagString(cmd, "fasta")
		if fastaFile == "" {
			checkError(fmt.Errorf("flag -f/--fasta needed"))
		}
		outFile := getFlagString(cmd, "out-file")

		idx, err := fai.New(fastaFile, getFlagBool(cmd, "full-header"))
		checkError(err)
		if opt.Verbose {
			log.Infof("%d sequence(s) in %s", idx.Len(), fastaFile)
		}

		outfh, err := xopen.Wopen(outFile)
		checkError(err)
		defer outfh.Close()

		style := &stable.TableStyle{
			Name: "plain",

			HeaderRow: stable.RowStyle{Begin: "", Sep: "  ", End: ""},
			DataRow:   stable.RowStyle{Begin: "", Sep: "  ", End: ""},
			Padding:   "",
		}

		columns := []stable.Column{
			{Header: "name"},
			{Header: "length", Align: stable.AlignRight},
			{Header: "offset", Align: stable.AlignRight},
			{Header: "line-bases", Align: stable.AlignRight},
			{Header: "line-bytes", Align: stable.AlignRight},
		}
		tbl := stable.New()
		tbl.HeaderWithFormat(columns)

		for _, e := range idx.Entries {
			tbl.AddRow([]interface{}{
				chromName(e.Name),
				humanize.Comma(e.Length),
				e.Offset,
				e.LineBases,
				e.LineWidth,
			})
		}
		outfh.Write(tbl.Render(style))
	},
}

func init() {
	RootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringP("fasta", "f", "", `FASTA file (required)`)
	statsCmd.Flags().StringP("out-file", "o", "-", `out file ("-" for stdout, suffix .gz for gzipped out)`)
	statsCmd.Flags().BoolP("full-header", "", false, `use full header instead of just ID when creating the index`)
}
