package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/steamfiles/vdf"
)

func newCatCommand() *cobra.Command {
	var (
		compact      bool
		foldCase     bool
		nonStrict    bool
		encodingName string
	)

	cmd := &cobra.Command{
		Use:   "cat [file]",
		Short: "Parse a text VDF file and re-emit it",
		Long: "Parses a text-format VDF file (stdin if no file is given) and writes it\n" +
			"back out pretty-printed, or space-separated with --compact.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = os.Stdin
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			enc, err := lookupEncoding(encodingName)
			if err != nil {
				return err
			}

			opts := vdf.ParseOptions{Strict: !nonStrict, Encoding: enc}
			if foldCase {
				opts.Factory = vdf.CaseFoldMapFromPairs
			}
			tree, err := vdf.NewParser(opts).Parse(in)
			if err != nil {
				return err
			}
			return vdf.Write(os.Stdout, tree, vdf.WriteOptions{Pretty: !compact})
		},
	}

	cmd.Flags().BoolVar(&compact, "compact", false, "Emit single-line output instead of pretty-printing")
	cmd.Flags().BoolVar(&foldCase, "fold-case", false, "Lowercase all keys while parsing")
	cmd.Flags().BoolVar(&nonStrict, "non-strict", false, "Tolerate unterminated structures at EOF")
	cmd.Flags().StringVar(&encodingName, "encoding", "", "Source encoding: utf-8 (default), latin1, cp1252")

	return cmd
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	switch name {
	case "", "utf-8", "utf8":
		return nil, nil
	case "latin1", "iso8859-1":
		return charmap.ISO8859_1, nil
	case "cp1252", "windows-1252":
		return charmap.Windows1252, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}
