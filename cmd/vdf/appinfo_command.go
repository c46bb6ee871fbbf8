package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/steamfiles/vdf"
	"github.com/steamfiles/vdf/appinfo"
)

func newAppinfoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "appinfo",
		Short: "Inspect binary appinfo.vdf containers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newAppinfoLsCommand())
	cmd.AddCommand(newAppinfoDumpCommand())
	return cmd
}

func newAppinfoLsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <file>",
		Short: "List indexed apps without decoding payloads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := appinfo.Open(args[0])
			if err != nil {
				return err
			}
			defer idx.Close()

			tw := table.NewWriter()
			tw.SetStyle(table.StyleRounded)
			tw.AppendHeader(table.Row{"AppID", "Size", "State", "Change#", "Updated"})
			for _, app := range idx.Apps() {
				tw.AppendRow(table.Row{
					app.ID,
					app.Size,
					fmt.Sprintf("0x%x", app.State),
					app.ChangeNumber,
					app.LastUpdated().UTC().Format(time.DateTime),
				})
			}
			tw.SetColumnConfigs([]table.ColumnConfig{
				{Number: 1, Align: text.AlignRight},
				{Number: 2, Align: text.AlignRight},
				{Number: 4, Align: text.AlignRight},
			})
			fmt.Fprintln(os.Stdout, tw.Render())
			fmt.Fprintf(os.Stdout, "%d apps, universe %d\n", idx.Len(), idx.Universe())
			return nil
		},
	}
}

func newAppinfoDumpCommand() *cobra.Command {
	var compact bool

	cmd := &cobra.Command{
		Use:   "dump <file> <appid>",
		Short: "Decode one app's payload and print it as text VDF",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid app id %q: %w", args[1], err)
			}
			idx, err := appinfo.Open(args[0])
			if err != nil {
				return err
			}
			defer idx.Close()

			app, ok := idx.App(uint32(id))
			if !ok {
				return fmt.Errorf("app %d not present in %s", id, args[0])
			}
			tree, err := app.Data()
			if err != nil {
				return err
			}
			return vdf.Write(os.Stdout, tree, vdf.WriteOptions{Pretty: !compact})
		},
	}

	cmd.Flags().BoolVar(&compact, "compact", false, "Emit single-line output")
	return cmd
}
