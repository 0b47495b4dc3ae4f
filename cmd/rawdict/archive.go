package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lk2023060901/ringercore-go/pkg/archive"
	"github.com/lk2023060901/ringercore-go/pkg/fileio"
)

func newArchiveCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Manage raw dicts in a keyed archive (file://, badger://, etcd://)",
	}

	// withArchive 打开 args[0] 指向的存储并在 fn 返回后关闭。
	withArchive := func(fn func(cmd *cobra.Command, a archive.Archive, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) (err error) {
			a, err := archive.Open(cmd.Context(), args[0], root.app.Config().Storage)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := a.Close(); err == nil {
					err = cerr
				}
			}()
			return fn(cmd, a, args[1:])
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "put <url> <key> <file>",
			Short: "Store the content of a record file under key",
			Args:  cobra.ExactArgs(3),
			RunE: withArchive(func(cmd *cobra.Command, a archive.Archive, args []string) error {
				rec, err := fileio.Load(cmd.Context(), args[1], fileio.WithConfig(root.app.Config().Storage))
				if err != nil {
					return err
				}
				return a.Put(cmd.Context(), args[0], rec.Raw)
			}),
		},
		&cobra.Command{
			Use:   "get <url> <key>",
			Short: "Print the raw dict stored under key",
			Args:  cobra.ExactArgs(2),
			RunE: withArchive(func(cmd *cobra.Command, a archive.Archive, args []string) error {
				raw, err := a.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", args[0])
				return printRaw(cmd.OutOrStdout(), raw)
			}),
		},
		&cobra.Command{
			Use:   "ls <url> [prefix]",
			Short: "List keys",
			Args:  cobra.RangeArgs(1, 2),
			RunE: withArchive(func(cmd *cobra.Command, a archive.Archive, args []string) error {
				var prefix string
				if len(args) > 0 {
					prefix = args[0]
				}
				keys, err := a.Keys(cmd.Context(), prefix)
				if err != nil {
					return err
				}
				for _, key := range keys {
					fmt.Fprintln(cmd.OutOrStdout(), key)
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "rm <url> <key>",
			Short: "Delete key",
			Args:  cobra.ExactArgs(2),
			RunE: withArchive(func(cmd *cobra.Command, a archive.Archive, args []string) error {
				return a.Delete(cmd.Context(), args[0])
			}),
		},
	)
	return cmd
}
