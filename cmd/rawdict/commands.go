package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lk2023060901/ringercore-go/application"
	"github.com/lk2023060901/ringercore-go/internal/json"
	"github.com/lk2023060901/ringercore-go/pkg/configure"
	"github.com/lk2023060901/ringercore-go/pkg/fileio"
	"github.com/lk2023060901/ringercore-go/pkg/streamable"
	"github.com/lk2023060901/ringercore-go/pkg/util/enumutil"
)

type rootOptions struct {
	configPath string
	logLevel   string
	app        *application.Application
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{app: application.New()}
	root := &cobra.Command{
		Use:           "rawdict",
		Short:         "Inspect and convert raw dict record files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var args []string
			if opts.configPath != "" {
				args = []string{"--config=" + opts.configPath}
			}
			if err := opts.app.Init(args); err != nil {
				return err
			}
			if opts.logLevel == "" {
				return nil
			}
			return configure.MasterLevel.Set(opts.logLevel)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ./config.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level (debug, info, warning, error, fatal)")
	root.AddCommand(newInspectCmd(opts), newConvertCmd(opts), newArchiveCmd(opts))
	return root
}

type inspectOptions struct {
	member     string
	filters    []string
	headerOnly bool
}

func newInspectCmd(root *rootOptions) *cobra.Command {
	opts := &inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect <file or folder>...",
		Short: "Print the header and content of record files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := fileio.ExpandFolders(args, opts.filters...)
			if err != nil {
				return err
			}
			cfg := fileio.WithConfig(root.app.Config().Storage)
			out := cmd.OutOrStdout()
			for _, file := range files {
				if fileio.IsTar(file) {
					records, err := fileio.LoadTar(cmd.Context(), file, opts.member, cfg)
					if err != nil {
						return err
					}
					for _, rec := range records {
						if err := printRecord(out, rec, opts.headerOnly); err != nil {
							return err
						}
					}
					continue
				}
				rec, err := fileio.Load(cmd.Context(), file, cfg)
				if err != nil {
					return err
				}
				if err := printRecord(out, rec, opts.headerOnly); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.member, "member", "", "tar member to inspect (default all)")
	cmd.Flags().StringSliceVar(&opts.filters, "filter", []string{"*.rdc*", "*.tar", "*.tgz", "*.tar.gz"}, "file name globs used when expanding folders")
	cmd.Flags().BoolVar(&opts.headerOnly, "header-only", false, "print headers only")
	return cmd
}

func printRecord(w io.Writer, rec *fileio.Record, headerOnly bool) error {
	name := rec.File
	if rec.Member != "" {
		name += ":" + rec.Member
	}
	if _, err := fmt.Fprintf(w, "# %s\n# %s\n", name, rec.Header); err != nil {
		return err
	}
	if headerOnly {
		return nil
	}
	return printRaw(w, rec.Raw)
}

func printRaw(w io.Writer, raw streamable.RawDict) error {
	if streamable.IsRawDictFormat(raw) {
		fmt.Fprintf(w, "# class %s\n", raw.QualifiedName())
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

type convertOptions struct {
	format      string
	compression string
	checksum    string
}

func newConvertCmd(root *rootOptions) *cobra.Command {
	opts := &convertOptions{}
	cmd := &cobra.Command{
		Use:   "convert <input> <output>",
		Short: "Re-encode a record file with another format or compression",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.app.Config().Storage
			if opts.format != "" {
				cfg.Format = opts.format
			}
			if opts.compression != "" {
				cfg.Compression = opts.compression
			}
			if opts.checksum != "" {
				if _, err := enumutil.ParseBool(opts.checksum); err != nil {
					return err
				}
				cfg.Checksum = opts.checksum
			}
			return convert(cmd.Context(), cmd.OutOrStdout(), args[0], args[1], cfg)
		},
	}
	cmd.Flags().StringVar(&opts.format, "format", "", "output format: "+fmt.Sprint(fileio.FormatStr.Names()))
	cmd.Flags().StringVar(&opts.compression, "compression", "", "output compression: "+fmt.Sprint(fileio.CompressionStr.Names()))
	cmd.Flags().StringVar(&opts.checksum, "checksum", "", "write a payload checksum (true/false)")
	return cmd
}

func convert(ctx context.Context, w io.Writer, input, output string, cfg fileio.Config) error {
	rec, err := fileio.Load(ctx, input, fileio.WithConfig(cfg))
	if err != nil {
		return err
	}
	name, err := fileio.Save(ctx, rec.Raw, output, fileio.WithConfig(cfg))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, name)
	return err
}
