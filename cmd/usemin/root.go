package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/soyart/usemin-go"
)

var version = "0.1.0"

func newRootCmd() *cobra.Command {
	v := viper.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   "usemin [src] [dst]",
		Short: "Replace HTML build blocks with references to their processed assets",
		Long: `usemin walks src for HTML documents, replaces every
<!-- build:<pipeline> <output> --> ... <!-- endbuild --> block with
a reference to the pipeline output, and writes documents and outputs to dst.

src and dst can also be set in usemin.yaml or with USEMIN_SRC and USEMIN_DST.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, configFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				v.Set("src", args[0])
			}
			if len(args) > 1 {
				v.Set("dst", args[1])
			}

			c, err := loadConfig(v)
			if err != nil {
				return err
			}
			if c.Src == "" || c.Dst == "" {
				return fmt.Errorf("both src and dst are required")
			}

			opts, err := c.Options()
			if err != nil {
				return err
			}
			return usemin.Generate(cmd.Context(), c.Src, c.Dst, opts...)
		},
	}

	flags := cmd.Flags()
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default ./usemin.yaml)")
	flags.String("path", "", "Default root for asset patterns (default: each document's directory)")
	flags.String("assets-dir", "", "Re-root resolved assets under this directory")
	flags.StringSlice("assets", nil, "Stage files under src matching these globs, and match blocks against them")
	flags.String("output-relative-path", "", "Prefix for emitted .js and .css paths")
	flags.StringSlice("other", nil, "Catch-all pipeline stages for staged files no block matched")
	flags.String("others-name", "", "Concatenate unmatched staged files into this output")
	flags.StringSlice("documents", []string{usemin.DocumentsDefault}, "Globs of documents to process, relative to src")
	flags.Bool("debug-stream-files", false, "Print staged files")
	flags.Int("writers", 0, "Concurrent output writers (default $"+usemin.WritersEnvKey+" or 20)")
	flags.Int("jobs", 0, "Blocks processed concurrently per document (0 = unlimited)")

	for key, flag := range map[string]string{
		"path":                 "path",
		"assets_dir":           "assets-dir",
		"assets":               "assets",
		"output_relative_path": "output-relative-path",
		"other":                "other",
		"others_name":          "others-name",
		"documents":            "documents",
		"debug_stream_files":   "debug-stream-files",
		"writers":              "writers",
		"jobs":                 "jobs",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	return cmd
}
