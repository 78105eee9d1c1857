/*
Copyright © 2023 Kovalev Pavel kovalev5690@gmail.com
*/package cmd

import (
	goflag "flag"
	"fmt"
	"os"
	"strings"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/Pavel7004/goWsmExtract/pkg/domain"
	"github.com/Pavel7004/goWsmExtract/pkg/extract"
)

var (
	extractList    []string
	outputDir      string
	forceOverwrite bool
)

var rootCmd = &cobra.Command{
	Use:   "wsme [flags] File_or_Folder...",
	Short: "WSM Extract, a tool to extract the various sections of a WSM file",
	Long: `wsme (WSM Extract) splits WSM containers into their labeled sections
and saves each section as its own file, in a subfolder named after the
source file. Folder inputs are scanned (non recursively) for WSM files.

Valid sections: ` + knownSectionList() + `
(NOTE: the "IMG " section is actually a land.dat file. Not an img file.)

Example: wsme -e GUID,WAM -o out/ LEVELS/
This saves the GUID and WAM sections of every WSM file in LEVELS under out/.`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runExtract,
}

func Execute() {
	err := rootCmd.Execute()
	glog.Flush()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringSliceVarP(&extractList, "extract", "e", nil,
		"comma separated list of sections (FourCC) to extract, defaults to all sections")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "",
		"output directory for extracted parts' subfolders, defaults to the same folder as the input")
	rootCmd.Flags().BoolVarP(&forceOverwrite, "force-overwrite", "f", false,
		"allow overwriting files")

	rootCmd.Flags().AddGoFlagSet(goflag.CommandLine)
	goflag.Set("logtostderr", "true")
}

func runExtract(cmd *cobra.Command, args []string) error {
	tags, err := extract.ParseTags(extractList)
	if err != nil {
		return err
	}

	if outputDir != "" {
		st, err := os.Stat(outputDir)
		if err != nil || !st.IsDir() {
			return fmt.Errorf("%q is not a directory", outputDir)
		}
	}

	glog.Info("Starting extraction process.")
	if len(tags) == 0 {
		glog.Info("Saving all sections")
	} else {
		names := make([]string, len(tags))
		for i, t := range tags {
			names[i] = t.String()
		}
		glog.Infof("Saving sections: %s", strings.Join(names, ","))
	}
	if len(args) > 1 {
		glog.Infof("%d inputs to process", len(args))
	}

	opts := extract.Options{
		OutputDir: outputDir,
		Tags:      tags,
		Force:     forceOverwrite,
	}

	failed := 0
	for _, input := range args {
		if err := extract.Process(input, opts); err != nil {
			glog.Errorf("%s: %v", input, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d inputs failed", failed, len(args))
	}
	return nil
}

func knownSectionList() string {
	names := make([]string, len(domain.KnownTags))
	for i, t := range domain.KnownTags {
		names[i] = t.String()
	}
	return strings.Join(names, ", ")
}
