package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tarstars/additive_boosting/golang/additive_boost/abl"
)

type cli struct {
	verbose    bool
	silent     bool
	memprofile string
	rootCmd    *cobra.Command
}

func newCli() *cli {
	c := &cli{}
	c.rootCmd = &cobra.Command{
		Use:   "additive_boost_main",
		Short: "Build and inspect additive boosting sessions",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c.initLogging()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.writeMemProfile()
		},
		SilenceUsage: true,
	}

	c.rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log file and line of every message")
	c.rootCmd.PersistentFlags().BoolVarP(&c.silent, "silent", "s", false, "suppress all logging")
	c.rootCmd.PersistentFlags().StringVar(&c.memprofile, "memprofile", "", "write memory profile to `file`")

	c.rootCmd.AddCommand(c.newInspectCommand())
	c.rootCmd.AddCommand(c.newGraphCommand())
	c.rootCmd.AddCommand(c.newBagsCommand())
	return c
}

func (c *cli) initLogging() {
	switch {
	case c.silent:
		log.SetOutput(io.Discard)
	case c.verbose:
		log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	}
}

func (c *cli) writeMemProfile() error {
	if c.memprofile == "" {
		return nil
	}
	f, err := os.Create(c.memprofile)
	if err != nil {
		return err
	}
	defer func() { abl.HandleError(f.Close()) }()
	runtime.GC()
	return pprof.WriteHeapProfile(f)
}

//withCore loads the config, builds a core, hands it to action and frees it afterwards.
func withCore(srcConfig string, action func(config abl.CoreConfig, core *abl.BoosterCore) error) error {
	config, err := abl.LoadCoreConfig(srcConfig)
	if err != nil {
		return err
	}
	core, err := config.CreateBoosterCore(srcConfig)
	if err != nil {
		return err
	}
	defer abl.Free(core)
	return action(config, core)
}

func configFlag(cmd *cobra.Command, srcConfig *string) {
	cmd.Flags().StringVar(srcConfig, "config", "additive_config.json", "a config file for the run of the program")
}

func (c *cli) newInspectCommand() *cobra.Command {
	var srcConfig string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Create a booster core and print its layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(srcConfig, func(config abl.CoreConfig, core *abl.BoosterCore) error {
				printCore(cmd.OutOrStdout(), core)
				return nil
			})
		},
	}
	configFlag(cmd, &srcConfig)
	return cmd
}

func printCore(w io.Writer, core *abl.BoosterCore) {
	fmt.Fprintf(w, "classes: %d\n", core.GetCountClasses())
	fmt.Fprintf(w, "scores: %d\n", core.GetCountScores())
	fmt.Fprintf(w, "features: %d\n", core.GetCountFeatures())
	fmt.Fprintf(w, "training samples: %d\n", core.GetTrainingSet().GetCountSamples())
	fmt.Fprintf(w, "validation samples: %d\n", core.GetValidationSet().GetCountSamples())
	fmt.Fprintf(w, "validation weight total: %g\n", core.GetValidationWeightTotal())
	fmt.Fprintf(w, "inner bags: %d\n", core.GetCountInnerBags())
	for termIndex, term := range core.GetTerms() {
		tensorSize := 0
		if current := core.GetCurrentModel()[termIndex]; current != nil {
			tensorSize = len(current.Scores())
		}
		fmt.Fprintf(w, "term %d: shape %v, tensor size %d\n", termIndex, term.Shape(), tensorSize)
	}
	fmt.Fprintf(w, "fast bins: %d bytes\n", core.GetCountBytesFastBins())
	fmt.Fprintf(w, "big bins: %d bytes\n", core.GetCountBytesBigBins())
	fmt.Fprintf(w, "split positions: %d bytes\n", core.GetCountBytesSplitPositions())
	fmt.Fprintf(w, "tree nodes: %d bytes\n", core.GetCountBytesTreeNodes())
}

func (c *cli) newGraphCommand() *cobra.Command {
	var srcConfig, dumpPrefix string
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the features and the terms built on them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(srcConfig, func(config abl.CoreConfig, core *abl.BoosterCore) error {
				return core.RenderTerms(dumpPrefix, config.FigureType, config.PicturesDirectory)
			})
		},
	}
	configFlag(cmd, &srcConfig)
	cmd.Flags().StringVar(&dumpPrefix, "dump-prefix", "terms", "file name of the picture without extension")
	return cmd
}

func (c *cli) newBagsCommand() *cobra.Command {
	var srcConfig string
	cmd := &cobra.Command{
		Use:   "bags",
		Short: "Write the inner bag weights of the training set as npy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(srcConfig, func(config abl.CoreConfig, core *abl.BoosterCore) error {
				if config.FileNameBagWeights == "" {
					return errors.Errorf("filename_bag_weights is not set in %s", srcConfig)
				}
				weights := core.InnerBagWeights()
				if weights == nil {
					return errors.Errorf("the training set of %s is empty", srcConfig)
				}
				log.Print("write inner bag weights to <", config.FileNameBagWeights, ">")
				return abl.WriteNpy(config.FileNameBagWeights, weights)
			})
		},
	}
	configFlag(cmd, &srcConfig)
	return cmd
}

func main() {
	if err := newCli().rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
