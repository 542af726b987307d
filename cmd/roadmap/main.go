// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorse-io/roadmap/cmd/version"
	"github.com/gorse-io/roadmap/common/log"
	"github.com/gorse-io/roadmap/config"
	"github.com/gorse-io/roadmap/dataset"
	"github.com/gorse-io/roadmap/logics"
	"github.com/gorse-io/roadmap/model/quality"
	"github.com/gorse-io/roadmap/storage/blob"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var rootCommand = &cobra.Command{
	Use:           "roadmap",
	Short:         "Learning roadmap recommender.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		log.SetLogger(cmd.Flags(), debug)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.CloseLogger()
	},
}

var recommendCommand = &cobra.Command{
	Use:   "recommend <dataset> <profile|@file> [tag]",
	Short: "Recommend similar and new roadmaps for a user.",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig(cmd.Flags())
		if err != nil {
			return errors.Trace(err)
		}
		profileData, err := readArgument(args[1])
		if err != nil {
			return errors.Trace(err)
		}
		profile, err := dataset.ParseProfile(profileData)
		if err != nil {
			return errors.Trace(err)
		}
		recommender, store, err := newRecommender(conf, args[0])
		if err != nil {
			return errors.Trace(err)
		}
		defer closeStore(store)
		var tag string
		if len(args) > 2 {
			tag = args[2]
		}
		result, err := recommender.Recommend(cmd.Context(), profile, tag, conf.Recommend.TopN)
		if err != nil {
			return errors.Trace(err)
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

var bestCommand = &cobra.Command{
	Use:   "best <dataset> <tag> [excluded,ids]",
	Short: "Find the best roadmap for a tag.",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig(cmd.Flags())
		if err != nil {
			return errors.Trace(err)
		}
		recommender, store, err := newRecommender(conf, args[0])
		if err != nil {
			return errors.Trace(err)
		}
		defer closeStore(store)
		var exclude []string
		if len(args) > 2 && args[2] != "" {
			exclude = strings.Split(args[2], ",")
		}
		result, err := recommender.Best(cmd.Context(), args[1], exclude)
		if errors.Is(err, logics.ErrNoCandidates) {
			// nothing matched, not a failure
			return printJSON(cmd.OutOrStdout(), err)
		} else if err != nil {
			return errors.Trace(err)
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

var topCommand = &cobra.Command{
	Use:   "top <dataset> <tag>",
	Short: "List top roadmaps for a tag.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig(cmd.Flags())
		if err != nil {
			return errors.Trace(err)
		}
		recommender, store, err := newRecommender(conf, args[0])
		if err != nil {
			return errors.Trace(err)
		}
		defer closeStore(store)
		result, err := recommender.Top(cmd.Context(), args[1], conf.Recommend.TopN)
		if err != nil {
			return errors.Trace(err)
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

var tagsCommand = &cobra.Command{
	Use:   "tags [dataset]",
	Short: "List tags of a dataset.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig(cmd.Flags())
		if err != nil {
			return errors.Trace(err)
		}
		catalog, err := loadCatalog(conf, args)
		if err != nil {
			return errors.Trace(err)
		}
		return printJSON(cmd.OutOrStdout(), catalog.AvailableTags())
	},
}

var trainCommand = &cobra.Command{
	Use:   "train [dataset]",
	Short: "Train the quality predictor and save it.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig(cmd.Flags())
		if err != nil {
			return errors.Trace(err)
		}
		catalog, err := loadCatalog(conf, args)
		if err != nil {
			return errors.Trace(err)
		}
		store, err := blob.Open(conf.Model)
		if err != nil {
			return errors.Trace(err)
		}
		defer closeStore(store)
		logics.NewQualityScorer(catalog.Items()).ScoreAll(catalog.Items(), conf.Recommend.Jobs)

		bar := progressbar.NewOptions(conf.Train.NEpochs,
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionSetDescription("Training quality predictor"),
			progressbar.OptionShowCount())
		var epochs int
		fitConfig := quality.NewFitConfigFromConfig(conf.Train).
			SetVerbose(0).
			SetOnEpoch(func(epoch int, loss float32) {
				epochs = epoch
				_ = bar.Add(1)
			})
		start := time.Now()
		predictor := quality.NewPredictor(quality.NewParamsFromConfig(conf.Train))
		score, err := predictor.Fit(cmd.Context(), catalog.Items(), fitConfig)
		if err != nil {
			return errors.Trace(err)
		}
		_ = bar.Finish()
		elapsed := time.Since(start)
		if err = quality.Save(cmd.Context(), store, conf.Model.Name, predictor); err != nil {
			return errors.Trace(err)
		}

		// Render table
		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.Header("Model", "Architecture", "Roadmaps", "Epochs", "R2", "RMSE", "Time")
		if err = table.Append([]string{
			conf.Model.Name,
			predictor.Architecture(),
			fmt.Sprint(catalog.Len()),
			fmt.Sprint(epochs),
			fmt.Sprintf("%.4f", score.R2),
			fmt.Sprintf("%.4f", score.RMSE),
			elapsed.Round(time.Millisecond).String(),
		}); err != nil {
			return errors.Trace(err)
		}
		return errors.Trace(table.Render())
	},
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Show version information.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprint(cmd.OutOrStdout(), version.BuildInfo())
	},
}

func init() {
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	rootCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	rootCommand.PersistentFlags().IntP("top-n", "n", 0, "number of roadmaps to return (overrides recommend.top_n)")
	rootCommand.PersistentFlags().Int("jobs", 0, "number of scoring jobs (overrides recommend.jobs)")
	rootCommand.AddCommand(recommendCommand, bestCommand, topCommand, tagsCommand, trainCommand, versionCommand)
}

func main() {
	if err := rootCommand.ExecuteContext(context.Background()); err != nil {
		log.Logger().Error("failed to execute", zap.Error(err))
		_ = printJSON(os.Stdout, map[string]string{"error": errorMessage(err)})
		log.CloseLogger()
		os.Exit(1)
	}
}

// loadConfig loads the configuration file and applies command line overrides.
func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	configPath, _ := flags.GetString("config")
	conf, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if flags.Changed("top-n") {
		conf.Recommend.TopN, _ = flags.GetInt("top-n")
	}
	if flags.Changed("jobs") {
		conf.Recommend.Jobs, _ = flags.GetInt("jobs")
	}
	if err = conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return conf, nil
}

func loadCatalog(conf *config.Config, args []string) (*dataset.Catalog, error) {
	path := conf.Catalog.Path
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return nil, errors.NotValidf("dataset path")
	}
	log.Logger().Info("load dataset", zap.String("path", path))
	catalog, err := dataset.LoadCSVFile(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return catalog, nil
}

// newRecommender loads the catalog and opens the model store. The caller closes
// the store.
func newRecommender(conf *config.Config, path string) (*logics.Recommender, blob.Store, error) {
	catalog, err := loadCatalog(conf, []string{path})
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	store, err := blob.Open(conf.Model)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	provider := logics.StoredPredictor(store, conf.Model.Name,
		quality.NewParamsFromConfig(conf.Train), quality.NewFitConfigFromConfig(conf.Train))
	recommender, err := logics.NewRecommender(catalog, provider, conf.Recommend)
	if err != nil {
		closeStore(store)
		return nil, nil, errors.Trace(err)
	}
	return recommender, store, nil
}

func closeStore(store blob.Store) {
	if err := store.Close(); err != nil {
		log.Logger().Warn("failed to close model store", zap.Error(err))
	}
}

// readArgument returns the argument, or the content of the file it names when it
// starts with @.
func readArgument(arg string) ([]byte, error) {
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Annotatef(err, "failed to read %s", path)
		}
		return data, nil
	}
	return []byte(arg), nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Trace(err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return errors.Trace(err)
}

// errorMessage strips the annotation trail from errors shown to users.
func errorMessage(err error) string {
	if cause := errors.Cause(err); cause != nil {
		return cause.Error()
	}
	return err.Error()
}
