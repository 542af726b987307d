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

package config

import (
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

const envPrefix = "ROADMAP"

// Config is the configuration for the recommender.
type Config struct {
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Model     ModelConfig     `mapstructure:"model"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Train     TrainConfig     `mapstructure:"train"`
}

// CatalogConfig locates the dataset used when no path is given on the command line.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// ModelConfig describes where the trained predictor artifact lives.
type ModelConfig struct {
	Name  string          `mapstructure:"name" validate:"required"`
	Store string          `mapstructure:"store" validate:"oneof=posix s3 gcs azure"`
	Dir   string          `mapstructure:"dir" validate:"required_if=Store posix"`
	S3    S3Config        `mapstructure:"s3"`
	GCS   GCSConfig       `mapstructure:"gcs"`
	Azure AzureBlobConfig `mapstructure:"azure"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
}

type GCSConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
}

type AzureBlobConfig struct {
	ConnectionString string `mapstructure:"connection_string"`
	AccountName      string `mapstructure:"account_name"`
	AccountKey       string `mapstructure:"account_key"`
	Endpoint         string `mapstructure:"endpoint"`
	Container        string `mapstructure:"container"`
	Prefix           string `mapstructure:"prefix"`
}

// RecommendConfig holds the ranking constants.
type RecommendConfig struct {
	TopN             int     `mapstructure:"top_n" validate:"gt=0"`
	Jobs             int     `mapstructure:"jobs" validate:"gt=0"`
	SimilarThreshold float64 `mapstructure:"similar_threshold" validate:"gte=0,lte=1"`
	NewThreshold     float64 `mapstructure:"new_threshold" validate:"gte=0,lte=1"`
	PredictedWeight  float64 `mapstructure:"predicted_weight" validate:"gte=0"`
	QualityWeight    float64 `mapstructure:"quality_weight" validate:"gte=0"`
	SimilarityWeight float64 `mapstructure:"similarity_weight" validate:"gte=0"`
	FinalWeight      float64 `mapstructure:"final_weight" validate:"gte=0"`
	MaxAvailableTags int     `mapstructure:"max_available_tags" validate:"gte=0"`
	// Filter is an optional boolean expression over `item`, e.g. "item.CompletionRate > 0.2".
	Filter string `mapstructure:"filter"`
}

// TrainConfig holds hyper-parameters of the quality predictor.
type TrainConfig struct {
	HiddenLayers       []int   `mapstructure:"hidden_layers" validate:"min=1,dive,gt=0"`
	Lr                 float64 `mapstructure:"lr" validate:"gt=0"`
	Reg                float64 `mapstructure:"reg" validate:"gte=0"`
	BatchSize          int     `mapstructure:"batch_size" validate:"gt=0"`
	NEpochs            int     `mapstructure:"n_epochs" validate:"gt=0"`
	ValidationFraction float64 `mapstructure:"validation_fraction" validate:"gte=0,lt=1"`
	Patience           int     `mapstructure:"patience" validate:"gt=0"`
	RandomState        int64   `mapstructure:"random_state"`
	Verbose            int     `mapstructure:"verbose" validate:"gte=0"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Name:  "roadmap_model",
			Store: "posix",
			Dir:   "models",
		},
		Recommend: RecommendConfig{
			TopN:             5,
			Jobs:             1,
			SimilarThreshold: 0.2,
			NewThreshold:     0.3,
			PredictedWeight:  0.6,
			QualityWeight:    0.4,
			SimilarityWeight: 0.5,
			FinalWeight:      0.5,
			MaxAvailableTags: 20,
		},
		Train: TrainConfig{
			HiddenLayers:       []int{64, 32, 16},
			Lr:                 0.001,
			Reg:                0.001,
			BatchSize:          32,
			NEpochs:            1000,
			ValidationFraction: 0.1,
			Patience:           50,
			RandomState:        42,
			Verbose:            100,
		},
	}
}

func setDefault(v *viper.Viper) {
	defaultConfig := GetDefaultConfig()
	// [catalog]
	v.SetDefault("catalog.path", defaultConfig.Catalog.Path)
	// [model]
	v.SetDefault("model.name", defaultConfig.Model.Name)
	v.SetDefault("model.store", defaultConfig.Model.Store)
	v.SetDefault("model.dir", defaultConfig.Model.Dir)
	v.SetDefault("model.s3.endpoint", "")
	v.SetDefault("model.s3.access_key_id", "")
	v.SetDefault("model.s3.secret_access_key", "")
	v.SetDefault("model.s3.use_ssl", false)
	v.SetDefault("model.s3.bucket", "")
	v.SetDefault("model.s3.prefix", "")
	v.SetDefault("model.gcs.credentials_file", "")
	v.SetDefault("model.gcs.bucket", "")
	v.SetDefault("model.gcs.prefix", "")
	v.SetDefault("model.azure.connection_string", "")
	v.SetDefault("model.azure.account_name", "")
	v.SetDefault("model.azure.account_key", "")
	v.SetDefault("model.azure.endpoint", "")
	v.SetDefault("model.azure.container", "")
	v.SetDefault("model.azure.prefix", "")
	// [recommend]
	v.SetDefault("recommend.top_n", defaultConfig.Recommend.TopN)
	v.SetDefault("recommend.jobs", defaultConfig.Recommend.Jobs)
	v.SetDefault("recommend.similar_threshold", defaultConfig.Recommend.SimilarThreshold)
	v.SetDefault("recommend.new_threshold", defaultConfig.Recommend.NewThreshold)
	v.SetDefault("recommend.predicted_weight", defaultConfig.Recommend.PredictedWeight)
	v.SetDefault("recommend.quality_weight", defaultConfig.Recommend.QualityWeight)
	v.SetDefault("recommend.similarity_weight", defaultConfig.Recommend.SimilarityWeight)
	v.SetDefault("recommend.final_weight", defaultConfig.Recommend.FinalWeight)
	v.SetDefault("recommend.max_available_tags", defaultConfig.Recommend.MaxAvailableTags)
	v.SetDefault("recommend.filter", defaultConfig.Recommend.Filter)
	// [train]
	v.SetDefault("train.hidden_layers", defaultConfig.Train.HiddenLayers)
	v.SetDefault("train.lr", defaultConfig.Train.Lr)
	v.SetDefault("train.reg", defaultConfig.Train.Reg)
	v.SetDefault("train.batch_size", defaultConfig.Train.BatchSize)
	v.SetDefault("train.n_epochs", defaultConfig.Train.NEpochs)
	v.SetDefault("train.validation_fraction", defaultConfig.Train.ValidationFraction)
	v.SetDefault("train.patience", defaultConfig.Train.Patience)
	v.SetDefault("train.random_state", defaultConfig.Train.RandomState)
	v.SetDefault("train.verbose", defaultConfig.Train.Verbose)
}

// LoadConfig loads configuration from a TOML, YAML or JSON file. An empty path loads the
// defaults. Environment variables such as ROADMAP_RECOMMEND_TOP_N override both.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefault(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if filepath.Ext(path) == "" {
			v.SetConfigType("toml")
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Annotatef(err, "failed to read config %s", path)
		}
	}

	var conf Config
	if err := v.Unmarshal(&conf, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

func (config *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return errors.NewNotValid(err, "invalid config")
	}
	switch config.Model.Store {
	case "s3":
		if config.Model.S3.Endpoint == "" || config.Model.S3.Bucket == "" {
			return errors.NotValidf("s3 store without endpoint or bucket")
		}
	case "gcs":
		if config.Model.GCS.Bucket == "" {
			return errors.NotValidf("gcs store without bucket")
		}
	case "azure":
		if config.Model.Azure.Container == "" {
			return errors.NotValidf("azure store without container")
		}
	}
	return nil
}
