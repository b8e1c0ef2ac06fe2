package main

import (
	"errors"
	"fmt"

	"fortio.org/safecast"
	"github.com/spf13/viper"

	"github.com/soyart/usemin-go"
)

// Config holds the usemin configuration, read from usemin.yaml,
// USEMIN_* environment variables and flags.
type Config struct {
	Src                string              `mapstructure:"src"`
	Dst                string              `mapstructure:"dst"`
	Path               string              `mapstructure:"path"`
	AssetsDir          string              `mapstructure:"assets_dir"`
	Assets             []string            `mapstructure:"assets"` // Stage matching files under src, empty = read from disk
	OutputRelativePath string              `mapstructure:"output_relative_path"`
	Other              []string            `mapstructure:"other"`
	OthersName         string              `mapstructure:"others_name"`
	Documents          []string            `mapstructure:"documents"`
	DebugStreamFiles   bool                `mapstructure:"debug_stream_files"`
	Writers            int                 `mapstructure:"writers"`
	Jobs               int                 `mapstructure:"jobs"`
	Pipelines          map[string][]string `mapstructure:"pipelines"`
}

func initConfig(v *viper.Viper, file string) error {
	v.SetDefault("documents", []string{usemin.DocumentsDefault})
	v.SetDefault("writers", 0)
	v.SetDefault("jobs", 0)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("usemin")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("USEMIN")
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

func loadConfig(v *viper.Viper) (Config, error) {
	var c Config
	err := v.Unmarshal(&c)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return c, nil
}

// Options converts c into usemin options
func (c Config) Options() ([]usemin.Option, error) {
	jobs, err := safecast.Conv[uint](c.Jobs)
	if err != nil {
		return nil, fmt.Errorf("jobs: %w", err)
	}
	writers, err := safecast.Conv[uint](c.Writers)
	if err != nil {
		return nil, fmt.Errorf("writers: %w", err)
	}

	opts := []usemin.Option{
		usemin.WithPath(c.Path),
		usemin.WithAssetsDir(c.AssetsDir),
		usemin.WithOutputRelativePath(c.OutputRelativePath),
		usemin.WithDocuments(c.Documents...),
		usemin.DebugStreamFiles(c.DebugStreamFiles),
		usemin.Jobs(jobs),
	}

	if writers > 0 {
		opts = append(opts, usemin.Writers(writers))
	} else {
		opts = append(opts, usemin.WritersFromEnv())
	}

	if len(c.Assets) != 0 {
		opts = append(opts, usemin.WithAssetsSource(usemin.DirSource(c.Src, c.Assets...)))
	}

	if len(c.Other) != 0 {
		other, err := usemin.ParsePipeline(c.Other)
		if err != nil {
			return nil, fmt.Errorf("other: %w", err)
		}
		opts = append(opts, usemin.WithOther(other, c.OthersName))
	}

	for id, defs := range c.Pipelines {
		p, err := usemin.ParsePipeline(defs)
		if err != nil {
			return nil, fmt.Errorf("pipelines.%s: %w", id, err)
		}
		opts = append(opts, usemin.WithPipeline(id, p))
	}

	return opts, nil
}
