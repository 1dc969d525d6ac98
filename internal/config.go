package internal

import (
	"fmt"

	"github.com/spf13/viper"
)

// IxdbConfig is the top-level configuration for the CLI drivers
// (cmd/ixbuild, cmd/ixstatusd, cmd/ixcheckpoint), loaded via viper from a
// YAML file.
type IxdbConfig struct {
	BufferPool struct {
		NumFrames int `mapstructure:"num_frames"`
	} `mapstructure:"buffer_pool"`

	Index struct {
		Dir            string `mapstructure:"dir"`
		RelationName   string `mapstructure:"relation_name"`
		AttrByteOffset int32  `mapstructure:"attr_byte_offset"`
	} `mapstructure:"index"`

	Server struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// LoadConfig reads and unmarshals a YAML config file at path.
func LoadConfig(path string) (*IxdbConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("buffer_pool.num_frames", 64)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg IxdbConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
