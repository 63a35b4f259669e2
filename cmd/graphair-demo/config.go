// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type demoConfig struct {
	Driver  string        `mapstructure:"driver"`
	DSN     string        `mapstructure:"dsn"`
	Timeout time.Duration `mapstructure:"timeout"`
	Debug   bool          `mapstructure:"debug"`
}

// loadConfig reads the optional YAML config file and fills defaults. Settings
// can also come from GRAPHAIR_* environment variables.
func loadConfig(path string) (*demoConfig, error) {
	v := viper.New()
	v.SetDefault("driver", "sqlite3")
	v.SetDefault("dsn", "file:graphair-demo.db")
	v.SetDefault("timeout", 10*time.Second)
	v.SetEnvPrefix("graphair")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg demoConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
