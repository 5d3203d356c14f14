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
	"runtime"
	"time"

	"github.com/juju/errors"
	"github.com/spf13/viper"
)

// Config is the configuration of the bookyard node.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Data      DataConfig      `mapstructure:"data"`
	Recommend RecommendConfig `mapstructure:"recommend"`
}

type ServerConfig struct {
	HttpHost    string        `mapstructure:"http_host"`
	HttpPort    int           `mapstructure:"http_port"`
	APIKey      string        `mapstructure:"api_key"`
	CacheExpire time.Duration `mapstructure:"cache_expire"`
}

type DataConfig struct {
	// Folder holding Books.csv, Book-Ratings.csv and Users.csv.
	Folder string `mapstructure:"folder"`
	// RowLimit caps the number of rows read from each source (<= 0 reads everything).
	RowLimit int `mapstructure:"row_limit"`
	// CatalogStore is the path of the SQLite book catalog database.
	CatalogStore string `mapstructure:"catalog_store"`
}

type RecommendConfig struct {
	MinUserRatings int `mapstructure:"min_user_ratings"`
	MinBookRatings int `mapstructure:"min_book_ratings"`
	DefaultK       int `mapstructure:"default_k"`
	DefaultN       int `mapstructure:"default_n"`
	NumJobs        int `mapstructure:"num_jobs"`
}

// BooksPath returns the path of the books source.
func (c *DataConfig) BooksPath() string {
	return filepath.Join(c.Folder, "Books.csv")
}

// RatingsPath returns the path of the ratings source.
func (c *DataConfig) RatingsPath() string {
	return filepath.Join(c.Folder, "Book-Ratings.csv")
}

// UsersPath returns the path of the users source.
func (c *DataConfig) UsersPath() string {
	return filepath.Join(c.Folder, "Users.csv")
}

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HttpHost:    "0.0.0.0",
			HttpPort:    8087,
			CacheExpire: time.Minute,
		},
		Data: DataConfig{
			Folder:       "data",
			RowLimit:     15000,
			CatalogStore: "bookyard.db",
		},
		Recommend: RecommendConfig{
			MinUserRatings: 3,
			MinBookRatings: 2,
			DefaultK:       10,
			DefaultN:       10,
			NumJobs:        runtime.NumCPU(),
		},
	}
}

func setDefault() {
	defaultConfig := GetDefaultConfig()
	viper.SetDefault("server.http_host", defaultConfig.Server.HttpHost)
	viper.SetDefault("server.http_port", defaultConfig.Server.HttpPort)
	viper.SetDefault("server.cache_expire", defaultConfig.Server.CacheExpire)
	viper.SetDefault("data.folder", defaultConfig.Data.Folder)
	viper.SetDefault("data.row_limit", defaultConfig.Data.RowLimit)
	viper.SetDefault("data.catalog_store", defaultConfig.Data.CatalogStore)
	viper.SetDefault("recommend.min_user_ratings", defaultConfig.Recommend.MinUserRatings)
	viper.SetDefault("recommend.min_book_ratings", defaultConfig.Recommend.MinBookRatings)
	viper.SetDefault("recommend.default_k", defaultConfig.Recommend.DefaultK)
	viper.SetDefault("recommend.default_n", defaultConfig.Recommend.DefaultN)
	viper.SetDefault("recommend.num_jobs", defaultConfig.Recommend.NumJobs)
}

// LoadConfig loads the configuration from a TOML file.
func LoadConfig(path string) (*Config, error) {
	setDefault()
	viper.SetConfigType("toml")
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return nil, errors.Trace(err)
	}
	var conf Config
	if err := viper.Unmarshal(&conf); err != nil {
		return nil, errors.Trace(err)
	}
	conf.Validate()
	return &conf, nil
}

// Validate panics if the configuration is insane.
func (config *Config) Validate() {
	validatePositive("server.http_port", config.Server.HttpPort)
	validatePositive("recommend.min_user_ratings", config.Recommend.MinUserRatings)
	validatePositive("recommend.min_book_ratings", config.Recommend.MinBookRatings)
	validatePositive("recommend.default_k", config.Recommend.DefaultK)
	validatePositive("recommend.default_n", config.Recommend.DefaultN)
	validatePositive("recommend.num_jobs", config.Recommend.NumJobs)
	validateNotNegative("data.row_limit", config.Data.RowLimit)
}
