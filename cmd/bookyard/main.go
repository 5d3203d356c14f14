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
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gorse-io/bookyard/base/log"
	"github.com/gorse-io/bookyard/cmd/version"
	"github.com/gorse-io/bookyard/config"
	"github.com/gorse-io/bookyard/logics"
	"github.com/gorse-io/bookyard/server"
	"github.com/gorse-io/bookyard/storage"
)

var bookyardCommand = &cobra.Command{
	Use:   "bookyard",
	Short: "The book recommender server.",
	Run: func(cmd *cobra.Command, args []string) {
		// Show version
		if showVersion, _ := cmd.PersistentFlags().GetBool("version"); showVersion {
			fmt.Println(version.BuildInfo())
			return
		}
		// setup logger
		debug, _ := cmd.PersistentFlags().GetBool("debug")
		log.SetLogger(cmd.PersistentFlags(), debug)

		// Load config
		configPath, _ := cmd.PersistentFlags().GetString("config")
		var conf *config.Config
		var err error
		if configPath != "" {
			log.Logger().Info("load config", zap.String("config", configPath))
			conf, err = config.LoadConfig(configPath)
			if err != nil {
				log.Logger().Fatal("failed to load config", zap.Error(err))
			}
		} else {
			conf = config.GetDefaultConfig()
		}
		if cmd.PersistentFlags().Changed("http-host") {
			conf.Server.HttpHost, _ = cmd.PersistentFlags().GetString("http-host")
		}
		if cmd.PersistentFlags().Changed("http-port") {
			conf.Server.HttpPort, _ = cmd.PersistentFlags().GetInt("http-port")
		}

		// Open book catalog
		catalog, err := storage.OpenCatalog(conf.Data.CatalogStore)
		if err != nil {
			log.Logger().Fatal("failed to open book catalog", zap.Error(err))
		}
		defer catalog.Close()

		// Start server
		engine := logics.NewEngine(conf)
		s := server.NewRestServer(conf, engine, catalog)
		s.StartHttpServer()
	},
}

func init() {
	log.AddFlags(bookyardCommand.PersistentFlags())
	bookyardCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	bookyardCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	bookyardCommand.PersistentFlags().BoolP("version", "v", false, "bookyard version")
	bookyardCommand.PersistentFlags().Int("http-port", 8087, "port of RESTful API")
	bookyardCommand.PersistentFlags().String("http-host", "127.0.0.1", "host of RESTful API")
}

func main() {
	if err := bookyardCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}
