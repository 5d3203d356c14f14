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

package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LoadDatasetSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bookyard",
		Subsystem: "server",
		Name:      "load_dataset_seconds",
	})
	UserBasedRecommendSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bookyard",
		Subsystem: "server",
		Name:      "user_based_recommend_seconds",
	})
	MatrixUsersTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bookyard",
		Subsystem: "server",
		Name:      "matrix_users_total",
	})
	MatrixBooksTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bookyard",
		Subsystem: "server",
		Name:      "matrix_books_total",
	})
	MatrixRatingsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bookyard",
		Subsystem: "server",
		Name:      "matrix_ratings_total",
	})
)
