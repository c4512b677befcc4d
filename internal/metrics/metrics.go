// Copyright 2026 The kpt Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics holds the prometheus collectors of the engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	KeySuccess = "success"
	KeyError   = "error"
	KeyNoOp    = "noop"
)

var (
	processExecutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "matsync_process_executions_total",
		Help: "How many external processes were run, partitioned by program and outcome (success, error, spawn_error)",
	}, []string{"program", "outcome"})

	processDuration = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name: "matsync_process_duration_seconds",
		Help: "Summary of external process run times",
	}, []string{"program"})

	syncCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "matsync_material_sync_total",
		Help: "How many working copy synchronizations completed, partitioned by action and status",
	}, []string{"action", "status"})

	syncDuration = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name: "matsync_material_sync_duration_seconds",
		Help: "Summary of working copy synchronization durations",
	}, []string{"status"})

	checkCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "matsync_modification_checks_total",
		Help: "How many modification checks completed, partitioned by status (success, error, noop)",
	}, []string{"status"})
)

func init() {
	prometheus.MustRegister(processExecutions)
	prometheus.MustRegister(processDuration)
	prometheus.MustRegister(syncCount)
	prometheus.MustRegister(syncDuration)
	prometheus.MustRegister(checkCount)
}

// ObserveProcess records one process execution.
func ObserveProcess(program, outcome string, start time.Time) {
	processExecutions.WithLabelValues(program, outcome).Inc()
	processDuration.WithLabelValues(program).Observe(time.Since(start).Seconds())
}

// ObserveSync records one working copy synchronization.
func ObserveSync(action, status string, start time.Time) {
	syncCount.WithLabelValues(action, status).Inc()
	syncDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
}

// ObserveCheck records one modification check.
func ObserveCheck(status string) {
	checkCount.WithLabelValues(status).Inc()
}
