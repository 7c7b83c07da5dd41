// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pbarrow

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts conversion activity. A nil *Metrics records nothing.
type Metrics struct {
	messages          prometheus.Counter
	batches           prometheus.Counter
	failedBatches     prometheus.Counter
	unknownEnumerants prometheus.Counter
	droppedFields     *prometheus.CounterVec
}

// NewMetrics creates the conversion counters and registers them with reg
// when reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		messages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pbarrow",
			Subsystem: "deserializer",
			Name:      "messages_total",
			Help:      "Total number of messages decoded into record batches.",
		}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pbarrow",
			Subsystem: "deserializer",
			Name:      "batches_total",
			Help:      "Total number of record batches produced.",
		}),
		failedBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pbarrow",
			Subsystem: "deserializer",
			Name:      "failed_batches_total",
			Help:      "Total number of batches discarded because decoding failed.",
		}),
		unknownEnumerants: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pbarrow",
			Subsystem: "deserializer",
			Name:      "unknown_enumerants_total",
			Help:      "Total number of enum numbers without a declared constant, decoded as null.",
		}),
		droppedFields: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pbarrow",
			Subsystem: "schema",
			Name:      "dropped_fields_total",
			Help:      "Total number of protobuf fields left out of mapped arrow schemas.",
		}, []string{"reason"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.messages,
			m.batches,
			m.failedBatches,
			m.unknownEnumerants,
			m.droppedFields,
		)
	}
	return m
}

func (m *Metrics) observeBatch(rows, unknown int) {
	if m == nil {
		return
	}
	m.batches.Inc()
	m.messages.Add(float64(rows))
	m.unknownEnumerants.Add(float64(unknown))
}

func (m *Metrics) failedBatch() {
	if m == nil {
		return
	}
	m.failedBatches.Inc()
}

func (m *Metrics) droppedField(reason string) {
	if m == nil {
		return
	}
	m.droppedFields.WithLabelValues(reason).Inc()
}
