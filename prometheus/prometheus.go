// Smallstep
// Copyright (C) James Shubin and the project contributors
// Written by James Shubin <james@shubin.ca> and the project contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package prometheus provides functions that are useful to control and manage
// the built-in prometheus instance.
package prometheus

import (
	"context"
	"net"
	"net/http"
	"strconv"

	"github.com/purpleidea/smallstep/util/errwrap"

	"github.com/iancoleman/strcase"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultPrometheusListen is the default listen address of the metrics
// server.
const DefaultPrometheusListen = "127.0.0.1:9233"

// Prometheus is the struct that contains information about the prometheus
// instance. Run Init() on it. Each instance has its own registry, so more than
// one can exist in the same process.
type Prometheus struct {
	Listen string // the listen specification for the net/http server

	Logf func(format string, v ...interface{})

	registry *prometheus.Registry
	server   *http.Server
	addr     string

	reductionTotal          *prometheus.CounterVec // total of reduction steps that have run
	runTotal                *prometheus.CounterVec // total of machine runs
	processStartTimeSeconds prometheus.Gauge       // process start time in seconds since unix epoch
}

// Init some parameters - currently the Listen address.
func (obj *Prometheus) Init() error {
	if len(obj.Listen) == 0 {
		obj.Listen = DefaultPrometheusListen
	}
	if obj.Logf == nil {
		obj.Logf = func(format string, v ...interface{}) {} // noop
	}
	obj.registry = prometheus.NewRegistry()

	obj.reductionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smallstep_reductions_total",
			Help: "Number of reduction steps that have run.",
		},
		// Labels for this metric.
		// kind: expression kind that was reduced: add, less_than, ...
		// errorful: did the reduction generate an error
		[]string{"kind", "errorful"},
	)
	if err := obj.registry.Register(obj.reductionTotal); err != nil {
		return errwrap.Wrapf(err, "could not register reductions metric")
	}

	obj.runTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smallstep_runs_total",
			Help: "Number of machine runs that have finished.",
		},
		[]string{"errorful"},
	)
	if err := obj.registry.Register(obj.runTotal); err != nil {
		return errwrap.Wrapf(err, "could not register runs metric")
	}

	obj.processStartTimeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "smallstep_process_start_time_seconds",
			Help: "Start time of the process since unix epoch in seconds.",
		},
	)
	if err := obj.registry.Register(obj.processStartTimeSeconds); err != nil {
		return errwrap.Wrapf(err, "could not register start time metric")
	}
	// directly set the processStartTimeSeconds
	obj.processStartTimeSeconds.SetToCurrentTime()

	return nil
}

// Gatherer returns the registry of this instance, so its metrics can be read.
func (obj *Prometheus) Gatherer() prometheus.Gatherer {
	return obj.registry
}

// Start binds the listen address and then runs a http server in a go routine,
// that responds to /metrics as prometheus would expect. A bind failure is
// returned here, rather than lost in the go routine.
func (obj *Prometheus) Start() error {
	listener, err := net.Listen("tcp", obj.Listen)
	if err != nil {
		return errwrap.Wrapf(err, "could not listen on `%s`", obj.Listen)
	}
	obj.addr = listener.Addr().String()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(obj.registry, promhttp.HandlerOpts{}))
	obj.server = &http.Server{
		Addr:    obj.Listen,
		Handler: mux,
	}
	go func() {
		if err := obj.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			obj.Logf("server error: %+v", err)
		}
	}()
	return nil
}

// Addr returns the address that the server is actually bound to. This is
// useful when the port in Listen is zero. It's empty until Start succeeds.
func (obj *Prometheus) Addr() string {
	return obj.addr
}

// Stop the http server.
func (obj *Prometheus) Stop() error {
	if obj.server == nil {
		return nil
	}
	return obj.server.Shutdown(context.Background())
}

// UpdateReductionTotal counts one reduction step of the given expression kind.
// The kind is stored in snake case, so `LessThan` becomes `less_than`.
func (obj *Prometheus) UpdateReductionTotal(kind string, errorful bool) error {
	labels := prometheus.Labels{"kind": strcase.ToSnake(kind), "errorful": strconv.FormatBool(errorful)}
	metric := obj.reductionTotal.With(labels)
	metric.Inc()
	return nil
}

// UpdateRunTotal counts one finished machine run.
func (obj *Prometheus) UpdateRunTotal(errorful bool) error {
	labels := prometheus.Labels{"errorful": strconv.FormatBool(errorful)}
	obj.runTotal.With(labels).Inc()
	return nil
}
