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

//go:build !root

package prometheus

import (
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
)

// TestInitReductionMetrics tests that we are initializing and updating the
// Prometheus metrics correctly.
func TestInitReductionMetrics(t *testing.T) {
	var prom Prometheus
	if err := prom.Init(); err != nil {
		t.Errorf("could not init: %+v", err)
		return
	}
	if prom.Listen != DefaultPrometheusListen {
		t.Errorf("unexpected default listen: %s", prom.Listen)
	}

	prom.UpdateReductionTotal("Add", false)
	prom.UpdateReductionTotal("Add", false)
	prom.UpdateReductionTotal("LessThan", false)
	prom.UpdateReductionTotal("Variable", true)
	prom.UpdateRunTotal(true)

	// Get a list of metrics collected by Prometheus.
	metrics, err := prom.Gatherer().Gather()
	if err != nil {
		t.Errorf("error while gathering metrics: %s", err)
		return
	}

	// expectedMetrics is a map: keys are metrics name and values are
	// expected and actual count of metrics with that name.
	expectedMetrics := map[string][2]int{
		"smallstep_reductions_total": {
			3, 0,
		},
		"smallstep_runs_total": {
			1, 0,
		},
		"smallstep_process_start_time_seconds": {
			1, 0,
		},
	}

	sum := 0.0
	for _, metric := range metrics {
		for name, count := range expectedMetrics {
			if metric.GetName() == name {
				value := len(metric.Metric)
				expectedMetrics[name] = [2]int{count[0], value}
			}
		}
		if metric.GetName() != "smallstep_reductions_total" {
			continue
		}
		for _, m := range metric.Metric {
			for _, l := range m.GetLabel() {
				if l.GetName() == "kind" && l.GetValue() == "less_than" {
					sum += m.GetCounter().GetValue()
				}
			}
		}
	}

	for name, count := range expectedMetrics {
		if count[1] != count[0] {
			t.Errorf("with: %s, expected %d metrics, got %d metrics", name, count[0], count[1])
		}
	}
	if sum != 1 {
		t.Errorf("expected one less_than reduction, got %f", sum)
	}
}

// TestTwoInstances makes sure separate instances don't collide.
func TestTwoInstances(t *testing.T) {
	a, b := &Prometheus{}, &Prometheus{Listen: "127.0.0.1:0"}
	if err := a.Init(); err != nil {
		t.Errorf("could not init a: %+v", err)
	}
	if err := b.Init(); err != nil {
		t.Errorf("could not init b: %+v", err)
	}
	if err := a.Stop(); err != nil { // never started
		t.Errorf("could not stop: %+v", err)
	}
}

// TestStartServes starts a server on a free port and reads the metrics back.
func TestStartServes(t *testing.T) {
	prom := &Prometheus{
		Listen: "127.0.0.1:0",
		Logf:   t.Logf,
	}
	if err := prom.Init(); err != nil {
		t.Errorf("could not init: %+v", err)
		return
	}
	if err := prom.Start(); err != nil {
		t.Errorf("could not start: %+v", err)
		return
	}
	defer prom.Stop()
	prom.UpdateRunTotal(false)

	resp, err := http.Get("http://" + prom.Addr() + "/metrics")
	if err != nil {
		t.Errorf("could not get metrics: %+v", err)
		return
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Errorf("could not read metrics: %+v", err)
		return
	}
	if !strings.Contains(string(body), `smallstep_runs_total{errorful="false"} 1`) {
		t.Errorf("run metric missing from:\n%s", body)
	}
}

// TestStartBindFailure makes sure a port that is already in use is an error
// from Start, and not something that only happens in the background.
func TestStartBindFailure(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Errorf("could not listen: %+v", err)
		return
	}
	defer listener.Close()

	prom := &Prometheus{
		Listen: listener.Addr().String(),
		Logf:   t.Logf,
	}
	if err := prom.Init(); err != nil {
		t.Errorf("could not init: %+v", err)
		return
	}
	if err := prom.Start(); err == nil {
		prom.Stop()
		t.Errorf("expected a bind error on %s", listener.Addr())
		return
	}
	if prom.Addr() != "" {
		t.Errorf("unexpected addr after a failed start: %s", prom.Addr())
	}
}
