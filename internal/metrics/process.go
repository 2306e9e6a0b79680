// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	procSignalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediacapture_proc_signals_total",
		Help: "Signals sent to capture process groups by signal and result",
	}, []string{"signal", "result"})

	procWaitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediacapture_proc_wait_total",
		Help: "Capture process exits observed during termination",
	}, []string{"result"})

	captureProcExits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediacapture_capture_process_exits_total",
		Help: "Capture process exits by kind and outcome",
	}, []string{"kind", "outcome"})

	deviceBusyRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediacapture_device_busy_total",
		Help: "Capture launches rejected because the device was in use",
	}, []string{"device"})
)

// IncProcSignal records a signal delivery attempt.
func IncProcSignal(signal, result string) {
	procSignalsTotal.WithLabelValues(signal, result).Inc()
}

// IncProcWait records how a terminated process exited.
func IncProcWait(result string) {
	procWaitTotal.WithLabelValues(result).Inc()
}

// IncCaptureExit records the outcome of one capture subprocess.
func IncCaptureExit(kind, outcome string) {
	captureProcExits.WithLabelValues(kind, outcome).Inc()
}

// IncDeviceBusy records a launch rejected because device was in use.
func IncDeviceBusy(device string) {
	if device == "" {
		device = "unknown"
	}
	deviceBusyRejects.WithLabelValues(device).Inc()
}
