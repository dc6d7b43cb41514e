package metrics

import "github.com/tpri2322-commits/patient-digi-health-book/internal/core"

// Recorder is an alias for core.Recorder.
type Recorder = core.Recorder

// MetricsStore is an alias for core.MetricsStore.
type MetricsStore = core.MetricsStore
