// Package telemetry builds the logger and the Prometheus metrics used by
// the shape-mapper command.
//
// Metrics implements engine.Observer, so it can be passed to a mapping with
// engine.WithObserver:
//
//	m := telemetry.NewMetrics("shape_mapper", nil)
//	mapping, err := mapping.Compile(mf, nil, engine.WithObserver(m))
//
// The command has no HTTP surface; collected samples are printed with
// WriteText once a run is over.
package telemetry
