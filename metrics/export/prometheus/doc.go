// Package prometheus provides Prometheus collectors for fastauth metrics.
//
// [NewPrometheusExporter] accepts a [fastauth.Engine] and exposes an
// [http.Handler] that renders all fastauth counters in Prometheus text
// exposition format. Counter names are prefixed fastauth_*_total.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
