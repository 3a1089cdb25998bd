// Package health reports whether the metadata cache and the systems it
// depends on can serve lookups.
//
// A Checker reports a Result with a Status of Healthy, Degraded or
// Unhealthy. An Aggregator runs a set of checkers under one deadline and
// folds their results into an overall status; Routes exposes that status
// over HTTP for liveness and readiness probes.
//
//	agg := health.NewAggregator()
//	agg.Register(health.NewPingChecker("store", sqlStore, 2*time.Second))
//	agg.Register(mc.Checker())
//
//	r := chi.NewRouter()
//	r.Mount("/", health.Routes(agg))
package health
