// Package orchestrator coordinates the download and conversion
// pipelines. It keeps two registries of in-flight work, dispatches onto
// two bounded pools, and chains a conversion after each fetch when the
// configuration calls for one. All registry state is confined to the
// control loop goroutine; workers talk back only through the bridge.
package orchestrator
