// Package manager orchestrates video generation on a single local device.
// It is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, model resolution and listing.
//   - config.go: Config and package defaults; New applies defaults.
//   - generate.go: the Generate entry point (validation, job identity, output addressing).
//   - errors.go: the error Kind taxonomy and helpers (KindOf, IsTooBusy, IsModelNotFound).
//   - queue_admission.go: bounded queue and the single in-flight device slot.
//   - events.go, eventpub_memory.go: lifecycle events and an in-memory publisher.
//   - status_report.go: Status for /status.
//   - metrics.go: Prometheus collectors.
//
// External packages should use public methods only (New, Generate, ResolveModel,
// ListModels, Ready, Status).
package manager
