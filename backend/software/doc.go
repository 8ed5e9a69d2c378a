// Package software provides a CPU implementation of the compute device.
//
// Importing the package registers it under [backend.BackendSoftware]:
//
//	import _ "github.com/gogpu/bradbury/backend/software"
//
// Pipelines run the kernel package's CPU mirror of each WGSL entry point,
// so a program renders the same image on this backend as on a GPU (up to
// floating point differences). Workgroups are spread over a
// [parallel.WorkerPool]; submissions on a queue execute one at a time in
// submission order.
//
// The backend needs no drivers and is what the tests render with.
package software
