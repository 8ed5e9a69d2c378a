// Package backend provides the compute device abstraction used by the
// renderer.
//
// A backend supplies a [Device] that can build the path tracing
// pipeline, allocate buffers and textures, and submit dispatches. Two
// backends ship with the module:
//
//   - "wgpu": GPU compute via gogpu/wgpu (Vulkan, Metal, DX12, GLES)
//   - "software": the reference kernel executed on a CPU worker pool
//
// # Backend Registration
//
// Backends are registered via init() functions and selected at runtime:
//
//	import _ "github.com/gogpu/bradbury/backend/software"
//	import _ "github.com/gogpu/bradbury/backend/wgpu"
//
// # Backend Selection
//
// Use OpenDefault to get the best available device, or Open to request a
// specific backend by name:
//
//	dev, err := backend.OpenDefault()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Close()
//
// # Argument Binding
//
// A [Command] binds arguments by slot index. Buffer slot i maps to
// @group(0) @binding(i) in the kernel and texture slot i maps to
// @group(1) @binding(i). The mapping is fixed; both sides must agree.
//
// # Completion
//
// Queue.Submit returns a [Completion]. Callers either block on
// Completion.Wait or select on Completion.Done; both observe the same
// single signal.
package backend
