// Package wgpu provides a GPU compute device using gogpu/wgpu.
//
// This backend runs the kernel programs as WGSL compute shaders on
// Vulkan, Metal, DX12 or GLES through the Pure Go WebGPU implementation.
// No CGO is required.
//
// # Registration
//
// Importing the package registers the backend under [backend.BackendWGPU]:
//
//	import _ "github.com/gogpu/bradbury/backend/wgpu"
//
// [Open] creates its own instance, adapter and device. [FromProvider]
// borrows the device of a host application through
// gpucontext.DeviceProvider.
//
// # Argument Binding
//
// Bind group layouts are derived from the bindings the kernel package
// reflects out of the WGSL source. Buffer slots become group 0 and
// texture slots group 1. Inline constants are uploaded to a uniform
// buffer. Read-write float textures live in a storage buffer of
// vec4<f32> texels, one per pixel in row-major order.
//
// # Completion
//
// Each submission is one compute pass. A goroutine waits for the device
// to go idle and then signals the command's completion.
package wgpu
