package wgpu_device

import "github.com/cogentcore/webgpu/wgpu"

// WgpuDeviceBuilderOption is a functional option for configuring the WebGPU device.
type WgpuDeviceBuilderOption func(*wgpuDeviceImpl)

// WithName sets the device name reported by Name.
//
// Parameters:
//   - name: the device name
//
// Returns:
//   - WgpuDeviceBuilderOption: a function that sets the name
func WithName(name string) WgpuDeviceBuilderOption {
	return func(d *wgpuDeviceImpl) {
		d.name = name
	}
}

// WithSurfaceDescriptor attaches a window surface. Without one the device is headless and
// ConfigureSurface and Present fail.
//
// Parameters:
//   - desc: the platform surface descriptor, usually from the window
//
// Returns:
//   - WgpuDeviceBuilderOption: a function that sets the surface descriptor
func WithSurfaceDescriptor(desc *wgpu.SurfaceDescriptor) WgpuDeviceBuilderOption {
	return func(d *wgpuDeviceImpl) {
		d.surfaceDescriptor = desc
	}
}

// WithForceFallbackAdapter requests the software fallback adapter.
//
// Parameters:
//   - force: true to use the fallback adapter
//
// Returns:
//   - WgpuDeviceBuilderOption: a function that sets the adapter preference
func WithForceFallbackAdapter(force bool) WgpuDeviceBuilderOption {
	return func(d *wgpuDeviceImpl) {
		d.forceFallbackAdapter = force
	}
}

// WithMaxColorAttachments limits how many color attachments a target may have.
//
// Parameters:
//   - n: the attachment limit, between one and eight
//
// Returns:
//   - WgpuDeviceBuilderOption: a function that sets the limit
func WithMaxColorAttachments(n int) WgpuDeviceBuilderOption {
	return func(d *wgpuDeviceImpl) {
		d.maxAttachments = min(max(n, 1), 8)
	}
}
