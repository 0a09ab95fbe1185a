package device

// SoftwareDeviceOption is a functional option for configuring the software device.
type SoftwareDeviceOption func(*softwareDevice)

// WithName sets the device name reported by Name.
//
// Parameters:
//   - name: the device name
//
// Returns:
//   - SoftwareDeviceOption: a function that sets the name
func WithName(name string) SoftwareDeviceOption {
	return func(d *softwareDevice) {
		d.name = name
	}
}

// WithMaxColorAttachments limits how many color attachments a target may have.
// A limit of one makes the device single-target only.
//
// Parameters:
//   - n: the attachment limit, at least one
//
// Returns:
//   - SoftwareDeviceOption: a function that sets the limit
func WithMaxColorAttachments(n int) SoftwareDeviceOption {
	return func(d *softwareDevice) {
		d.maxAttachments = max(n, 1)
	}
}

// WithWorkers sets the number of pool workers used for row bands.
//
// Parameters:
//   - n: the worker count, at least one
//
// Returns:
//   - SoftwareDeviceOption: a function that sets the worker count
func WithWorkers(n int) SoftwareDeviceOption {
	return func(d *softwareDevice) {
		d.workers = max(n, 1)
	}
}

// WithBandRows sets how many rows each parallel band covers.
//
// Parameters:
//   - rows: rows per band, at least one
//
// Returns:
//   - SoftwareDeviceOption: a function that sets the band height
func WithBandRows(rows int) SoftwareDeviceOption {
	return func(d *softwareDevice) {
		d.bandRows = max(rows, 1)
	}
}
