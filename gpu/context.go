// Package gpu runs the expanded kernels of equivariant convolutions on a
// WebGPU device. Layers stay on the CPU; callers hand over a materialized
// kernel and input batch and read back the result, which keeps the GPU path
// optional and stateless.
package gpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/openfluke/webgpu/wgpu"
)

// ErrNoGPU is returned when no usable adapter or device can be acquired.
var ErrNoGPU = errors.New("gpu: no WebGPU device available")

// Context holds the process-wide WebGPU handles.
type Context struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	once     sync.Once
}

var ctx Context

// GetContext returns the singleton GPU context, initializing it on first
// use. Adapter selection falls back from high performance to low power to
// the platform default.
func GetContext() (*Context, error) {
	var initErr error
	ctx.once.Do(func() {
		ctx.Instance = wgpu.CreateInstance(nil)
		if ctx.Instance == nil {
			initErr = fmt.Errorf("%w: failed to create instance", ErrNoGPU)
			return
		}

		tryAdapter := func(opts *wgpu.RequestAdapterOptions) {
			if ctx.Adapter != nil {
				return
			}
			if a, err := ctx.Instance.RequestAdapter(opts); err == nil {
				ctx.Adapter = a
			}
		}
		tryAdapter(&wgpu.RequestAdapterOptions{PowerPreference: wgpu.PowerPreferenceHighPerformance})
		tryAdapter(&wgpu.RequestAdapterOptions{PowerPreference: wgpu.PowerPreferenceLowPower})
		tryAdapter(nil)
		if ctx.Adapter == nil {
			initErr = fmt.Errorf("%w: no adapter found", ErrNoGPU)
			return
		}

		var err error
		ctx.Device, err = ctx.Adapter.RequestDevice(nil)
		if err != nil {
			initErr = fmt.Errorf("%w: request device: %v", ErrNoGPU, err)
			return
		}
		ctx.Queue = ctx.Device.GetQueue()
	})

	if initErr != nil {
		return nil, initErr
	}
	if ctx.Device == nil || ctx.Queue == nil {
		return nil, ErrNoGPU
	}
	return &ctx, nil
}

// AdapterLabel describes the selected adapter for logging.
func (c *Context) AdapterLabel() string {
	if c.Adapter == nil {
		return "none"
	}
	info := c.Adapter.GetInfo()
	return fmt.Sprintf("%s (%s)", info.Name, info.VendorName)
}
