package renderer

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// GPUImage is an Image mirrored into a sampled GPU texture.
type GPUImage interface {
	Image

	// TextureView returns the view of the mirrored texture.
	TextureView() *wgpu.TextureView
}

// gpuImageContext decorates a Context so every created image is also uploaded to a wgpu texture.
// All other calls are forwarded unchanged.
type gpuImageContext struct {
	Context
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue
	log    *zap.Logger
}

type gpuImage struct {
	Image
	mu      *sync.Mutex
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

var (
	_ Context  = &gpuImageContext{}
	_ GPUImage = &gpuImage{}
)

// NewGPUImageContext wraps inner so images are mirrored on device.
//
// Parameters:
//   - inner: the context every call is forwarded to
//   - device: the wgpu device textures are created on
//   - queue: the queue pixel uploads are written to
//   - log: logger for upload failures
//
// Returns:
//   - Context: the decorated context
func NewGPUImageContext(inner Context, device *wgpu.Device, queue *wgpu.Queue, log *zap.Logger) Context {
	if log == nil {
		log = zap.NewNop()
	}
	return &gpuImageContext{
		Context: inner,
		mu:      &sync.Mutex{},
		device:  device,
		queue:   queue,
		log:     log.Named("gpu"),
	}
}

// CreateImage creates the image on the inner context, then uploads pixels to a texture.
// A failed upload deletes the inner image and reports StatusOutOfMemory.
func (c *gpuImageContext) CreateImage(desc ImageDesc, pixels []byte) (Image, Status) {
	img, status := c.Context.CreateImage(desc, pixels)
	if status != StatusSuccess {
		return nil, status
	}

	texture, view, err := c.upload(desc, pixels)
	if err != nil {
		c.log.Error("failed to mirror image", zap.String("image", img.ID()), zap.Error(err))
		img.Delete()
		return nil, StatusOutOfMemory
	}
	return &gpuImage{Image: img, mu: &sync.Mutex{}, texture: texture, view: view}, StatusSuccess
}

func (c *gpuImageContext) upload(desc ImageDesc, pixels []byte) (*wgpu.Texture, *wgpu.TextureView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	width, height := uint32(desc.Width), uint32(desc.Height)
	tex, err := c.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     "Renderer Image Texture",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8Unorm,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create texture: %w", err)
	}

	c.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  width * 4,
			RowsPerImage: height,
		},
		&wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, fmt.Errorf("failed to create texture view: %w", err)
	}
	return tex, view, nil
}

func (i *gpuImage) TextureView() *wgpu.TextureView {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.view
}

// Delete releases the GPU texture before deleting the renderer image.
func (i *gpuImage) Delete() Status {
	i.mu.Lock()
	if i.view != nil {
		i.view.Release()
		i.view = nil
	}
	if i.texture != nil {
		i.texture.Release()
		i.texture = nil
	}
	i.mu.Unlock()
	return i.Image.Delete()
}

// GPUDevice owns a headless or surface-compatible wgpu device used to mirror images.
type GPUDevice struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
}

// NewGPUDevice requests an adapter and device. surface may be nil for headless use.
//
// Parameters:
//   - surfaceDescriptor: optional window surface the adapter must be compatible with
//   - forceFallbackAdapter: request the software adapter
//
// Returns:
//   - *GPUDevice: the device handles
//   - error: adapter or device request failure
func NewGPUDevice(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) (*GPUDevice, error) {
	instance := wgpu.CreateInstance(nil)

	var surface *wgpu.Surface
	if surfaceDescriptor != nil {
		surface = instance.CreateSurface(surfaceDescriptor)
	}

	a, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    surface,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Image Mirror Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to request device: %w", err)
	}

	return &GPUDevice{
		Instance: instance,
		Adapter:  a,
		Device:   d,
		Queue:    d.GetQueue(),
	}, nil
}

// Release frees the device handles.
func (g *GPUDevice) Release() {
	if g.Queue != nil {
		g.Queue.Release()
	}
	if g.Device != nil {
		g.Device.Release()
	}
	if g.Adapter != nil {
		g.Adapter.Release()
	}
	if g.Instance != nil {
		g.Instance.Release()
	}
}
