package backend

import (
	"errors"
	"testing"

	"github.com/gogpu/slicer"
)

func TestSoftwareRegistered(t *testing.T) {
	if !IsRegistered(Software) {
		t.Fatal("software backend is not registered")
	}
	dev, err := Open(Software, 16, 8, 1)
	if err != nil {
		t.Fatalf("Open(software) error = %v", err)
	}
	defer dev.Close()

	if w, h := dev.Size(); w != 16 || h != 8 {
		t.Errorf("Size() = %dx%d, want 16x8", w, h)
	}
}

func TestOpenUnknown(t *testing.T) {
	if _, err := Open("vulkan-ray-tracing", 1, 1, 1); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Open(unknown) error = %v, want ErrBackendNotAvailable", err)
	}
}

func TestOpenDefaultSkipsFailingBackends(t *testing.T) {
	Register(WGPU, func(int, int, int) (slicer.Device, error) {
		return nil, errors.New("no adapter")
	})
	defer Unregister(WGPU)

	dev, err := OpenDefault(4, 4, 1)
	if err != nil {
		t.Fatalf("OpenDefault() error = %v", err)
	}
	defer dev.Close()
	if w, _ := dev.Size(); w != 4 {
		t.Errorf("width = %d, want 4", w)
	}
}

func TestOpenDefaultNothingRegistered(t *testing.T) {
	factory := Get(Software)
	Unregister(Software)
	defer Register(Software, factory)

	if _, err := OpenDefault(4, 4, 1); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("OpenDefault() error = %v, want ErrBackendNotAvailable", err)
	}
}

func TestAvailableSorted(t *testing.T) {
	Register("zz-test", NewSoftwareDevice)
	defer Unregister("zz-test")

	names := Available()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("Available() = %v is not sorted", names)
		}
	}
}

func TestFactory(t *testing.T) {
	dev, err := Factory(Software)(8, 8, 4)
	if err != nil {
		t.Fatal(err)
	}
	_ = dev.Close()
	if _, err := Factory("missing")(8, 8, 1); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Factory(missing) error = %v", err)
	}
}
