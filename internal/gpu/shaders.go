//go:build !nogpu

package gpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
)

//go:embed shaders/parity.wgsl
var parityShaderSource string

//go:embed shaders/mask.wgsl
var maskShaderSource string

//go:embed shaders/filter.wgsl
var filterShaderSource string

//go:embed shaders/blit.wgsl
var blitShaderSource string

//go:embed shaders/resolve.wgsl
var resolveShaderSource string

// Uniform block sizes in bytes.
const (
	// mvp (64) + mirror (8) + inflate (4) + pad (4).
	parityUniformSize = 80
	// mvp (64) + use_texture (4) + pad (12).
	maskUniformSize = 80
	// kernel (4) + radius (4) + scale (4) + pad (4).
	filterUniformSize = 16
)

// Filter kernel selectors as read by filter.wgsl.
const (
	shaderKernelOmniDilate uint32 = iota
	shaderKernelDifference
	shaderKernelCombineMax
)

// shaderSources lists every embedded module by name.
var shaderSources = []struct {
	name   string
	source *string
}{
	{"parity", &parityShaderSource},
	{"mask", &maskShaderSource},
	{"filter", &filterShaderSource},
	{"blit", &blitShaderSource},
	{"resolve", &resolveShaderSource},
}

// ValidateShaders compiles every embedded WGSL module to SPIR-V and reports
// the first failure.
func ValidateShaders() error {
	for _, s := range shaderSources {
		if _, err := naga.Compile(*s.source); err != nil {
			return fmt.Errorf("gpu: compile %s shader: %w", s.name, err)
		}
	}
	return nil
}
