package utils

import "image/color"

type ColorFloat [4]float32

func (c *ColorFloat) RGBA() (r, g, b, a uint32) {
	const mf = float32(256*256 - 1)
	r = uint32(clamp01(c[0]) * mf)
	g = uint32(clamp01(c[1]) * mf)
	b = uint32(clamp01(c[2]) * mf)
	a = uint32(clamp01(c[3]) * mf)
	return
}

func NewColorFloat(c []float32) ColorFloat {
	return ColorFloat{c[0], c[1], c[2], 1.0}
}

// NewColorFloatHex converts 0xRRGGBB to an opaque color
func NewColorFloatHex(hex uint32) ColorFloat {
	return ColorFloat{
		float32((hex>>16)&0xff) / 255.0,
		float32((hex>>8)&0xff) / 255.0,
		float32(hex&0xff) / 255.0,
		1.0,
	}
}

func NewColorFloatFromColor(c color.Color) ColorFloat {
	const mf = float32(256*256 - 1)
	r, g, b, a := c.RGBA()
	return ColorFloat{float32(r) / mf, float32(g) / mf, float32(b) / mf, float32(a) / mf}
}

func (c ColorFloat) Hex() uint32 {
	return uint32(clamp01(c[0])*255+0.5)<<16 | uint32(clamp01(c[1])*255+0.5)<<8 | uint32(clamp01(c[2])*255+0.5)
}

// Scale multiplies rgb components, alpha is kept
func (c ColorFloat) Scale(f float32) ColorFloat {
	return ColorFloat{c[0] * f, c[1] * f, c[2] * f, c[3]}
}

// Mul multiplies rgb components pairwise, alpha is kept
func (c ColorFloat) Mul(o ColorFloat) ColorFloat {
	return ColorFloat{c[0] * o[0], c[1] * o[1], c[2] * o[2], c[3]}
}

func (c ColorFloat) Add(o ColorFloat) ColorFloat {
	return ColorFloat{c[0] + o[0], c[1] + o[1], c[2] + o[2], c[3]}
}

func (c ColorFloat) NRGBA() color.NRGBA {
	return color.NRGBA{
		R: uint8(clamp01(c[0])*255 + 0.5),
		G: uint8(clamp01(c[1])*255 + 0.5),
		B: uint8(clamp01(c[2])*255 + 0.5),
		A: uint8(clamp01(c[3])*255 + 0.5),
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
