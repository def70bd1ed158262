package model

import (
	"math"
	"math/rand/v2"
	"strconv"
)

// Param is a named learned tensor. Data aliases the owning layer's storage, so
// writing through it (initialisers, an external optimiser) updates the layer.
type Param struct {
	Name  string
	Shape []int
	Data  []float64

	// fanIn is set for biases that take the default U(-1/sqrt(fanIn),
	// 1/sqrt(fanIn)) initialisation. Zero leaves the constructed values
	// (norm alpha = 1, bias = 0).
	fanIn int
}

// Size is the number of scalar elements.
func (p *Param) Size() int {
	n := 1
	for _, d := range p.Shape {
		n *= d
	}
	return n
}

// Xavier reports whether the parameter gets Xavier-uniform initialisation:
// every parameter with more than one dimension does.
func (p *Param) Xavier() bool {
	return len(p.Shape) > 1
}

// Init names the initialisation scheme applied to p.
func (p *Param) Init() string {
	switch {
	case p.Xavier():
		return "xavier_uniform"
	case p.fanIn > 0:
		return "uniform_fan_in"
	default:
		return "constant"
	}
}

// initParams initialises params in order from rng. Multi-dimensional
// parameters are drawn from U(-a, a) with a = sqrt(6/(fan_in+fan_out));
// biases use the default fan-in bound.
func initParams(params []*Param, rng *rand.Rand) {
	for _, p := range params {
		switch {
		case p.Xavier():
			fanOut, fanIn := p.Shape[0], p.Shape[1]
			receptive := 1
			for _, d := range p.Shape[2:] {
				receptive *= d
			}
			bound := math.Sqrt(6 / float64((fanIn+fanOut)*receptive))
			fillUniform(p.Data, bound, rng)
		case p.fanIn > 0:
			fillUniform(p.Data, 1/math.Sqrt(float64(p.fanIn)), rng)
		}
	}
}

func fillUniform(dst []float64, bound float64, rng *rand.Rand) {
	for i := range dst {
		dst[i] = (2*rng.Float64() - 1) * bound
	}
}

// prefixed joins dotted parameter name components.
func prefixed(prefix string, parts ...string) string {
	name := prefix
	for _, p := range parts {
		if name == "" {
			name = p
			continue
		}
		name += "." + p
	}
	return name
}

func itoa(i int) string { return strconv.Itoa(i) }
