package simulation

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// goldenGamma spreads a single int64 seed into a second PCG stream word so
// that replicas seeded with consecutive integers do not share state.
const goldenGamma = 0x9E3779B97F4A7C15

// NewRand builds the deterministic generator used by one simulation run.
// PCG is a fixed algorithm, so the same seed yields the same stream on
// every platform and Go release.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^goldenGamma))
}

// Distribution is a stateless sampler. Implementations hold parameters
// only; all randomness comes from the generator passed to Sample.
type Distribution interface {
	Sample(rng *rand.Rand) float64
}

// Normal samples a Gaussian with the given mean and standard deviation.
// Sigma zero degenerates to the constant Mu.
type Normal struct {
	Mu    float64
	Sigma float64
}

func (d Normal) Sample(rng *rand.Rand) float64 {
	if d.Sigma == 0 {
		return d.Mu
	}
	return rng.NormFloat64()*d.Sigma + d.Mu
}

// Exponential samples interarrival gaps with the given mean (1/rate).
type Exponential struct {
	Mean float64
}

func NewExponential(mean float64) (Exponential, error) {
	if mean <= 0 {
		return Exponential{}, fmt.Errorf("exponential mean must be positive, got %v", mean)
	}
	return Exponential{Mean: mean}, nil
}

func (d Exponential) Sample(rng *rand.Rand) float64 {
	// 1-Float64() is in (0,1], keeping Log finite.
	return -d.Mean * math.Log(1-rng.Float64())
}

// Triangular samples via inverse CDF on [Min, Max] with the given Mode.
// A zero-width interval degenerates to the constant Max.
type Triangular struct {
	Min  float64
	Mode float64
	Max  float64
}

func NewTriangular(min, mode, max float64) (Triangular, error) {
	if min > mode || mode > max {
		return Triangular{}, fmt.Errorf("triangular requires min <= mode <= max, got (%v, %v, %v)", min, mode, max)
	}
	return Triangular{Min: min, Mode: mode, Max: max}, nil
}

func (d Triangular) Sample(rng *rand.Rand) float64 {
	width := d.Max - d.Min
	if width <= 0 {
		return d.Max
	}
	u := rng.Float64()
	cut := (d.Mode - d.Min) / width
	if u < cut {
		return d.Min + math.Sqrt(u*width*(d.Mode-d.Min))
	}
	return d.Max - math.Sqrt((1-u)*width*(d.Max-d.Mode))
}

// Uniform samples evenly on [Low, High).
type Uniform struct {
	Low  float64
	High float64
}

func (d Uniform) Sample(rng *rand.Rand) float64 {
	return d.Low + rng.Float64()*(d.High-d.Low)
}
