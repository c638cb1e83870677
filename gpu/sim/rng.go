package sim

import (
	"encoding/binary"
	"math"
	"math/rand/v2"

	"github.com/chewxy/math32"
	"github.com/gomlx/gpuctx/gpu"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// RNG implements gpu.RNGLibrary: its generators are PCG sources, one per handle.
//
// Values are drawn when the generation is requested, and written to the destination
// by an operation enqueued on the stream the generator is bound to.
type RNG struct {
	*Library
	driver *Driver

	// sources of the seeded generators, guarded by Library.mu.
	sources map[gpu.Handle]*rand.Rand
}

var _ gpu.RNGLibrary = (*RNG)(nil)

func newRNG(driver *Driver) *RNG {
	return &RNG{
		Library: newLibrary(gpu.RNG),
		driver:  driver,
		sources: make(map[gpu.Handle]*rand.Rand),
	}
}

// SetSeed implements gpu.RNGLibrary.
func (r *RNG) SetSeed(h gpu.Handle, seed uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, err := r.state(h)
	if err != nil {
		return err
	}
	st.seed, st.seeded = seed, true
	r.sources[h] = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return nil
}

// Destroy implements gpu.HandleLibrary.
func (r *RNG) Destroy(h gpu.Handle) error {
	if err := r.Library.Destroy(h); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sources, h)
	return nil
}

// Seed returns the seed of the generator.
func (r *RNG) Seed(h gpu.Handle) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, found := r.handles[h]
	if !found || !st.seeded {
		return 0, false
	}
	return st.seed, true
}

// draw n values from the generator, and returns the stream it's bound to.
func (r *RNG) draw(h gpu.Handle, n int, sample func(src *rand.Rand) float32) ([]float32, gpu.Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, err := r.state(h)
	if err != nil {
		return nil, gpu.Stream{}, err
	}
	if !st.bound {
		return nil, gpu.Stream{}, errors.Errorf("sim: RNG generator %#x is not bound to a stream", uintptr(h))
	}
	src, found := r.sources[h]
	if !found {
		return nil, gpu.Stream{}, errors.Errorf("sim: RNG generator %#x was not seeded", uintptr(h))
	}
	values := make([]float32, n)
	for i := range values {
		values[i] = sample(src)
	}
	return values, st.stream, nil
}

func checkGenerate(dst gpu.DataPtr, n, itemSize int) error {
	if n < 0 || n > dst.Len()/itemSize {
		return errors.Errorf("sim: can't generate %d values into %d bytes", n, dst.Len())
	}
	return nil
}

func (r *RNG) generate(h gpu.Handle, dst gpu.DataPtr, n int, sample func(src *rand.Rand) float32) error {
	if err := checkGenerate(dst, n, 4); err != nil {
		return err
	}
	values, s, err := r.draw(h, n, sample)
	if err != nil {
		return err
	}
	return r.driver.Enqueue(s, func() error {
		for i, v := range values {
			binary.LittleEndian.PutUint32(dst.Data[4*i:], math.Float32bits(v))
		}
		return nil
	})
}

// GenerateUniform implements gpu.RNGLibrary: values are uniform in (0, 1].
func (r *RNG) GenerateUniform(h gpu.Handle, dst gpu.DataPtr, n int) error {
	return r.generate(h, dst, n, uniform)
}

// GenerateNormal implements gpu.RNGLibrary, using the Box-Muller transform.
func (r *RNG) GenerateNormal(h gpu.Handle, dst gpu.DataPtr, n int, mean, stddev float32) error {
	return r.generate(h, dst, n, func(src *rand.Rand) float32 {
		return mean + stddev*normal(src)
	})
}

// GenerateUniformHalf generates n half-precision values uniform in (0, 1].
func (r *RNG) GenerateUniformHalf(h gpu.Handle, dst gpu.DataPtr, n int) error {
	if err := checkGenerate(dst, n, 2); err != nil {
		return err
	}
	values, s, err := r.draw(h, n, uniform)
	if err != nil {
		return err
	}
	return r.driver.Enqueue(s, func() error {
		for i, v := range values {
			binary.LittleEndian.PutUint16(dst.Data[2*i:], float16.Fromfloat32(v).Bits())
		}
		return nil
	})
}

func uniform(src *rand.Rand) float32 {
	return 1 - src.Float32()
}

func normal(src *rand.Rand) float32 {
	u1, u2 := uniform(src), src.Float32()
	return math32.Sqrt(-2*math32.Log(u1)) * math32.Cos(2*math32.Pi*u2)
}
