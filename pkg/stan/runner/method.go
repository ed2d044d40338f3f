package runner

import "fmt"

// Method supplies the method-specific argument tokens appended to every
// sampler invocation. The tokens also feed the run hash, so changing the
// method configuration changes the cache bucket.
type Method interface {
	Args() []string
}

// Sample is the HMC/NUTS sampling method. Zero fields are left to the
// sampler's defaults.
type Sample struct {
	NumSamples int
	NumWarmup  int
	Thin       int
}

func (s Sample) Args() []string {
	args := []string{"method=sample"}
	if s.NumSamples > 0 {
		args = append(args, fmt.Sprintf("num_samples=%d", s.NumSamples))
	}
	if s.NumWarmup > 0 {
		args = append(args, fmt.Sprintf("num_warmup=%d", s.NumWarmup))
	}
	if s.Thin > 0 {
		args = append(args, fmt.Sprintf("thin=%d", s.Thin))
	}
	return args
}

// Optimize is the penalized maximum likelihood method.
type Optimize struct {
	Iter int
}

func (o Optimize) Args() []string {
	args := []string{"method=optimize"}
	if o.Iter > 0 {
		args = append(args, fmt.Sprintf("iter=%d", o.Iter))
	}
	return args
}
