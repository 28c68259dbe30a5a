package risk

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/errors"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/logger"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/pools"
)

const (
	DefaultWorkers   = 4
	DefaultBatchSize = 1_000

	// scratch capacity for one path; longer horizons allocate their own buffer
	defaultPathCapacity = 64
)

// StreamSource hands out random streams keyed by job index. Streams for
// different indices must be independent, and the same index must always
// yield the same stream for a run to be reproducible.
type StreamSource interface {
	Stream(job int) rand.Source
}

// SeededStreams derives one PCG stream per job from a single seed.
type SeededStreams struct {
	Seed uint64
}

// NewSeededStreams returns a stream source for seed. A zero seed is replaced
// by one derived from the clock; read it back from the Seed field to replay.
func NewSeededStreams(seed int64) SeededStreams {
	if seed == 0 {
		return SeededStreams{Seed: uint64(time.Now().UnixNano())}
	}
	return SeededStreams{Seed: uint64(seed)}
}

func (s SeededStreams) Stream(job int) rand.Source {
	return rand.NewPCG(s.Seed, uint64(job))
}

// SampleSet is the ordered collection of terminal gross growth factors, one
// per trial, in trial order.
type SampleSet struct {
	values []float64
}

// NewSampleSet copies values into a SampleSet.
func NewSampleSet(values []float64) SampleSet {
	return SampleSet{values: append([]float64(nil), values...)}
}

func (s SampleSet) Len() int { return len(s.values) }

func (s SampleSet) At(i int) float64 { return s.values[i] }

// Values returns a copy of the samples in trial order.
func (s SampleSet) Values() []float64 {
	return append([]float64(nil), s.values...)
}

// SimulatorConfig contains configuration for the path simulator
type SimulatorConfig struct {
	Workers   int
	BatchSize int
}

// Simulator generates Monte Carlo samples of terminal cumulative returns
type Simulator struct {
	config  SimulatorConfig
	scratch *pools.Float64SlicePool
	log     *logger.Logger
}

// NewSimulator creates a new path simulator
func NewSimulator(config SimulatorConfig) *Simulator {
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}

	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}

	return &Simulator{
		config:  config,
		scratch: pools.NewFloat64SlicePool(defaultPathCapacity),
		log:     logger.GetLogger("risk.simulator"),
	}
}

type job struct {
	index int
	start int
	end   int
}

// planJobs splits trials into batches of batchSize and caps the worker count
// at the number of batches.
func planJobs(trials, batchSize, workers int) ([]job, int) {
	nJobs := int(math.Ceil(float64(trials) / float64(batchSize)))
	jobs := make([]job, nJobs)
	for i := range nJobs {
		jobs[i] = job{
			index: i,
			start: i * batchSize,
			end:   min((i+1)*batchSize, trials),
		}
	}

	return jobs, min(nJobs, workers)
}

// Simulate runs trials independent paths of horizon periods each and returns
// the compounded terminal value of every path. All parameters are validated
// before any randomness is consumed.
func (s *Simulator) Simulate(ctx context.Context, model Model, horizon, trials int, streams StreamSource) (SampleSet, error) {
	if model == nil {
		return SampleSet{}, errors.InvalidParameter("model is required")
	}
	if err := model.Validate(); err != nil {
		return SampleSet{}, err
	}
	if horizon < 1 {
		return SampleSet{}, errors.InvalidParameterf("horizon length must be at least 1, got %d", horizon)
	}
	if trials < 1 {
		return SampleSet{}, errors.InvalidParameterf("trial count must be at least 1, got %d", trials)
	}
	if streams == nil {
		return SampleSet{}, errors.InvalidParameter("random stream source is required")
	}

	startTime := time.Now()
	values := make([]float64, trials)
	jobs, nWorkers := planJobs(trials, s.config.BatchSize, s.config.Workers)

	s.log.Debugf("Simulating %d trials of %d periods under %s (%d jobs, %d workers)",
		trials, horizon, model.Name(), len(jobs), nWorkers)

	jobsChannel := make(chan job, len(jobs))
	for _, j := range jobs {
		jobsChannel <- j
	}
	close(jobsChannel)

	g, gctx := errgroup.WithContext(ctx)
	for range nWorkers {
		g.Go(func() error {
			path := s.scratch.Get(horizon)
			defer s.scratch.Put(path)

			for j := range jobsChannel {
				if err := gctx.Err(); err != nil {
					return err
				}

				src := streams.Stream(j.index)
				for trial := j.start; trial < j.end; trial++ {
					model.SampleInto(src, path)
					values[trial] = compound(path)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return SampleSet{}, errors.Wrapf(err, "simulation under %s aborted", model.Name())
	}

	s.log.Debugf("Simulated %d trials under %s in %v", trials, model.Name(), time.Since(startTime))
	return SampleSet{values: values}, nil
}
