package usecase

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/AndreLecona/Dotate/internal/domain"
	"github.com/AndreLecona/Dotate/internal/port"
)

// Options configure one pipeline run.
type Options struct {
	Thresholds Thresholds
	Resolve    ResolveOptions
	// ChunkSize is the number of proteins handed to a worker at once.
	ChunkSize int
	// Cores is the worker count. -1 means all CPUs but one.
	Cores int
}

// DefaultOptions mirror the single-core defaults of the command line.
func DefaultOptions() Options {
	return Options{
		Thresholds: DefaultThresholds(),
		Resolve:    ResolveOptions{MinUnannotated: 10},
		ChunkSize:  100,
		Cores:      1,
	}
}

// ResolveCores translates the -1 convention and clamps to at least one worker.
func ResolveCores(cores int) int {
	if cores == -1 {
		cores = runtime.NumCPU() - 1
	}
	if cores < 1 {
		cores = 1
	}
	return cores
}

// ProgressFunc reports completed chunks out of the total. It may be called
// concurrently from several workers.
type ProgressFunc func(done, total int)

// AnnotateUseCase runs the filter/resolve core over protein groups, in
// parallel chunks, and merges the results back into input order.
type AnnotateUseCase struct {
	mapper port.Mapper // nil when identifier mapping is disabled
	opts   Options
	log    *zap.Logger
}

// NewAnnotateUseCase creates an annotation pipeline. mapper may be nil.
func NewAnnotateUseCase(mapper port.Mapper, opts Options) *AnnotateUseCase {
	if opts.ChunkSize < 1 {
		opts.ChunkSize = DefaultOptions().ChunkSize
	}
	opts.Cores = ResolveCores(opts.Cores)
	return &AnnotateUseCase{
		mapper: mapper,
		opts:   opts,
		log:    zap.NewNop(),
	}
}

// SetLogger replaces the no-op logger.
func (u *AnnotateUseCase) SetLogger(l *zap.Logger) {
	if l != nil {
		u.log = l
	}
}

// Run annotates the groups and returns the merged result. The merge order is
// the input order of groups regardless of worker scheduling. A chunk that
// fails (or panics) is recorded on the result; the other chunks still
// complete. Cancelling ctx stops the run and returns ctx.Err().
func (u *AnnotateUseCase) Run(ctx context.Context, groups []domain.Group, progress ProgressFunc) (*domain.Result, error) {
	chunks := splitChunks(groups, u.opts.ChunkSize)
	total := len(chunks)

	annotated := make([][]domain.ProteinAnnotation, total)
	failures := make([]error, total)
	var done, unmapped atomic.Int64

	workers := u.opts.Cores
	if workers > total {
		workers = total
	}
	if workers < 1 {
		workers = 1
	}
	u.log.Debug("starting annotation run",
		zap.Int("proteins", len(groups)),
		zap.Int("chunks", total),
		zap.Int("workers", workers))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				annotated[idx], failures[idx] = u.runChunk(chunks[idx], &unmapped)
				if progress != nil {
					progress(int(done.Add(1)), total)
				}
			}
		}()
	}

	// Feed chunk indices until done or cancelled.
	go func() {
		defer close(jobs)
		for i := range chunks {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &domain.Result{Unmapped: int(unmapped.Load())}
	for i := range chunks {
		if failures[i] != nil {
			u.log.Warn("chunk failed", zap.Int("chunk", i), zap.Error(failures[i]))
			result.Failed = append(result.Failed, domain.ChunkError{Chunk: i, Err: failures[i]})
			continue
		}
		result.Proteins = append(result.Proteins, annotated[i]...)
	}
	return result, nil
}

// runChunk resolves every group in the chunk and applies identifier mapping
// to the accepted domains. A panic is converted into the chunk's error so one
// bad chunk cannot take the run down.
func (u *AnnotateUseCase) runChunk(c domain.Chunk, unmapped *atomic.Int64) (out []domain.ProteinAnnotation, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	out = make([]domain.ProteinAnnotation, 0, len(c.Groups))
	for _, g := range c.Groups {
		pa := Resolve(g, u.opts.Thresholds, u.opts.Resolve)
		if u.mapper != nil {
			for i := range pa.Domains {
				fid, ok := u.mapper.Map(pa.Domains[i].Domain)
				pa.Domains[i].FID = fid
				if !ok {
					unmapped.Add(1)
				}
			}
		}
		out = append(out, pa)
	}
	return out, nil
}

// splitChunks slices groups into chunks of at most size proteins, preserving
// input order.
func splitChunks(groups []domain.Group, size int) []domain.Chunk {
	if size < 1 {
		size = 1
	}
	chunks := make([]domain.Chunk, 0, (len(groups)+size-1)/size)
	for start := 0; start < len(groups); start += size {
		end := start + size
		if end > len(groups) {
			end = len(groups)
		}
		chunks = append(chunks, domain.Chunk{Index: len(chunks), Groups: groups[start:end]})
	}
	return chunks
}
