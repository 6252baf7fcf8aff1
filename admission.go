package cachetee

import (
	"go.uber.org/zap"
)

// CacheState is the admission state of one tee.
type CacheState int

const (
	// StateActive means chunks are still being compressed.
	StateActive CacheState = iota
	// StateAbandoned means the budget was exceeded and caching stopped for
	// the rest of the stream. There is no way back to StateActive.
	StateAbandoned
)

func (s CacheState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// FinishResult is handed to the finish callback once the source is exhausted.
//
// BytesWritten counts input bytes admitted to the compressor. When caching
// was abandoned before EOF it stays at the value seen at abandonment and is
// smaller than the stream length. Artifact is nil unless caching stayed
// active through EOF and the flushed size fits the budget.
type FinishResult struct {
	BytesWritten uint64
	Artifact     []byte
}

// admission layers the budget over a compressor.
type admission struct {
	comp         Compressor
	maxSize      int
	bytesWritten uint64
	touched      bool // a chunk reached the compressor
	state        CacheState
	logger       *zap.Logger
}

func newAdmission(comp Compressor, maxSize int, logger *zap.Logger) *admission {
	return &admission{
		comp:    comp,
		maxSize: maxSize,
		state:   StateActive,
		logger:  logger,
	}
}

// admit compresses p if caching is still active, then checks the budget.
func (a *admission) admit(p []byte) error {
	if a.state != StateActive || a.comp == nil {
		return nil
	}
	a.touched = true
	if _, err := a.comp.Write(p); err != nil {
		return err
	}
	a.bytesWritten += uint64(len(p))

	compressed := a.comp.Len()
	if compressed > a.maxSize {
		a.logger.Debug("cache longer than max, dropping",
			zap.Int("compressed", compressed),
			zap.Int("max", a.maxSize),
			zap.Uint64("admitted", a.bytesWritten))
		a.abandon()
	}
	return nil
}

func (a *admission) abandon() {
	a.discard()
	a.state = StateAbandoned
}

// discard drops the live compressor without flushing it.
func (a *admission) discard() {
	if a.comp != nil {
		a.comp.Discard()
		a.comp = nil
	}
}

// finish flushes an active compressor and applies the budget to the final
// size. A compressor that never saw a chunk is discarded, not flushed.
func (a *admission) finish() (FinishResult, error) {
	res := FinishResult{BytesWritten: a.bytesWritten}
	if a.state != StateActive || a.comp == nil {
		return res, nil
	}
	if !a.touched {
		a.discard()
		return res, nil
	}

	comp := a.comp
	a.comp = nil
	artifact, err := comp.Finish()
	if err != nil {
		return FinishResult{}, err
	}
	if len(artifact) > a.maxSize {
		a.logger.Debug("flushed cache longer than max, dropping",
			zap.Int("compressed", len(artifact)),
			zap.Int("max", a.maxSize))
		a.state = StateAbandoned
		return res, nil
	}
	res.Artifact = artifact
	return res, nil
}
