package classifier

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
)

// DefaultConfidenceThreshold is the minimum label confidence, in percent,
// for a frame to count as containing a cat.
const DefaultConfidenceThreshold float32 = 50

// ErrEmptyFrame is returned when a classifier is asked to look at nothing.
var ErrEmptyFrame = errors.New("frame is empty")

// Classifier reports whether a frame contains a cat with at least the given
// confidence, in percent.
type Classifier interface {
	ImageContainsCat(ctx context.Context, frame []byte, confidenceThreshold float32) (bool, error)
}

// StaticClassifier always returns the same answer.
type StaticClassifier struct {
	// ContainsCat is the answer for every frame.
	ContainsCat bool
}

// ImageContainsCat implements Classifier.
func (c StaticClassifier) ImageContainsCat(_ context.Context, frame []byte, _ float32) (bool, error) {
	if len(frame) == 0 {
		return false, ErrEmptyFrame
	}

	return c.ContainsCat, nil
}

// RandomClassifier pretends to look at the frame and answers at random.
type RandomClassifier struct {
	rnd *rand.Rand
	mu  sync.Mutex
}

// NewRandomClassifier creates a classifier seeded with the given values.
func NewRandomClassifier(seed1, seed2 uint64) *RandomClassifier {
	return &RandomClassifier{
		rnd: rand.New(rand.NewPCG(seed1, seed2)), //nolint:gosec // Not used for anything secret.
	}
}

// ImageContainsCat implements Classifier. A random confidence is drawn and
// compared against the threshold, so higher thresholds see fewer cats.
func (c *RandomClassifier) ImageContainsCat(_ context.Context, frame []byte, confidenceThreshold float32) (bool, error) {
	if len(frame) == 0 {
		return false, ErrEmptyFrame
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	const maxConfidence = 100

	return c.rnd.Float32()*maxConfidence >= confidenceThreshold, nil
}
