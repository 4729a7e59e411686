package cards

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"
)

// Source is the randomness consumed by Deck.Shuffle. *rand.Rand satisfies it.
type Source interface {
	// Intn returns a uniform integer in [0, n).
	Intn(n int) int
}

// NewSeededSource returns a deterministic source for the given seed
func NewSeededSource(seed int64) Source {
	return rand.New(rand.NewSource(seed))
}

// NewTimeSource returns a source seeded from the wall clock
func NewTimeSource() Source {
	return NewSeededSource(time.Now().UnixNano())
}

// ReaderSource draws uniform integers from an entropy stream such as a
// hardware RNG on a serial port or crypto/rand.Reader.
type ReaderSource struct {
	mu       sync.Mutex
	r        io.Reader
	err      error
	fallback Source
}

// NewReaderSource wraps r. Reads are serialized so one stream can back
// several decks.
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{r: r}
}

// Intn uses integer rejection sampling over big-endian uint32 words, so the
// result is unbiased as long as the stream is. Once the stream fails, the
// source switches to a time-seeded generator and Err reports the failure.
func (s *ReaderSource) Intn(n int) int {
	if n <= 1 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err == nil {
		v, err := s.uniform(uint32(n))
		if err == nil {
			return int(v)
		}
		s.err = err
		s.fallback = NewTimeSource()
	}
	return s.fallback.Intn(n)
}

// Err returns the read error that forced the fallback, if any
func (s *ReaderSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *ReaderSource) uniform(n uint32) (uint32, error) {
	// limit = floor(2^32 / n) * n
	limit := (uint64(1) << 32) / uint64(n) * uint64(n)

	var buf [4]byte
	for {
		if _, err := io.ReadFull(s.r, buf[:]); err != nil {
			return 0, fmt.Errorf("entropy read failed: %w", err)
		}
		x := binary.BigEndian.Uint32(buf[:])
		if uint64(x) < limit {
			return x % n, nil
		}
	}
}

// CheckEntropy reads a sample from r and rejects streams that are obviously
// stuck. It cannot prove randomness.
func CheckEntropy(r io.Reader) error {
	buf := make([]byte, 256)
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("entropy read failed: %w", err)
	}

	for i := 1; i < len(buf); i++ {
		if buf[i] != buf[0] {
			return nil
		}
	}
	return errors.New("entropy source appears stuck (all sampled bytes identical)")
}
