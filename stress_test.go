package cancellation

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zeebo/assert"
	"github.com/zeebo/pcg"
)

// TestTokenStress drives a token with random interleavings of every
// operation and checks that no callback ever runs twice and that nothing
// runs after its registration was disposed first.
func TestTokenStress(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		stressToken(t, seed)
	}
}

type stressReg struct {
	reg   *Registration
	fired int32
}

func stressToken(t *testing.T, seed uint64) {
	const ops = 500

	tok := NewToken()
	np := runtime.GOMAXPROCS(-1)

	var (
		mu   sync.Mutex
		regs []*stressReg
		wg   sync.WaitGroup
	)

	// failures are reported back to the test goroutine.
	errs := make(chan error, np*ops)

	wg.Add(np)
	for i := 0; i < np; i++ {
		go func(rng pcg.T) {
			defer wg.Done()

			for j := 0; j < ops; j++ {
				switch rng.Uint32() % 8 {
				case 0, 1, 2:
					sr := new(stressReg)
					reg, err := tok.Register(func() { atomic.AddInt32(&sr.fired, 1) })
					if err != nil {
						if !tok.Disposed() {
							errs <- fmt.Errorf("register failed on a live token: %w", err)
						}
						continue
					}
					sr.reg = reg
					mu.Lock()
					regs = append(regs, sr)
					mu.Unlock()

				case 3:
					mu.Lock()
					var sr *stressReg
					if len(regs) > 0 {
						sr = regs[rng.Uint32()%uint32(len(regs))]
					}
					mu.Unlock()
					if sr != nil {
						sr.reg.Dispose()
					}

				case 4:
					_ = tok.CancelAfter(time.Duration(rng.Uint32()%1000) * time.Microsecond)

				case 5:
					_ = tok.CancelAfter(Infinite)

				case 6:
					if rng.Uint32()%16 == 0 {
						_ = tok.Cancel()
					} else {
						_, _ = tok.Canceled()
					}

				case 7:
					if rng.Uint32()%64 == 0 {
						tok.Dispose()
					}
				}
			}
		}(pcg.New(seed<<32 | uint64(i)))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	_ = tok.Cancel()
	tok.Dispose()

	// a timer may still be notifying, which marks a registration fired
	// just before running its callback.
	for _, sr := range regs {
		n := atomic.LoadInt32(&sr.fired)
		assert.That(t, n <= 1)
		assert.That(t, n == 0 || sr.reg.Fired())
		assert.That(t, sr.reg.Disposed())
	}
}
