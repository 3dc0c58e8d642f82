package parallel

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSettleReturnsSlotPerOpInOrder(t *testing.T) {
	errA := errors.New("a failed")
	errC := errors.New("c failed")

	results := Settle(
		func() error { return errA },
		func() error { return nil },
		func() error { return errC },
	)

	assert.Len(t, results, 3)
	assert.Equal(t, errA, results[0])
	assert.NoError(t, results[1])
	assert.Equal(t, errC, results[2])
}

func TestSettleRunsEveryOpDespiteFailures(t *testing.T) {
	var ran int32
	results := Settle(
		func() error { atomic.AddInt32(&ran, 1); return errors.New("boom") },
		func() error { atomic.AddInt32(&ran, 1); return nil },
		func() error { atomic.AddInt32(&ran, 1); return errors.New("boom") },
		func() error { atomic.AddInt32(&ran, 1); return nil },
	)

	assert.Len(t, results, 4)
	assert.Equal(t, int32(4), atomic.LoadInt32(&ran))
}

func TestSettleNoOps(t *testing.T) {
	assert.Empty(t, Settle())
}
