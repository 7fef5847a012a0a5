// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package concurrent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_Run(t *testing.T) {
	ctx := context.Background()
	pool := NewWorkerPool(2)

	var counter int64
	functions := []func() error{
		func() error {
			atomic.AddInt64(&counter, 1)
			time.Sleep(10 * time.Millisecond) // Simulate work
			return nil
		},
		func() error {
			atomic.AddInt64(&counter, 2)
			time.Sleep(10 * time.Millisecond)
			return nil
		},
		func() error {
			atomic.AddInt64(&counter, 3)
			time.Sleep(10 * time.Millisecond)
			return nil
		},
	}

	err := pool.Run(ctx, functions...)
	require.NoError(t, err)
	assert.Equal(t, int64(6), atomic.LoadInt64(&counter))
}

func TestWorkerPool_Run_WithError(t *testing.T) {
	ctx := context.Background()
	pool := NewWorkerPool(2)

	// Track which functions executed
	var executedFunc1, executedFunc2, executedFunc3 bool
	var mu sync.Mutex

	expectedError := errors.New("job failed")
	functions := []func() error{
		func() error {
			time.Sleep(10 * time.Millisecond)
			mu.Lock()
			executedFunc1 = true
			mu.Unlock()
			return nil
		},
		func() error {
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			executedFunc2 = true
			mu.Unlock()
			return expectedError
		},
		func() error {
			time.Sleep(20 * time.Millisecond)
			mu.Lock()
			executedFunc3 = true
			mu.Unlock()
			return nil
		},
	}

	err := pool.Run(ctx, functions...)

	// Verify error was returned
	require.Error(t, err)
	assert.Equal(t, expectedError, err)

	// Verify certain functions were executed while the remaining ones were not
	assert.True(t, executedFunc1, "Function 1 should have executed")
	assert.True(t, executedFunc2, "Function 2 should have executed")
	assert.False(t, executedFunc3, "Function 3 should not have executed")
}

func TestWorkerPool_Run_EmptyFunctions(t *testing.T) {
	ctx := context.Background()
	pool := NewWorkerPool(2)

	err := pool.Run(ctx)
	require.NoError(t, err)
}

func TestWorkerPool_RunAll_ExecutesAllFunctions(t *testing.T) {
	ctx := context.Background()
	pool := NewWorkerPool(2)

	var executed int64
	errFirst := errors.New("first action failed")
	errThird := errors.New("third action failed")

	functions := []func() error{
		func() error {
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt64(&executed, 1)
			return errFirst
		},
		func() error {
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&executed, 1)
			return nil
		},
		func() error {
			atomic.AddInt64(&executed, 1)
			return errThird
		},
	}

	errs := pool.RunAll(ctx, functions...)

	assert.Equal(t, int64(3), atomic.LoadInt64(&executed))
	// errors come back in submission order, not completion order
	assert.Equal(t, []error{errFirst, errThird}, errs)
}

func TestWorkerPool_RunAll_RespectsLimit(t *testing.T) {
	ctx := context.Background()
	pool := NewWorkerPool(2)

	var running, peak int64
	var mu sync.Mutex
	functions := make([]func() error, 6)
	for i := range functions {
		functions[i] = func() error {
			current := atomic.AddInt64(&running, 1)
			mu.Lock()
			if current > peak {
				peak = current
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&running, -1)
			return nil
		}
	}

	assert.Empty(t, pool.RunAll(ctx, functions...))
	assert.LessOrEqual(t, peak, int64(2))
	assert.Equal(t, 2, pool.Size())
}

func TestWorkerPool_RunAll_EmptyFunctions(t *testing.T) {
	ctx := context.Background()
	pool := NewWorkerPool(2)

	errs := pool.RunAll(ctx)
	assert.Nil(t, errs)
}

func TestWorkerPool_RunAll_AllSucceed(t *testing.T) {
	ctx := context.Background()
	pool := NewWorkerPool(3)

	var counter int64
	functions := []func() error{
		func() error {
			atomic.AddInt64(&counter, 1)
			return nil
		},
		func() error {
			atomic.AddInt64(&counter, 1)
			return nil
		},
		func() error {
			atomic.AddInt64(&counter, 1)
			return nil
		},
	}

	errs := pool.RunAll(ctx, functions...)

	assert.Equal(t, int64(3), atomic.LoadInt64(&counter))
	assert.Empty(t, errs)
}

func TestWorkerPool_Run_WithCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewWorkerPool(2)

	// Cancel context immediately
	cancel()

	functions := []func() error{
		func() error {
			return nil
		},
	}

	err := pool.Run(ctx, functions...)
	require.Error(t, err)
	assert.Equal(t, context.Canceled, err)
}

func TestWorkerPool_RunAll_WithCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewWorkerPool(2)

	// Cancel context immediately
	cancel()

	functions := []func() error{
		func() error {
			return nil
		},
	}

	errs := pool.RunAll(ctx, functions...)

	require.Len(t, errs, 1)
	assert.Equal(t, context.Canceled, errs[0])
}

func TestNewWorkerPool_InvalidWorkerCount(t *testing.T) {
	tests := []struct {
		name        string
		workerCount int
		expected    int
	}{
		{
			name:        "zero workers defaults to 1",
			workerCount: 0,
			expected:    1,
		},
		{
			name:        "negative workers defaults to 1",
			workerCount: -1,
			expected:    1,
		},
		{
			name:        "negative large number defaults to 1",
			workerCount: -100,
			expected:    1,
		},
		{
			name:        "positive workers returns same count",
			workerCount: 5,
			expected:    5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewWorkerPool(tt.workerCount)
			require.NotNil(t, pool)
			assert.Equal(t, tt.expected, pool.workerCount)
		})
	}
}
