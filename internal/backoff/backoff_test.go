package backoff_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/webhookhub/webhookhub/internal/backoff"
)

type testCase struct {
	retries int
	want    time.Duration
}

func testBackoff(t *testing.T, name string, bo backoff.Backoff, testCases []testCase) {
	t.Parallel()
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%s.Duration(%d)", name, tc.retries), func(t *testing.T) {
			assert.Equal(t, tc.want, bo.Duration(tc.retries))
		})
	}
}

func TestBackoff_Exponential(t *testing.T) {
	bo := &backoff.ExponentialBackoff{
		Interval: 30 * time.Second,
		Base:     2,
	}
	testCases := []testCase{
		{0, 30 * time.Second},
		{1, 60 * time.Second},
		{2, 120 * time.Second},
		{3, 240 * time.Second},
		{4, 480 * time.Second},
		{5, 960 * time.Second},
		{6, 1920 * time.Second},
	}
	testBackoff(t, "ExponentialBackoff{Interval:30*time.Second,Base:2}", bo, testCases)
}

func TestBackoff_Constant(t *testing.T) {
	bo := &backoff.ConstantBackoff{
		Interval: 30 * time.Second,
	}
	testCases := []testCase{
		{0, 30 * time.Second},
		{1, 30 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
	}
	testBackoff(t, "ConstantBackoff{Interval:30*time.Second}", bo, testCases)
}

func TestBackoff_Scheduled(t *testing.T) {
	t.Parallel()

	t.Run("DeliverySchedule", func(t *testing.T) {
		bo := &backoff.ScheduledBackoff{
			Schedule: []time.Duration{
				30 * time.Second,
				2 * time.Minute,
				10 * time.Minute,
				30 * time.Minute,
			},
		}
		testCases := []testCase{
			{0, 30 * time.Second},
			{1, 2 * time.Minute},
			{2, 10 * time.Minute},
			{3, 30 * time.Minute},
			{4, 30 * time.Minute},  // Beyond schedule, returns last value
			{10, 30 * time.Minute}, // Beyond schedule, returns last value
		}
		testBackoff(t, "ScheduledBackoff{Delivery}", bo, testCases)
	})

	t.Run("EmptySchedule", func(t *testing.T) {
		bo := &backoff.ScheduledBackoff{
			Schedule: []time.Duration{},
		}
		testCases := []testCase{
			{0, 0},
			{1, 0},
			{5, 0},
		}
		testBackoff(t, "ScheduledBackoff{Empty}", bo, testCases)
	})

	t.Run("SingleElement", func(t *testing.T) {
		bo := &backoff.ScheduledBackoff{
			Schedule: []time.Duration{1 * time.Minute},
		}
		testCases := []testCase{
			{0, 1 * time.Minute},
			{1, 1 * time.Minute}, // Beyond schedule, returns last value
			{5, 1 * time.Minute}, // Beyond schedule, returns last value
		}
		testBackoff(t, "ScheduledBackoff{Single}", bo, testCases)
	})
}
