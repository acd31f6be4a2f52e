package schedule

import (
	"math/big"
	"testing"

	"clm-rewards/internal/domain"
)

const (
	pool = "Pool11111111111111111111111111111111111111"
	mint = "Mint11111111111111111111111111111111111111"
)

func fixedClock(unix int64) func() int64 {
	return func() int64 { return unix }
}

func TestSchedule_TargetsDayPlusTwo(t *testing.T) {
	now := domain.DayStart(100) + 1234
	s := New(fixedClock(now))

	day := s.Schedule(pool, mint, big.NewInt(5000))
	if day != 102 {
		t.Fatalf("target day = %d, want 102", day)
	}
	if got := s.Bucket(pool, mint, 102); got.Cmp(big.NewInt(5000)) != 0 {
		t.Errorf("bucket[102] = %s, want 5000", got)
	}
	if got := s.Bucket(pool, mint, 101); got.Sign() != 0 {
		t.Errorf("bucket[101] = %s, want 0", got)
	}
}

func TestSchedule_Compounds(t *testing.T) {
	s := New(fixedClock(domain.DayStart(10)))
	s.Schedule(pool, mint, big.NewInt(100))
	s.Schedule(pool, mint, big.NewInt(250))
	if got := s.Bucket(pool, mint, 12); got.Cmp(big.NewInt(350)) != 0 {
		t.Errorf("bucket[12] = %s, want 350", got)
	}
}

func TestCurrentStreamRate(t *testing.T) {
	now := domain.DayStart(50) + 7
	s := New(fixedClock(now))
	s.ScheduleAt(pool, mint, 50, big.NewInt(864_000))

	if got := s.CurrentStreamRate(pool, mint); got.Cmp(big.NewInt(10)) != 0 {
		t.Errorf("rate = %s, want 10", got)
	}
	if got := s.CurrentStreamRate(pool, "OtherMint"); got.Sign() != 0 {
		t.Errorf("rate for unscheduled mint = %s, want 0", got)
	}
}

// 864,000 funded for day D streams exactly half over the first half of the
// day.
func TestAmountOverWindow_HalfDay(t *testing.T) {
	s := New(fixedClock(0))
	const d = int64(40)
	s.ScheduleAt(pool, mint, d, big.NewInt(864_000))

	got := s.AmountOverWindow(pool, mint, domain.DayStart(d), domain.DayStart(d)+43_200)
	if got.Cmp(big.NewInt(432_000)) != 0 {
		t.Errorf("half-day amount = %s, want 432000", got)
	}
}

// A full-day window returns the bucket exactly, with no division applied.
func TestAmountOverWindow_WholeDayExact(t *testing.T) {
	s := New(fixedClock(0))
	const d = int64(17)
	// Deliberately not divisible by 86400: exactness must not rely on it.
	s.ScheduleAt(pool, mint, d, big.NewInt(1_000_003))

	got := s.AmountOverWindow(pool, mint, domain.DayStart(d), domain.DayStart(d+1))
	if got.Cmp(big.NewInt(1_000_003)) != 0 {
		t.Errorf("whole-day amount = %s, want 1000003", got)
	}
}

func TestAmountOverWindow_EmptyAndInverted(t *testing.T) {
	s := New(fixedClock(0))
	s.ScheduleAt(pool, mint, 5, big.NewInt(1000))

	if got := s.AmountOverWindow(pool, mint, 100, 100); got.Sign() != 0 {
		t.Errorf("empty window = %s, want 0", got)
	}
	if got := s.AmountOverWindow(pool, mint, 200, 100); got.Sign() != 0 {
		t.Errorf("inverted window = %s, want 0", got)
	}
}

func TestAmountOverWindow_MissingBucketsAreZero(t *testing.T) {
	s := New(fixedClock(0))
	s.ScheduleAt(pool, mint, 21, big.NewInt(86_400))

	// Window spans days 20..22; only day 21 is funded.
	got := s.AmountOverWindow(pool, mint, domain.DayStart(20)+43_200, domain.DayStart(22)+10)
	if got.Cmp(big.NewInt(86_400)) != 0 {
		t.Errorf("amount = %s, want 86400", got)
	}
}

// Splitting a window at any point must not change the total when the slice
// arithmetic divides evenly.
func TestAmountOverWindow_SplitConsistency(t *testing.T) {
	s := New(fixedClock(0))
	// All buckets divisible by 86400: proportional slices are exact.
	s.ScheduleAt(pool, mint, 30, big.NewInt(864_000))
	s.ScheduleAt(pool, mint, 31, big.NewInt(1_728_000))
	s.ScheduleAt(pool, mint, 32, big.NewInt(86_400))

	t0 := domain.DayStart(30) + 100
	t2 := domain.DayStart(32) + 50_000
	whole := s.AmountOverWindow(pool, mint, t0, t2)

	for _, t1 := range []int64{t0, t0 + 1, domain.DayStart(31), domain.DayStart(31) + 12_345, domain.DayStart(32), t2} {
		a := s.AmountOverWindow(pool, mint, t0, t1)
		b := s.AmountOverWindow(pool, mint, t1, t2)
		sum := new(big.Int).Add(a, b)
		if sum.Cmp(whole) != 0 {
			t.Errorf("split at %d: %s + %s = %s, want %s", t1, a, b, sum, whole)
		}
	}
}

// With awkward amounts, splitting can only lose to truncation, never gain,
// and the loss is bounded by one unit per extra partial slice.
func TestAmountOverWindow_SplitTruncationBound(t *testing.T) {
	s := New(fixedClock(0))
	s.ScheduleAt(pool, mint, 30, big.NewInt(1_000_003))

	t0 := domain.DayStart(30) + 11
	t2 := domain.DayStart(30) + 80_000
	t1 := domain.DayStart(30) + 33_333

	whole := s.AmountOverWindow(pool, mint, t0, t2)
	sum := s.AmountOverWindow(pool, mint, t0, t1)
	sum.Add(sum, s.AmountOverWindow(pool, mint, t1, t2))

	diff := new(big.Int).Sub(whole, sum)
	if diff.Sign() < 0 || diff.Cmp(big.NewInt(1)) > 0 {
		t.Errorf("split drift = %s, want in [0, 1]", diff)
	}
}

func TestAmountOverWindow_ClampsToThreeDays(t *testing.T) {
	s := New(fixedClock(0))
	for d := int64(10); d < 20; d++ {
		s.ScheduleAt(pool, mint, d, big.NewInt(86_400))
	}

	// A ten-day window collapses to the first three days.
	got := s.AmountOverWindow(pool, mint, domain.DayStart(10), domain.DayStart(20))
	if got.Cmp(big.NewInt(3*86_400)) != 0 {
		t.Errorf("clamped amount = %s, want %d", got, 3*86_400)
	}
}

func TestAmountOverWindow_SameDaySlice(t *testing.T) {
	s := New(fixedClock(0))
	s.ScheduleAt(pool, mint, 8, big.NewInt(864_000))

	// 1000 seconds at 10/sec.
	got := s.AmountOverWindow(pool, mint, domain.DayStart(8)+500, domain.DayStart(8)+1500)
	if got.Cmp(big.NewInt(10_000)) != 0 {
		t.Errorf("slice = %s, want 10000", got)
	}
}
