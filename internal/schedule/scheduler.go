// Package schedule buckets funded reward amounts into UTC day windows and
// integrates them over arbitrary half-open time intervals. Funding on day N
// targets bucket N+2: one full day of lead time plus one safety day, so a
// stream only begins on a day whose funding window has fully elapsed.
package schedule

import (
	"math/big"
	"time"

	"clm-rewards/internal/domain"
)

// LeadDays is the fixed funding lag: amounts funded today stream on day+2.
const LeadDays int64 = 2

// MaxWindowDays clamps integration windows. With the fixed 2-day lead at most
// 3 buckets can be nonzero in any open window, so iteration cost is bounded.
// Derived as LeadDays + 1; recompute if the lead ever becomes configurable.
const MaxWindowDays = LeadDays + 1

type streamKey struct {
	pool string
	mint string
}

// Scheduler holds per-(pool, mint) day buckets. Buckets only grow via
// Schedule; integration reads them without consuming. Not safe for concurrent
// use; the engine serializes access per pool.
type Scheduler struct {
	now     func() int64
	buckets map[streamKey]map[int64]*big.Int
}

// New creates a Scheduler. now is the unix-seconds clock; pass nil for
// time.Now, or a fixed clock in tests.
func New(now func() int64) *Scheduler {
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	return &Scheduler{
		now:     now,
		buckets: make(map[streamKey]map[int64]*big.Int),
	}
}

// Schedule funds amount for (pool, mint), targeting day bucket today+2.
// Purely additive; repeated fundings for the same day compound the rate.
// Returns the targeted day index.
func (s *Scheduler) Schedule(pool, mint string, amount *big.Int) int64 {
	day := domain.DayIndex(s.now()) + LeadDays
	s.add(pool, mint, day, amount)
	return day
}

// ScheduleAt funds a specific day bucket directly. Test and replay helper;
// production funding goes through Schedule.
func (s *Scheduler) ScheduleAt(pool, mint string, day int64, amount *big.Int) {
	s.add(pool, mint, day, amount)
}

func (s *Scheduler) add(pool, mint string, day int64, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	key := streamKey{pool, mint}
	days, ok := s.buckets[key]
	if !ok {
		days = make(map[int64]*big.Int)
		s.buckets[key] = days
	}
	if b, ok := days[day]; ok {
		b.Add(b, amount)
	} else {
		days[day] = new(big.Int).Set(amount)
	}
}

// Bucket returns a copy of the scheduled amount for (pool, mint, day),
// zero if absent.
func (s *Scheduler) Bucket(pool, mint string, day int64) *big.Int {
	if days, ok := s.buckets[streamKey{pool, mint}]; ok {
		if b, ok := days[day]; ok {
			return new(big.Int).Set(b)
		}
	}
	return new(big.Int)
}

// CurrentStreamRate returns today's spot rate, bucket/86400, zero if nothing
// is scheduled. Convenience view only; integration never uses it, to avoid
// compounding rounding drift.
func (s *Scheduler) CurrentStreamRate(pool, mint string) *big.Int {
	rate := s.Bucket(pool, mint, domain.DayIndex(s.now()))
	return rate.Quo(rate, big.NewInt(domain.SecondsPerDay))
}

// AmountOverWindow integrates the stream for (pool, mint) over [t0, t1).
// t1 is clamped to t0 + MaxWindowDays. Whole days inside the window are
// summed directly with no division; partial day slices are proportional with
// truncating division. Missing buckets contribute zero.
func (s *Scheduler) AmountOverWindow(pool, mint string, t0, t1 int64) *big.Int {
	total := new(big.Int)
	if t1 <= t0 {
		return total
	}
	if max := t0 + MaxWindowDays*domain.SecondsPerDay; t1 > max {
		t1 = max
	}

	d0 := domain.DayIndex(t0)
	d1 := domain.DayIndex(t1)

	if d0 == d1 {
		return s.slice(pool, mint, d0, t1-t0)
	}

	// Opening partial day.
	total.Add(total, s.slice(pool, mint, d0, domain.DayStart(d0+1)-t0))
	// Fully contained whole days.
	for d := d0 + 1; d < d1; d++ {
		total.Add(total, s.Bucket(pool, mint, d))
	}
	// Closing partial day.
	total.Add(total, s.slice(pool, mint, d1, t1-domain.DayStart(d1)))
	return total
}

// slice returns bucket * seconds / 86400, truncated toward zero.
func (s *Scheduler) slice(pool, mint string, day, seconds int64) *big.Int {
	if seconds <= 0 {
		return new(big.Int)
	}
	v := s.Bucket(pool, mint, day)
	v.Mul(v, big.NewInt(seconds))
	return v.Quo(v, big.NewInt(domain.SecondsPerDay))
}
