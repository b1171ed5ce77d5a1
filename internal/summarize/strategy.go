package summarize

import "fmt"

// StrategyKind selects the summarization prompt
type StrategyKind string

// Strategy kinds
const (
	KindSynopsis   StrategyKind = "synopsis"
	KindSelectOne  StrategyKind = "select_one"
	KindSelectMany StrategyKind = "select_many"
)

// Strategy tells the backend what kind of summary to produce.
// Count is only meaningful for KindSelectMany.
type Strategy struct {
	Kind  StrategyKind
	Count int
}

// Synopsis summarizes the feedback about one nominee
func Synopsis() Strategy { return Strategy{Kind: KindSynopsis} }

// SelectOne compares all nominees for a single-seat position
func SelectOne() Strategy { return Strategy{Kind: KindSelectOne} }

// SelectMany compares all nominees for a position filling count seats
func SelectMany(count int) Strategy { return Strategy{Kind: KindSelectMany, Count: count} }

// ForPosition picks the strategy for a position from the configured seat counts
func ForPosition(shortName string, selectCounts map[string]int) Strategy {
	if n := selectCounts[shortName]; n > 1 {
		return SelectMany(n)
	}
	return SelectOne()
}

func (s Strategy) String() string {
	if s.Kind == KindSelectMany {
		return fmt.Sprintf("%s(%d)", s.Kind, s.Count)
	}
	return string(s.Kind)
}
