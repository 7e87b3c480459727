package pipeline

import (
	"go.uber.org/zap"

	"github.com/cat-astrophic/cincinnati-fc/internal/clean"
	"github.com/cat-astrophic/cincinnati-fc/internal/cpi"
	"github.com/cat-astrophic/cincinnati-fc/internal/model"
)

// Real price counters.
const (
	CounterIncomplete    = "incomplete"
	CounterMonthFallback = "month_fallback"
	CounterMonthMissing  = "month_missing"
)

// ApplyRealPrices drops rows with any null, then writes Real Price =
// Price × CPI ratio of the transfer month. A month absent from the ratio
// table uses the latest earlier month; a month before the table, or an
// unreadable date or price, leaves Real Price null.
func ApplyRealPrices(t *model.Table, ratios *cpi.Ratios, res *model.StageResult) *model.Table {
	out := t.Filter(t.IsComplete)
	if dropped := t.Len() - out.Len(); dropped > 0 {
		res.Add(CounterIncomplete, dropped)
	}
	out.EnsureColumn(model.ColRealPrice)

	log := zap.L().With(zap.String("stage", string(model.StageRealPrice)))
	warned := make(map[clean.Month]bool)

	for i := range out.Len() {
		price, ok := out.Float(i, model.ColPrice)
		if !ok {
			res.Inc(CounterPriceInvalid)
			continue
		}
		m, err := clean.ParseMonth(out.Get(i, model.ColTransferDate))
		if err != nil {
			res.Inc(CounterMonthMissing)
			continue
		}
		ratio, used, err := ratios.Lookup(m)
		if err != nil {
			if !warned[m] {
				log.Warn("pipeline: no CPI ratio for month", zap.Stringer("month", m))
				warned[m] = true
			}
			res.Inc(CounterMonthMissing)
			continue
		}
		if used != m {
			if !warned[m] {
				log.Warn("pipeline: CPI month missing, using earlier month",
					zap.Stringer("month", m),
					zap.Stringer("used", used),
				)
				warned[m] = true
			}
			res.Inc(CounterMonthFallback)
		}
		out.SetFloat(i, model.ColRealPrice, price*ratio)
	}
	return out
}
