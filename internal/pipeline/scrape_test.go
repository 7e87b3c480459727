package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cat-astrophic/cincinnati-fc/internal/model"
	"github.com/cat-astrophic/cincinnati-fc/internal/resilience"
)

func TestScrapeAttributes(t *testing.T) {
	src := &stubAuditor{
		attrs: fullAttributes(),
		errs: map[string]error{
			"002": errors.New("download: unexpected status 404"),
			"003": eris.Wrap(resilience.ErrCircuitOpen, "auditor: fetch parcel 003"),
		},
	}
	tbl := tableOf([]string{model.ColParcel},
		[]string{"001"}, []string{"002"}, []string{"003"}, []string{"004"})
	var res model.StageResult

	require.NoError(t, ScrapeAttributes(context.Background(), src, tbl, 3, 1, &res))

	assert.Len(t, src.called, 4)
	for _, row := range []int{0, 3} {
		assert.Equal(t, "CINCINNATI CSD", tbl.Get(row, model.ColSchoolDistrict))
		assert.Equal(t, "WD", tbl.Get(row, model.ColDeedType))
		assert.Equal(t, "0.15", tbl.Get(row, model.ColAcreage))
		assert.Equal(t, "Yes", tbl.Get(row, model.ColOwnerResidence))
		assert.Equal(t, "No", tbl.Get(row, model.ColForeclosure))
	}
	for _, row := range []int{1, 2} {
		for _, c := range model.AuditorColumns {
			assert.True(t, tbl.IsNull(row, c), c)
		}
	}
	assert.Equal(t, 1, res.Counters[CounterScrapeFailed])
	assert.Equal(t, 1, res.Counters[CounterScrapeCircuitOpen])
}

func TestScrapeAttributes_PartialPage(t *testing.T) {
	src := &stubAuditor{}
	src.attrs.DeedType = "QC"
	tbl := tableOf([]string{model.ColParcel}, []string{"001"})
	var res model.StageResult

	require.NoError(t, ScrapeAttributes(context.Background(), src, tbl, 1, 0, &res))
	assert.Equal(t, "QC", tbl.Get(0, model.ColDeedType))
	assert.True(t, tbl.IsNull(0, model.ColAcreage))
	assert.True(t, tbl.IsNull(0, model.ColSchoolDistrict))
	assert.Zero(t, res.Counters[CounterScrapeEmpty])
}

func TestScrapeAttributes_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tbl := tableOf([]string{model.ColParcel}, []string{"001"})
	var res model.StageResult
	err := ScrapeAttributes(ctx, &stubAuditor{}, tbl, 2, 0, &res)
	assert.ErrorIs(t, err, context.Canceled)
}
