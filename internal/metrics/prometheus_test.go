package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordStageRecords(t *testing.T) {
	before := testutil.ToFloat64(StageRecordsTotal.WithLabelValues("test_stage", "written"))

	RecordStageRecords("test_stage", 5, 1, 4)

	assert.Equal(t, before+4, testutil.ToFloat64(StageRecordsTotal.WithLabelValues("test_stage", "written")))
	assert.Equal(t, float64(1), testutil.ToFloat64(StageRecordsTotal.WithLabelValues("test_stage", "skipped")))
}

func TestRecordSync_SetsLastSuccessOnlyOnSuccess(t *testing.T) {
	LastSuccessfulSync.Set(0)

	RecordSync("test_stage", "failed", 1.5)
	assert.Equal(t, float64(0), testutil.ToFloat64(LastSuccessfulSync))

	RecordSync("test_stage", "succeeded", 1.5)
	assert.Greater(t, testutil.ToFloat64(LastSuccessfulSync), float64(0))
}
