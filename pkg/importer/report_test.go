package importer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportBuilder_Counts(t *testing.T) {
	b := NewReportBuilder()
	b.Created()
	b.Created()
	b.Updated()
	b.Skipped()
	b.Errored(5, "name is required")

	result := b.Result()
	assert.Equal(t, 5, result.TotalProcessed)
	assert.Equal(t, 3, result.SuccessCount)
	assert.Equal(t, 1, result.ErrorCount)
	assert.Equal(t, 1, result.SkippedCount)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 5, result.Errors[0].Row)
}

func TestReportBuilder_ErrorsOrderedByRow(t *testing.T) {
	b := NewReportBuilder()
	b.Errored(7, "bad")
	b.Errored(2, "bad")
	b.Errored(4, "bad")

	result := b.Result()
	require.Len(t, result.Errors, 3)
	assert.Equal(t, 2, result.Errors[0].Row)
	assert.Equal(t, 4, result.Errors[1].Row)
	assert.Equal(t, 7, result.Errors[2].Row)
}

func TestReportBuilder_ErrorDetailCapped(t *testing.T) {
	b := NewReportBuilder()
	for i := 1; i <= 25; i++ {
		b.Errored(i, fmt.Sprintf("row %d failed", i))
	}

	result := b.Result()
	assert.Equal(t, 25, result.ErrorCount)
	require.Len(t, result.Errors, MaxErrorDetails)
	assert.Equal(t, 1, result.Errors[0].Row)
	assert.Equal(t, MaxErrorDetails, result.Errors[len(result.Errors)-1].Row)
}

func TestReportBuilder_EmptyResult(t *testing.T) {
	result := NewReportBuilder().Result()
	assert.Equal(t, 0, result.TotalProcessed)
	assert.Equal(t, 0, result.SuccessCount)
	assert.Equal(t, 0, result.ErrorCount)
	assert.Equal(t, 0, result.SkippedCount)
	assert.Empty(t, result.Errors)
}
