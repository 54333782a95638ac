package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voxpipe/voxpipe/ent/job"
	"github.com/voxpipe/voxpipe/ent/stageresult"
)

// Validation runs before any query, so these exercise the services without a
// database behind them.

func TestEnqueueValidation(t *testing.T) {
	svc := &JobService{}

	_, err := svc.Enqueue(context.Background(), EnqueueInput{SourcePath: "/in/a.mp3"})
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "profile_id")

	_, err = svc.Enqueue(context.Background(), EnqueueInput{ProfileID: "meeting"})
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "source_path")
}

func TestFinalizeJobRejectsNonTerminalStatus(t *testing.T) {
	svc := &JobService{}

	err := svc.FinalizeJob(context.Background(), "j1", job.StatusProcessing, "")
	assert.True(t, IsValidationError(err))

	err = svc.FinalizeJob(context.Background(), "j1", job.StatusQueued, "")
	assert.True(t, IsValidationError(err))
}

func TestUpsertStageRejectsUnknownStatus(t *testing.T) {
	svc := &StageService{}

	_, err := svc.UpsertStage(context.Background(), "j1", "asr", StageUpdate{Status: stageresult.Status("bogus")})
	assert.True(t, IsValidationError(err))
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("priority", "must be between 1 and 10")
	assert.True(t, IsValidationError(err))
	assert.Equal(t, "validation error on field 'priority': must be between 1 and 10", err.Error())

	assert.False(t, IsValidationError(ErrNotFound))
	assert.False(t, IsValidationError(nil))
}
