package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/voxpipe/voxpipe/ent"
	"github.com/voxpipe/voxpipe/ent/job"
	"github.com/voxpipe/voxpipe/ent/stageresult"
)

// StageService manages per-stage result rows. Rows are keyed by
// (job_id, stage_id); re-entering a stage updates the existing row in place,
// which is what makes retry-after-crash resume work.
type StageService struct {
	client *ent.Client
}

// NewStageService creates a new StageService.
func NewStageService(client *ent.Client) *StageService {
	if client == nil {
		panic("NewStageService: client must not be nil")
	}
	return &StageService{client: client}
}

// StageUpdate carries the fields the runner records when a stage starts,
// finishes, or fails.
type StageUpdate struct {
	Status       stageresult.Status
	ModelUsed    string
	InputTokens  int
	OutputTokens int
	CostEstimate float64
	OutputPath   string
	Error        string
}

// GetStage fetches the result row for one stage of a job.
func (s *StageService) GetStage(ctx context.Context, jobID, stageID string) (*ent.StageResult, error) {
	sr, err := s.client.StageResult.Query().
		Where(
			stageresult.JobIDEQ(jobID),
			stageresult.StageIDEQ(stageID),
		).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get stage result: %w", err)
	}
	return sr, nil
}

// ListStages returns the stage rows for a job in execution order.
func (s *StageService) ListStages(ctx context.Context, jobID string) ([]*ent.StageResult, error) {
	stages, err := s.client.StageResult.Query().
		Where(stageresult.JobIDEQ(jobID)).
		Order(ent.Asc(stageresult.FieldStartedAt)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stage results: %w", err)
	}
	return stages, nil
}

// UpsertStage records a stage transition. The row is created on first use and
// updated thereafter; Job.current_stage moves in the same transaction, and on
// completion the parent job's cost_estimate is recomputed as the sum over its
// COMPLETE stages so a retried stage replaces its own prior cost instead of
// stacking on it.
func (s *StageService) UpsertStage(ctx context.Context, jobID, stageID string, update StageUpdate) (sr *ent.StageResult, err error) {
	if err := stageresult.StatusValidator(update.Status); err != nil {
		return nil, NewValidationError("status", "unknown status "+string(update.Status))
	}

	tx, err := s.client.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	sr, err = s.upsertInTx(ctx, tx, jobID, stageID, update)
	if err != nil {
		return nil, err
	}

	jobUpdate := tx.Job.Update().
		Where(job.IDEQ(jobID)).
		SetCurrentStage(stageID)
	if update.Status == stageresult.StatusComplete {
		total, sumErr := sumCompleteCosts(ctx, tx, jobID)
		if sumErr != nil {
			err = sumErr
			return nil, err
		}
		jobUpdate = jobUpdate.SetCostEstimate(total)
	}
	if _, err = jobUpdate.Save(ctx); err != nil {
		err = fmt.Errorf("failed to update job stage: %w", err)
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("failed to commit stage update: %w", err)
		return nil, err
	}
	return sr, nil
}

func (s *StageService) upsertInTx(ctx context.Context, tx *ent.Tx, jobID, stageID string, update StageUpdate) (*ent.StageResult, error) {
	existing, err := tx.StageResult.Query().
		Where(
			stageresult.JobIDEQ(jobID),
			stageresult.StageIDEQ(stageID),
		).
		Only(ctx)
	if err != nil && !ent.IsNotFound(err) {
		return nil, fmt.Errorf("failed to query stage result: %w", err)
	}

	now := time.Now()
	terminal := update.Status == stageresult.StatusComplete || update.Status == stageresult.StatusFailed

	if existing == nil {
		create := tx.StageResult.Create().
			SetID(uuid.New().String()).
			SetJobID(jobID).
			SetStageID(stageID).
			SetStatus(update.Status).
			SetInputTokens(update.InputTokens).
			SetOutputTokens(update.OutputTokens).
			SetCostEstimate(update.CostEstimate)
		if update.Status != stageresult.StatusPending {
			create = create.SetStartedAt(now)
		}
		if terminal {
			create = create.SetCompletedAt(now)
		}
		if update.ModelUsed != "" {
			create = create.SetModelUsed(update.ModelUsed)
		}
		if update.OutputPath != "" {
			create = create.SetOutputPath(update.OutputPath)
		}
		if update.Error != "" {
			create = create.SetError(update.Error)
		}
		sr, err := create.Save(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create stage result: %w", err)
		}
		return sr, nil
	}

	upd := existing.Update().SetStatus(update.Status)
	if update.Status == stageresult.StatusRunning {
		// a retried stage restarts its clock and sheds the old failure
		upd = upd.SetStartedAt(now).ClearCompletedAt().ClearError()
	}
	if terminal {
		upd = upd.SetCompletedAt(now).
			SetInputTokens(update.InputTokens).
			SetOutputTokens(update.OutputTokens).
			SetCostEstimate(update.CostEstimate)
	}
	if update.ModelUsed != "" {
		upd = upd.SetModelUsed(update.ModelUsed)
	}
	if update.OutputPath != "" {
		upd = upd.SetOutputPath(update.OutputPath)
	}
	if update.Error != "" {
		upd = upd.SetError(update.Error)
	}
	sr, err := upd.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update stage result: %w", err)
	}
	return sr, nil
}

func sumCompleteCosts(ctx context.Context, tx *ent.Tx, jobID string) (float64, error) {
	rows, err := tx.StageResult.Query().
		Where(
			stageresult.JobIDEQ(jobID),
			stageresult.StatusEQ(stageresult.StatusComplete),
		).
		All(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to sum stage costs: %w", err)
	}
	var total float64
	for _, r := range rows {
		total += r.CostEstimate
	}
	return total, nil
}
