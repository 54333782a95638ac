// Code generated by ent, DO NOT EDIT.

package ent

import (
	"time"

	"github.com/voxpipe/voxpipe/ent/job"
	"github.com/voxpipe/voxpipe/ent/schema"
	"github.com/voxpipe/voxpipe/ent/stageresult"
)

// The init function reads all schema descriptors with runtime code
// (default values, validators, hooks and policies) and stitches it
// to their package variables.
func init() {
	jobFields := schema.Job{}.Fields()
	_ = jobFields
	// jobDescPriority is the schema descriptor for priority field.
	jobDescPriority := jobFields[5].Descriptor()
	// job.DefaultPriority holds the default value on creation for the priority field.
	job.DefaultPriority = jobDescPriority.Default.(int)
	// job.PriorityValidator is a validator for the "priority" field. It is called by the builders before save.
	job.PriorityValidator = func() func(int) error {
		validators := jobDescPriority.Validators
		fns := [...]func(int) error{
			validators[0].(func(int) error),
			validators[1].(func(int) error),
		}
		return func(priority int) error {
			for _, fn := range fns {
				if err := fn(priority); err != nil {
					return err
				}
			}
			return nil
		}
	}()
	// jobDescCostEstimate is the schema descriptor for cost_estimate field.
	jobDescCostEstimate := jobFields[6].Descriptor()
	// job.DefaultCostEstimate holds the default value on creation for the cost_estimate field.
	job.DefaultCostEstimate = jobDescCostEstimate.Default.(float64)
	// jobDescCreatedAt is the schema descriptor for created_at field.
	jobDescCreatedAt := jobFields[8].Descriptor()
	// job.DefaultCreatedAt holds the default value on creation for the created_at field.
	job.DefaultCreatedAt = jobDescCreatedAt.Default.(func() time.Time)
	stageresultFields := schema.StageResult{}.Fields()
	_ = stageresultFields
	// stageresultDescInputTokens is the schema descriptor for input_tokens field.
	stageresultDescInputTokens := stageresultFields[7].Descriptor()
	// stageresult.DefaultInputTokens holds the default value on creation for the input_tokens field.
	stageresult.DefaultInputTokens = stageresultDescInputTokens.Default.(int)
	// stageresultDescOutputTokens is the schema descriptor for output_tokens field.
	stageresultDescOutputTokens := stageresultFields[8].Descriptor()
	// stageresult.DefaultOutputTokens holds the default value on creation for the output_tokens field.
	stageresult.DefaultOutputTokens = stageresultDescOutputTokens.Default.(int)
	// stageresultDescCostEstimate is the schema descriptor for cost_estimate field.
	stageresultDescCostEstimate := stageresultFields[9].Descriptor()
	// stageresult.DefaultCostEstimate holds the default value on creation for the cost_estimate field.
	stageresult.DefaultCostEstimate = stageresultDescCostEstimate.Default.(float64)
}
