// Code generated by ent, DO NOT EDIT.

package migrate

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

var (
	// JobsColumns holds the columns for the "jobs" table.
	JobsColumns = []*schema.Column{
		{Name: "job_id", Type: field.TypeString, Unique: true},
		{Name: "profile_id", Type: field.TypeString},
		{Name: "source_path", Type: field.TypeString},
		{Name: "status", Type: field.TypeEnum, Enums: []string{"queued", "processing", "complete", "failed", "cancelled"}, Default: "queued"},
		{Name: "current_stage", Type: field.TypeString, Nullable: true},
		{Name: "priority", Type: field.TypeInt, Default: 5},
		{Name: "cost_estimate", Type: field.TypeFloat64, Default: 0},
		{Name: "error", Type: field.TypeString, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "completed_at", Type: field.TypeTime, Nullable: true},
		{Name: "worker_id", Type: field.TypeString, Nullable: true},
		{Name: "last_heartbeat_at", Type: field.TypeTime, Nullable: true},
	}
	// JobsTable holds the schema information for the "jobs" table.
	JobsTable = &schema.Table{
		Name:       "jobs",
		Columns:    JobsColumns,
		PrimaryKey: []*schema.Column{JobsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "job_status",
				Unique:  false,
				Columns: []*schema.Column{JobsColumns[3]},
			},
			{
				Name:    "job_profile_id",
				Unique:  false,
				Columns: []*schema.Column{JobsColumns[1]},
			},
			{
				Name:    "job_status_priority_created_at",
				Unique:  false,
				Columns: []*schema.Column{JobsColumns[3], JobsColumns[5], JobsColumns[8]},
			},
			{
				Name:    "job_status_last_heartbeat_at",
				Unique:  false,
				Columns: []*schema.Column{JobsColumns[3], JobsColumns[11]},
			},
		},
	}
	// StageResultsColumns holds the columns for the "stage_results" table.
	StageResultsColumns = []*schema.Column{
		{Name: "stage_result_id", Type: field.TypeString, Unique: true},
		{Name: "stage_id", Type: field.TypeString},
		{Name: "status", Type: field.TypeEnum, Enums: []string{"pending", "running", "complete", "failed"}, Default: "pending"},
		{Name: "started_at", Type: field.TypeTime, Nullable: true},
		{Name: "completed_at", Type: field.TypeTime, Nullable: true},
		{Name: "model_used", Type: field.TypeString, Nullable: true},
		{Name: "input_tokens", Type: field.TypeInt, Default: 0},
		{Name: "output_tokens", Type: field.TypeInt, Default: 0},
		{Name: "cost_estimate", Type: field.TypeFloat64, Default: 0},
		{Name: "output_path", Type: field.TypeString, Nullable: true},
		{Name: "error", Type: field.TypeString, Nullable: true},
		{Name: "job_id", Type: field.TypeString},
	}
	// StageResultsTable holds the schema information for the "stage_results" table.
	StageResultsTable = &schema.Table{
		Name:       "stage_results",
		Columns:    StageResultsColumns,
		PrimaryKey: []*schema.Column{StageResultsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "stage_results_jobs_stage_results",
				Columns:    []*schema.Column{StageResultsColumns[11]},
				RefColumns: []*schema.Column{JobsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "stageresult_job_id_stage_id",
				Unique:  true,
				Columns: []*schema.Column{StageResultsColumns[11], StageResultsColumns[1]},
			},
			{
				Name:    "stageresult_status",
				Unique:  false,
				Columns: []*schema.Column{StageResultsColumns[2]},
			},
		},
	}
	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		JobsTable,
		StageResultsTable,
	}
)

func init() {
	StageResultsTable.ForeignKeys[0].RefTable = JobsTable
}
