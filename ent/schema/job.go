package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Job holds the schema definition for the Job entity.
// One row per submitted media file; mutated only by the worker, the intake
// path, and the cancellation path.
type Job struct {
	ent.Schema
}

// Fields of the Job.
func (Job) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("job_id").
			Unique().
			Immutable(),
		field.String("profile_id").
			Comment("Profile identifier or built-in note type (meeting, lecture, ...)"),
		field.String("source_path").
			Comment("Absolute path to the input media file"),
		field.Enum("status").
			Values("queued", "processing", "complete", "failed", "cancelled").
			Default("queued"),
		field.String("current_stage").
			Optional().
			Nillable().
			Comment("Stage name most recently entered; null until the first stage starts"),
		field.Int("priority").
			Default(5).
			Min(1).
			Max(10).
			Comment("Queue ordering, 1 = highest"),
		field.Float("cost_estimate").
			Default(0).
			Comment("Running sum of completed stage costs"),
		field.String("error").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("completed_at").
			Optional().
			Nillable().
			Comment("Set on terminal transition"),
		field.String("worker_id").
			Optional().
			Nillable().
			Comment("Worker that claimed the job"),
		field.Time("last_heartbeat_at").
			Optional().
			Nillable().
			Comment("For orphan detection"),
	}
}

// Edges of the Job.
func (Job) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("stage_results", StageResult.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the Job.
func (Job) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("status"),
		index.Fields("profile_id"),
		index.Fields("status", "priority", "created_at"),
		index.Fields("status", "last_heartbeat_at"),
	}
}
