package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// StageResult holds the schema definition for the StageResult entity.
// One row per (job, stage) the runner has touched; created lazily on first
// entry into a stage and never deleted while the parent Job exists.
type StageResult struct {
	ent.Schema
}

// Fields of the StageResult.
func (StageResult) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("stage_result_id").
			Unique().
			Immutable(),
		field.String("job_id").
			Immutable(),
		field.String("stage_id").
			Comment("Stage name from the profile, or a built-in: transcription, diarization, formatting, output"),
		field.Enum("status").
			Values("pending", "running", "complete", "failed").
			Default("pending"),
		field.Time("started_at").
			Optional().
			Nillable(),
		field.Time("completed_at").
			Optional().
			Nillable(),
		field.String("model_used").
			Optional().
			Nillable(),
		field.Int("input_tokens").
			Default(0),
		field.Int("output_tokens").
			Default(0),
		field.Float("cost_estimate").
			Default(0),
		field.String("output_path").
			Optional().
			Nillable().
			Comment("Durable artifact for resume; absent means the stage must re-execute"),
		field.String("error").
			Optional().
			Nillable(),
	}
}

// Edges of the StageResult.
func (StageResult) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("job", Job.Type).
			Ref("stage_results").
			Field("job_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the StageResult.
func (StageResult) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("job_id", "stage_id").
			Unique(),
		index.Fields("status"),
	}
}
