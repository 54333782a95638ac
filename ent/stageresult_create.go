// Code generated by ent, DO NOT EDIT.

package ent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect/sql/sqlgraph"
	"entgo.io/ent/schema/field"
	"github.com/voxpipe/voxpipe/ent/job"
	"github.com/voxpipe/voxpipe/ent/stageresult"
)

// StageResultCreate is the builder for creating a StageResult entity.
type StageResultCreate struct {
	config
	mutation *StageResultMutation
	hooks    []Hook
}

// SetJobID sets the "job_id" field.
func (_c *StageResultCreate) SetJobID(v string) *StageResultCreate {
	_c.mutation.SetJobID(v)
	return _c
}

// SetStageID sets the "stage_id" field.
func (_c *StageResultCreate) SetStageID(v string) *StageResultCreate {
	_c.mutation.SetStageID(v)
	return _c
}

// SetStatus sets the "status" field.
func (_c *StageResultCreate) SetStatus(v stageresult.Status) *StageResultCreate {
	_c.mutation.SetStatus(v)
	return _c
}

// SetNillableStatus sets the "status" field if the given value is not nil.
func (_c *StageResultCreate) SetNillableStatus(v *stageresult.Status) *StageResultCreate {
	if v != nil {
		_c.SetStatus(*v)
	}
	return _c
}

// SetStartedAt sets the "started_at" field.
func (_c *StageResultCreate) SetStartedAt(v time.Time) *StageResultCreate {
	_c.mutation.SetStartedAt(v)
	return _c
}

// SetNillableStartedAt sets the "started_at" field if the given value is not nil.
func (_c *StageResultCreate) SetNillableStartedAt(v *time.Time) *StageResultCreate {
	if v != nil {
		_c.SetStartedAt(*v)
	}
	return _c
}

// SetCompletedAt sets the "completed_at" field.
func (_c *StageResultCreate) SetCompletedAt(v time.Time) *StageResultCreate {
	_c.mutation.SetCompletedAt(v)
	return _c
}

// SetNillableCompletedAt sets the "completed_at" field if the given value is not nil.
func (_c *StageResultCreate) SetNillableCompletedAt(v *time.Time) *StageResultCreate {
	if v != nil {
		_c.SetCompletedAt(*v)
	}
	return _c
}

// SetModelUsed sets the "model_used" field.
func (_c *StageResultCreate) SetModelUsed(v string) *StageResultCreate {
	_c.mutation.SetModelUsed(v)
	return _c
}

// SetNillableModelUsed sets the "model_used" field if the given value is not nil.
func (_c *StageResultCreate) SetNillableModelUsed(v *string) *StageResultCreate {
	if v != nil {
		_c.SetModelUsed(*v)
	}
	return _c
}

// SetInputTokens sets the "input_tokens" field.
func (_c *StageResultCreate) SetInputTokens(v int) *StageResultCreate {
	_c.mutation.SetInputTokens(v)
	return _c
}

// SetNillableInputTokens sets the "input_tokens" field if the given value is not nil.
func (_c *StageResultCreate) SetNillableInputTokens(v *int) *StageResultCreate {
	if v != nil {
		_c.SetInputTokens(*v)
	}
	return _c
}

// SetOutputTokens sets the "output_tokens" field.
func (_c *StageResultCreate) SetOutputTokens(v int) *StageResultCreate {
	_c.mutation.SetOutputTokens(v)
	return _c
}

// SetNillableOutputTokens sets the "output_tokens" field if the given value is not nil.
func (_c *StageResultCreate) SetNillableOutputTokens(v *int) *StageResultCreate {
	if v != nil {
		_c.SetOutputTokens(*v)
	}
	return _c
}

// SetCostEstimate sets the "cost_estimate" field.
func (_c *StageResultCreate) SetCostEstimate(v float64) *StageResultCreate {
	_c.mutation.SetCostEstimate(v)
	return _c
}

// SetNillableCostEstimate sets the "cost_estimate" field if the given value is not nil.
func (_c *StageResultCreate) SetNillableCostEstimate(v *float64) *StageResultCreate {
	if v != nil {
		_c.SetCostEstimate(*v)
	}
	return _c
}

// SetOutputPath sets the "output_path" field.
func (_c *StageResultCreate) SetOutputPath(v string) *StageResultCreate {
	_c.mutation.SetOutputPath(v)
	return _c
}

// SetNillableOutputPath sets the "output_path" field if the given value is not nil.
func (_c *StageResultCreate) SetNillableOutputPath(v *string) *StageResultCreate {
	if v != nil {
		_c.SetOutputPath(*v)
	}
	return _c
}

// SetError sets the "error" field.
func (_c *StageResultCreate) SetError(v string) *StageResultCreate {
	_c.mutation.SetError(v)
	return _c
}

// SetNillableError sets the "error" field if the given value is not nil.
func (_c *StageResultCreate) SetNillableError(v *string) *StageResultCreate {
	if v != nil {
		_c.SetError(*v)
	}
	return _c
}

// SetID sets the "id" field.
func (_c *StageResultCreate) SetID(v string) *StageResultCreate {
	_c.mutation.SetID(v)
	return _c
}

// SetJob sets the "job" edge to the Job entity.
func (_c *StageResultCreate) SetJob(v *Job) *StageResultCreate {
	return _c.SetJobID(v.ID)
}

// Mutation returns the StageResultMutation object of the builder.
func (_c *StageResultCreate) Mutation() *StageResultMutation {
	return _c.mutation
}

// Save creates the StageResult in the database.
func (_c *StageResultCreate) Save(ctx context.Context) (*StageResult, error) {
	_c.defaults()
	return withHooks(ctx, _c.sqlSave, _c.mutation, _c.hooks)
}

// SaveX calls Save and panics if Save returns an error.
func (_c *StageResultCreate) SaveX(ctx context.Context) *StageResult {
	v, err := _c.Save(ctx)
	if err != nil {
		panic(err)
	}
	return v
}

// Exec executes the query.
func (_c *StageResultCreate) Exec(ctx context.Context) error {
	_, err := _c.Save(ctx)
	return err
}

// ExecX is like Exec, but panics if an error occurs.
func (_c *StageResultCreate) ExecX(ctx context.Context) {
	if err := _c.Exec(ctx); err != nil {
		panic(err)
	}
}

// defaults sets the default values of the builder before save.
func (_c *StageResultCreate) defaults() {
	if _, ok := _c.mutation.Status(); !ok {
		v := stageresult.DefaultStatus
		_c.mutation.SetStatus(v)
	}
	if _, ok := _c.mutation.InputTokens(); !ok {
		v := stageresult.DefaultInputTokens
		_c.mutation.SetInputTokens(v)
	}
	if _, ok := _c.mutation.OutputTokens(); !ok {
		v := stageresult.DefaultOutputTokens
		_c.mutation.SetOutputTokens(v)
	}
	if _, ok := _c.mutation.CostEstimate(); !ok {
		v := stageresult.DefaultCostEstimate
		_c.mutation.SetCostEstimate(v)
	}
}

// check runs all checks and user-defined validators on the builder.
func (_c *StageResultCreate) check() error {
	if _, ok := _c.mutation.JobID(); !ok {
		return &ValidationError{Name: "job_id", err: errors.New(`ent: missing required field "StageResult.job_id"`)}
	}
	if _, ok := _c.mutation.StageID(); !ok {
		return &ValidationError{Name: "stage_id", err: errors.New(`ent: missing required field "StageResult.stage_id"`)}
	}
	if _, ok := _c.mutation.Status(); !ok {
		return &ValidationError{Name: "status", err: errors.New(`ent: missing required field "StageResult.status"`)}
	}
	if v, ok := _c.mutation.Status(); ok {
		if err := stageresult.StatusValidator(v); err != nil {
			return &ValidationError{Name: "status", err: fmt.Errorf(`ent: validator failed for field "StageResult.status": %w`, err)}
		}
	}
	if _, ok := _c.mutation.InputTokens(); !ok {
		return &ValidationError{Name: "input_tokens", err: errors.New(`ent: missing required field "StageResult.input_tokens"`)}
	}
	if _, ok := _c.mutation.OutputTokens(); !ok {
		return &ValidationError{Name: "output_tokens", err: errors.New(`ent: missing required field "StageResult.output_tokens"`)}
	}
	if _, ok := _c.mutation.CostEstimate(); !ok {
		return &ValidationError{Name: "cost_estimate", err: errors.New(`ent: missing required field "StageResult.cost_estimate"`)}
	}
	if len(_c.mutation.JobIDs()) == 0 {
		return &ValidationError{Name: "job", err: errors.New(`ent: missing required edge "StageResult.job"`)}
	}
	return nil
}

func (_c *StageResultCreate) sqlSave(ctx context.Context) (*StageResult, error) {
	if err := _c.check(); err != nil {
		return nil, err
	}
	_node, _spec := _c.createSpec()
	if err := sqlgraph.CreateNode(ctx, _c.driver, _spec); err != nil {
		if sqlgraph.IsConstraintError(err) {
			err = &ConstraintError{msg: err.Error(), wrap: err}
		}
		return nil, err
	}
	if _spec.ID.Value != nil {
		if id, ok := _spec.ID.Value.(string); ok {
			_node.ID = id
		} else {
			return nil, fmt.Errorf("unexpected StageResult.ID type: %T", _spec.ID.Value)
		}
	}
	_c.mutation.id = &_node.ID
	_c.mutation.done = true
	return _node, nil
}

func (_c *StageResultCreate) createSpec() (*StageResult, *sqlgraph.CreateSpec) {
	var (
		_node = &StageResult{config: _c.config}
		_spec = sqlgraph.NewCreateSpec(stageresult.Table, sqlgraph.NewFieldSpec(stageresult.FieldID, field.TypeString))
	)
	if id, ok := _c.mutation.ID(); ok {
		_node.ID = id
		_spec.ID.Value = id
	}
	if value, ok := _c.mutation.StageID(); ok {
		_spec.SetField(stageresult.FieldStageID, field.TypeString, value)
		_node.StageID = value
	}
	if value, ok := _c.mutation.Status(); ok {
		_spec.SetField(stageresult.FieldStatus, field.TypeEnum, value)
		_node.Status = value
	}
	if value, ok := _c.mutation.StartedAt(); ok {
		_spec.SetField(stageresult.FieldStartedAt, field.TypeTime, value)
		_node.StartedAt = &value
	}
	if value, ok := _c.mutation.CompletedAt(); ok {
		_spec.SetField(stageresult.FieldCompletedAt, field.TypeTime, value)
		_node.CompletedAt = &value
	}
	if value, ok := _c.mutation.ModelUsed(); ok {
		_spec.SetField(stageresult.FieldModelUsed, field.TypeString, value)
		_node.ModelUsed = &value
	}
	if value, ok := _c.mutation.InputTokens(); ok {
		_spec.SetField(stageresult.FieldInputTokens, field.TypeInt, value)
		_node.InputTokens = value
	}
	if value, ok := _c.mutation.OutputTokens(); ok {
		_spec.SetField(stageresult.FieldOutputTokens, field.TypeInt, value)
		_node.OutputTokens = value
	}
	if value, ok := _c.mutation.CostEstimate(); ok {
		_spec.SetField(stageresult.FieldCostEstimate, field.TypeFloat64, value)
		_node.CostEstimate = value
	}
	if value, ok := _c.mutation.OutputPath(); ok {
		_spec.SetField(stageresult.FieldOutputPath, field.TypeString, value)
		_node.OutputPath = &value
	}
	if value, ok := _c.mutation.Error(); ok {
		_spec.SetField(stageresult.FieldError, field.TypeString, value)
		_node.Error = &value
	}
	if nodes := _c.mutation.JobIDs(); len(nodes) > 0 {
		edge := &sqlgraph.EdgeSpec{
			Rel:     sqlgraph.M2O,
			Inverse: true,
			Table:   stageresult.JobTable,
			Columns: []string{stageresult.JobColumn},
			Bidi:    false,
			Target: &sqlgraph.EdgeTarget{
				IDSpec: sqlgraph.NewFieldSpec(job.FieldID, field.TypeString),
			},
		}
		for _, k := range nodes {
			edge.Target.Nodes = append(edge.Target.Nodes, k)
		}
		_node.JobID = nodes[0]
		_spec.Edges = append(_spec.Edges, edge)
	}
	return _node, _spec
}

// StageResultCreateBulk is the builder for creating many StageResult entities in bulk.
type StageResultCreateBulk struct {
	config
	err      error
	builders []*StageResultCreate
}

// Save creates the StageResult entities in the database.
func (_c *StageResultCreateBulk) Save(ctx context.Context) ([]*StageResult, error) {
	if _c.err != nil {
		return nil, _c.err
	}
	specs := make([]*sqlgraph.CreateSpec, len(_c.builders))
	nodes := make([]*StageResult, len(_c.builders))
	mutators := make([]Mutator, len(_c.builders))
	for i := range _c.builders {
		func(i int, root context.Context) {
			builder := _c.builders[i]
			builder.defaults()
			var mut Mutator = MutateFunc(func(ctx context.Context, m Mutation) (Value, error) {
				mutation, ok := m.(*StageResultMutation)
				if !ok {
					return nil, fmt.Errorf("unexpected mutation type %T", m)
				}
				if err := builder.check(); err != nil {
					return nil, err
				}
				builder.mutation = mutation
				var err error
				nodes[i], specs[i] = builder.createSpec()
				if i < len(mutators)-1 {
					_, err = mutators[i+1].Mutate(root, _c.builders[i+1].mutation)
				} else {
					spec := &sqlgraph.BatchCreateSpec{Nodes: specs}
					// Invoke the actual operation on the latest mutation in the chain.
					if err = sqlgraph.BatchCreate(ctx, _c.driver, spec); err != nil {
						if sqlgraph.IsConstraintError(err) {
							err = &ConstraintError{msg: err.Error(), wrap: err}
						}
					}
				}
				if err != nil {
					return nil, err
				}
				mutation.id = &nodes[i].ID
				mutation.done = true
				return nodes[i], nil
			})
			for i := len(builder.hooks) - 1; i >= 0; i-- {
				mut = builder.hooks[i](mut)
			}
			mutators[i] = mut
		}(i, ctx)
	}
	if len(mutators) > 0 {
		if _, err := mutators[0].Mutate(ctx, _c.builders[0].mutation); err != nil {
			return nil, err
		}
	}
	return nodes, nil
}

// SaveX is like Save, but panics if an error occurs.
func (_c *StageResultCreateBulk) SaveX(ctx context.Context) []*StageResult {
	v, err := _c.Save(ctx)
	if err != nil {
		panic(err)
	}
	return v
}

// Exec executes the query.
func (_c *StageResultCreateBulk) Exec(ctx context.Context) error {
	_, err := _c.Save(ctx)
	return err
}

// ExecX is like Exec, but panics if an error occurs.
func (_c *StageResultCreateBulk) ExecX(ctx context.Context) {
	if err := _c.Exec(ctx); err != nil {
		panic(err)
	}
}
