// Code generated by ent, DO NOT EDIT.

package ent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/sqlgraph"
	"entgo.io/ent/schema/field"
	"github.com/voxpipe/voxpipe/ent/predicate"
	"github.com/voxpipe/voxpipe/ent/stageresult"
)

// StageResultUpdate is the builder for updating StageResult entities.
type StageResultUpdate struct {
	config
	hooks    []Hook
	mutation *StageResultMutation
}

// Where appends a list predicates to the StageResultUpdate builder.
func (_u *StageResultUpdate) Where(ps ...predicate.StageResult) *StageResultUpdate {
	_u.mutation.Where(ps...)
	return _u
}

// SetStageID sets the "stage_id" field.
func (_u *StageResultUpdate) SetStageID(v string) *StageResultUpdate {
	_u.mutation.SetStageID(v)
	return _u
}

// SetNillableStageID sets the "stage_id" field if the given value is not nil.
func (_u *StageResultUpdate) SetNillableStageID(v *string) *StageResultUpdate {
	if v != nil {
		_u.SetStageID(*v)
	}
	return _u
}

// SetStatus sets the "status" field.
func (_u *StageResultUpdate) SetStatus(v stageresult.Status) *StageResultUpdate {
	_u.mutation.SetStatus(v)
	return _u
}

// SetNillableStatus sets the "status" field if the given value is not nil.
func (_u *StageResultUpdate) SetNillableStatus(v *stageresult.Status) *StageResultUpdate {
	if v != nil {
		_u.SetStatus(*v)
	}
	return _u
}

// SetStartedAt sets the "started_at" field.
func (_u *StageResultUpdate) SetStartedAt(v time.Time) *StageResultUpdate {
	_u.mutation.SetStartedAt(v)
	return _u
}

// SetNillableStartedAt sets the "started_at" field if the given value is not nil.
func (_u *StageResultUpdate) SetNillableStartedAt(v *time.Time) *StageResultUpdate {
	if v != nil {
		_u.SetStartedAt(*v)
	}
	return _u
}

// ClearStartedAt clears the value of the "started_at" field.
func (_u *StageResultUpdate) ClearStartedAt() *StageResultUpdate {
	_u.mutation.ClearStartedAt()
	return _u
}

// SetCompletedAt sets the "completed_at" field.
func (_u *StageResultUpdate) SetCompletedAt(v time.Time) *StageResultUpdate {
	_u.mutation.SetCompletedAt(v)
	return _u
}

// SetNillableCompletedAt sets the "completed_at" field if the given value is not nil.
func (_u *StageResultUpdate) SetNillableCompletedAt(v *time.Time) *StageResultUpdate {
	if v != nil {
		_u.SetCompletedAt(*v)
	}
	return _u
}

// ClearCompletedAt clears the value of the "completed_at" field.
func (_u *StageResultUpdate) ClearCompletedAt() *StageResultUpdate {
	_u.mutation.ClearCompletedAt()
	return _u
}

// SetModelUsed sets the "model_used" field.
func (_u *StageResultUpdate) SetModelUsed(v string) *StageResultUpdate {
	_u.mutation.SetModelUsed(v)
	return _u
}

// SetNillableModelUsed sets the "model_used" field if the given value is not nil.
func (_u *StageResultUpdate) SetNillableModelUsed(v *string) *StageResultUpdate {
	if v != nil {
		_u.SetModelUsed(*v)
	}
	return _u
}

// ClearModelUsed clears the value of the "model_used" field.
func (_u *StageResultUpdate) ClearModelUsed() *StageResultUpdate {
	_u.mutation.ClearModelUsed()
	return _u
}

// SetInputTokens sets the "input_tokens" field.
func (_u *StageResultUpdate) SetInputTokens(v int) *StageResultUpdate {
	_u.mutation.ResetInputTokens()
	_u.mutation.SetInputTokens(v)
	return _u
}

// SetNillableInputTokens sets the "input_tokens" field if the given value is not nil.
func (_u *StageResultUpdate) SetNillableInputTokens(v *int) *StageResultUpdate {
	if v != nil {
		_u.SetInputTokens(*v)
	}
	return _u
}

// AddInputTokens adds value to the "input_tokens" field.
func (_u *StageResultUpdate) AddInputTokens(v int) *StageResultUpdate {
	_u.mutation.AddInputTokens(v)
	return _u
}

// SetOutputTokens sets the "output_tokens" field.
func (_u *StageResultUpdate) SetOutputTokens(v int) *StageResultUpdate {
	_u.mutation.ResetOutputTokens()
	_u.mutation.SetOutputTokens(v)
	return _u
}

// SetNillableOutputTokens sets the "output_tokens" field if the given value is not nil.
func (_u *StageResultUpdate) SetNillableOutputTokens(v *int) *StageResultUpdate {
	if v != nil {
		_u.SetOutputTokens(*v)
	}
	return _u
}

// AddOutputTokens adds value to the "output_tokens" field.
func (_u *StageResultUpdate) AddOutputTokens(v int) *StageResultUpdate {
	_u.mutation.AddOutputTokens(v)
	return _u
}

// SetCostEstimate sets the "cost_estimate" field.
func (_u *StageResultUpdate) SetCostEstimate(v float64) *StageResultUpdate {
	_u.mutation.ResetCostEstimate()
	_u.mutation.SetCostEstimate(v)
	return _u
}

// SetNillableCostEstimate sets the "cost_estimate" field if the given value is not nil.
func (_u *StageResultUpdate) SetNillableCostEstimate(v *float64) *StageResultUpdate {
	if v != nil {
		_u.SetCostEstimate(*v)
	}
	return _u
}

// AddCostEstimate adds value to the "cost_estimate" field.
func (_u *StageResultUpdate) AddCostEstimate(v float64) *StageResultUpdate {
	_u.mutation.AddCostEstimate(v)
	return _u
}

// SetOutputPath sets the "output_path" field.
func (_u *StageResultUpdate) SetOutputPath(v string) *StageResultUpdate {
	_u.mutation.SetOutputPath(v)
	return _u
}

// SetNillableOutputPath sets the "output_path" field if the given value is not nil.
func (_u *StageResultUpdate) SetNillableOutputPath(v *string) *StageResultUpdate {
	if v != nil {
		_u.SetOutputPath(*v)
	}
	return _u
}

// ClearOutputPath clears the value of the "output_path" field.
func (_u *StageResultUpdate) ClearOutputPath() *StageResultUpdate {
	_u.mutation.ClearOutputPath()
	return _u
}

// SetError sets the "error" field.
func (_u *StageResultUpdate) SetError(v string) *StageResultUpdate {
	_u.mutation.SetError(v)
	return _u
}

// SetNillableError sets the "error" field if the given value is not nil.
func (_u *StageResultUpdate) SetNillableError(v *string) *StageResultUpdate {
	if v != nil {
		_u.SetError(*v)
	}
	return _u
}

// ClearError clears the value of the "error" field.
func (_u *StageResultUpdate) ClearError() *StageResultUpdate {
	_u.mutation.ClearError()
	return _u
}

// Mutation returns the StageResultMutation object of the builder.
func (_u *StageResultUpdate) Mutation() *StageResultMutation {
	return _u.mutation
}

// Save executes the query and returns the number of nodes affected by the update operation.
func (_u *StageResultUpdate) Save(ctx context.Context) (int, error) {
	return withHooks(ctx, _u.sqlSave, _u.mutation, _u.hooks)
}

// SaveX is like Save, but panics if an error occurs.
func (_u *StageResultUpdate) SaveX(ctx context.Context) int {
	affected, err := _u.Save(ctx)
	if err != nil {
		panic(err)
	}
	return affected
}

// Exec executes the query.
func (_u *StageResultUpdate) Exec(ctx context.Context) error {
	_, err := _u.Save(ctx)
	return err
}

// ExecX is like Exec, but panics if an error occurs.
func (_u *StageResultUpdate) ExecX(ctx context.Context) {
	if err := _u.Exec(ctx); err != nil {
		panic(err)
	}
}

// check runs all checks and user-defined validators on the builder.
func (_u *StageResultUpdate) check() error {
	if v, ok := _u.mutation.Status(); ok {
		if err := stageresult.StatusValidator(v); err != nil {
			return &ValidationError{Name: "status", err: fmt.Errorf(`ent: validator failed for field "StageResult.status": %w`, err)}
		}
	}
	if _u.mutation.JobCleared() && len(_u.mutation.JobIDs()) > 0 {
		return errors.New(`ent: clearing a required unique edge "StageResult.job"`)
	}
	return nil
}

func (_u *StageResultUpdate) sqlSave(ctx context.Context) (_node int, err error) {
	if err := _u.check(); err != nil {
		return _node, err
	}
	_spec := sqlgraph.NewUpdateSpec(stageresult.Table, stageresult.Columns, sqlgraph.NewFieldSpec(stageresult.FieldID, field.TypeString))
	if ps := _u.mutation.predicates; len(ps) > 0 {
		_spec.Predicate = func(selector *sql.Selector) {
			for i := range ps {
				ps[i](selector)
			}
		}
	}
	if value, ok := _u.mutation.StageID(); ok {
		_spec.SetField(stageresult.FieldStageID, field.TypeString, value)
	}
	if value, ok := _u.mutation.Status(); ok {
		_spec.SetField(stageresult.FieldStatus, field.TypeEnum, value)
	}
	if value, ok := _u.mutation.StartedAt(); ok {
		_spec.SetField(stageresult.FieldStartedAt, field.TypeTime, value)
	}
	if _u.mutation.StartedAtCleared() {
		_spec.ClearField(stageresult.FieldStartedAt, field.TypeTime)
	}
	if value, ok := _u.mutation.CompletedAt(); ok {
		_spec.SetField(stageresult.FieldCompletedAt, field.TypeTime, value)
	}
	if _u.mutation.CompletedAtCleared() {
		_spec.ClearField(stageresult.FieldCompletedAt, field.TypeTime)
	}
	if value, ok := _u.mutation.ModelUsed(); ok {
		_spec.SetField(stageresult.FieldModelUsed, field.TypeString, value)
	}
	if _u.mutation.ModelUsedCleared() {
		_spec.ClearField(stageresult.FieldModelUsed, field.TypeString)
	}
	if value, ok := _u.mutation.InputTokens(); ok {
		_spec.SetField(stageresult.FieldInputTokens, field.TypeInt, value)
	}
	if value, ok := _u.mutation.AddedInputTokens(); ok {
		_spec.AddField(stageresult.FieldInputTokens, field.TypeInt, value)
	}
	if value, ok := _u.mutation.OutputTokens(); ok {
		_spec.SetField(stageresult.FieldOutputTokens, field.TypeInt, value)
	}
	if value, ok := _u.mutation.AddedOutputTokens(); ok {
		_spec.AddField(stageresult.FieldOutputTokens, field.TypeInt, value)
	}
	if value, ok := _u.mutation.CostEstimate(); ok {
		_spec.SetField(stageresult.FieldCostEstimate, field.TypeFloat64, value)
	}
	if value, ok := _u.mutation.AddedCostEstimate(); ok {
		_spec.AddField(stageresult.FieldCostEstimate, field.TypeFloat64, value)
	}
	if value, ok := _u.mutation.OutputPath(); ok {
		_spec.SetField(stageresult.FieldOutputPath, field.TypeString, value)
	}
	if _u.mutation.OutputPathCleared() {
		_spec.ClearField(stageresult.FieldOutputPath, field.TypeString)
	}
	if value, ok := _u.mutation.Error(); ok {
		_spec.SetField(stageresult.FieldError, field.TypeString, value)
	}
	if _u.mutation.ErrorCleared() {
		_spec.ClearField(stageresult.FieldError, field.TypeString)
	}
	if _node, err = sqlgraph.UpdateNodes(ctx, _u.driver, _spec); err != nil {
		if _, ok := err.(*sqlgraph.NotFoundError); ok {
			err = &NotFoundError{stageresult.Label}
		} else if sqlgraph.IsConstraintError(err) {
			err = &ConstraintError{msg: err.Error(), wrap: err}
		}
		return 0, err
	}
	_u.mutation.done = true
	return _node, nil
}

// StageResultUpdateOne is the builder for updating a single StageResult entity.
type StageResultUpdateOne struct {
	config
	fields   []string
	hooks    []Hook
	mutation *StageResultMutation
}

// SetStageID sets the "stage_id" field.
func (_u *StageResultUpdateOne) SetStageID(v string) *StageResultUpdateOne {
	_u.mutation.SetStageID(v)
	return _u
}

// SetNillableStageID sets the "stage_id" field if the given value is not nil.
func (_u *StageResultUpdateOne) SetNillableStageID(v *string) *StageResultUpdateOne {
	if v != nil {
		_u.SetStageID(*v)
	}
	return _u
}

// SetStatus sets the "status" field.
func (_u *StageResultUpdateOne) SetStatus(v stageresult.Status) *StageResultUpdateOne {
	_u.mutation.SetStatus(v)
	return _u
}

// SetNillableStatus sets the "status" field if the given value is not nil.
func (_u *StageResultUpdateOne) SetNillableStatus(v *stageresult.Status) *StageResultUpdateOne {
	if v != nil {
		_u.SetStatus(*v)
	}
	return _u
}

// SetStartedAt sets the "started_at" field.
func (_u *StageResultUpdateOne) SetStartedAt(v time.Time) *StageResultUpdateOne {
	_u.mutation.SetStartedAt(v)
	return _u
}

// SetNillableStartedAt sets the "started_at" field if the given value is not nil.
func (_u *StageResultUpdateOne) SetNillableStartedAt(v *time.Time) *StageResultUpdateOne {
	if v != nil {
		_u.SetStartedAt(*v)
	}
	return _u
}

// ClearStartedAt clears the value of the "started_at" field.
func (_u *StageResultUpdateOne) ClearStartedAt() *StageResultUpdateOne {
	_u.mutation.ClearStartedAt()
	return _u
}

// SetCompletedAt sets the "completed_at" field.
func (_u *StageResultUpdateOne) SetCompletedAt(v time.Time) *StageResultUpdateOne {
	_u.mutation.SetCompletedAt(v)
	return _u
}

// SetNillableCompletedAt sets the "completed_at" field if the given value is not nil.
func (_u *StageResultUpdateOne) SetNillableCompletedAt(v *time.Time) *StageResultUpdateOne {
	if v != nil {
		_u.SetCompletedAt(*v)
	}
	return _u
}

// ClearCompletedAt clears the value of the "completed_at" field.
func (_u *StageResultUpdateOne) ClearCompletedAt() *StageResultUpdateOne {
	_u.mutation.ClearCompletedAt()
	return _u
}

// SetModelUsed sets the "model_used" field.
func (_u *StageResultUpdateOne) SetModelUsed(v string) *StageResultUpdateOne {
	_u.mutation.SetModelUsed(v)
	return _u
}

// SetNillableModelUsed sets the "model_used" field if the given value is not nil.
func (_u *StageResultUpdateOne) SetNillableModelUsed(v *string) *StageResultUpdateOne {
	if v != nil {
		_u.SetModelUsed(*v)
	}
	return _u
}

// ClearModelUsed clears the value of the "model_used" field.
func (_u *StageResultUpdateOne) ClearModelUsed() *StageResultUpdateOne {
	_u.mutation.ClearModelUsed()
	return _u
}

// SetInputTokens sets the "input_tokens" field.
func (_u *StageResultUpdateOne) SetInputTokens(v int) *StageResultUpdateOne {
	_u.mutation.ResetInputTokens()
	_u.mutation.SetInputTokens(v)
	return _u
}

// SetNillableInputTokens sets the "input_tokens" field if the given value is not nil.
func (_u *StageResultUpdateOne) SetNillableInputTokens(v *int) *StageResultUpdateOne {
	if v != nil {
		_u.SetInputTokens(*v)
	}
	return _u
}

// AddInputTokens adds value to the "input_tokens" field.
func (_u *StageResultUpdateOne) AddInputTokens(v int) *StageResultUpdateOne {
	_u.mutation.AddInputTokens(v)
	return _u
}

// SetOutputTokens sets the "output_tokens" field.
func (_u *StageResultUpdateOne) SetOutputTokens(v int) *StageResultUpdateOne {
	_u.mutation.ResetOutputTokens()
	_u.mutation.SetOutputTokens(v)
	return _u
}

// SetNillableOutputTokens sets the "output_tokens" field if the given value is not nil.
func (_u *StageResultUpdateOne) SetNillableOutputTokens(v *int) *StageResultUpdateOne {
	if v != nil {
		_u.SetOutputTokens(*v)
	}
	return _u
}

// AddOutputTokens adds value to the "output_tokens" field.
func (_u *StageResultUpdateOne) AddOutputTokens(v int) *StageResultUpdateOne {
	_u.mutation.AddOutputTokens(v)
	return _u
}

// SetCostEstimate sets the "cost_estimate" field.
func (_u *StageResultUpdateOne) SetCostEstimate(v float64) *StageResultUpdateOne {
	_u.mutation.ResetCostEstimate()
	_u.mutation.SetCostEstimate(v)
	return _u
}

// SetNillableCostEstimate sets the "cost_estimate" field if the given value is not nil.
func (_u *StageResultUpdateOne) SetNillableCostEstimate(v *float64) *StageResultUpdateOne {
	if v != nil {
		_u.SetCostEstimate(*v)
	}
	return _u
}

// AddCostEstimate adds value to the "cost_estimate" field.
func (_u *StageResultUpdateOne) AddCostEstimate(v float64) *StageResultUpdateOne {
	_u.mutation.AddCostEstimate(v)
	return _u
}

// SetOutputPath sets the "output_path" field.
func (_u *StageResultUpdateOne) SetOutputPath(v string) *StageResultUpdateOne {
	_u.mutation.SetOutputPath(v)
	return _u
}

// SetNillableOutputPath sets the "output_path" field if the given value is not nil.
func (_u *StageResultUpdateOne) SetNillableOutputPath(v *string) *StageResultUpdateOne {
	if v != nil {
		_u.SetOutputPath(*v)
	}
	return _u
}

// ClearOutputPath clears the value of the "output_path" field.
func (_u *StageResultUpdateOne) ClearOutputPath() *StageResultUpdateOne {
	_u.mutation.ClearOutputPath()
	return _u
}

// SetError sets the "error" field.
func (_u *StageResultUpdateOne) SetError(v string) *StageResultUpdateOne {
	_u.mutation.SetError(v)
	return _u
}

// SetNillableError sets the "error" field if the given value is not nil.
func (_u *StageResultUpdateOne) SetNillableError(v *string) *StageResultUpdateOne {
	if v != nil {
		_u.SetError(*v)
	}
	return _u
}

// ClearError clears the value of the "error" field.
func (_u *StageResultUpdateOne) ClearError() *StageResultUpdateOne {
	_u.mutation.ClearError()
	return _u
}

// Mutation returns the StageResultMutation object of the builder.
func (_u *StageResultUpdateOne) Mutation() *StageResultMutation {
	return _u.mutation
}

// Where appends a list predicates to the StageResultUpdate builder.
func (_u *StageResultUpdateOne) Where(ps ...predicate.StageResult) *StageResultUpdateOne {
	_u.mutation.Where(ps...)
	return _u
}

// Select allows selecting one or more fields (columns) of the returned entity.
// The default is selecting all fields defined in the entity schema.
func (_u *StageResultUpdateOne) Select(field string, fields ...string) *StageResultUpdateOne {
	_u.fields = append([]string{field}, fields...)
	return _u
}

// Save executes the query and returns the updated StageResult entity.
func (_u *StageResultUpdateOne) Save(ctx context.Context) (*StageResult, error) {
	return withHooks(ctx, _u.sqlSave, _u.mutation, _u.hooks)
}

// SaveX is like Save, but panics if an error occurs.
func (_u *StageResultUpdateOne) SaveX(ctx context.Context) *StageResult {
	node, err := _u.Save(ctx)
	if err != nil {
		panic(err)
	}
	return node
}

// Exec executes the query on the entity.
func (_u *StageResultUpdateOne) Exec(ctx context.Context) error {
	_, err := _u.Save(ctx)
	return err
}

// ExecX is like Exec, but panics if an error occurs.
func (_u *StageResultUpdateOne) ExecX(ctx context.Context) {
	if err := _u.Exec(ctx); err != nil {
		panic(err)
	}
}

// check runs all checks and user-defined validators on the builder.
func (_u *StageResultUpdateOne) check() error {
	if v, ok := _u.mutation.Status(); ok {
		if err := stageresult.StatusValidator(v); err != nil {
			return &ValidationError{Name: "status", err: fmt.Errorf(`ent: validator failed for field "StageResult.status": %w`, err)}
		}
	}
	if _u.mutation.JobCleared() && len(_u.mutation.JobIDs()) > 0 {
		return errors.New(`ent: clearing a required unique edge "StageResult.job"`)
	}
	return nil
}

func (_u *StageResultUpdateOne) sqlSave(ctx context.Context) (_node *StageResult, err error) {
	if err := _u.check(); err != nil {
		return _node, err
	}
	_spec := sqlgraph.NewUpdateSpec(stageresult.Table, stageresult.Columns, sqlgraph.NewFieldSpec(stageresult.FieldID, field.TypeString))
	id, ok := _u.mutation.ID()
	if !ok {
		return nil, &ValidationError{Name: "id", err: errors.New(`ent: missing "StageResult.id" for update`)}
	}
	_spec.Node.ID.Value = id
	if fields := _u.fields; len(fields) > 0 {
		_spec.Node.Columns = make([]string, 0, len(fields))
		_spec.Node.Columns = append(_spec.Node.Columns, stageresult.FieldID)
		for _, f := range fields {
			if !stageresult.ValidColumn(f) {
				return nil, &ValidationError{Name: f, err: fmt.Errorf("ent: invalid field %q for query", f)}
			}
			if f != stageresult.FieldID {
				_spec.Node.Columns = append(_spec.Node.Columns, f)
			}
		}
	}
	if ps := _u.mutation.predicates; len(ps) > 0 {
		_spec.Predicate = func(selector *sql.Selector) {
			for i := range ps {
				ps[i](selector)
			}
		}
	}
	if value, ok := _u.mutation.StageID(); ok {
		_spec.SetField(stageresult.FieldStageID, field.TypeString, value)
	}
	if value, ok := _u.mutation.Status(); ok {
		_spec.SetField(stageresult.FieldStatus, field.TypeEnum, value)
	}
	if value, ok := _u.mutation.StartedAt(); ok {
		_spec.SetField(stageresult.FieldStartedAt, field.TypeTime, value)
	}
	if _u.mutation.StartedAtCleared() {
		_spec.ClearField(stageresult.FieldStartedAt, field.TypeTime)
	}
	if value, ok := _u.mutation.CompletedAt(); ok {
		_spec.SetField(stageresult.FieldCompletedAt, field.TypeTime, value)
	}
	if _u.mutation.CompletedAtCleared() {
		_spec.ClearField(stageresult.FieldCompletedAt, field.TypeTime)
	}
	if value, ok := _u.mutation.ModelUsed(); ok {
		_spec.SetField(stageresult.FieldModelUsed, field.TypeString, value)
	}
	if _u.mutation.ModelUsedCleared() {
		_spec.ClearField(stageresult.FieldModelUsed, field.TypeString)
	}
	if value, ok := _u.mutation.InputTokens(); ok {
		_spec.SetField(stageresult.FieldInputTokens, field.TypeInt, value)
	}
	if value, ok := _u.mutation.AddedInputTokens(); ok {
		_spec.AddField(stageresult.FieldInputTokens, field.TypeInt, value)
	}
	if value, ok := _u.mutation.OutputTokens(); ok {
		_spec.SetField(stageresult.FieldOutputTokens, field.TypeInt, value)
	}
	if value, ok := _u.mutation.AddedOutputTokens(); ok {
		_spec.AddField(stageresult.FieldOutputTokens, field.TypeInt, value)
	}
	if value, ok := _u.mutation.CostEstimate(); ok {
		_spec.SetField(stageresult.FieldCostEstimate, field.TypeFloat64, value)
	}
	if value, ok := _u.mutation.AddedCostEstimate(); ok {
		_spec.AddField(stageresult.FieldCostEstimate, field.TypeFloat64, value)
	}
	if value, ok := _u.mutation.OutputPath(); ok {
		_spec.SetField(stageresult.FieldOutputPath, field.TypeString, value)
	}
	if _u.mutation.OutputPathCleared() {
		_spec.ClearField(stageresult.FieldOutputPath, field.TypeString)
	}
	if value, ok := _u.mutation.Error(); ok {
		_spec.SetField(stageresult.FieldError, field.TypeString, value)
	}
	if _u.mutation.ErrorCleared() {
		_spec.ClearField(stageresult.FieldError, field.TypeString)
	}
	_node = &StageResult{config: _u.config}
	_spec.Assign = _node.assignValues
	_spec.ScanValues = _node.scanValues
	if err = sqlgraph.UpdateNode(ctx, _u.driver, _spec); err != nil {
		if _, ok := err.(*sqlgraph.NotFoundError); ok {
			err = &NotFoundError{stageresult.Label}
		} else if sqlgraph.IsConstraintError(err) {
			err = &ConstraintError{msg: err.Error(), wrap: err}
		}
		return nil, err
	}
	_u.mutation.done = true
	return _node, nil
}
