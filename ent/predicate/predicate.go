// Code generated by ent, DO NOT EDIT.

package predicate

import (
	"entgo.io/ent/dialect/sql"
)

// Job is the predicate function for job builders.
type Job func(*sql.Selector)

// StageResult is the predicate function for stageresult builders.
type StageResult func(*sql.Selector)
