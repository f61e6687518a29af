package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

var (
	// AttemptsColumns holds the columns for the "attempts" table.
	AttemptsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "user_id", Type: field.TypeString},
		{Name: "assessment_id", Type: field.TypeString},
		{Name: "mode", Type: field.TypeString},
		{Name: "presented", Type: field.TypeJSON},
		{Name: "answers", Type: field.TypeJSON},
		{Name: "raw_score", Type: field.TypeInt, Default: 0},
		{Name: "ability", Type: field.TypeFloat64},
		{Name: "submitted", Type: field.TypeBool, Default: false},
		{Name: "score", Type: field.TypeInt, Default: 0},
		{Name: "done_reason", Type: field.TypeString, Default: ""},
		{Name: "started_at", Type: field.TypeTime},
		{Name: "ended_at", Type: field.TypeTime, Nullable: true},
		{Name: "version", Type: field.TypeInt64, Default: 1},
	}
	// AttemptsTable holds the schema information for the "attempts" table.
	AttemptsTable = &schema.Table{
		Name:       "attempts",
		Columns:    AttemptsColumns,
		PrimaryKey: []*schema.Column{AttemptsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "attempt_user_id_assessment_id",
				Unique:  false,
				Columns: []*schema.Column{AttemptsColumns[1], AttemptsColumns[2]},
			},
		},
	}

	// ReviewRecordsColumns holds the columns for the "review_records" table.
	ReviewRecordsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "user_id", Type: field.TypeString},
		{Name: "item_id", Type: field.TypeString},
		{Name: "quality", Type: field.TypeInt, Default: 0},
		{Name: "interval", Type: field.TypeInt, Default: 1},
		{Name: "repetition", Type: field.TypeInt, Default: 0},
		{Name: "ease", Type: field.TypeFloat64, Default: 2.5},
		{Name: "next_review", Type: field.TypeString},
		{Name: "last_review", Type: field.TypeString, Nullable: true},
		{Name: "attempt_id", Type: field.TypeString, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// ReviewRecordsTable holds the schema information for the "review_records" table.
	ReviewRecordsTable = &schema.Table{
		Name:       "review_records",
		Columns:    ReviewRecordsColumns,
		PrimaryKey: []*schema.Column{ReviewRecordsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "reviewrecord_user_id_item_id",
				Unique:  true,
				Columns: []*schema.Column{ReviewRecordsColumns[1], ReviewRecordsColumns[2]},
			},
			{
				Name:    "reviewrecord_user_id_next_review",
				Unique:  false,
				Columns: []*schema.Column{ReviewRecordsColumns[1], ReviewRecordsColumns[7]},
			},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		AttemptsTable,
		ReviewRecordsTable,
	}
)
