package sqlite

import (
	"fmt"
	"strings"
	"sync"
)

// ColumnKind is the storage class of a column
type ColumnKind int

const (
	// TextColumn holds strings, ids, decimals and timestamps
	TextColumn ColumnKind = iota
	// IntegerColumn holds booleans
	IntegerColumn
)

// Column declares one field of an entity
type Column struct {
	Name     string
	Kind     ColumnKind
	Nullable bool
}

// Reference declares a foreign key; deleting the referenced row deletes the referencing one
type Reference struct {
	Column string
	Entity *Entity
}

// Entity declares a table of the object graph
type Entity struct {
	Name       string
	Table      string
	Columns    []Column
	References []Reference
	Indexes    []string
}

// ColumnNames returns the column names in declaration order
func (e *Entity) ColumnNames() []string {
	names := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		names[i] = c.Name
	}
	return names
}

func (e *Entity) ddl() []string {
	var defs []string
	for _, c := range e.Columns {
		def := c.Name
		if c.Kind == IntegerColumn {
			def += " INTEGER"
		} else {
			def += " TEXT"
		}
		if c.Name == "id" {
			def += " PRIMARY KEY"
		} else if !c.Nullable {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	for _, ref := range e.References {
		defs = append(defs, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s(id) ON DELETE CASCADE", ref.Column, ref.Entity.Table))
	}

	stmts := []string{fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", e.Table, strings.Join(defs, ",\n\t"))}
	for _, col := range e.Indexes {
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)", e.Table, col, e.Table, col))
	}
	return stmts
}

// Registry holds the entity declarations of the store
type Registry struct {
	Account      *Entity
	Snapshot     *Entity
	Goal         *Entity
	Settings     *Entity
	dependencies []*Entity // referenced entities before referencing ones
}

// Entities returns every entity, referenced tables first
func (r *Registry) Entities() []*Entity {
	return append([]*Entity(nil), r.dependencies...)
}

// DDL returns the statements that create the schema when missing
func (r *Registry) DDL() []string {
	var stmts []string
	for _, e := range r.dependencies {
		stmts = append(stmts, e.ddl()...)
	}
	return stmts
}

var (
	registryOnce sync.Once
	registry     *Registry
)

// Schema returns the process-wide entity registry
func Schema() *Registry {
	registryOnce.Do(func() {
		registry = buildRegistry()
	})
	return registry
}

func buildRegistry() *Registry {
	account := &Entity{
		Name:  "account",
		Table: "accounts",
		Columns: []Column{
			{Name: "id"},
			{Name: "name"},
			{Name: "category"},
			{Name: "currency"},
			{Name: "balance"},
			{Name: "created_at"},
			{Name: "updated_at"},
			{Name: "is_active", Kind: IntegerColumn},
			{Name: "notes", Nullable: true},
		},
		Indexes: []string{"created_at"},
	}

	snapshot := &Entity{
		Name:  "asset snapshot",
		Table: "asset_snapshots",
		Columns: []Column{
			{Name: "id"},
			{Name: "account_id", Nullable: true},
			{Name: "date"},
			{Name: "created_at"},
			{Name: "total_assets"},
		},
		References: []Reference{{Column: "account_id", Entity: account}},
		Indexes:    []string{"date", "account_id"},
	}

	goal := &Entity{
		Name:  "saving goal",
		Table: "saving_goals",
		Columns: []Column{
			{Name: "id"},
			{Name: "title"},
			{Name: "category", Nullable: true},
			{Name: "notes", Nullable: true},
			{Name: "created_at"},
			{Name: "updated_at"},
			{Name: "deadline"},
			{Name: "completed_at", Nullable: true},
			{Name: "is_completed", Kind: IntegerColumn},
			{Name: "target_amount"},
			{Name: "current_amount"},
		},
		Indexes: []string{"deadline"},
	}

	settings := &Entity{
		Name:  "notification settings",
		Table: "notification_settings",
		Columns: []Column{
			{Name: "id"},
			{Name: "is_enabled", Kind: IntegerColumn},
			{Name: "notification_time"},
			{Name: "quote_category"},
			{Name: "updated_at"},
		},
	}

	return &Registry{
		Account:      account,
		Snapshot:     snapshot,
		Goal:         goal,
		Settings:     settings,
		dependencies: []*Entity{account, snapshot, goal, settings},
	}
}
