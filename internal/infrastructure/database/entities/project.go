package entities

import (
	"time"

	"gorm.io/datatypes"

	"brainstorm-api/internal/domain/project"
)

// Project is the persisted project row. Items are stored as one JSONB document so a save replaces
// them all at once.
type Project struct {
	ID        string         `gorm:"primaryKey;size:128"`
	UserID    string         `gorm:"size:128;index"`
	Items     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName pins the table name.
func (Project) TableName() string { return "projects" }

// NewSchemaProject converts a domain project to its row.
func NewSchemaProject(p *project.Project) (*Project, error) {
	items, err := MarshalItems(p.Items)
	if err != nil {
		return nil, err
	}
	return &Project{
		ID:        p.ID,
		UserID:    p.UserID,
		Items:     items,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}, nil
}

// MarshalItems encodes the items document. A nil slice is stored as an empty array.
func MarshalItems(items []project.Item) (datatypes.JSON, error) {
	if items == nil {
		items = []project.Item{}
	}
	return marshalJSON(items)
}

// EtoD converts the row to a domain project.
func (e *Project) EtoD() (*project.Project, error) {
	p := &project.Project{
		ID:        e.ID,
		UserID:    e.UserID,
		Items:     []project.Item{},
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
	if err := unmarshalJSON(e.Items, &p.Items); err != nil {
		return nil, err
	}
	return p, nil
}
