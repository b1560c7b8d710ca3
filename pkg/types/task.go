package types

import "time"

// TaskType is the closed set of sign/structure categories a report can
// describe. Submissions with any other value are rejected at the boundary.
type TaskType string

const (
	TaskType2DLit              TaskType = "2D lit"
	TaskType3DLit              TaskType = "3D lit"
	TaskTypePanel              TaskType = "Panel"
	TaskTypeFrost              TaskType = "Frost"
	TaskTypePylon              TaskType = "Pylon"
	TaskTypeDoorLabel          TaskType = "Door Label"
	TaskTypeFreeStandingOneLeg TaskType = "Free standing 1 legged"
	TaskTypeFreeStandingTwoLeg TaskType = "Free standing 2 legged"
	TaskTypeSigns              TaskType = "Signs"
	TaskTypeRoadDirectional    TaskType = "Road Directional"
	TaskTypeDirectoryBoard     TaskType = "Directory Board"
	TaskTypeWallMounted        TaskType = "Wall Mounted"
	TaskTypeOther              TaskType = "Other"
)

var TaskTypes = []TaskType{
	TaskType2DLit,
	TaskType3DLit,
	TaskTypePanel,
	TaskTypeFrost,
	TaskTypePylon,
	TaskTypeDoorLabel,
	TaskTypeFreeStandingOneLeg,
	TaskTypeFreeStandingTwoLeg,
	TaskTypeSigns,
	TaskTypeRoadDirectional,
	TaskTypeDirectoryBoard,
	TaskTypeWallMounted,
	TaskTypeOther,
}

func (t TaskType) Valid() bool {
	for _, known := range TaskTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Technician is a denormalized snapshot captured at submission time. It is
// not a foreign key into the users table.
type Technician struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type Location struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   *string  `json:"address"`
}

type SketchMeasurements struct {
	Length string `json:"length"`
	Width  string `json:"width"`
	Height string `json:"height"`
}

// Task is one field report.
type Task struct {
	ID                 string              `json:"id"`
	Technician         Technician          `json:"technician"`
	Photos             []string            `json:"photos"`
	Sketch             *string             `json:"sketch,omitempty"`
	Length             string              `json:"length"`
	Width              string              `json:"width"`
	Height             string              `json:"height"`
	SketchMeasurements *SketchMeasurements `json:"sketchMeasurements,omitempty"`
	Type               TaskType            `json:"type"`
	Description        *string             `json:"description,omitempty"`
	Location           Location            `json:"location"`
	Timestamp          time.Time           `json:"timestamp"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}

// TaskPatch is a partial update: nil fields keep their stored values.
type TaskPatch struct {
	Length             *string
	Width              *string
	Height             *string
	Sketch             *string
	SketchMeasurements *SketchMeasurements
}

// TypeCount is one bucket of the per-type statistics breakdown.
type TypeCount struct {
	Type  string `db:"type" json:"type"`
	Count int64  `db:"count" json:"count"`
}

// TaskSummary is the trimmed shape used for the "most recent" statistics
// listing.
type TaskSummary struct {
	ID             string    `db:"id" json:"id"`
	Type           string    `db:"type" json:"type"`
	TechnicianName string    `db:"technician_name" json:"technicianName"`
	Address        *string   `db:"address" json:"address"`
	Timestamp      time.Time `db:"submitted_at" json:"timestamp"`
}

// Statistics is the admin dashboard payload.
type Statistics struct {
	TotalTasks  int64         `json:"totalTasks"`
	TasksByType []TypeCount   `json:"tasksByType"`
	RecentTasks []TaskSummary `json:"recentTasks"`
}
