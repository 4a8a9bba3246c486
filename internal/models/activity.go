package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityType names the lifecycle event an activity entry records.
type ActivityType string

const (
	ActivityTaskCreated    ActivityType = "task_created"
	ActivityTaskCompleted  ActivityType = "task_completed"
	ActivityTaskReopened   ActivityType = "task_reopened"
	ActivityTaskDeleted    ActivityType = "task_deleted"
	ActivityProjectCreated ActivityType = "project_created"
	ActivityProjectDeleted ActivityType = "project_deleted"
	ActivityProjectUpdated ActivityType = "project_updated"
)

// Valid reports whether a is a known activity type.
func (a ActivityType) Valid() bool {
	switch a {
	case ActivityTaskCreated, ActivityTaskCompleted, ActivityTaskReopened, ActivityTaskDeleted,
		ActivityProjectCreated, ActivityProjectDeleted, ActivityProjectUpdated:
		return true
	}
	return false
}

// Activity is an immutable feed entry. Project and task titles are copied at
// the time of the event so later renames leave history untouched.
type Activity struct {
	ID          primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	User        primitive.ObjectID  `json:"user" bson:"user"`
	ProjectID   primitive.ObjectID  `json:"projectId" bson:"projectId"`
	ProjectName string              `json:"projectName" bson:"projectName"`
	TaskID      *primitive.ObjectID `json:"taskId,omitempty" bson:"taskId,omitempty"`
	Task        string              `json:"task" bson:"task"`
	Type        ActivityType        `json:"type" bson:"type"`
	Metadata    map[string]string   `json:"metadata" bson:"metadata"`
	CreatedAt   time.Time           `json:"createdAt" bson:"createdAt"`
}
