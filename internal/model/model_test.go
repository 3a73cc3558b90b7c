package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoordinateValidate(t *testing.T) {
	assert.NoError(t, Coordinate{Latitude: 41.671, Longitude: -73.12}.Validate())
	assert.NoError(t, Coordinate{Latitude: -90, Longitude: 180}.Validate())
	assert.Error(t, Coordinate{Latitude: 91, Longitude: 0}.Validate())
	assert.Error(t, Coordinate{Latitude: 0, Longitude: -181}.Validate())
}

func TestCoordinateString(t *testing.T) {
	c := Coordinate{Latitude: 41.671, Longitude: -73.12}
	assert.Equal(t, "41.671000,-73.120000", c.String())
}

func TestTargetBusinessHasSignal(t *testing.T) {
	assert.False(t, TargetBusiness{}.HasSignal())
	assert.True(t, TargetBusiness{PlaceID: "abc"}.HasSignal())
	assert.True(t, TargetBusiness{Name: "Acme"}.HasSignal())
}

func TestTaskStatusTerminal(t *testing.T) {
	assert.False(t, TaskStatusPending.Terminal())
	assert.True(t, TaskStatusOk.Terminal())
	assert.True(t, TaskStatusError.Terminal())
}

func TestJobProgress(t *testing.T) {
	rank := 4
	job := &Job{
		Tasks: []TaskState{
			{TaskID: "a", Status: TaskStatusOk, Rank: &rank},
			{TaskID: "b", Status: TaskStatusPending},
			{TaskID: "c", Status: TaskStatusError, Error: "task error"},
		},
	}

	assert.Equal(t, 2, job.DoneCount())
	assert.False(t, job.Done())
	assert.Equal(t, []string{"b"}, job.PendingIDs())

	assert.Equal(t, "c", job.Task("c").TaskID)
	assert.Nil(t, job.Task("missing"))

	job.Tasks[1].Status = TaskStatusOk
	assert.True(t, job.Done())
	assert.Nil(t, job.PendingIDs())
}
