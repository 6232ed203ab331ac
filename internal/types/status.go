package types

// Status is a type for the lifecycle status of a resource in the database.
// This is used to track the lifecycle of a resource and to determine if it
// should be included in queries.
type Status string

const (
	StatusPublished Status = "published"
	StatusDeleted   Status = "deleted"
	StatusArchived  Status = "archived"
)

func (s Status) String() string {
	return string(s)
}
