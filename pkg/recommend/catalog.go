package recommend

import "context"

// Course is a read-only catalog entry.
//
// Level uses the same fixed set as profiles ("beginner",
// "intermediate", "advanced") but is kept as a free string: a course
// with a missing or unknown level simply earns no level bonuses.
type Course struct {
	ID          int64  `json:"id"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Level       string `json:"level"`

	// RecentEnrollments is the number of enrollments in the catalog's
	// trailing window, used as the trending signal.
	RecentEnrollments int `json:"recent_enrollments"`
}

// Catalog lists candidate courses. It is an external collaborator
// (the platform's course database); the engine only reads from it.
type Catalog interface {
	List(ctx context.Context) ([]Course, error)
}

// StaticCatalog is a fixed in-memory catalog, useful for tests and
// small deployments.
type StaticCatalog struct {
	Courses []Course
}

// List returns the catalog's courses.
func (c *StaticCatalog) List(ctx context.Context) ([]Course, error) {
	return c.Courses, nil
}
