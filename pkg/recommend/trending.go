package recommend

// TrendingSource supplies the exogenous popularity signal for a course.
//
// The default is enrollment velocity normalized against the catalog
// maximum. Deployments with a real analytics pipeline can inject their
// own source.
type TrendingSource interface {
	// Score returns a popularity score in [0,1] for the course, given
	// the highest RecentEnrollments value across the current catalog.
	Score(course Course, maxRecentEnrollments int) float64
}

// EnrollmentVelocity scores trending as the course's share of the
// catalog's highest recent-enrollment count. A catalog with no
// enrollment data at all scores every course a neutral 0.5.
type EnrollmentVelocity struct{}

// Score implements TrendingSource.
func (EnrollmentVelocity) Score(course Course, maxRecentEnrollments int) float64 {
	if maxRecentEnrollments <= 0 {
		return 0.5
	}
	score := float64(course.RecentEnrollments) / float64(maxRecentEnrollments)
	return clamp01(score)
}
