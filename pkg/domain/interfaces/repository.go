package interfaces

// Repository aggregates the directory and enrolment ports backing one batch
// run. Implementations must be safe for sequential use by a single batch;
// cross-batch coordination is out of scope.
type Repository interface {
	Users() UsersRepository
	Courses() CoursesRepository
	Roles() RolesRepository
	Cohorts() CohortsRepository
	Groups() GroupsRepository
	Enrolments() EnrolmentsRepository

	// Close releases backend resources.
	Close() error
}
