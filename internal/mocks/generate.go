// Package mocks provides gomock implementations of the core ports for service tests.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	jobs := mocks.NewMockAssessmentJobRepository(ctrl)
//	jobs.EXPECT().AdmitNext(gomock.Any(), 120).Return(job, nil)
package mocks

// AssessmentJobRepository: Enqueue, AdmitNext, WaitForJob, Heartbeat, Complete, Release, Fail,
// Withdraw, GetByID, Stats, List
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=assessment_job_repository_mock.go github.com/jjstretton/pasta/internal/core AssessmentJobRepository

// ResultRepository: result store reads, writes and reconciliation persistence
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=result_repository_mock.go github.com/jjstretton/pasta/internal/core ResultRepository

// AssessmentRepository: GetDefinition, GetWeightedHandMarking, Exists, GroupsForMember
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=assessment_repository_mock.go github.com/jjstretton/pasta/internal/core AssessmentRepository

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=user_repository_mock.go github.com/jjstretton/pasta/internal/core UserRepository

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=cache_repository_mock.go github.com/jjstretton/pasta/internal/core CacheRepository

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_signal_publisher_mock.go github.com/jjstretton/pasta/internal/core JobSignalPublisher

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=reaper_repository_mock.go github.com/jjstretton/pasta/internal/core ReaperRepository
