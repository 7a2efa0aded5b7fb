package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jjstretton/pasta/internal/core"
	"github.com/jjstretton/pasta/internal/domain/model"
	"github.com/jjstretton/pasta/internal/domain/reconcile"
	"github.com/jjstretton/pasta/internal/observability/metrics"
	"github.com/jjstretton/pasta/internal/observability/statsd"
)

// maxParallelUserFetch bounds concurrent per-user queries in FetchLatestForUsers.
const maxParallelUserFetch = 8

// ResultServiceOptions groups dependencies for ResultService.
type ResultServiceOptions struct {
	Results     core.ResultRepository     // Required
	Assessments core.AssessmentRepository // Required
	Metrics     statsd.Sink               // Optional
	Logger      *slog.Logger              // Optional
}

// ResultService reads results and brings their hand-marking entries up to date with the
// assessment on every read.
type ResultService struct {
	results     core.ResultRepository
	assessments core.AssessmentRepository
	metrics     statsd.Sink
	logger      *slog.Logger
}

// NewResultService constructs a ResultService.
func NewResultService(opts ResultServiceOptions) (*ResultService, error) {
	if opts.Results == nil {
		return nil, errors.New("ResultRepository is required")
	}
	if opts.Assessments == nil {
		return nil, errors.New("AssessmentRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultService{
		results:     opts.Results,
		assessments: opts.Assessments,
		metrics:     opts.Metrics,
		logger:      logger.With("component", "result_service"),
	}, nil
}

// MustNewResultService constructs a ResultService and panics on error.
func MustNewResultService(opts ResultServiceOptions) *ResultService {
	svc, err := NewResultService(opts)
	if err != nil {
		//nolint:forbidigo // startup wiring fails fast on invalid dependencies
		panic(fmt.Sprintf("failed to create ResultService: %v", err))
	}
	return svc
}

// FetchParams selects results for one user on one assessment.
type FetchParams struct {
	UserID       int64
	AssessmentID int64
	// IncludeGroup also returns results owned by the user's groups for the assessment.
	IncludeGroup bool
	Order        model.ResultOrder
}

func (s *ResultService) query(ctx context.Context, p FetchParams) (model.ResultQuery, error) {
	q := model.ResultQuery{
		UserID:       p.UserID,
		AssessmentID: p.AssessmentID,
		IncludeGroup: p.IncludeGroup,
		Order:        p.Order,
	}
	if !p.IncludeGroup {
		return q, nil
	}
	groups, err := s.assessments.GroupsForMember(ctx, p.UserID, p.AssessmentID)
	if err != nil {
		return q, fmt.Errorf("groups of user %d: %w", p.UserID, err)
	}
	q.GroupIDs = groups
	return q, nil
}

// FetchLatest returns the most recent result for the user on the assessment.
func (s *ResultService) FetchLatest(ctx context.Context, p FetchParams) (*model.Result, error) {
	q, err := s.query(ctx, p)
	if err != nil {
		return nil, err
	}
	result, err := s.results.Latest(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch latest result: %w", err)
	}
	if err := s.reconcile(ctx, []*model.Result{result}); err != nil {
		return nil, err
	}
	return result, nil
}

// FetchAt returns the result the user submitted at submissionDate.
func (s *ResultService) FetchAt(ctx context.Context, p FetchParams, submissionDate time.Time) (*model.Result, error) {
	q, err := s.query(ctx, p)
	if err != nil {
		return nil, err
	}
	result, err := s.results.AtDate(ctx, q, submissionDate)
	if err != nil {
		return nil, fmt.Errorf("fetch result at %s: %w", submissionDate.UTC().Format(time.RFC3339Nano), err)
	}
	if err := s.reconcile(ctx, []*model.Result{result}); err != nil {
		return nil, err
	}
	return result, nil
}

// FetchAll returns every result for the user on the assessment in the requested order.
func (s *ResultService) FetchAll(ctx context.Context, p FetchParams) ([]*model.Result, error) {
	q, err := s.query(ctx, p)
	if err != nil {
		return nil, err
	}
	results, err := s.results.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch results: %w", err)
	}
	if err := s.reconcile(ctx, results); err != nil {
		return nil, err
	}
	return results, nil
}

// FetchByID returns one result.
func (s *ResultService) FetchByID(ctx context.Context, id int64) (*model.Result, error) {
	result, err := s.results.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch result %d: %w", id, err)
	}
	if err := s.reconcile(ctx, []*model.Result{result}); err != nil {
		return nil, err
	}
	return result, nil
}

// SubmissionDates lists the submission dates for the user on the assessment.
func (s *ResultService) SubmissionDates(ctx context.Context, p FetchParams) ([]time.Time, error) {
	q, err := s.query(ctx, p)
	if err != nil {
		return nil, err
	}
	dates, err := s.results.SubmissionDates(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch submission dates: %w", err)
	}
	return dates, nil
}

// SubmissionCount counts the user's submissions. IncludeCompileErrors nil follows the
// assessment's CountUncompilable setting.
func (s *ResultService) SubmissionCount(ctx context.Context, p FetchParams, includeCompileErrors *bool) (int, error) {
	include := false
	if includeCompileErrors != nil {
		include = *includeCompileErrors
	} else {
		def, err := s.assessments.GetDefinition(ctx, p.AssessmentID)
		if err != nil {
			return 0, fmt.Errorf("load assessment %d: %w", p.AssessmentID, err)
		}
		include = def.CountUncompilable
	}

	q, err := s.query(ctx, p)
	if err != nil {
		return 0, err
	}
	n, err := s.results.SubmissionCount(ctx, core.SubmissionCountParams{Query: q, IncludeCompileErrors: include})
	if err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return n, nil
}

// FetchLatestForUsers returns the latest result of each user on the assessment, keyed by
// user id. Users without a result are absent from the map.
func (s *ResultService) FetchLatestForUsers(
	ctx context.Context,
	userIDs []int64,
	assessmentID int64,
	includeGroup bool,
) (map[int64]*model.Result, error) {
	out := make(map[int64]*model.Result, len(userIDs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelUserFetch)
	for _, id := range userIDs {
		g.Go(func() error {
			q, err := s.query(gctx, FetchParams{UserID: id, AssessmentID: assessmentID, IncludeGroup: includeGroup})
			if err != nil {
				return err
			}
			result, err := s.results.Latest(gctx, q)
			if err != nil {
				if isNotFound(err) {
					return nil
				}
				return fmt.Errorf("latest result of user %d: %w", id, err)
			}
			mu.Lock()
			out[id] = result
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Members of one group read separate copies of the shared group result.
	byID := make(map[int64]*model.Result, len(out))
	results := make([]*model.Result, 0, len(out))
	for id, r := range out {
		if shared, ok := byID[r.ID]; ok {
			out[id] = shared
			continue
		}
		byID[r.ID] = r
		results = append(results, r)
	}
	if err := s.reconcile(ctx, results); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchForUsers returns all results of the users on the assessment.
func (s *ResultService) FetchForUsers(
	ctx context.Context,
	userIDs []int64,
	assessmentID int64,
	order model.ResultOrder,
) ([]*model.Result, error) {
	results, err := s.results.ListForUsers(ctx, core.ListForUsersParams{
		UserIDs:      userIDs,
		AssessmentID: assessmentID,
		Order:        order,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch results for users: %w", err)
	}
	if err := s.reconcile(ctx, results); err != nil {
		return nil, err
	}
	return results, nil
}

// FetchForAssessment returns every result on the assessment.
func (s *ResultService) FetchForAssessment(ctx context.Context, assessmentID int64) ([]*model.Result, error) {
	results, err := s.results.ListForAssessment(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("fetch results for assessment %d: %w", assessmentID, err)
	}
	if err := s.reconcile(ctx, results); err != nil {
		return nil, err
	}
	return results, nil
}

// FetchForUser returns every result owned by the user.
func (s *ResultService) FetchForUser(ctx context.Context, userID int64) ([]*model.Result, error) {
	results, err := s.results.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch results for user %d: %w", userID, err)
	}
	if err := s.reconcile(ctx, results); err != nil {
		return nil, err
	}
	return results, nil
}

// FetchSummary returns the stored summary of the user's latest completed result on the assessment.
func (s *ResultService) FetchSummary(ctx context.Context, userID, assessmentID int64) (*model.ResultSummary, error) {
	summary, err := s.results.Summary(ctx, userID, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("fetch summary of user %d: %w", userID, err)
	}
	return summary, nil
}

// FetchSummariesForUsers returns the summaries owned by any of the users.
func (s *ResultService) FetchSummariesForUsers(ctx context.Context, userIDs []int64) ([]*model.ResultSummary, error) {
	summaries, err := s.results.SummariesForUsers(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("fetch summaries for users: %w", err)
	}
	return summaries, nil
}

func (s *ResultService) FetchSummariesForUser(ctx context.Context, userID int64) ([]*model.ResultSummary, error) {
	summaries, err := s.results.SummariesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch summaries for user %d: %w", userID, err)
	}
	return summaries, nil
}

func (s *ResultService) FetchSummariesForAssessment(ctx context.Context, assessmentID int64) ([]*model.ResultSummary, error) {
	summaries, err := s.results.SummariesForAssessment(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("fetch summaries for assessment %d: %w", assessmentID, err)
	}
	return summaries, nil
}

// FetchWaiting returns results still waiting for their job to run.
func (s *ResultService) FetchWaiting(ctx context.Context) ([]*model.Result, error) {
	results, err := s.results.ListWaiting(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch waiting results: %w", err)
	}
	return results, nil
}

// reconcile updates each result's hand-marking entries and persists the ones that changed.
// Weighted hand markings are read once per assessment per call. A result id seen twice is
// reconciled once and later copies take the first copy's entries.
func (s *ResultService) reconcile(ctx context.Context, results []*model.Result) error {
	current := make(map[int64][]model.WeightedHandMarking)
	seen := make(map[int64]*model.Result, len(results))
	for _, result := range results {
		if result == nil {
			continue
		}
		if first, ok := seen[result.ID]; ok && result.ID != 0 {
			if first != result {
				result.HandMarking = slices.Clone(first.HandMarking)
				result.UpdatedAt = first.UpdatedAt
			}
			continue
		}
		seen[result.ID] = result
		whm, ok := current[result.AssessmentID]
		if !ok {
			var err error
			whm, err = s.assessments.GetWeightedHandMarking(ctx, result.AssessmentID)
			if err != nil {
				return fmt.Errorf("load hand marking for assessment %d: %w", result.AssessmentID, err)
			}
			current[result.AssessmentID] = whm
		}

		change := reconcile.Reconcile(result, whm)
		if change.Empty() {
			continue
		}
		if err := s.results.ApplyReconciliation(ctx, result, change); err != nil {
			return fmt.Errorf("persist reconciliation of result %d: %w", result.ID, err)
		}
		metrics.EmitReconciliation(s.metrics, len(change.Created), len(change.Dropped))
		s.logger.DebugContext(ctx, "reconciled result hand marking",
			"result_id", result.ID,
			"created", len(change.Created),
			"dropped", len(change.Dropped),
		)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, model.ErrResultNotFound)
}
