package execution

import (
	"path/filepath"
	"strconv"
	"time"
)

// submissionTimeLayout names a submission directory by its run time.
const submissionTimeLayout = "2006-01-02T15-04-05"

// SubmissionRoot returns the directory holding a submission's files:
// <base>/<username>/assessments/<assessmentID>/<runAt>/submission.
func SubmissionRoot(base, username string, assessmentID int64, runAt time.Time) string {
	return filepath.Join(
		base,
		username,
		"assessments",
		strconv.FormatInt(assessmentID, 10),
		runAt.UTC().Format(submissionTimeLayout),
		"submission",
	)
}
