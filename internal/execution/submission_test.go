package execution

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubmissionRoot(t *testing.T) {
	sydney := time.FixedZone("AEDT", 11*60*60)

	tests := []struct {
		name  string
		runAt time.Time
		want  string
	}{
		{
			name:  "utc run time",
			runAt: time.Date(2024, 3, 11, 9, 30, 5, 0, time.UTC),
			want:  "2024-03-11T09-30-05",
		},
		{
			name:  "local run time is normalised to utc",
			runAt: time.Date(2024, 3, 11, 20, 30, 5, 0, sydney),
			want:  "2024-03-11T09-30-05",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SubmissionRoot("/srv/pasta/submissions", "jstu0001", 3, tt.runAt)
			assert.Equal(t, filepath.Join("/srv/pasta/submissions", "jstu0001", "assessments", "3", tt.want, "submission"), got)
		})
	}
}
