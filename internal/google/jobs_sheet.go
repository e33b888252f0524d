package google

import (
	"context"
	"fmt"

	"jobtracker/internal/domain"
	"jobtracker/internal/models"
)

var jobsHeader = []interface{}{"ID", "Title", "Client", "Date", "Status", "Equipment", "Created At"}

type rangeWriter interface {
	ClearRange(ctx context.Context, spreadsheetID, rng string) error
	UpdateRange(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) (*domain.UpdateResult, error)
}

// JobsSheet mirrors the job list into one sheet of a spreadsheet.
type JobsSheet struct {
	client        rangeWriter
	spreadsheetID string
	sheet         string
}

func NewJobsSheet(client rangeWriter, spreadsheetID, sheet string) *JobsSheet {
	if sheet == "" {
		sheet = models.DefaultJobsSheetName
	}
	return &JobsSheet{client: client, spreadsheetID: spreadsheetID, sheet: sheet}
}

// ReplaceJobs полностью перезаписывает лист: заголовок и по строке на работу.
func (s *JobsSheet) ReplaceJobs(ctx context.Context, jobs []*models.Job) error {
	if err := s.client.ClearRange(ctx, s.spreadsheetID, fmt.Sprintf("%s!A2:Z", s.sheet)); err != nil {
		return err
	}

	values := JobRows(jobs)
	rng := fmt.Sprintf("%s!A1:G%d", s.sheet, len(values))
	_, err := s.client.UpdateRange(ctx, s.spreadsheetID, rng, values)
	return err
}

// JobRows renders jobs as a header row followed by one row per job.
func JobRows(jobs []*models.Job) [][]interface{} {
	values := make([][]interface{}, 0, len(jobs)+1)
	values = append(values, jobsHeader)
	for _, job := range jobs {
		values = append(values, []interface{}{
			job.ID,
			job.Title,
			job.Client,
			job.Date.String(),
			string(job.Status),
			job.EquipmentCount,
			job.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return values
}
