package export

import (
	"fmt"
	"io"
	"time"

	"jobtracker/internal/models"

	"github.com/xuri/excelize/v2"
)

// SheetName лист с работами в выгрузке.
const SheetName = "Jobs"

var headers = []string{"ID", "Title", "Client", "Date", "Status", "Equipment", "Created At"}

// цвета заливки по статусу работы
var statusFill = map[models.JobStatus]string{
	models.JobStatusPending:    "#FFF2CC",
	models.JobStatusInProgress: "#DDEBF7",
	models.JobStatusCompleted:  "#E2EFDA",
}

// WriteJobs пишет xlsx-книгу с работами в w.
func WriteJobs(w io.Writer, jobs []*models.Job, generatedAt time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	if err := writeHeader(f); err != nil {
		return err
	}

	styles := make(map[models.JobStatus]int, len(statusFill))
	for status, color := range statusFill {
		style, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			return fmt.Errorf("create style: %w", err)
		}
		styles[status] = style
	}

	for i, job := range jobs {
		row := i + 2
		values := []interface{}{
			job.ID,
			job.Title,
			job.Client,
			job.Date.String(),
			string(job.Status),
			job.EquipmentCount,
			job.CreatedAt.UTC().Format(time.RFC3339),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(SheetName, cell, v)
		}
		if style, ok := styles[job.Status]; ok {
			first, _ := excelize.CoordinatesToCellName(1, row)
			last, _ := excelize.CoordinatesToCellName(len(values), row)
			_ = f.SetCellStyle(SheetName, first, last, style)
		}
	}

	footer, _ := excelize.CoordinatesToCellName(1, len(jobs)+3)
	_ = f.SetCellValue(SheetName, footer, "Generated: "+generatedAt.UTC().Format("02.01.2006 15:04"))

	_ = f.SetColWidth(SheetName, "A", "A", 38)
	_ = f.SetColWidth(SheetName, "B", "C", 28)
	_ = f.SetColWidth(SheetName, "D", "F", 14)
	_ = f.SetColWidth(SheetName, "G", "G", 22)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}

	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	return f.SetCellStyle(SheetName, "A1", last, style)
}
