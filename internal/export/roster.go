package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/Skotchmaster/coursehub/internal/repo"
)

const (
	MIMEXLSX  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	sheetName = "Signups"
)

// Roster renders a course's signups as an xlsx workbook.
func Roster(courseTitle string, rows []repo.SignupRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("roster sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("roster sheet: %w", err)
	}

	if err := f.SetDocProps(&excelize.DocProperties{Title: courseTitle + " signups"}); err != nil {
		return nil, fmt.Errorf("roster props: %w", err)
	}

	headers := []string{"User ID", "Email", "First name", "Last name", "Signed up"}
	for i, h := range headers {
		if err := f.SetCellValue(sheetName, fmt.Sprintf("%c1", 'A'+i), h); err != nil {
			return nil, err
		}
	}

	for idx, r := range rows {
		row := idx + 2
		values := []any{r.UserID, r.Email, r.FirstName, r.LastName, r.CreatedAt.UTC().Format("2006-01-02 15:04")}
		for i, v := range values {
			if err := f.SetCellValue(sheetName, fmt.Sprintf("%c%d", 'A'+i, row), v); err != nil {
				return nil, err
			}
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 10)
	_ = f.SetColWidth(sheetName, "B", "B", 32)
	_ = f.SetColWidth(sheetName, "C", "D", 18)
	_ = f.SetColWidth(sheetName, "E", "E", 18)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("roster write: %w", err)
	}
	return buf.Bytes(), nil
}
