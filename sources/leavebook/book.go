/*
Package leavebook reads leave records from HR spreadsheet exports.

Each leave year lives in its own workbook, <dir>/leave-<year>.xlsx. The
first sheet holds one absence per row under a header row. Columns are
located by header name so exports may reorder them or add extras:

	STAFF_ID  (required)  staff identifier
	DATE      (required)  YYYY-MM-DD, DD/MM/YYYY or an Excel date serial
	DURATION  (required)  "Y" for a full day, anything else a half day
	STATUS    (optional)  "3" marks a cancelled booking
	TYPE      (optional)  "Sick" and variants mark sickness
*/
package leavebook

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/NewcastleRSE/rse-admin-strapi-sub000/calendar"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/leave"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/sources"
)

const service = "leavebook"

// Header names.
const (
	ColStaffID  = "STAFF_ID"
	ColDate     = "DATE"
	ColDuration = "DURATION"
	ColStatus   = "STATUS"
	ColType     = "TYPE"
)

var required = []string{ColStaffID, ColDate, ColDuration}

var dateLayouts = []string{calendar.Layout, "02/01/2006", "2/1/2006"}

// Book reads workbooks from a directory.
type Book struct {
	dir string
}

// New reads workbooks from dir.
func New(dir string) *Book {
	return &Book{dir: dir}
}

// Path returns the workbook path for a leave year label.
func (b *Book) Path(leaveYear string) string {
	return filepath.Join(b.dir, "leave-"+leaveYear+".xlsx")
}

// FetchLeaveEntries reads every row for staffID, or every row when
// staffID is empty.
func (b *Book) FetchLeaveEntries(ctx context.Context, staffID string, leaveYear string) ([]leave.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := b.Path(leaveYear)
	f, err := excelize.OpenFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &sources.UpstreamError{Service: service, Err: fmt.Errorf("no workbook for leave year %s: %w", leaveYear, err)}
		}
		return nil, &sources.UpstreamError{Service: service, Err: fmt.Errorf("open %s: %w", path, err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &sources.UpstreamError{Service: service, Err: fmt.Errorf("%s has no sheets", path)}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &sources.UpstreamError{Service: service, Err: fmt.Errorf("read %s: %w", path, err)}
	}
	if len(rows) == 0 {
		return nil, nil
	}

	cols, err := columns(rows[0])
	if err != nil {
		return nil, &sources.UpstreamError{Service: service, Err: fmt.Errorf("%s: %w", path, err)}
	}

	var out []leave.Entry
	for i, row := range rows[1:] {
		id := cell(row, cols, ColStaffID)
		if id == "" || (staffID != "" && id != staffID) {
			continue
		}
		d, err := parseDate(cell(row, cols, ColDate))
		if err != nil {
			return nil, &sources.UpstreamError{Service: service, Err: fmt.Errorf("%s row %d: %w", path, i+2, err)}
		}
		out = append(out, leave.Entry{
			StaffID:  id,
			Date:     d,
			Status:   leave.ParseStatus(cell(row, cols, ColStatus)),
			Duration: leave.ParseDuration(cell(row, cols, ColDuration)),
			Kind:     leave.ParseKind(cell(row, cols, ColType)),
		})
	}
	return out, nil
}

// columns maps header names to their index and checks the required ones.
func columns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToUpper(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func cell(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return calendar.DateOnly(t), nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return calendar.DateOnly(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
