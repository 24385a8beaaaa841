// Package export renders a user's tasks as a spreadsheet-friendly CSV file.
package export

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"taskbot/internal/models"
)

const (
	Separator   = ';'
	ContentType = "text/csv; charset=utf-8"

	sepHint    = "sep=;"
	dateLayout = "02.01.2006 15:04"
	noDeadline = "Not set"
)

var Header = []string{"ID", "Text", "Deadline", "Priority", "Status", "Created", "Updated"}

var ErrMalformed = errors.New("malformed export file")

// Record is one exported row as text.
type Record struct {
	ID       uint
	Text     string
	Deadline string
	Priority string
	Status   string
	Created  string
	Updated  string
}

func newRecord(t models.Task, loc *time.Location) Record {
	deadline := noDeadline
	if t.Deadline != nil {
		deadline = t.Deadline.In(loc).Format(dateLayout)
	}
	return Record{
		ID:       t.ID,
		Text:     t.Body,
		Deadline: deadline,
		Priority: t.Priority.Label(),
		Status:   t.Status.Label(),
		Created:  t.CreatedAt.In(loc).Format(dateLayout),
		Updated:  t.UpdatedAt.In(loc).Format(dateLayout),
	}
}

func (r Record) fields() []string {
	return []string{strconv.FormatUint(uint64(r.ID), 10), r.Text, r.Deadline, r.Priority, r.Status, r.Created, r.Updated}
}

// Write emits a separator hint line, the header and one row per task, with
// timestamps rendered in loc.
func Write(w io.Writer, tasks []models.Task, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	if _, err := io.WriteString(w, sepHint+"\r\n"); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	cw.Comma = Separator
	cw.UseCRLF = true

	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, t := range tasks {
		if err := cw.Write(newRecord(t, loc).fields()); err != nil {
			return fmt.Errorf("write task %d: %w", t.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read parses a file produced by Write.
func Read(r io.Reader) ([]Record, error) {
	br := bufio.NewReader(r)
	first, err := br.ReadString('\n')
	if err != nil || first != sepHint+"\r\n" {
		return nil, ErrMalformed
	}

	cr := csv.NewReader(br)
	cr.Comma = Separator
	cr.FieldsPerRecord = len(Header)

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(rows) == 0 {
		return nil, ErrMalformed
	}

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		id, err := strconv.ParseUint(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad id %q", ErrMalformed, row[0])
		}
		records = append(records, Record{
			ID:       uint(id),
			Text:     row[1],
			Deadline: row[2],
			Priority: row[3],
			Status:   row[4],
			Created:  row[5],
			Updated:  row[6],
		})
	}
	return records, nil
}

// Filename names an export file for the user at the given time.
func Filename(userID string, at time.Time) string {
	return fmt.Sprintf("tasks_export_%s_%s.csv", userID, at.Format("20060102_150405"))
}
