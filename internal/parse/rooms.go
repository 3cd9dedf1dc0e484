package parse

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"hostel-management-backend/internal/model"
)

// RowError is a problem with one line of an import file.
type RowError struct {
	Line int    `json:"line"`
	Msg  string `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// RowErrors collects every problem found in a file.
type RowErrors []RowError

func (errs RowErrors) Error() string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

const (
	colID        = "id"
	colHostelID  = "hostel_id"
	colCapacity  = "capacity"
	colOccupancy = "current_occupancy"
	colCreatedAt = "created_at"
)

var requiredColumns = []string{colID, colHostelID, colCapacity}

type roomRow struct {
	ID               int64 `validate:"gt=0"`
	HostelID         int   `validate:"min=1,max=5"`
	Capacity         int   `validate:"min=1,max=3"`
	CurrentOccupancy int   `validate:"min=0,ltefield=Capacity"`
}

var validate = validator.New()

// ParseRooms reads a rooms CSV with a header row. Rows without created_at are
// stamped with now. Any invalid row rejects the whole file: the returned error
// is a RowErrors listing every bad line.
func ParseRooms(r io.Reader, now time.Time) ([]model.Room, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, RowErrors{{Line: 1, Msg: "file is empty"}}
	}
	if err != nil {
		var perr *csv.ParseError
		if !errors.As(err, &perr) {
			return nil, err
		}
		return nil, RowErrors{{Line: perr.Line, Msg: perr.Err.Error()}}
	}
	cols, err := columnIndex(header)
	if err != nil {
		return nil, RowErrors{{Line: 1, Msg: err.Error()}}
	}

	var (
		rooms []model.Room
		errs  RowErrors
		seen  = map[int64]int{}
	)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, err
			}
			errs = append(errs, RowError{Line: perr.Line, Msg: perr.Err.Error()})
			continue
		}
		line, _ := cr.FieldPos(0)
		if len(record) != len(header) {
			errs = append(errs, RowError{Line: line, Msg: fmt.Sprintf("expected %d fields, got %d", len(header), len(record))})
			continue
		}

		room, msg := parseRoom(record, cols, now)
		if msg != "" {
			errs = append(errs, RowError{Line: line, Msg: msg})
			continue
		}
		if first, dup := seen[room.ID]; dup {
			errs = append(errs, RowError{Line: line, Msg: fmt.Sprintf("room %d already listed on line %d", room.ID, first)})
			continue
		}
		seen[room.ID] = line
		rooms = append(rooms, room)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	if len(rooms) == 0 {
		return nil, RowErrors{{Line: 1, Msg: "no rooms in file"}}
	}
	return rooms, nil
}

func columnIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		switch name {
		case colID, colHostelID, colCapacity, colOccupancy, colCreatedAt:
		default:
			return nil, fmt.Errorf("unknown column %q", h)
		}
		if _, dup := cols[name]; dup {
			return nil, fmt.Errorf("column %q repeated", name)
		}
		cols[name] = i
	}
	for _, req := range requiredColumns {
		if _, ok := cols[req]; !ok {
			return nil, fmt.Errorf("missing column %q", req)
		}
	}
	return cols, nil
}

func parseRoom(record []string, cols map[string]int, now time.Time) (model.Room, string) {
	field := func(name string) string {
		if i, ok := cols[name]; ok {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	var row roomRow
	var err error
	if row.ID, err = strconv.ParseInt(field(colID), 10, 64); err != nil {
		return model.Room{}, fmt.Sprintf("id %q is not a number", field(colID))
	}
	if row.HostelID, err = strconv.Atoi(field(colHostelID)); err != nil {
		return model.Room{}, fmt.Sprintf("hostel_id %q is not a number", field(colHostelID))
	}
	if row.Capacity, err = strconv.Atoi(field(colCapacity)); err != nil {
		return model.Room{}, fmt.Sprintf("capacity %q is not a number", field(colCapacity))
	}
	if v := field(colOccupancy); v != "" {
		if row.CurrentOccupancy, err = strconv.Atoi(v); err != nil {
			return model.Room{}, fmt.Sprintf("current_occupancy %q is not a number", v)
		}
	}

	if err := validate.Struct(row); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return model.Room{}, describe(verrs[0], row)
		}
		return model.Room{}, err.Error()
	}

	createdAt := now
	if v := field(colCreatedAt); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return model.Room{}, fmt.Sprintf("created_at %q is not an RFC3339 timestamp", v)
		}
		createdAt = t
	}

	return model.Room{
		ID:               row.ID,
		HostelID:         row.HostelID,
		Capacity:         row.Capacity,
		CurrentOccupancy: row.CurrentOccupancy,
		CreatedAt:        createdAt.UTC(),
	}, ""
}

func describe(fe validator.FieldError, row roomRow) string {
	switch fe.Field() {
	case "ID":
		return "id must be positive"
	case "HostelID":
		return fmt.Sprintf("hostel_id %d outside %d..%d", row.HostelID, model.MinHostelID, model.MaxHostelID)
	case "Capacity":
		return fmt.Sprintf("capacity %d outside %d..%d", row.Capacity, model.MinCapacity, model.MaxCapacity)
	case "CurrentOccupancy":
		return fmt.Sprintf("current_occupancy %d outside 0..%d", row.CurrentOccupancy, row.Capacity)
	}
	return fe.Error()
}
