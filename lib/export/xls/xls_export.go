package xlsexport

import (
	"bytes"
	"math"
	"sort"
	"strings"
	"time"

	"timeledger-backend/lib/lineage"
	"timeledger-backend/models"
	evidencemodels "timeledger-backend/models/evidence"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

type Provider interface {
	ExportTimesheet(closure evidencemodels.CorrectionClosure) (*bytes.Buffer, error)
}

var Instance Provider

func NewHandler() {
	Instance = impl{}
}

type impl struct{}

const (
	timesheetSheet = "Табель"
	conflictSheet  = "Конфликты"
)

var timesheetHeaders = []string{"Дата", "Начало", "Окончание", "Часов", "Запись начала", "Запись окончания"}

var conflictHeaders = []string{"Корневая запись", "Причина", "Записи"}

// Shift - смена, собранная из действующих отметок начала и окончания работы.
// Незакрытая смена или окончание без начала попадают в табель с пустой границей.
type Shift struct {
	Start *lineage.EffectiveEvent
	End   *lineage.EffectiveEvent
}

func (s Shift) Hours() float64 {
	if s.Start == nil || s.End == nil {
		return 0
	}
	hours := s.End.Timestamp.Sub(s.Start.Timestamp).Hours()
	return math.Round(hours*100) / 100
}

func (s Shift) Day() time.Time {
	if s.Start != nil {
		return s.Start.Timestamp.UTC()
	}
	return s.End.Timestamp.UTC()
}

func Shifts(events []lineage.EffectiveEvent) []Shift {
	list := make([]lineage.EffectiveEvent, len(events))
	copy(list, events)
	sort.SliceStable(list, func(a, b int) bool {
		return list[a].Timestamp.Before(list[b].Timestamp)
	})
	result := []Shift{}
	var open *lineage.EffectiveEvent
	for idx := range list {
		event := &list[idx]
		switch event.Kind {
		case models.EntryKindClockIn:
			if open != nil {
				result = append(result, Shift{Start: open})
			}
			open = event
		case models.EntryKindClockOut:
			result = append(result, Shift{Start: open, End: event})
			open = nil
		}
	}
	if open != nil {
		result = append(result, Shift{Start: open})
	}
	return result
}

func (i impl) ExportTimesheet(closure evidencemodels.CorrectionClosure) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.WithError(err).Error("ошибка закрытия файла")
		}
	}()
	sheet := "Sheet1"
	row, err := writeHeader(f, sheet, 0, timesheetHeaders)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка формирования заголовка в xlsx")
	}
	shifts := Shifts(lineage.EffectiveEvents(closure))
	if len(shifts) != 0 {
		_, err = writeShiftData(f, sheet, shifts, row)
		if err != nil {
			return nil, errors.Wrap(err, "ошибка формирования табеля в xlsx")
		}
	}
	if err = f.SetSheetName(sheet, timesheetSheet); err != nil {
		return nil, errors.Wrap(err, "ошибка переименования листа xlsx")
	}
	if err = writeConflicts(f, closure); err != nil {
		return nil, errors.Wrap(err, "ошибка формирования листа конфликтов в xlsx")
	}
	return f.WriteToBuffer()
}

func writeShiftData(f *excelize.File, sheet string, shifts []Shift, row int) (int, error) {
	if err := applyDataCellStyle(f, sheet, 1, row+1, len(timesheetHeaders), row+len(shifts)); err != nil {
		return row, err
	}
	for _, shift := range shifts {
		row++
		values := []interface{}{
			shift.Day().Format("2006-01-02"),
			clockTime(shift.Start),
			clockTime(shift.End),
			shift.Hours(),
			entryID(shift.Start),
			entryID(shift.End),
		}
		for idx, value := range values {
			if err := writeColumn(f, sheet, idx+1, row, value); err != nil {
				return row, err
			}
		}
	}
	return row, nil
}

func writeConflicts(f *excelize.File, closure evidencemodels.CorrectionClosure) error {
	list := []evidencemodels.LogicalRecord{}
	for _, record := range closure.Records {
		if !record.Resolved {
			list = append(list, record)
		}
	}
	if len(list) == 0 {
		return nil
	}
	if _, err := f.NewSheet(conflictSheet); err != nil {
		return err
	}
	row, err := writeHeader(f, conflictSheet, 0, conflictHeaders)
	if err != nil {
		return err
	}
	for _, record := range list {
		row++
		values := []interface{}{
			record.RootEntryID,
			record.ConflictReason.ToHuman(),
			strings.Join(record.ConflictEntryIDs, ", "),
		}
		for idx, value := range values {
			if err = writeColumn(f, conflictSheet, idx+1, row, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func clockTime(event *lineage.EffectiveEvent) string {
	if event == nil {
		return ""
	}
	return event.Timestamp.UTC().Format("15:04")
}

func entryID(event *lineage.EffectiveEvent) string {
	if event == nil {
		return ""
	}
	return event.EffectiveEntryID
}
