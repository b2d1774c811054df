package xlsexport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"timeledger-backend/lib/lineage"
	"timeledger-backend/models"
	dbmodels "timeledger-backend/models/db"
)

var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func entry(id string, kind models.EntryKind, ts, created time.Duration, corrects string) dbmodels.LedgerEntry {
	rec := dbmodels.LedgerEntry{
		ID:         id,
		EmployeeID: "e1",
		Kind:       kind,
		Timestamp:  day.Add(ts),
		CreatedAt:  day.Add(created),
		Origin:     models.EntryOriginInteractive,
	}
	if corrects != "" {
		rec.CorrectsEntryID = &corrects
	}
	return rec
}

func TestExportTimesheet(t *testing.T) {
	closure := lineage.Build("e1", []dbmodels.LedgerEntry{
		entry("in-1", models.EntryKindClockIn, 9*time.Hour, 9*time.Hour, ""),
		entry("out-1", models.EntryKindClockOut, 17*time.Hour, 17*time.Hour, ""),
		entry("fix-1", models.EntryKindCorrection, 17*time.Hour+30*time.Minute, 18*time.Hour, "out-1"),
		entry("in-2", models.EntryKindClockIn, 33*time.Hour, 33*time.Hour, ""),
		entry("out-2", models.EntryKindClockOut, 41*time.Hour, 41*time.Hour, ""),
		entry("fork-a", models.EntryKindCorrection, 40*time.Hour, 42*time.Hour, "out-2"),
		entry("fork-b", models.EntryKindCorrection, 39*time.Hour, 43*time.Hour, "out-2"),
	})

	t.Run(`shifts pair effective clock events`, func(t *testing.T) {
		shifts := Shifts(lineage.EffectiveEvents(closure))
		require.Len(t, shifts, 2)
		require.Equal(t, "fix-1", shifts[0].End.EffectiveEntryID)
		require.Equal(t, 8.5, shifts[0].Hours())
		require.Equal(t, "in-2", shifts[1].Start.EffectiveEntryID)
		require.Nil(t, shifts[1].End)
		require.Equal(t, float64(0), shifts[1].Hours())
	})

	t.Run(`workbook contains timesheet and conflicts`, func(t *testing.T) {
		buf, err := impl{}.ExportTimesheet(closure)
		require.Nil(t, err)
		f, err := excelize.OpenReader(buf)
		require.Nil(t, err)
		defer f.Close()

		rows, err := f.GetRows(timesheetSheet)
		require.Nil(t, err)
		require.Len(t, rows, 3)
		require.Equal(t, timesheetHeaders, rows[0])
		require.Equal(t, []string{"2026-03-02", "09:00", "17:30", "8.5", "in-1", "fix-1"}, rows[1])
		require.Equal(t, "2026-03-03", rows[2][0])
		require.Equal(t, "09:00", rows[2][1])
		require.Equal(t, "", rows[2][2])

		rows, err = f.GetRows(conflictSheet)
		require.Nil(t, err)
		require.Len(t, rows, 2)
		require.Equal(t, "out-2", rows[1][0])
		require.Equal(t, models.LineageConflictFork.ToHuman(), rows[1][1])
		require.Equal(t, "fork-a, fork-b", rows[1][2])
	})

	t.Run(`no conflicts sheet for a clean closure`, func(t *testing.T) {
		clean := lineage.Build("e1", []dbmodels.LedgerEntry{
			entry("in-1", models.EntryKindClockIn, 9*time.Hour, 9*time.Hour, ""),
		})
		buf, err := impl{}.ExportTimesheet(clean)
		require.Nil(t, err)
		f, err := excelize.OpenReader(buf)
		require.Nil(t, err)
		defer f.Close()
		require.Equal(t, []string{timesheetSheet}, f.GetSheetList())
	})
}
