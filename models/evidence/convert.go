package evidencemodels

import (
	"strconv"

	dbmodels "timeledger-backend/models/db"
)

func EntryConvert(rec dbmodels.LedgerEntry) EntryEvidence {
	result := EntryEvidence{
		ID:              rec.ID,
		Sequence:        rec.Sequence,
		Kind:            rec.Kind,
		Timestamp:       FormatTime(rec.Timestamp),
		CreatedAt:       FormatTime(rec.CreatedAt),
		IntegrityHash:   rec.IntegrityHash,
		PreviousHash:    rec.PreviousHash,
		CorrectsEntryID: rec.CorrectsID(),
		Origin:          rec.Origin,
		CreatedBy:       rec.CreatedBy,
		DeviceID:        rec.DeviceID,
	}
	if rec.Latitude != nil && rec.Longitude != nil {
		result.Latitude = FormatCoordinate(*rec.Latitude)
		result.Longitude = FormatCoordinate(*rec.Longitude)
	}
	return result
}

// FormatCoordinate - фиксированные 6 знаков, чтобы вывод не зависел от представления float
func FormatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
