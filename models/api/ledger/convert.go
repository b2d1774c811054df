package ledgerapimodels

import dbmodels "timeledger-backend/models/db"

func EntryConvert(rec dbmodels.LedgerEntry) EntryView {
	return EntryView{
		ID:              rec.ID,
		EmployeeID:      rec.EmployeeID,
		Sequence:        rec.Sequence,
		Kind:            rec.Kind,
		Timestamp:       rec.Timestamp,
		IntegrityHash:   rec.IntegrityHash,
		PreviousHash:    rec.PreviousHash,
		CorrectsEntryID: rec.CorrectsEntryID,
		Origin:          rec.Origin,
		CreatedAt:       rec.CreatedAt,
	}
}
