package ledger

import (
	"timeledger-backend/models"
	dbmodels "timeledger-backend/models/db"
	evidencemodels "timeledger-backend/models/evidence"
)

// VerifyEntries проходит записи в порядке создания и возвращает первое расхождение.
// Для каждой записи проверки идут в порядке: хэш, ссылка на предыдущую, монотонность created_at.
func VerifyEntries(anchor *dbmodels.LedgerEntry, entries []dbmodels.LedgerEntry) evidencemodels.Verdict {
	prevHash := models.ChainStartHash
	var prev *dbmodels.LedgerEntry
	if anchor != nil {
		prevHash = anchor.IntegrityHash
		prev = anchor
	}
	for idx := range entries {
		rec := entries[idx]
		if EntryHash(rec) != rec.IntegrityHash {
			return evidencemodels.Verdict{Status: models.VerdictTampered, EntryID: rec.ID, Index: idx, Checked: idx + 1}
		}
		if rec.PreviousHash != prevHash {
			return evidencemodels.Verdict{Status: models.VerdictBrokenLink, EntryID: rec.ID, Index: idx, Checked: idx + 1}
		}
		if prev != nil && !rec.CreatedAt.After(prev.CreatedAt) {
			return evidencemodels.Verdict{Status: models.VerdictOutOfOrder, EntryID: rec.ID, Index: idx, Checked: idx + 1}
		}
		prevHash = rec.IntegrityHash
		prev = &entries[idx]
	}
	return evidencemodels.Verdict{Status: models.VerdictOK, Index: -1, Checked: len(entries)}
}

func VerifySnapshot(snapshot dbmodels.ChainSnapshot) evidencemodels.Verdict {
	return VerifyEntries(snapshot.Anchor, snapshot.Entries)
}
