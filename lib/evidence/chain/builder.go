package chain

import (
	"timeledger-backend/lib/ledger"
	"timeledger-backend/models"
	dbmodels "timeledger-backend/models/db"
	evidencemodels "timeledger-backend/models/evidence"
)

// Build упаковывает сырую цепочку сотрудника за период вместе с вердиктом проверки.
// Корректировки здесь не разрешаются: это криптографический слой, а не смысловой.
func Build(snapshot dbmodels.ChainSnapshot, rng models.Range) evidencemodels.EntryChainEvidence {
	rng = rng.UTC()
	result := evidencemodels.EntryChainEvidence{
		EmployeeID: snapshot.EmployeeID,
		From:       evidencemodels.FormatTime(rng.From),
		To:         evidencemodels.FormatTime(rng.To),
		AnchorHash: snapshot.AnchorHash(),
		Verdict:    ledger.VerifySnapshot(snapshot),
		Entries:    make([]evidencemodels.EntryEvidence, 0, len(snapshot.Entries)),
	}
	for _, rec := range snapshot.Entries {
		result.Entries = append(result.Entries, evidencemodels.EntryConvert(rec))
	}
	return result
}
