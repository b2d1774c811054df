package bundle

import (
	"encoding/json"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"timeledger-backend/lib/ledger"
	"timeledger-backend/models"
	dbmodels "timeledger-backend/models/db"
	evidencemodels "timeledger-backend/models/evidence"
)

// ChainCheck - повторная проверка цепочки по данным из пакета, без доступа к БД
type ChainCheck struct {
	Path       string                 `json:"path"`
	EmployeeID string                 `json:"employee_id"`
	Declared   evidencemodels.Verdict `json:"declared"`
	Recomputed evidencemodels.Verdict `json:"recomputed"`
}

func (c ChainCheck) Consistent() bool {
	return c.Declared.Status == c.Recomputed.Status && c.Declared.EntryID == c.Recomputed.EntryID
}

// RecheckChains пересчитывает хэши всех цепочек архива
func RecheckChains(r io.ReaderAt, size int64) ([]ChainCheck, error) {
	contents, err := ReadFiles(r, size)
	if err != nil {
		return nil, err
	}
	paths := []string{}
	for path := range contents {
		if strings.HasPrefix(path, chainDir) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	result := make([]ChainCheck, 0, len(paths))
	for _, path := range paths {
		var evidence evidencemodels.EntryChainEvidence
		if err = json.Unmarshal(contents[path], &evidence); err != nil {
			return nil, errors.Wrapf(err, "ошибка разбора %s", path)
		}
		entries, err := restoreEntries(evidence)
		if err != nil {
			return nil, errors.Wrapf(err, "ошибка разбора записей %s", path)
		}
		var anchor *dbmodels.LedgerEntry
		if evidence.AnchorHash != "" && evidence.AnchorHash != models.ChainStartHash {
			// время создания якоря в пакет не входит, поэтому первая запись с ним не сравнивается
			anchor = &dbmodels.LedgerEntry{IntegrityHash: evidence.AnchorHash}
		}
		result = append(result, ChainCheck{
			Path:       path,
			EmployeeID: evidence.EmployeeID,
			Declared:   evidence.Verdict,
			Recomputed: ledger.VerifyEntries(anchor, entries),
		})
	}
	return result, nil
}

func restoreEntries(evidence evidencemodels.EntryChainEvidence) ([]dbmodels.LedgerEntry, error) {
	list := make([]dbmodels.LedgerEntry, 0, len(evidence.Entries))
	for _, item := range evidence.Entries {
		ts, err := time.Parse(time.RFC3339Nano, item.Timestamp)
		if err != nil {
			return nil, err
		}
		createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
		if err != nil {
			return nil, err
		}
		rec := dbmodels.LedgerEntry{
			ID:            item.ID,
			EmployeeID:    evidence.EmployeeID,
			Sequence:      item.Sequence,
			Kind:          item.Kind,
			Timestamp:     ts,
			CreatedAt:     createdAt,
			IntegrityHash: item.IntegrityHash,
			PreviousHash:  item.PreviousHash,
			Origin:        item.Origin,
		}
		if item.CorrectsEntryID != "" {
			target := item.CorrectsEntryID
			rec.CorrectsEntryID = &target
		}
		list = append(list, rec)
	}
	return list, nil
}
