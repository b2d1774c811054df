// Package lineage восстанавливает логические записи из журнала: корень и цепочку его корректировок.
// Конфликтные структуры (развилка, цикл, отсутствующий корень) помечаются и никогда не разрешаются выбором победителя.
package lineage

import (
	"sort"
	"time"

	"timeledger-backend/lib/apperrors"
	"timeledger-backend/models"
	dbmodels "timeledger-backend/models/db"
	evidencemodels "timeledger-backend/models/evidence"
)

type groupKind int

const (
	groupRoot groupKind = iota
	groupMissingRoot
	groupCycle
)

type groupKey struct {
	kind groupKind
	id   string
}

type builder struct {
	byID     map[string]*dbmodels.LedgerEntry
	children map[string][]string
	keys     map[string]groupKey
	cycles   map[string][]string
}

// Build группирует записи сотрудника в логические записи.
// Вход может быть в любом порядке и должен включать заменённые записи.
func Build(employeeID string, entries []dbmodels.LedgerEntry) evidencemodels.CorrectionClosure {
	b := builder{
		byID:     make(map[string]*dbmodels.LedgerEntry, len(entries)),
		children: map[string][]string{},
		keys:     map[string]groupKey{},
		cycles:   map[string][]string{},
	}
	for idx := range entries {
		rec := &entries[idx]
		if _, ok := b.byID[rec.ID]; ok {
			continue
		}
		b.byID[rec.ID] = rec
		if rec.IsCorrection() {
			b.children[rec.CorrectsID()] = append(b.children[rec.CorrectsID()], rec.ID)
		}
	}
	for parent := range b.children {
		sortIDs(b.byID, b.children[parent])
	}

	groups := map[groupKey][]*dbmodels.LedgerEntry{}
	for _, rec := range b.byID {
		key := b.resolve(rec.ID)
		groups[key] = append(groups[key], rec)
	}

	records := make([]evidencemodels.LogicalRecord, 0, len(groups))
	order := make(map[string]time.Time, len(groups))
	for key, members := range groups {
		sortEntries(members)
		var record evidencemodels.LogicalRecord
		switch key.kind {
		case groupRoot:
			record = b.rootRecord(key.id, members)
		case groupMissingRoot:
			record = unresolved(key.id, members, models.LineageConflictMissingRoot, entryIDs(members))
		case groupCycle:
			record = unresolved(key.id, members, models.LineageConflictCycle, b.cycles[key.id])
		}
		records = append(records, record)
		order[record.RootEntryID] = members[0].CreatedAt
		if key.kind == groupRoot {
			order[record.RootEntryID] = b.byID[key.id].CreatedAt
		}
	}
	sort.Slice(records, func(a, c int) bool {
		ta, tc := order[records[a].RootEntryID], order[records[c].RootEntryID]
		if !ta.Equal(tc) {
			return ta.Before(tc)
		}
		return records[a].RootEntryID < records[c].RootEntryID
	})
	return evidencemodels.CorrectionClosure{
		EmployeeID: employeeID,
		Records:    records,
	}
}

// resolve поднимается по correctsEntryId до корня и кэширует результат для всего пройденного пути
func (b *builder) resolve(id string) groupKey {
	if key, ok := b.keys[id]; ok {
		return key
	}
	path := []string{}
	onPath := map[string]int{}
	cur := id
	var key groupKey
	for {
		if cached, ok := b.keys[cur]; ok {
			key = cached
			break
		}
		if pos, ok := onPath[cur]; ok {
			members := append([]string{}, path[pos:]...)
			sort.Strings(members)
			key = groupKey{kind: groupCycle, id: members[0]}
			b.cycles[members[0]] = members
			break
		}
		rec := b.byID[cur]
		onPath[cur] = len(path)
		path = append(path, cur)
		if !rec.IsCorrection() {
			key = groupKey{kind: groupRoot, id: rec.ID}
			break
		}
		target := rec.CorrectsID()
		if _, ok := b.byID[target]; !ok {
			key = groupKey{kind: groupMissingRoot, id: target}
			break
		}
		cur = target
	}
	for _, visited := range path {
		b.keys[visited] = key
	}
	return key
}

func (b *builder) rootRecord(rootID string, members []*dbmodels.LedgerEntry) evidencemodels.LogicalRecord {
	root := evidencemodels.EntryConvert(*b.byID[rootID])
	record := evidencemodels.LogicalRecord{
		RootEntryID:       rootID,
		Root:              &root,
		CorrectionHistory: []evidencemodels.EntryEvidence{},
	}
	for _, rec := range members {
		if rec.ID != rootID {
			record.CorrectionHistory = append(record.CorrectionHistory, evidencemodels.EntryConvert(*rec))
		}
	}

	forked := []string{}
	for _, rec := range members {
		if kids := b.children[rec.ID]; len(kids) > 1 {
			forked = append(forked, kids...)
		}
	}
	if len(forked) > 0 {
		sort.Strings(forked)
		record.ConflictReason = models.LineageConflictFork
		record.ConflictEntryIDs = forked
		return record
	}

	disordered := []string{}
	for _, rec := range members {
		if !rec.IsCorrection() {
			continue
		}
		if target := b.byID[rec.CorrectsID()]; !rec.CreatedAt.After(target.CreatedAt) {
			disordered = append(disordered, rec.ID)
		}
	}
	if len(disordered) > 0 {
		sort.Strings(disordered)
		record.ConflictReason = models.LineageConflictOutOfOrder
		record.ConflictEntryIDs = disordered
		return record
	}

	// без развилок цепочка линейна и её конец - последняя по created_at запись
	effective := root
	if n := len(record.CorrectionHistory); n > 0 {
		effective = record.CorrectionHistory[n-1]
	}
	record.EffectiveEntry = &effective
	record.Resolved = true
	return record
}

func unresolved(rootID string, members []*dbmodels.LedgerEntry, reason models.LineageConflict, conflictIDs []string) evidencemodels.LogicalRecord {
	record := evidencemodels.LogicalRecord{
		RootEntryID:       rootID,
		CorrectionHistory: make([]evidencemodels.EntryEvidence, 0, len(members)),
		ConflictReason:    reason,
		ConflictEntryIDs:  conflictIDs,
	}
	for _, rec := range members {
		record.CorrectionHistory = append(record.CorrectionHistory, evidencemodels.EntryConvert(*rec))
	}
	return record
}

// Conflicts возвращает конфликты замыкания в виде типизированных ошибок
func Conflicts(closure evidencemodels.CorrectionClosure) []*apperrors.LineageConflictError {
	result := []*apperrors.LineageConflictError{}
	for _, record := range closure.Records {
		if record.Resolved {
			continue
		}
		result = append(result, &apperrors.LineageConflictError{
			EmployeeID:  closure.EmployeeID,
			RootEntryID: record.RootEntryID,
			Reason:      record.ConflictReason,
			EntryIDs:    record.ConflictEntryIDs,
		})
	}
	return result
}

// MissingTargets - идентификаторы исправляемых записей, которых нет во входном наборе
func MissingTargets(entries []dbmodels.LedgerEntry) []string {
	present := make(map[string]bool, len(entries))
	for _, rec := range entries {
		present[rec.ID] = true
	}
	seen := map[string]bool{}
	result := []string{}
	for _, rec := range entries {
		target := rec.CorrectsID()
		if target == "" || present[target] || seen[target] {
			continue
		}
		seen[target] = true
		result = append(result, target)
	}
	sort.Strings(result)
	return result
}

func sortEntries(list []*dbmodels.LedgerEntry) {
	sort.Slice(list, func(a, b int) bool {
		if !list[a].CreatedAt.Equal(list[b].CreatedAt) {
			return list[a].CreatedAt.Before(list[b].CreatedAt)
		}
		return list[a].ID < list[b].ID
	})
}

func sortIDs(byID map[string]*dbmodels.LedgerEntry, ids []string) {
	sort.Slice(ids, func(a, b int) bool {
		ra, rb := byID[ids[a]], byID[ids[b]]
		if !ra.CreatedAt.Equal(rb.CreatedAt) {
			return ra.CreatedAt.Before(rb.CreatedAt)
		}
		return ra.ID < rb.ID
	})
}

func entryIDs(list []*dbmodels.LedgerEntry) []string {
	result := make([]string, 0, len(list))
	for _, rec := range list {
		result = append(result, rec.ID)
	}
	sort.Strings(result)
	return result
}
