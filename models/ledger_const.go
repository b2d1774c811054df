package models

import "strings"

type EntryKind string

const (
	EntryKindClockIn    EntryKind = "clock_in"
	EntryKindClockOut   EntryKind = "clock_out"
	EntryKindCorrection EntryKind = "correction"
)

var entryKindHumanName = map[EntryKind]string{
	EntryKindClockIn:    "Начало работы",
	EntryKindClockOut:   "Окончание работы",
	EntryKindCorrection: "Корректировка",
}

func (k EntryKind) IsValid() bool {
	_, ok := entryKindHumanName[k]
	return ok
}

func (k EntryKind) ToHuman() string {
	if human, exist := entryKindHumanName[k]; exist {
		return human
	}
	return string(k)
}

type EntryOrigin string

const (
	EntryOriginInteractive     EntryOrigin = "interactive"
	EntryOriginAutomated       EntryOrigin = "automated"
	EntryOriginOfflineReplayed EntryOrigin = "offline_replayed"
)

func (o EntryOrigin) IsValid() bool {
	switch o {
	case EntryOriginInteractive, EntryOriginAutomated, EntryOriginOfflineReplayed:
		return true
	}
	return false
}

// ChainStartHash - previous_hash первой записи в цепочке сотрудника
var ChainStartHash = strings.Repeat("0", 64)

type VerdictStatus string

const (
	VerdictOK         VerdictStatus = "OK"
	VerdictTampered   VerdictStatus = "TAMPERED"
	VerdictBrokenLink VerdictStatus = "BROKEN_LINK"
	VerdictOutOfOrder VerdictStatus = "OUT_OF_ORDER"
)

type LineageConflict string

const (
	LineageConflictFork        LineageConflict = "fork"
	LineageConflictCycle       LineageConflict = "cycle"
	LineageConflictMissingRoot LineageConflict = "missing_root"
	LineageConflictOutOfOrder  LineageConflict = "out_of_order"
)

var lineageConflictHumanName = map[LineageConflict]string{
	LineageConflictFork:        "Несколько корректировок одной записи",
	LineageConflictCycle:       "Циклическая цепочка корректировок",
	LineageConflictMissingRoot: "Исправляемая запись отсутствует",
	LineageConflictOutOfOrder:  "Корректировка создана раньше исправляемой записи",
}

func (c LineageConflict) ToHuman() string {
	if human, exist := lineageConflictHumanName[c]; exist {
		return human
	}
	return string(c)
}
