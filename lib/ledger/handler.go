package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"timeledger-backend/lib/apperrors"
	ledgerstore "timeledger-backend/lib/ledger/store"
	"timeledger-backend/lib/lineage"
	"timeledger-backend/lib/metrics"
	"timeledger-backend/models"
	ledgerapimodels "timeledger-backend/models/api/ledger"
	dbmodels "timeledger-backend/models/db"
	evidencemodels "timeledger-backend/models/evidence"
)

const DefaultMaxAppendRetries = 5

type Provider interface {
	AppendEntry(ctx context.Context, data ledgerapimodels.AppendEntryData) (*dbmodels.LedgerEntry, error)
	AppendBreak(ctx context.Context, data ledgerapimodels.AppendBreakData) ([]dbmodels.LedgerEntry, error)
	VerifyChain(ctx context.Context, employeeID string, rng models.Range) (evidencemodels.Verdict, error)
	Snapshot(ctx context.Context, employeeID string, rng models.Range) (dbmodels.ChainSnapshot, error)
	// Closure - логические записи сотрудника за период с учётом корректировок
	Closure(ctx context.Context, employeeID string, rng models.Range) (evidencemodels.CorrectionClosure, error)
}

var Instance Provider

func NewHandler(store ledgerstore.Provider, maxRetries int) {
	Instance = NewInstance(store, maxRetries)
}

func NewInstance(store ledgerstore.Provider, maxRetries int) Provider {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxAppendRetries
	}
	return &impl{
		store:      store,
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

type impl struct {
	store      ledgerstore.Provider
	maxRetries int
	now        func() time.Time
}

func (i impl) GetLogger(employeeID string) *log.Entry {
	return log.WithField("employee_id", employeeID)
}

func (i impl) AppendEntry(ctx context.Context, data ledgerapimodels.AppendEntryData) (*dbmodels.LedgerEntry, error) {
	if err := data.Validate(); err != nil {
		return nil, &apperrors.ValidationError{Items: []apperrors.ValidationItem{{Field: "entry", Message: err.Error()}}}
	}
	if data.Origin == "" {
		data.Origin = models.EntryOriginInteractive
	}
	if data.Kind == models.EntryKindCorrection {
		target, err := i.store.GetByID(ctx, *data.CorrectsEntryID)
		if err != nil {
			return nil, &storeError{op: "ошибка получения исправляемой записи", cause: err}
		}
		if target == nil || target.EmployeeID != data.EmployeeID {
			return nil, apperrors.NewValidationError("corrects_entry_id", "исправляемая запись не найдена в журнале сотрудника")
		}
	}
	logger := i.GetLogger(data.EmployeeID)
	for attempt := 1; attempt <= i.maxRetries; attempt++ {
		tail, err := i.store.GetTail(ctx, data.EmployeeID)
		if err != nil {
			return nil, &storeError{op: "ошибка получения хвоста цепочки", cause: err}
		}
		rec := i.buildEntry(data, tail)
		err = i.store.Append(ctx, rec, tail)
		if err == nil {
			metrics.LedgerAppendsTotal.WithLabelValues(string(rec.Kind), "ok").Inc()
			return &rec, nil
		}
		if !errors.Is(err, ledgerstore.ErrTailMismatch) {
			metrics.LedgerAppendsTotal.WithLabelValues(string(rec.Kind), "error").Inc()
			return nil, &storeError{op: "ошибка сохранения записи журнала", cause: err}
		}
		metrics.LedgerAppendConflictsTotal.Inc()
		logger.WithField("attempt", attempt).Debug("хвост цепочки изменён, повторяем добавление")
	}
	metrics.LedgerAppendsTotal.WithLabelValues(string(data.Kind), "exhausted").Inc()
	logger.Warn("исчерпаны попытки добавления записи в журнал")
	return nil, &apperrors.ConcurrencyExhaustedError{EmployeeID: data.EmployeeID, Attempts: i.maxRetries}
}

// timestamptz хранит микросекунды: хэш считается от того значения, которое вернёт БД
const storedPrecision = time.Microsecond

func (i impl) buildEntry(data ledgerapimodels.AppendEntryData, tail *dbmodels.ChainTail) dbmodels.LedgerEntry {
	prevHash := models.ChainStartHash
	var sequence int64 = 1
	createdAt := i.now().UTC().Truncate(storedPrecision)
	if tail != nil {
		prevHash = tail.TailHash
		sequence = tail.Length + 1
		// created_at строго возрастает внутри цепочки даже при расхождении часов
		tailCreatedAt := tail.TailCreatedAt.UTC().Truncate(storedPrecision)
		if !createdAt.After(tailCreatedAt) {
			createdAt = tailCreatedAt.Add(storedPrecision)
		}
	}
	rec := dbmodels.LedgerEntry{
		ID:              uuid.NewString(),
		OrganizationID:  data.OrganizationID,
		EmployeeID:      data.EmployeeID,
		Sequence:        sequence,
		Kind:            data.Kind,
		Timestamp:       data.Timestamp.UTC().Truncate(storedPrecision),
		PreviousHash:    prevHash,
		CorrectsEntryID: data.CorrectsEntryID,
		Origin:          data.Origin,
		CreatedBy:       data.CreatedBy,
		CreatedAt:       createdAt,
		DeviceID:        data.DeviceID,
		Latitude:        data.Latitude,
		Longitude:       data.Longitude,
	}
	rec.IntegrityHash = EntryHash(rec)
	return rec
}

// AppendBreak фиксирует перерыв: окончание работы в момент начала перерыва и начало работы при возобновлении
func (i impl) AppendBreak(ctx context.Context, data ledgerapimodels.AppendBreakData) ([]dbmodels.LedgerEntry, error) {
	if err := data.Validate(); err != nil {
		return nil, apperrors.NewValidationError("break", err.Error())
	}
	base := ledgerapimodels.AppendEntryData{
		OrganizationID: data.OrganizationID,
		EmployeeID:     data.EmployeeID,
		Origin:         data.Origin,
		CreatedBy:      data.CreatedBy,
		DeviceID:       data.DeviceID,
	}
	clockOut := base
	clockOut.Kind = models.EntryKindClockOut
	clockOut.Timestamp = data.BreakStart
	outRec, err := i.AppendEntry(ctx, clockOut)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка фиксации начала перерыва")
	}
	clockIn := base
	clockIn.Kind = models.EntryKindClockIn
	clockIn.Timestamp = data.ResumeAt
	inRec, err := i.AppendEntry(ctx, clockIn)
	if err != nil {
		return []dbmodels.LedgerEntry{*outRec}, errors.Wrap(err, "ошибка фиксации окончания перерыва")
	}
	return []dbmodels.LedgerEntry{*outRec, *inRec}, nil
}

func (i impl) Snapshot(ctx context.Context, employeeID string, rng models.Range) (dbmodels.ChainSnapshot, error) {
	rng = rng.UTC()
	snapshot, err := i.store.Snapshot(ctx, employeeID, rng.From, rng.To)
	if err != nil {
		return dbmodels.ChainSnapshot{}, errors.Wrap(err, "ошибка чтения среза цепочки")
	}
	return snapshot, nil
}

func (i impl) VerifyChain(ctx context.Context, employeeID string, rng models.Range) (evidencemodels.Verdict, error) {
	snapshot, err := i.Snapshot(ctx, employeeID, rng)
	if err != nil {
		return evidencemodels.Verdict{}, err
	}
	verdict := VerifySnapshot(snapshot)
	metrics.ChainVerificationsTotal.WithLabelValues(string(verdict.Status)).Inc()
	if !verdict.IsOK() {
		i.GetLogger(employeeID).
			WithField("verdict", verdict.Status).
			WithField("entry_id", verdict.EntryID).
			Warn("обнаружено нарушение целостности журнала")
	}
	return verdict, nil
}

func (i impl) Closure(ctx context.Context, employeeID string, rng models.Range) (evidencemodels.CorrectionClosure, error) {
	snapshot, err := i.Snapshot(ctx, employeeID, rng)
	if err != nil {
		return evidencemodels.CorrectionClosure{}, err
	}
	entries := snapshot.Entries
	// исправленные записи могли быть созданы до начала периода
	if missing := lineage.MissingTargets(entries); len(missing) != 0 {
		targets, err := i.store.ListByIDs(ctx, missing)
		if err != nil {
			return evidencemodels.CorrectionClosure{}, errors.Wrap(err, "ошибка получения исправленных записей")
		}
		for _, rec := range targets {
			if rec.EmployeeID == employeeID {
				entries = append(entries, rec)
			}
		}
	}
	return lineage.Build(employeeID, entries), nil
}
