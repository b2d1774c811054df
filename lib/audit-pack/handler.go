package auditpackhandler

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"timeledger-backend/lib/apperrors"
	auditpackstore "timeledger-backend/lib/audit-pack/store"
	"timeledger-backend/lib/metrics"
	"timeledger-backend/lib/utils/lock"
	"timeledger-backend/models"
	auditpackapimodels "timeledger-backend/models/api/auditpack"
	dbmodels "timeledger-backend/models/db"
)

type Provider interface {
	// Submit возвращает attached=true, если для области уже есть активный запрос
	Submit(ctx context.Context, data auditpackapimodels.SubmitData) (rec *dbmodels.AuditPackRequest, attached bool, err error)
	Process(ctx context.Context, id string) error
	Retry(ctx context.Context, id string) (*dbmodels.AuditPackRequest, error)
	// FailStale закрывает попытку, обработчик которой пропал, не завершив её
	FailStale(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*dbmodels.AuditPackRequest, error)
}

type Config struct {
	MaxWindow      time.Duration
	MaxAttempts    int
	JobMaxDuration time.Duration
	SubmitLockWait time.Duration
}

var Instance Provider

func NewHandler(store auditpackstore.Provider, source DataSource, uploader Uploader, cfg Config) {
	Instance = NewInstance(store, source, uploader, cfg)
}

func NewInstance(store auditpackstore.Provider, source DataSource, uploader Uploader, cfg Config) Provider {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.SubmitLockWait <= 0 {
		cfg.SubmitLockWait = 10 * time.Second
	}
	return &impl{
		store:    store,
		source:   source,
		uploader: uploader,
		cfg:      cfg,
		now:      time.Now,
	}
}

type impl struct {
	store    auditpackstore.Provider
	source   DataSource
	uploader Uploader
	cfg      Config
	now      func() time.Time
}

func (i impl) GetLogger(id string) *log.Entry {
	return log.WithField("audit_pack_id", id)
}

func (i impl) Submit(ctx context.Context, data auditpackapimodels.SubmitData) (*dbmodels.AuditPackRequest, bool, error) {
	sc, err := i.validateScope(data)
	if err != nil {
		return nil, false, err
	}
	hash := ScopeHash(sc.OrganizationID, sc.EmployeeIDs, sc.PrimaryEmployeeID, sc.From, sc.To)
	var result *dbmodels.AuditPackRequest
	attached := false
	locked, err := lock.WithDelay(ctx, "audit-pack-submit:"+sc.OrganizationID+":"+hash, i.cfg.SubmitLockWait, func() error {
		existing, err := i.store.FindActiveByScope(ctx, sc.OrganizationID, hash)
		if err != nil {
			return errors.Wrap(err, "ошибка поиска активного запроса")
		}
		if existing != nil {
			result, attached = existing, true
			return nil
		}
		rec := dbmodels.AuditPackRequest{
			EmployeeIDs:       sc.EmployeeIDs,
			PrimaryEmployeeID: sc.PrimaryEmployeeID,
			From:              sc.From,
			To:                sc.To,
			ScopeHash:         hash,
			RequestedBy:       data.RequestedBy,
			Status:            models.AuditPackStatusPending,
		}
		rec.OrganizationID = sc.OrganizationID
		if err = rec.Validate(); err != nil {
			return apperrors.NewValidationError("scope", err.Error())
		}
		id, err := i.store.Create(ctx, rec)
		if err != nil {
			if !errors.Is(err, auditpackstore.ErrActiveScopeExists) {
				return errors.Wrap(err, "ошибка создания запроса")
			}
			// запрос создан другим экземпляром сервиса
			existing, err = i.store.FindActiveByScope(ctx, sc.OrganizationID, hash)
			if err != nil {
				return errors.Wrap(err, "ошибка поиска активного запроса")
			}
			if existing == nil {
				return errors.New("активный запрос для области не найден")
			}
			result, attached = existing, true
			return nil
		}
		result, err = i.store.GetByID(ctx, id)
		if err != nil {
			return errors.Wrap(err, "ошибка получения созданного запроса")
		}
		metrics.AuditPackTransitionsTotal.WithLabelValues(string(models.AuditPackStatusPending)).Inc()
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if !locked {
		return nil, false, errors.New("не удалось дождаться обработки запроса с той же областью")
	}
	if result == nil {
		return nil, false, errors.New("запрос не найден после создания")
	}
	i.GetLogger(result.ID).
		WithField("attached", attached).
		WithField("employees", len(sc.EmployeeIDs)).
		Info("принят запрос на формирование аудиторского пакета")
	return result, attached, nil
}

func (i impl) Get(ctx context.Context, id string) (*dbmodels.AuditPackRequest, error) {
	rec, err := i.store.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка получения запроса")
	}
	return rec, nil
}

// Retry возвращает неудавшийся запрос в очередь; повтор выполняет внешний планировщик
func (i impl) Retry(ctx context.Context, id string) (*dbmodels.AuditPackRequest, error) {
	rec, err := i.store.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка получения запроса")
	}
	if rec == nil {
		return nil, nil
	}
	if rec.Status != models.AuditPackStatusFailed {
		return nil, apperrors.NewValidationError("status", "повторить можно только запрос в статусе "+models.AuditPackStatusFailed.ToHuman())
	}
	if !rec.Retryable {
		return nil, apperrors.NewValidationError("retryable", "ошибка запроса не допускает повтора: "+rec.FailureCode)
	}
	if rec.Attempt >= i.cfg.MaxAttempts {
		return nil, apperrors.NewValidationError("attempt", "исчерпано количество попыток")
	}
	active, err := i.store.FindActiveByScope(ctx, rec.OrganizationID, rec.ScopeHash)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка поиска активного запроса")
	}
	if active != nil {
		return nil, apperrors.NewValidationError("scope", "для области уже есть активный запрос "+active.ID)
	}
	err = i.transition(ctx, id, models.AuditPackStatusFailed, models.AuditPackStatusPending, func(rec *dbmodels.AuditPackRequest) {
		rec.FailureStep = ""
		rec.FailureCode = ""
		rec.FailureReason = ""
		rec.Retryable = false
		rec.StartedAt = nil
		rec.FinishedAt = nil
	})
	if err != nil {
		return nil, err
	}
	return i.store.GetByID(ctx, id)
}

// Process забирает запрос из pending и выполняет одну попытку сборки и выгрузки
func (i impl) Process(ctx context.Context, id string) error {
	startedAt := i.now().UTC()
	err := i.transition(ctx, id, models.AuditPackStatusPending, models.AuditPackStatusProcessing, func(rec *dbmodels.AuditPackRequest) {
		rec.Attempt++
		rec.StartedAt = &startedAt
		rec.FinishedAt = nil
	})
	if err != nil {
		return err
	}
	rec, err := i.store.GetByID(ctx, id)
	if err != nil {
		return errors.Wrap(err, "ошибка получения запроса")
	}
	if rec == nil {
		return errors.Errorf("запрос %s не найден", id)
	}
	logger := i.GetLogger(id).WithField("attempt", rec.Attempt)

	jobCtx := ctx
	cancel := func() {}
	if i.cfg.JobMaxDuration > 0 {
		jobCtx, cancel = context.WithTimeout(ctx, i.cfg.JobMaxDuration)
	}
	defer cancel()

	p := newPipeline(i, *rec)
	result, err := p.build(jobCtx)
	if err != nil {
		return i.fail(ctx, id, models.AuditPackStatusProcessing, p.step, i.classify(ctx, jobCtx, err))
	}
	err = i.transition(ctx, id, models.AuditPackStatusProcessing, models.AuditPackStatusAssembled, func(rec *dbmodels.AuditPackRequest) {
		rec.ArtifactRef = result.Key
		rec.ArtifactDigest = result.Digest
	})
	if err != nil {
		return err
	}

	ref, err := p.upload(jobCtx, result)
	if err != nil {
		return i.fail(ctx, id, models.AuditPackStatusAssembled, models.AuditPackStepUpload, i.classify(ctx, jobCtx, err))
	}
	finishedAt := i.now().UTC()
	err = i.transition(ctx, id, models.AuditPackStatusAssembled, models.AuditPackStatusUploaded, func(rec *dbmodels.AuditPackRequest) {
		rec.ArtifactRef = ref
		rec.FinishedAt = &finishedAt
	})
	if err != nil {
		return err
	}
	logger.WithField("artifact_ref", ref).Info("аудиторский пакет выгружен")
	return nil
}

func (i impl) FailStale(ctx context.Context, id string) error {
	rec, err := i.store.GetByID(ctx, id)
	if err != nil {
		return errors.Wrap(err, "ошибка получения запроса")
	}
	if rec == nil || rec.Status != models.AuditPackStatusProcessing {
		return ErrNotInState
	}
	step := rec.FailureStep
	if step == "" {
		step = models.AuditPackStepFetch
	}
	return i.fail(ctx, id, models.AuditPackStatusProcessing, step, &apperrors.TimeoutError{Budget: i.cfg.JobMaxDuration})
}

// classify превращает истечение бюджета попытки в TimeoutError
func (i impl) classify(parent, job context.Context, err error) error {
	if errors.Is(job.Err(), context.DeadlineExceeded) && parent.Err() == nil {
		return &apperrors.TimeoutError{Budget: i.cfg.JobMaxDuration}
	}
	return err
}

func (i impl) fail(ctx context.Context, id string, from models.AuditPackStatus, step models.AuditPackStep, cause error) error {
	code := apperrors.CodeOf(cause)
	retryable := apperrors.Retryable(cause)
	finishedAt := i.now().UTC()
	metrics.AuditPackFailuresTotal.WithLabelValues(string(step), code).Inc()
	i.GetLogger(id).
		WithField("step", step).
		WithField("code", code).
		WithField("retryable", retryable).
		Error(cause.Error())
	// статус фиксируется даже после отмены контекста попытки
	err := i.transition(context.WithoutCancel(ctx), id, from, models.AuditPackStatusFailed, func(rec *dbmodels.AuditPackRequest) {
		rec.FailureStep = step
		rec.FailureCode = code
		rec.FailureReason = cause.Error()
		rec.Retryable = retryable
		rec.FinishedAt = &finishedAt
	})
	if err != nil {
		return errors.Wrapf(err, "ошибка фиксации отказа (%v)", cause)
	}
	return &StepError{Step: step, Err: cause}
}

// StepError - отказ попытки с указанием шага
type StepError struct {
	Step models.AuditPackStep
	Err  error
}

func (e *StepError) Error() string {
	return string(e.Step) + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}
