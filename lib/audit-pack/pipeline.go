package auditpackhandler

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"timeledger-backend/lib/apperrors"
	"timeledger-backend/lib/bundle"
	"timeledger-backend/lib/evidence/approval"
	"timeledger-backend/lib/evidence/chain"
	filestorage "timeledger-backend/lib/file-storage"
	"timeledger-backend/lib/lineage"
	"timeledger-backend/lib/metrics"
	"timeledger-backend/lib/timeline"
	"timeledger-backend/models"
	dbmodels "timeledger-backend/models/db"
	evidencemodels "timeledger-backend/models/evidence"
)

// pipeline - одна попытка сборки пакета. Шаги выполняются строго последовательно.
type pipeline struct {
	h       impl
	request dbmodels.AuditPackRequest
	rng     models.Range
	logger  *log.Entry
	step    models.AuditPackStep

	snapshots map[string]dbmodels.ChainSnapshot
	outside   map[string][]dbmodels.LedgerEntry
	placed    map[string][]dbmodels.LedgerEntry
	approvals []dbmodels.ApprovalRecord

	chains   []evidencemodels.EntryChainEvidence
	closures []evidencemodels.CorrectionClosure
	evidence evidencemodels.ApprovalEvidence
	timeline []timeline.Event
}

type artifact struct {
	Key     string
	Digest  string
	Archive []byte
}

func newPipeline(h impl, request dbmodels.AuditPackRequest) *pipeline {
	employees := append([]string{}, request.EmployeeIDs...)
	sort.Strings(employees)
	request.EmployeeIDs = employees
	return &pipeline{
		h:         h,
		request:   request,
		rng:       models.Range{From: request.From, To: request.To}.UTC(),
		logger:    h.GetLogger(request.ID),
		snapshots: map[string]dbmodels.ChainSnapshot{},
		outside:   map[string][]dbmodels.LedgerEntry{},
		placed:    map[string][]dbmodels.LedgerEntry{},
	}
}

func (p *pipeline) run(ctx context.Context, step models.AuditPackStep, fn func(ctx context.Context) error) error {
	p.step = step
	if err := ctx.Err(); err != nil {
		return err
	}
	started := time.Now()
	err := fn(ctx)
	metrics.AuditPackStepDuration.WithLabelValues(string(step)).Observe(time.Since(started).Seconds())
	if err != nil {
		return err
	}
	p.logger.WithField("step", step).Debug("шаг выполнен")
	return nil
}

func (p *pipeline) build(ctx context.Context) (artifact, error) {
	steps := []struct {
		step models.AuditPackStep
		fn   func(ctx context.Context) error
	}{
		{models.AuditPackStepFetch, p.fetch},
		{models.AuditPackStepVerifyChain, p.verifyChains},
		{models.AuditPackStepCorrectionLineage, p.buildLineage},
		{models.AuditPackStepApprovalEvidence, p.buildApprovals},
		{models.AuditPackStepTimeline, p.buildTimeline},
	}
	for _, s := range steps {
		if err := p.run(ctx, s.step, s.fn); err != nil {
			return artifact{}, err
		}
	}
	var result artifact
	err := p.run(ctx, models.AuditPackStepAssemble, func(ctx context.Context) error {
		var err error
		result, err = p.assemble()
		return err
	})
	return result, err
}

func (p *pipeline) fetch(ctx context.Context) error {
	for _, employeeID := range p.request.EmployeeIDs {
		snapshot, err := p.h.source.Snapshot(ctx, employeeID, p.rng)
		if err != nil {
			return err
		}
		p.snapshots[employeeID] = snapshot
		// проверка цепочки идёт по created_at, хронология по моменту события: офлайн-отметка,
		// синхронизированная позже, относится к периоду своего времени
		placed, err := p.h.source.ListTimelineEntries(ctx, employeeID, p.rng)
		if err != nil {
			return err
		}
		p.placed[employeeID] = placed
		// цели корректировок вне периода нужны для восстановления логических записей
		missing := lineage.MissingTargets(snapshot.Entries)
		if len(missing) == 0 {
			continue
		}
		targets, err := p.h.source.ListEntriesByIDs(ctx, missing)
		if err != nil {
			return errors.Wrapf(err, "ошибка получения исправляемых записей сотрудника %s", employeeID)
		}
		for _, rec := range targets {
			if rec.EmployeeID == employeeID {
				p.outside[employeeID] = append(p.outside[employeeID], rec)
			}
		}
	}
	approvals, err := p.h.source.ListApprovals(ctx, p.request.OrganizationID, p.request.EmployeeIDs, p.rng)
	if err != nil {
		return errors.Wrap(err, "ошибка получения согласований")
	}
	p.approvals = approvals
	return nil
}

func (p *pipeline) verifyChains(_ context.Context) error {
	for _, employeeID := range p.request.EmployeeIDs {
		evidence := chain.Build(p.snapshots[employeeID], p.rng)
		metrics.ChainVerificationsTotal.WithLabelValues(string(evidence.Verdict.Status)).Inc()
		if !evidence.Verdict.IsOK() {
			return &apperrors.IntegrityError{
				EmployeeID: employeeID,
				Status:     evidence.Verdict.Status,
				EntryID:    evidence.Verdict.EntryID,
			}
		}
		p.chains = append(p.chains, evidence)
	}
	return nil
}

func (p *pipeline) buildLineage(_ context.Context) error {
	primary := p.request.PrimarySubject()
	for _, employeeID := range p.request.EmployeeIDs {
		entries := append([]dbmodels.LedgerEntry{}, p.outside[employeeID]...)
		entries = append(entries, p.snapshots[employeeID].Entries...)
		closure := lineage.Build(employeeID, entries)
		for _, conflict := range lineage.Conflicts(closure) {
			if employeeID == primary {
				return conflict
			}
			p.logger.
				WithField("employee_id", employeeID).
				WithField("root_entry_id", conflict.RootEntryID).
				Warn("конфликт корректировок отмечен в пакете: " + string(conflict.Reason))
		}
		p.closures = append(p.closures, closure)
	}
	return nil
}

func (p *pipeline) buildApprovals(ctx context.Context) error {
	evidence, err := approval.Build(ctx, p.approvals, p.h.source)
	if err != nil {
		return err
	}
	p.evidence = evidence
	return nil
}

func (p *pipeline) buildTimeline(_ context.Context) error {
	entries := []dbmodels.LedgerEntry{}
	for _, employeeID := range p.request.EmployeeIDs {
		entries = append(entries, p.placed[employeeID]...)
	}
	events, err := timeline.Build(entries, p.evidence, p.rng)
	if err != nil {
		return err
	}
	p.timeline = events
	return nil
}

func (p *pipeline) assemble() (artifact, error) {
	result, err := bundle.Assemble(bundle.Input{
		Scope: bundle.Scope{
			OrganizationID:    p.request.OrganizationID,
			EmployeeIDs:       p.request.EmployeeIDs,
			PrimaryEmployeeID: p.request.PrimaryEmployeeID,
			From:              evidencemodels.FormatTime(p.rng.From),
			To:                evidencemodels.FormatTime(p.rng.To),
		},
		Chains:    p.chains,
		Lineage:   p.closures,
		Approvals: p.evidence,
		Timeline:  p.timeline,
	}, p.h.now())
	if err != nil {
		return artifact{}, err
	}
	return artifact{
		Key:     filestorage.AuditPackKey(p.request.OrganizationID, p.request.ID),
		Digest:  result.Digest,
		Archive: result.Archive,
	}, nil
}

func (p *pipeline) upload(ctx context.Context, result artifact) (string, error) {
	p.step = models.AuditPackStepUpload
	started := time.Now()
	ref, err := p.h.uploader.UploadAuditPack(ctx, p.request.OrganizationID, p.request.ID, result.Archive)
	metrics.AuditPackStepDuration.WithLabelValues(string(models.AuditPackStepUpload)).Observe(time.Since(started).Seconds())
	if err != nil {
		var storageErr *apperrors.StorageError
		if !errors.As(err, &storageErr) {
			err = &apperrors.StorageError{Op: "upload", Cause: err}
		}
		return "", err
	}
	return ref, nil
}
