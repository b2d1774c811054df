// Package bundle собирает доказательства в переносимый zip-архив с манифестом.
// Одинаковые входные данные дают побайтно одинаковые файлы; отличается только generated_at в манифесте.
package bundle

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"timeledger-backend/lib/timeline"
	evidencemodels "timeledger-backend/models/evidence"
)

type Input struct {
	Scope     Scope
	Chains    []evidencemodels.EntryChainEvidence
	Lineage   []evidencemodels.CorrectionClosure
	Approvals evidencemodels.ApprovalEvidence
	Timeline  []timeline.Event
}

type Result struct {
	Archive  []byte
	Digest   string
	Manifest Manifest
}

func Assemble(in Input, generatedAt time.Time) (Result, error) {
	in.Chains = append([]evidencemodels.EntryChainEvidence{}, in.Chains...)
	sort.SliceStable(in.Chains, func(a, b int) bool { return in.Chains[a].EmployeeID < in.Chains[b].EmployeeID })
	in.Lineage = append([]evidencemodels.CorrectionClosure{}, in.Lineage...)
	sort.SliceStable(in.Lineage, func(a, b int) bool { return in.Lineage[a].EmployeeID < in.Lineage[b].EmployeeID })

	files := []file{}
	add := func(path string, v interface{}) error {
		data, err := marshal(v)
		if err != nil {
			return errors.Wrapf(err, "ошибка сериализации %s", path)
		}
		files = append(files, file{Path: path, Data: data})
		return nil
	}

	manifest := Manifest{
		FormatVersion:    FormatVersion,
		GeneratedAt:      evidencemodels.FormatTime(generatedAt),
		Scope:            normalizeScope(in.Scope),
		Verdicts:         []VerdictItem{},
		LineageConflicts: []ConflictItem{},
		Gaps:             append([]evidencemodels.Gap{}, in.Approvals.Gaps...),
		Files:            []FileItem{},
	}

	for _, chain := range in.Chains {
		if err := add(ChainPath(chain.EmployeeID), chain); err != nil {
			return Result{}, err
		}
		manifest.Verdicts = append(manifest.Verdicts, VerdictItem{
			EmployeeID: chain.EmployeeID,
			Status:     chain.Verdict.Status,
			EntryID:    chain.Verdict.EntryID,
			Checked:    chain.Verdict.Checked,
		})
	}
	for _, closure := range in.Lineage {
		if err := add(LineagePath(closure.EmployeeID), closure); err != nil {
			return Result{}, err
		}
		for _, record := range closure.Records {
			if record.Resolved {
				continue
			}
			manifest.LineageConflicts = append(manifest.LineageConflicts, ConflictItem{
				EmployeeID:  closure.EmployeeID,
				RootEntryID: record.RootEntryID,
				Reason:      record.ConflictReason,
				EntryIDs:    record.ConflictEntryIDs,
			})
		}
	}
	for _, entity := range in.Approvals.Entities {
		if err := add(ApprovalPath(string(entity.EntityType), entity.EntityID), entity); err != nil {
			return Result{}, err
		}
	}

	timelineData, err := marshalLines(in.Timeline)
	if err != nil {
		return Result{}, err
	}
	files = append(files, file{Path: TimelinePath, Data: timelineData})

	files = append(files, file{Path: SummaryPath, Data: []byte(summary(manifest, in))})

	if dup := duplicatePath(files); dup != "" {
		return Result{}, errors.Errorf("повторяющийся файл в архиве: %s", dup)
	}
	for _, item := range files {
		manifest.Files = append(manifest.Files, FileItem{Path: item.Path, SHA256: digest(item.Data), Size: len(item.Data)})
	}
	sort.Slice(manifest.Files, func(a, b int) bool { return manifest.Files[a].Path < manifest.Files[b].Path })
	if err := add(ManifestPath, manifest); err != nil {
		return Result{}, err
	}

	archive, err := writeArchive(files)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Archive:  archive,
		Digest:   digest(archive),
		Manifest: manifest,
	}, nil
}

const chainDir = "evidence/chain/"

func ChainPath(employeeID string) string {
	return fmt.Sprintf("%s%s.json", chainDir, employeeID)
}

func LineagePath(employeeID string) string {
	return fmt.Sprintf("evidence/lineage/%s.json", employeeID)
}

func ApprovalPath(entityType, entityID string) string {
	return fmt.Sprintf("evidence/approvals/%s-%s.json", entityType, entityID)
}

func normalizeScope(scope Scope) Scope {
	ids := append([]string{}, scope.EmployeeIDs...)
	sort.Strings(ids)
	scope.EmployeeIDs = ids
	return scope
}

func marshal(v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func marshalLines(events []timeline.Event) ([]byte, error) {
	buffer := bytes.Buffer{}
	encoder := json.NewEncoder(&buffer)
	for _, event := range events {
		if err := encoder.Encode(event); err != nil {
			return nil, errors.Wrapf(err, "ошибка сериализации события %s", event.SourceID)
		}
	}
	return buffer.Bytes(), nil
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func duplicatePath(files []file) string {
	seen := map[string]bool{}
	for _, item := range files {
		if seen[item.Path] {
			return item.Path
		}
		seen[item.Path] = true
	}
	return ""
}

func summary(manifest Manifest, in Input) string {
	sb := strings.Builder{}
	sb.WriteString("Аудиторский пакет журнала рабочего времени\n")
	sb.WriteString(fmt.Sprintf("Организация: %s\n", manifest.Scope.OrganizationID))
	sb.WriteString(fmt.Sprintf("Период: %s - %s\n", manifest.Scope.From, manifest.Scope.To))
	sb.WriteString(fmt.Sprintf("Сотрудники: %s\n", strings.Join(manifest.Scope.EmployeeIDs, ", ")))
	if manifest.Scope.PrimaryEmployeeID != "" {
		sb.WriteString(fmt.Sprintf("Основной сотрудник: %s\n", manifest.Scope.PrimaryEmployeeID))
	}
	sb.WriteString("\nПроверка цепочек:\n")
	for _, verdict := range manifest.Verdicts {
		sb.WriteString(fmt.Sprintf("  %s: %s, проверено записей: %d\n", verdict.EmployeeID, verdict.Status, verdict.Checked))
	}
	sb.WriteString("\nЛогические записи:\n")
	for _, closure := range in.Lineage {
		resolved := 0
		for _, record := range closure.Records {
			if record.Resolved {
				resolved++
			}
		}
		sb.WriteString(fmt.Sprintf("  %s: всего %d, разрешено %d\n", closure.EmployeeID, len(closure.Records), resolved))
	}
	if len(manifest.LineageConflicts) > 0 {
		sb.WriteString("\nКонфликты корректировок:\n")
		for _, conflict := range manifest.LineageConflicts {
			sb.WriteString(fmt.Sprintf("  %s: %s у записи %s (%s)\n",
				conflict.EmployeeID, conflict.Reason, conflict.RootEntryID, strings.Join(conflict.EntryIDs, ", ")))
		}
	}
	sb.WriteString(fmt.Sprintf("\nСогласования: %d\n", len(in.Approvals.Entities)))
	for _, entity := range in.Approvals.Entities {
		sb.WriteString(fmt.Sprintf("  %s %s: %s, решений %d\n", entity.EntityType.ToHuman(), entity.EntityID, entity.FinalState, len(entity.Decisions)))
	}
	if len(manifest.Gaps) > 0 {
		sb.WriteString("\nИсключено из пакета:\n")
		for _, gap := range manifest.Gaps {
			sb.WriteString(fmt.Sprintf("  %s %s: %s\n", gap.EntityType, gap.EntityID, gap.Reason))
		}
	}
	sb.WriteString(fmt.Sprintf("\nСобытий в хронологии: %d\n", len(in.Timeline)))
	return sb.String()
}
