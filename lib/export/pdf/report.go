package pdfexport

import (
	"bytes"
	"fmt"
	"time"

	"timeledger-backend/lib/utils/helpers"
	"timeledger-backend/models"
	evidencemodels "timeledger-backend/models/evidence"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"
)

// Отчёт собирается встроенным шрифтом Helvetica без внешних файлов шрифтов,
// поэтому подписи в нём латиницей.

var columns = []struct {
	title string
	width float64
}{
	{"#", 10},
	{"Seq", 14},
	{"Kind", 24},
	{"Timestamp (UTC)", 48},
	{"Created at (UTC)", 48},
	{"Hash", 46},
}

// VerificationReport формирует pdf с результатом проверки цепочки сотрудника
func VerificationReport(chain evidencemodels.EntryChainEvidence, generatedAt time.Time) (pdfFile []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("VerificationReport panic recover: %v", r)
		}
	}()
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(generatedAt.UTC())
	pdf.SetModificationDate(generatedAt.UTC())
	pdf.SetTitle("Time ledger chain verification", false)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 6, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Chain verification report", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	lines := []string{
		"Employee: " + chain.EmployeeID,
		"Period: " + period(chain.From, chain.To),
		"Anchor hash: " + chain.AnchorHash,
		fmt.Sprintf("Entries checked: %d of %d", chain.Verdict.Checked, len(chain.Entries)),
		"Generated at: " + evidencemodels.FormatTime(generatedAt),
	}
	for _, line := range lines {
		pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)
	writeVerdict(pdf, chain.Verdict)
	pdf.Ln(4)
	writeEntries(pdf, chain)

	if pdf.Error() != nil {
		return nil, pdf.Error()
	}
	buf := new(bytes.Buffer)
	if err = pdf.Output(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeVerdict(pdf *fpdf.Fpdf, verdict evidencemodels.Verdict) {
	pdf.SetFont("Helvetica", "B", 12)
	if verdict.IsOK() {
		pdf.SetTextColor(0, 128, 0)
		pdf.CellFormat(0, 8, "Verdict: OK", "", 1, "L", false, 0, "")
	} else {
		pdf.SetTextColor(192, 0, 0)
		pdf.CellFormat(0, 8, fmt.Sprintf("Verdict: %s at entry %s (position %d)", verdict.Status, verdict.EntryID, verdict.Index+1), "", 1, "L", false, 0, "")
	}
	pdf.SetTextColor(0, 0, 0)
}

func writeEntries(pdf *fpdf.Fpdf, chain evidencemodels.EntryChainEvidence) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(221, 235, 247)
	for _, col := range columns {
		pdf.CellFormat(col.width, 7, col.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 8)
	for idx, rec := range chain.Entries {
		failed := !chain.Verdict.IsOK() && idx == chain.Verdict.Index
		if failed {
			pdf.SetFillColor(255, 199, 206)
		}
		values := []string{
			fmt.Sprint(idx + 1),
			fmt.Sprint(rec.Sequence),
			kindLabel(rec.Kind),
			rec.Timestamp,
			rec.CreatedAt,
			helpers.Truncate(rec.IntegrityHash, 24),
		}
		for col, value := range values {
			pdf.CellFormat(columns[col].width, 6, value, "1", 0, "L", failed, 0, "")
		}
		pdf.Ln(-1)
	}
}

func kindLabel(kind models.EntryKind) string {
	switch kind {
	case models.EntryKindClockIn:
		return "clock in"
	case models.EntryKindClockOut:
		return "clock out"
	case models.EntryKindCorrection:
		return "correction"
	}
	return string(kind)
}

func period(from, to string) string {
	if from == "" {
		from = "chain start"
	}
	if to == "" {
		to = "now"
	}
	return from + " - " + to
}
