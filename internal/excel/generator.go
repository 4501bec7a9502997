package excel

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/vittafit/contracts/internal/model"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

type ContractRow struct {
	Number      string
	StudentName string
	PlanName    string
	Status      model.ContractStatus
	StartAt     time.Time
	EndAt       time.Time
	SignedAt    *time.Time
}

type StatusGroup struct {
	Status    model.ContractStatus
	Contracts []ContractRow
}

type ContractsReport struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	Total       int
	Groups      []StatusGroup
}

// Generate builds a workbook with a summary sheet and one detail sheet
// per status present in the period.
func (g *Generator) Generate(report ContractsReport) ([]byte, error) {
	file := excelize.NewFile()

	summarySheet := "Resumo"
	file.SetSheetName("Sheet1", summarySheet)
	if err := g.writeSummary(file, summarySheet, report); err != nil {
		return nil, err
	}

	for _, group := range report.Groups {
		sheetName := statusLabel(group.Status)
		if _, err := file.NewSheet(sheetName); err != nil {
			return nil, err
		}
		if err := g.writeDetail(file, sheetName, group); err != nil {
			return nil, err
		}
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, sheet string, report ContractsReport) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Início do período")
	set("B1", formatDate(report.PeriodStart))
	set("A2", "Fim do período")
	set("B2", formatDate(report.PeriodEnd))
	set("A3", "Total de contratos")
	set("B3", report.Total)

	tableRow := 5
	set(fmt.Sprintf("A%d", tableRow), "Status")
	set(fmt.Sprintf("B%d", tableRow), "Quantidade")

	for i, group := range report.Groups {
		row := tableRow + 1 + i
		set(fmt.Sprintf("A%d", row), statusLabel(group.Status))
		set(fmt.Sprintf("B%d", row), len(group.Contracts))
	}

	_ = file.SetColWidth(sheet, "A", "A", 24)
	_ = file.SetColWidth(sheet, "B", "B", 16)
	return nil
}

func (g *Generator) writeDetail(file *excelize.File, sheet string, group StatusGroup) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	headers := []string{"Número", "Aluno", "Plano", "Início", "Fim", "Assinado em"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		set(cell, header)
	}

	for i, row := range group.Contracts {
		line := 2 + i
		set(fmt.Sprintf("A%d", line), row.Number)
		set(fmt.Sprintf("B%d", line), row.StudentName)
		set(fmt.Sprintf("C%d", line), row.PlanName)
		set(fmt.Sprintf("D%d", line), formatDate(row.StartAt))
		set(fmt.Sprintf("E%d", line), formatDate(row.EndAt))
		if row.SignedAt != nil {
			set(fmt.Sprintf("F%d", line), formatDate(*row.SignedAt))
		}
	}

	_ = file.SetColWidth(sheet, "A", "A", 20)
	_ = file.SetColWidth(sheet, "B", "C", 28)
	_ = file.SetColWidth(sheet, "D", "F", 14)
	return nil
}

func statusLabel(status model.ContractStatus) string {
	switch status {
	case model.ContractStatusDraft:
		return "Rascunho"
	case model.ContractStatusSent:
		return "Enviado"
	case model.ContractStatusSigned:
		return "Assinado"
	case model.ContractStatusActive:
		return "Ativo"
	case model.ContractStatusExpired:
		return "Encerrado"
	case model.ContractStatusCancelled:
		return "Cancelado"
	default:
		return string(status)
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return t.Format("02/01/2006")
}
