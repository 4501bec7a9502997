package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/vittafit/contracts/internal/config"
	"github.com/vittafit/contracts/internal/model"
)

type Generator struct {
	fontName string
}

func NewGenerator() *Generator {
	return &Generator{fontName: "Helvetica"}
}

// ContractDocument is everything the PDF needs. BodyText is the rendered
// contract body with HTML already stripped by the caller; the generator
// never touches the immutable HTML snapshot itself.
type ContractDocument struct {
	Contract model.Contract
	Student  model.Student
	Plan     model.Plan
	Gym      config.GymConfig
	BodyText string
}

func (g *Generator) Generate(doc ContractDocument) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont(g.fontName, "B", 14)
	pdf.CellFormat(0, 10, tr("Contrato de Prestação de Serviços"), "", 1, "C", false, 0, "")

	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Contrato nº %s de %s", doc.Contract.Number, formatDate(doc.Contract.CreatedAt))), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Vigência: %s a %s", formatDate(doc.Contract.StartAt), formatDate(doc.Contract.EndAt))), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	addPartyBlock(pdf, tr, g.fontName, "Contratada", []string{
		doc.Gym.Name,
		fmt.Sprintf("CNPJ: %s", safeValue(doc.Gym.CNPJ)),
		fmt.Sprintf("Endereço: %s", safeValue(doc.Gym.Address)),
		fmt.Sprintf("Telefone: %s", safeValue(doc.Gym.Phone)),
	})
	pdf.Ln(2)
	addPartyBlock(pdf, tr, g.fontName, "Contratante", []string{
		doc.Student.FullName,
		fmt.Sprintf("CPF: %s", safeValue(doc.Student.CPF)),
		fmt.Sprintf("E-mail: %s", safeValue(doc.Student.Email)),
		fmt.Sprintf("Telefone: %s", safeValue(doc.Student.Phone)),
	})
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("Plano: %s", doc.Plan.Name)), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont(g.fontName, "", 10)
	pdf.MultiCell(0, 5, tr(doc.BodyText), "", "L", false)
	pdf.Ln(6)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, tr("Assinaturas"), "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	signatureLine(pdf, tr, "Contratada", doc.Gym.Name)
	signatureLine(pdf, tr, "Contratante", doc.Student.FullName)
	if doc.Contract.SignatureRef != nil && doc.Contract.SignedAt != nil {
		pdf.Ln(2)
		pdf.SetFont(g.fontName, "", 9)
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("Assinatura eletrônica %s capturada em %s",
			*doc.Contract.SignatureRef, formatDate(*doc.Contract.SignedAt))), "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func addPartyBlock(pdf *gofpdf.Fpdf, tr func(string) string, fontName, title string, lines []string) {
	pdf.SetFont(fontName, "B", 11)
	pdf.CellFormat(0, 6, tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont(fontName, "", 10)
	for _, line := range lines {
		pdf.MultiCell(0, 5, tr(line), "", "L", false)
	}
}

func signatureLine(pdf *gofpdf.Fpdf, tr func(string) string, label, name string) {
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("%s: ______________________ /%s/", label, safeValue(name))), "", 1, "L", false, 0, "")
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "—"
	}
	return value
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return t.Format("02/01/2006")
}
