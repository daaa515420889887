// Package export renders the result list to a spreadsheet, matching the
// layout users get from the web UI's "Exporter Excel" action.
package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jerome00253/RIB-Factory/internal/domain"
)

const sheetName = "Résultats RIB"

var headers = []interface{}{
	"Fichier", "Statut", "Titulaire", "IBAN", "BIC", "Banque",
	"Score (%)", "Méthode", "Checksum Valide",
}

var columnWidths = []float64{35, 10, 25, 30, 12, 20, 10, 25, 15}

// Workbook builds an XLSX workbook with one row per result row, in list
// order.
func Workbook(rows []domain.WorkItem) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return nil, fmt.Errorf("write header row: %w", err)
	}

	for i, item := range rows {
		cell := fmt.Sprintf("A%d", i+2)
		values := rowValues(item)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, fmt.Errorf("column name: %w", err)
		}
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename derives the download name from the active filter and the current
// date, e.g. RIB_Export_IBAN_OK_2026-08-29.xlsx.
func Filename(filter domain.Filter, now time.Time) string {
	suffix := ""
	switch filter {
	case domain.FilterDetected:
		suffix = "_IBAN_OK"
	case domain.FilterNotDetected:
		suffix = "_IBAN_KO"
	}
	return fmt.Sprintf("RIB_Export%s_%s.xlsx", suffix, now.Format("2006-01-02"))
}

func rowValues(item domain.WorkItem) []interface{} {
	fileName := item.File.Name
	owner := ""
	iban := ""
	bic := ""
	bank := ""
	score := 0.0
	method := ""
	checksum := "NON"

	if item.Result != nil {
		if item.Result.PageNumber > 0 {
			fileName = fmt.Sprintf("%s (Page %d)", fileName, item.Result.PageNumber)
		}
		owner = item.Result.Data.OwnerName
		iban = item.Result.Data.IBAN
		bic = item.Result.Data.BIC
		bank = item.Result.Data.BankName
		score = item.Result.ConfidenceScore
		method = item.Result.ExtractionMethod
		if item.Result.ChecksumValid {
			checksum = "OUI"
		}
	} else if item.ErrorMessage != "" {
		owner = "Erreur"
	}

	return []interface{}{
		fileName, string(item.Status), owner, iban, bic, bank, score, method, checksum,
	}
}
