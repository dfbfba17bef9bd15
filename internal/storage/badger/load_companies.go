package badger

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

// LoadCompaniesFromCSV imports the company listing CSV into storage.
// The file carries a header row naming at least "Name", "NSE Code" and
// "BSE Code" columns; column order and extra columns are tolerated.
// Rows without a name or without any exchange code are skipped.
func LoadCompaniesFromCSV(ctx context.Context, companyStorage interfaces.CompanyStorage, csvPath string, logger arbor.ILogger) (int, error) {
	// Check if file exists
	if _, err := os.Stat(csvPath); os.IsNotExist(err) {
		logger.Warn().Str("file", csvPath).Msg("Company listing CSV does not exist, skipping")
		return 0, nil
	}

	logger.Info().Str("file", csvPath).Msg("Loading companies from CSV")

	file, err := os.Open(csvPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open company CSV: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Listing exports vary in trailing columns

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read CSV header: %w", err)
	}

	nameIdx, nseIdx, bseIdx := -1, -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "name", "company name":
			if nameIdx == -1 {
				nameIdx = i
			}
		case "nse code", "nse":
			nseIdx = i
		case "bse code", "bse":
			bseIdx = i
		}
	}
	if nameIdx == -1 || (nseIdx == -1 && bseIdx == -1) {
		return 0, fmt.Errorf("company CSV missing required columns (have: %s)", strings.Join(header, ", "))
	}

	loadedCount := 0
	skippedCount := 0
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			logger.Warn().Err(err).Int("line", line).Msg("Failed to parse CSV row")
			skippedCount++
			continue
		}

		company := &models.Company{
			ID:      uuid.New().String(),
			Name:    strings.TrimSpace(field(record, nameIdx)),
			NSECode: strings.ToUpper(strings.TrimSpace(field(record, nseIdx))),
			BSECode: normalizeBSECode(field(record, bseIdx)),
		}

		if err := company.Validate(); err != nil {
			skippedCount++
			continue
		}

		if err := companyStorage.SaveCompany(ctx, company); err != nil {
			logger.Warn().Err(err).Str("name", company.Name).Msg("Failed to save company")
			skippedCount++
			continue
		}

		loadedCount++
	}

	if loadedCount > 0 {
		logger.Info().Int("count", loadedCount).Int("skipped", skippedCount).Msg("Companies loaded from CSV")
	} else {
		logger.Warn().Str("file", csvPath).Msg("No companies loaded from CSV")
	}

	return loadedCount, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

// normalizeBSECode strips the float artifact some listing exports carry
// on numeric codes ("500325.0" becomes "500325")
func normalizeBSECode(code string) string {
	code = strings.TrimSpace(code)
	if code == "" || !strings.Contains(code, ".") {
		return code
	}
	f, err := strconv.ParseFloat(code, 64)
	if err != nil || f != math.Trunc(f) {
		return code
	}
	return strconv.FormatInt(int64(f), 10)
}
