package codeset

import (
	"embed"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/oncoqa/validata/internal/model"
)

// Embedded reference code sets, one CSV per standard with columns
// code,description,status.
//
//go:embed data/*.csv
var embeddedSets embed.FS

// EmbeddedVersion identifies the reference release the embedded CSVs were
// cut from.
const EmbeddedVersion = "2025a-embedded"

// codedStandards lists the standards backed by a code set. TG-263, CPQR and
// CPAC are rule collections without code tables.
var codedStandards = []model.Standard{model.StandardICD10, model.StandardICDO}

// LoadEmbedded builds a Registry from the embedded reference CSVs.
func LoadEmbedded() (*Registry, error) {
	sets := make(map[model.Standard][]model.CodeSetEntry, len(codedStandards))
	for _, std := range codedStandards {
		f, err := embeddedSets.Open("data/" + string(std) + ".csv")
		if err != nil {
			return nil, eris.Wrapf(err, "codeset: open embedded set %s", std)
		}
		entries, err := parseCSV(f, string(std))
		_ = f.Close()
		if err != nil {
			return nil, err
		}
		sets[std] = entries
	}
	return New(EmbeddedVersion, sets)
}

// Load builds a Registry from <standard>.csv files in dir. Standards without
// a file in dir are simply absent from the registry; rule validation catches
// membership rules that need them.
func Load(dir, version string) (*Registry, error) {
	sets := make(map[model.Standard][]model.CodeSetEntry)
	for _, std := range codedStandards {
		path := filepath.Join(dir, string(std)+".csv")
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				zap.L().Debug("codeset: no file for standard", zap.String("standard", string(std)), zap.String("dir", dir))
				continue
			}
			return nil, eris.Wrapf(err, "codeset: open %s", path)
		}
		entries, err := parseCSV(f, path)
		_ = f.Close()
		if err != nil {
			return nil, err
		}
		sets[std] = entries
		zap.L().Info("codeset: loaded",
			zap.String("standard", string(std)),
			zap.Int("codes", len(entries)),
			zap.String("version", version),
		)
	}
	return New(version, sets)
}

func parseCSV(r io.Reader, name string) ([]model.CodeSetEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "codeset: read header of %s", name)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	codeIdx, ok := idx["code"]
	if !ok {
		return nil, eris.Errorf("codeset: %s has no code column", name)
	}
	descIdx, hasDesc := idx["description"]
	statusIdx, hasStatus := idx["status"]

	var entries []model.CodeSetEntry
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "codeset: read %s", name)
		}
		// FieldsPerRecord is -1, so short rows can omit any column.
		if codeIdx >= len(row) {
			continue
		}
		e := model.CodeSetEntry{
			Code:   strings.TrimSpace(row[codeIdx]),
			Status: model.CodeActive,
		}
		if e.Code == "" {
			continue
		}
		if hasDesc && descIdx < len(row) {
			e.Description = strings.TrimSpace(row[descIdx])
		}
		if hasStatus && statusIdx < len(row) {
			switch model.CodeStatus(strings.ToLower(strings.TrimSpace(row[statusIdx]))) {
			case model.CodeDeprecated:
				e.Status = model.CodeDeprecated
			case model.CodeActive, "":
				e.Status = model.CodeActive
			default:
				return nil, eris.Errorf("codeset: %s: unknown status %q for code %s", name, row[statusIdx], e.Code)
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}
