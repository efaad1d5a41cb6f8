package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vfg2006/billing-manager-api/internal/usecases/exporting"
	"github.com/vfg2006/billing-manager-api/pkg/apiErrors"
	"github.com/vfg2006/billing-manager-api/pkg/log"
)

// limite do corpo de importação; arquivos maiores que o próprio teto do
// armazenamento não têm como ser válidos
const maxImportBodySize = 16 * 1024 * 1024

func ExportJSON(service exporting.Exporter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content, err := service.ExportJSON()
		if err != nil {
			log.ForContext(r.Context()).WithError(err).Error("export: erro ao gerar JSON")
			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro ao gerar exportação", nil)
			return
		}

		filename := fmt.Sprintf("ice-beer-export-%s.json", time.Now().Format(time.DateOnly))
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.Write(content)
	})
}

func ExportCSV(service exporting.Exporter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content, err := service.ExportCSV()
		if err != nil {
			log.ForContext(r.Context()).WithError(err).Error("export: erro ao gerar CSV")
			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro ao gerar exportação", nil)
			return
		}

		filename := fmt.Sprintf("ice-beer-export-%s.csv", time.Now().Format(time.DateOnly))
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.Write(content)
	})
}

func ImportJSON(service exporting.Exporter) http.Handler {
	return importHandler(service.ImportJSON, "import: erro ao importar JSON")
}

func ImportCSV(service exporting.Exporter) http.Handler {
	return importHandler(service.ImportCSV, "import: erro ao importar CSV")
}

func importHandler(importFn func([]byte) (int, error), logMessage string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content, err := io.ReadAll(io.LimitReader(r.Body, maxImportBodySize))
		if err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "Erro ao ler o arquivo enviado", nil)
			return
		}

		imported, err := importFn(content)
		if err != nil {
			log.ForContext(r.Context()).WithError(err).Warn(logMessage)
			apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "Arquivo de importação inválido", nil)
			return
		}

		log.ForContext(r.Context()).WithField("imported", imported).Info("import: importação concluída")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"imported": imported})
	})
}
