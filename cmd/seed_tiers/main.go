// seed_tiers genera un script SQL que asigna el nivel de precio de cada cliente
// a partir del export del CRM comercial (CSV separado por ';', codificado en ISO-8859-1).
//
// Columnas esperadas: customer_id;nombre;nivel
//
// Uso: go run ./cmd/seed_tiers [ruta/niveles.csv]
// Por defecto busca niveles.csv en el directorio actual.
// Escribe: internal/infrastructure/postgres/migrations/900_seed_pricing_tiers.sql
package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var knownTiers = map[string]bool{"STANDARD": true, "SILVER": true, "GOLD": true, "PLATINUM": true}

type assignment struct {
	customerID string
	name       string
	tier       string
}

func main() {
	csvPath := "niveles.csv"
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}
	f, err := os.Open(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	rows, skipped, err := readAssignments(transform.NewReader(f, charmap.ISO8859_1.NewDecoder()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer CSV: %v\n", err)
		os.Exit(1)
	}

	// Orden por cliente para salida estable
	sort.Slice(rows, func(i, j int) bool { return rows[i].customerID < rows[j].customerID })

	moduleRoot := findModuleRoot()
	outPath := filepath.Join(moduleRoot, "internal", "infrastructure", "postgres", "migrations", "900_seed_pricing_tiers.sql")
	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	out.WriteString("-- Niveles de precio por cliente\n")
	out.WriteString("-- Generado desde el export del CRM\n\n")
	for _, r := range rows {
		fmt.Fprintf(out, "-- %s\n", escapeSQL(r.name))
		fmt.Fprintf(out, "UPDATE customers SET pricing_tier = '%s', updated_at = NOW() WHERE id = '%s';\n",
			r.tier, escapeSQL(r.customerID))
	}

	fmt.Printf("Generado %s: %d clientes, %d filas descartadas\n", outPath, len(rows), skipped)
}

// readAssignments descarta la cabecera, las filas incompletas y los niveles desconocidos.
// Si un cliente aparece varias veces gana la última fila.
func readAssignments(r io.Reader) ([]assignment, int, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	byID := make(map[string]assignment)
	skipped := 0
	for line := 0; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("línea %d: %w", line+1, err)
		}
		if line == 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "customer_id") {
			continue
		}
		if len(rec) < 3 {
			skipped++
			continue
		}
		id := strings.TrimSpace(rec[0])
		tier := strings.ToUpper(strings.TrimSpace(rec[2]))
		if id == "" || !knownTiers[tier] {
			skipped++
			continue
		}
		byID[id] = assignment{customerID: id, name: strings.TrimSpace(rec[1]), tier: tier}
	}
	rows := make([]assignment, 0, len(byID))
	for _, a := range byID {
		rows = append(rows, a)
	}
	return rows, skipped, nil
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
