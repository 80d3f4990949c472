package billing

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	numberAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	numberSuffixSize = 6
	// 252 = 7 * 36
	numberRejectAbove = 256 - 256%len(numberAlphabet)
)

// NumberGenerator genera números de factura PREFIX-yyyyMMdd-XXXXXX.
// La unicidad la garantiza la restricción UNIQUE del almacenamiento; el caller reintenta
// ante colisión.
type NumberGenerator struct {
	prefix string
	rnd    io.Reader
}

// NewNumberGenerator construye el generador con crypto/rand.
func NewNumberGenerator(prefix string) *NumberGenerator {
	return NewNumberGeneratorWithSource(prefix, rand.Reader)
}

// NewNumberGeneratorWithSource permite inyectar la fuente aleatoria (tests).
func NewNumberGeneratorWithSource(prefix string, rnd io.Reader) *NumberGenerator {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = "INV"
	}
	return &NumberGenerator{prefix: prefix, rnd: rnd}
}

// Prefix devuelve el prefijo configurado.
func (g *NumberGenerator) Prefix() string { return g.prefix }

// Generate construye un número para la fecha dada (en UTC). Los bytes de la fuente se
// descartan por encima del mayor múltiplo del alfabeto para no sesgar la distribución.
func (g *NumberGenerator) Generate(at time.Time) (string, error) {
	var sb strings.Builder
	sb.Grow(numberSuffixSize)
	buf := make([]byte, 1)
	for sb.Len() < numberSuffixSize {
		if _, err := io.ReadFull(g.rnd, buf); err != nil {
			return "", fmt.Errorf("numeración: fuente aleatoria: %w", err)
		}
		if int(buf[0]) >= numberRejectAbove {
			continue
		}
		sb.WriteByte(numberAlphabet[int(buf[0])%len(numberAlphabet)])
	}
	return fmt.Sprintf("%s-%s-%s", g.prefix, at.UTC().Format("20060102"), sb.String()), nil
}
