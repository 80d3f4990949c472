package dto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/courier-billing/internal/application/dto"
)

// ──────────────────────────────────────────────────────────────────────────────
// Paginación
// ──────────────────────────────────────────────────────────────────────────────

func TestPageRequest_DefaultPage(t *testing.T) {
	p := dto.PageRequest{Limit: 0, Offset: -3}
	p.DefaultPage()
	assert.Equal(t, dto.PageRequest{Limit: 20, Offset: 0}, p)

	p = dto.PageRequest{Limit: 50, Offset: 40}
	p.DefaultPage()
	assert.Equal(t, dto.PageRequest{Limit: 50, Offset: 40}, p, "valores explícitos se respetan")
}
