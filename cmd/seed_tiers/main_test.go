package main

import (
	"bytes"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

func TestReadAssignments_DescartaFilasInvalidas(t *testing.T) {
	latin1, err := charmap.ISO8859_1.NewEncoder().String(
		"customer_id;nombre;nivel\n" +
			"c-2;Logística Peña;gold\n" +
			"c-1;ACME;SILVER\n" +
			"c-3;Sin nivel;DIAMOND\n" +
			";Sin id;GOLD\n" +
			"c-4;Incompleta\n" +
			"c-1;ACME;PLATINUM\n")
	require.NoError(t, err)

	rows, skipped, err := readAssignments(transform.NewReader(bytes.NewReader([]byte(latin1)), charmap.ISO8859_1.NewDecoder()))

	require.NoError(t, err)
	assert.Equal(t, 3, skipped)
	require.Len(t, rows, 2)
	sort.Slice(rows, func(i, j int) bool { return rows[i].customerID < rows[j].customerID })
	assert.Equal(t, assignment{customerID: "c-1", name: "ACME", tier: "PLATINUM"}, rows[0])
	assert.Equal(t, assignment{customerID: "c-2", name: "Logística Peña", tier: "GOLD"}, rows[1])
}

func TestEscapeSQL(t *testing.T) {
	assert.Equal(t, "O''Brien", escapeSQL("O'Brien"))
}
