package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogEncoding(t *testing.T) {
	log, err := NewAuditLog(nil)
	require.NoError(t, err)

	small := []byte(`{"number":"FT A/2026/1"}`)
	plain, compressed, algo := log.encode(small)
	assert.Equal(t, CompressionNone, algo)
	assert.Equal(t, small, plain)
	assert.Nil(t, compressed)

	large := []byte(`{"items":"` + strings.Repeat("Servico de consultoria;", 400) + `"}`)
	plain, compressed, algo = log.encode(large)
	assert.Equal(t, CompressionZstd, algo)
	assert.Nil(t, plain)
	assert.Less(t, len(compressed), len(large))

	decoded, err := log.decode(plain, compressed, algo)
	require.NoError(t, err)
	assert.Equal(t, large, decoded)
}
