package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceOwner(t *testing.T) {
	owner, err := invoiceOwner("tg_12345_abcdef01")
	require.NoError(t, err)
	assert.Equal(t, int64(12345), owner)
}

func TestInvoiceOwnerLegacyFormat(t *testing.T) {
	owner, err := invoiceOwner("user_12345_500")
	require.NoError(t, err)
	assert.Equal(t, int64(12345), owner)
}

func TestInvoiceOwnerUnrecognized(t *testing.T) {
	_, err := invoiceOwner("external-order-42")
	assert.Error(t, err)
}
