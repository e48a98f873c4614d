package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreditQueryRefreshesActivity(t *testing.T) {
	query, args, err := creditQuery(12345, 500)

	require.NoError(t, err)
	assert.Contains(t, query, "balance = balance + $1")
	assert.Contains(t, query, "last_active = now()")
	assert.Equal(t, []interface{}{500.0, int64(12345)}, args)
}

func TestReserveQueryIgnoresDuplicateInvoice(t *testing.T) {
	query, args, err := reserveQuery("INV-1", 12345, 500)

	require.NoError(t, err)
	assert.Contains(t, query, "ON CONFLICT (invoice_id) DO NOTHING")
	assert.Equal(t, []interface{}{"INV-1", int64(12345), 500.0}, args)
}

func TestPurchaseInsertQueryFillsGeneratedColumns(t *testing.T) {
	productId := int64(7)
	fileId := "file-1"
	query, args, err := purchaseInsertQuery(&Purchase{
		UserID:        1,
		ProductID:     &productId,
		ProductTitle:  "Архив отчётов",
		ProductFileID: &fileId,
		PurchasePrice: 250,
	})

	require.NoError(t, err)
	assert.Contains(t, query, "RETURNING id, purchase_date")
	assert.Len(t, args, 5)
}
