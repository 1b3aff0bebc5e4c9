package sheet

import (
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSource() *Source {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(Config{Path: "unused.csv"}, logger)
}

const sheetHeader = "invoice_no,invoice_date,customer_name,phone,pincode,payment_method,sku,item_name,quantity,net_price,total,tax,discount_code,discount_amount\n"

func TestParse_GroupsRowsIntoOrders(t *testing.T) {
	data := sheetHeader +
		"INV-1,31/01/2026,Asha,9876543210,560001,upi,SKU-A,Widget,2,500,1180,180,,\n" +
		"INV-1,31/01/2026,Asha,9876543210,560001,upi,SKU-B,Gadget,1,500,1180,180,,\n" +
		"INV-2,01/02/2026,Ravi,,400001,cod,SKU-A,Widget,1,250,295,45,NEW5,25\n"

	orders, err := testSource().Parse(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, orders, 2)

	first := orders[0]
	assert.Equal(t, "INV-1", first.ExternalID)
	require.NotNil(t, first.OrderedAt)
	assert.Equal(t, "2026-01-31", first.OrderedAt.Format("2006-01-02"))
	require.Len(t, first.Items, 2)
	assert.True(t, first.GrossAmount.Equal(decimal.RequireFromString("1180")))

	second := orders[1]
	assert.Equal(t, "INV-2", second.ExternalID)
	require.NotNil(t, second.DiscountCodes)
	assert.Equal(t, "NEW5", *second.DiscountCodes)
	assert.True(t, second.DiscountAmount.Equal(decimal.RequireFromString("25")))
}

func TestParse_AggregatesDuplicateSKULines(t *testing.T) {
	data := sheetHeader +
		"INV-1,31/01/2026,Asha,,,upi,SKU-A,Widget,2,500,,,,\n" +
		"INV-1,31/01/2026,Asha,,,upi,SKU-A,Widget,3,750,,,,\n"

	orders, err := testSource().Parse(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Len(t, orders[0].Items, 1)

	item := orders[0].Items[0]
	assert.Equal(t, 5, item.Quantity)
	assert.True(t, item.NetPrice.Equal(decimal.RequireFromString("1250")),
		"net prices summed, got %s", item.NetPrice)
}

func TestParse_DropsInvalidRowsAndTheirItems(t *testing.T) {
	data := sheetHeader +
		",31/01/2026,NoInvoice,,,upi,SKU-A,Widget,1,100,,,,\n" +
		"INV-9,bad-date,BadDate,,,upi,SKU-B,Gadget,1,200,,,,\n" +
		"INV-3,45000,SerialDate,,,card,SKU-C,Doohickey,1,300,,,,\n"

	orders, err := testSource().Parse(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, orders, 1, "only the serial-date row survives")

	o := orders[0]
	assert.Equal(t, "INV-3", o.ExternalID)
	require.NotNil(t, o.OrderedAt)
	assert.Equal(t, "2023-03-15", o.OrderedAt.Format("2006-01-02"))
	require.Len(t, o.Items, 1)
	assert.Equal(t, "SKU-C", o.Items[0].ItemKey)
}

func TestParse_MissingInvoiceColumnFails(t *testing.T) {
	_, err := testSource().Parse(strings.NewReader("a,b,c\n1,2,3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invoice_no")
}

func TestParse_Idempotent(t *testing.T) {
	data := sheetHeader +
		"INV-1,31/01/2026,Asha,,,upi,SKU-A,Widget,2,500,1180,180,,\n"

	first, err := testSource().Parse(strings.NewReader(data))
	require.NoError(t, err)
	second, err := testSource().Parse(strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
