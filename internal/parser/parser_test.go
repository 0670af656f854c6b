package parser_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/models"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/parser"
)

const sampleCSV = "id,date,merchant,amount,category\n" +
	"t1,2024-01-01,Acme,100,office\n" +
	"t2,2024-01-02,unknown,6000,travel\n" +
	"t3,2024-01-03,Globex,,misc\n"

func TestParse_CSV(t *testing.T) {
	doc, err := parser.Parse([]byte(sampleCSV), "Transactions.CSV")
	require.NoError(t, err)

	assert.Equal(t, parser.KindTabular, doc.Kind)
	assert.Equal(t, "csv", doc.Format)
	assert.Equal(t, []string{"id", "date", "merchant", "amount", "category"}, doc.Table.Columns)
	require.Len(t, doc.Table.Rows, 3)

	assert.Equal(t, models.Row{
		"id": "t1", "date": "2024-01-01", "merchant": "Acme", "amount": 100.0, "category": "office",
	}, doc.Table.Rows[0])
	assert.Equal(t, 6000.0, doc.Table.Rows[1]["amount"])
	assert.Nil(t, doc.Table.Rows[2]["amount"])
	assert.Contains(t, doc.Table.Rows[2], "amount")
}

func TestParse_TSVWithBOMAndBools(t *testing.T) {
	content := append([]byte{0xEF, 0xBB, 0xBF}, []byte("merchant\tamount\tflagged\nAcme\t12.5\tTRUE\n")...)

	doc, err := parser.Parse(content, "batch.tsv")
	require.NoError(t, err)
	assert.Equal(t, []string{"merchant", "amount", "flagged"}, doc.Table.Columns)
	assert.Equal(t, models.Row{"merchant": "Acme", "amount": 12.5, "flagged": true}, doc.Table.Rows[0])
}

func TestParse_CSVHeaderOnly(t *testing.T) {
	doc, err := parser.Parse([]byte("merchant,amount\n"), "empty.csv")
	require.NoError(t, err)
	assert.Empty(t, doc.Table.Rows)
	assert.NotNil(t, doc.Table.Rows)
}

func TestParse_MalformedTabular(t *testing.T) {
	cases := map[string]struct {
		content  string
		filename string
	}{
		"empty csv":        {"", "a.csv"},
		"ragged csv":       {"merchant,amount\nAcme,1,extra\n", "a.csv"},
		"bare quote":       {"merchant,amount\n\"Acme,1\n", "a.csv"},
		"empty header":     {"merchant,,amount\nA,1,2\n", "a.csv"},
		"duplicate header": {"amount,amount\n1,2\n", "a.csv"},
		"corrupt xlsx":     {"definitely not a zip container", "a.xlsx"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parser.Parse([]byte(tc.content), tc.filename)
			require.Error(t, err)

			var pe *parser.ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, parser.KindMalformedTabular, pe.Kind)
			assert.NotEmpty(t, err.Error())
		})
	}
}

func TestParse_UnsupportedType(t *testing.T) {
	for _, name := range []string{"report.pdf", "legacy.xls", "noext", "archive.tar.gz"} {
		_, err := parser.Parse([]byte("x"), name)

		var pe *parser.ParseError
		require.True(t, errors.As(err, &pe), name)
		assert.Equal(t, parser.KindUnsupportedType, pe.Kind)
		assert.Equal(t, pe, parser.Supported(name))
	}

	_, err := parser.Parse([]byte("x"), "report.pdf")
	assert.Equal(t, "unsupported file type: pdf", err.Error())
}

func TestSupported(t *testing.T) {
	for _, name := range []string{"a.csv", "a.TSV", "a.xlsx", "a.xlsm", "notes.txt"} {
		assert.NoError(t, parser.Supported(name), name)
	}
}

func TestParse_Text(t *testing.T) {
	doc, err := parser.Parse([]byte("Paid unknown vendor 6000 on Friday"), "notes.txt")
	require.NoError(t, err)

	assert.Equal(t, parser.KindText, doc.Kind)
	assert.Nil(t, doc.Table)
	assert.Equal(t, "Paid unknown vendor 6000 on Friday", doc.Text)
	assert.Equal(t, doc.Text, doc.Describe())
}

func TestParse_TextRejectsInvalidUTF8(t *testing.T) {
	_, err := parser.Parse([]byte("Paid vendor \xff\xfe 6000"), "notes.txt")
	require.Error(t, err)

	var pe *parser.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, parser.KindMalformedTabular, pe.Kind)
	assert.Equal(t, "error reading txt file: content is not valid UTF-8", err.Error())
}

func TestParse_Spreadsheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"merchant", "amount"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Acme", 100}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"unknown", 6000}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{"Solo"}))

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	doc, err := parser.Parse(buf.Bytes(), "ledger.xlsx")
	require.NoError(t, err)
	assert.Equal(t, []string{"merchant", "amount"}, doc.Table.Columns)
	require.Len(t, doc.Table.Rows, 3)
	assert.Equal(t, models.Row{"merchant": "unknown", "amount": 6000.0}, doc.Table.Rows[1])
	assert.Equal(t, models.Row{"merchant": "Solo", "amount": nil}, doc.Table.Rows[2])
}

func TestDescribe_DerivedFromRows(t *testing.T) {
	var b strings.Builder
	b.WriteString("merchant,amount\n")
	for i := 0; i < 8; i++ {
		b.WriteString("Acme,1000\n")
	}
	b.WriteString("Last,7\n")

	doc, err := parser.Parse([]byte(b.String()), "big.csv")
	require.NoError(t, err)

	desc := doc.Describe()
	assert.Contains(t, desc, "File Type: csv")
	assert.Contains(t, desc, "Columns: [merchant, amount]")
	assert.Contains(t, desc, "Rows: 9")
	assert.Contains(t, desc, "First 5 Rows:")
	assert.Equal(t, 5, strings.Count(desc, "Acme"))
	assert.NotContains(t, desc, "Last")

	// Mutating the parsed rows changes the description: it never re-reads the bytes.
	doc.Table.Rows[0]["merchant"] = "Changed"
	assert.Contains(t, doc.Describe(), "Changed")
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "6000", parser.FormatValue(6000.0))
	assert.Equal(t, "12.5", parser.FormatValue(12.5))
	assert.Equal(t, "true", parser.FormatValue(true))
	assert.Equal(t, "", parser.FormatValue(nil))
	assert.Equal(t, "Acme", parser.FormatValue("Acme"))
}
