package dataset

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func priceTable(t *testing.T, prices ...string) *Table {
	t.Helper()
	tbl := New("id", "price", "last_review")
	for i, p := range prices {
		require.NoError(t, tbl.Append(string(rune('a'+i)), p, "2019-05-21"))
	}
	return tbl
}

func TestFilterByRange(t *testing.T) {
	t.Run("Should keep boundary values in original order", func(t *testing.T) {
		tbl := priceTable(t, "5", "10", "150", "200")
		out, stats, err := FilterByRange(tbl, "price", At(decimal.NewFromInt(10)), At(decimal.NewFromInt(150)))
		require.NoError(t, err)
		prices, err := out.Column("price")
		require.NoError(t, err)
		assert.Equal(t, []string{"10", "150"}, prices)
		assert.Equal(t, FilterStats{Kept: 2, OutOfRange: 2}, stats)
	})

	t.Run("Should drop non-numeric and missing values regardless of bounds", func(t *testing.T) {
		tbl := priceTable(t, "abc", "", "50", "NaN", " 60 ")
		out, stats, err := FilterByRange(tbl, "price", At(decimal.NewFromInt(-1000)), At(decimal.NewFromInt(1000)))
		require.NoError(t, err)
		prices, _ := out.Column("price")
		assert.Equal(t, []string{"50", " 60 "}, prices)
		assert.Equal(t, 3, stats.Invalid)
		assert.Equal(t, 3, stats.Dropped())
	})

	t.Run("Should compare decimals exactly at fractional bounds", func(t *testing.T) {
		tbl := priceTable(t, "10.1", "10.10", "10.099999", "150.3")
		out, _, err := FilterByRange(tbl, "price", At(decimal.NewFromFloat(10.1)), At(decimal.NewFromFloat(150.3)))
		require.NoError(t, err)
		prices, _ := out.Column("price")
		assert.Equal(t, []string{"10.1", "10.10", "150.3"}, prices)
	})

	t.Run("Should return empty table when lower bound exceeds upper", func(t *testing.T) {
		out, _, err := FilterByRange(priceTable(t, "10", "20"), "price", At(decimal.NewFromInt(20)), At(decimal.NewFromInt(10)))
		require.NoError(t, err)
		assert.Equal(t, 0, out.Len())
		assert.Equal(t, []string{"id", "price", "last_review"}, out.Columns)
	})

	t.Run("Should treat infinite bounds as open ends", func(t *testing.T) {
		tbl := priceTable(t, "-5", "10", "1e30", "abc")
		out, stats, err := FilterByRange(tbl, "price", At(decimal.NewFromInt(10)), PosInf)
		require.NoError(t, err)
		prices, _ := out.Column("price")
		assert.Equal(t, []string{"10", "1e30"}, prices)
		assert.Equal(t, FilterStats{Kept: 2, OutOfRange: 1, Invalid: 1}, stats)

		out, _, err = FilterByRange(tbl, "price", NegInf, PosInf)
		require.NoError(t, err)
		assert.Equal(t, 3, out.Len())
	})

	t.Run("Should keep nothing when the lower bound is positive infinity", func(t *testing.T) {
		out, stats, err := FilterByRange(priceTable(t, "10", "1e30"), "price", PosInf, PosInf)
		require.NoError(t, err)
		assert.Equal(t, 0, out.Len())
		assert.Equal(t, 2, stats.OutOfRange)
	})

	t.Run("Should fail on unknown column", func(t *testing.T) {
		_, _, err := FilterByRange(priceTable(t, "1"), "cost", At(decimal.Zero), At(decimal.NewFromInt(1)))
		assert.ErrorIs(t, err, ErrColumnNotFound)
	})
}

func TestBoundFromFloat(t *testing.T) {
	t.Run("Should map infinities to open bounds", func(t *testing.T) {
		b, err := BoundFromFloat(math.Inf(1))
		require.NoError(t, err)
		assert.Equal(t, PosInf, b)
		b, err = BoundFromFloat(math.Inf(-1))
		require.NoError(t, err)
		assert.Equal(t, NegInf, b)
	})

	t.Run("Should keep finite values exact", func(t *testing.T) {
		b, err := BoundFromFloat(150.3)
		require.NoError(t, err)
		assert.Equal(t, 0, b.cmp(decimal.RequireFromString("150.3")))
	})

	t.Run("Should reject NaN", func(t *testing.T) {
		_, err := BoundFromFloat(math.NaN())
		assert.Error(t, err)
	})
}

func TestNormalizeDate(t *testing.T) {
	t.Run("Should normalize parseable dates and null the rest", func(t *testing.T) {
		tbl := New("last_review")
		for _, v := range []string{"2019-05-21", "not-a-date", "", "2019/06/01", "20190521"} {
			require.NoError(t, tbl.Append(v))
		}
		out, stats, err := NormalizeDate(tbl, "last_review")
		require.NoError(t, err)
		values, _ := out.Column("last_review")
		assert.Equal(t, []string{"2019-05-21", "", "", "2019-06-01", ""}, values)
		assert.Equal(t, DateStats{Parsed: 2, Nulled: 3}, stats)
	})

	t.Run("Should be idempotent", func(t *testing.T) {
		tbl := New("last_review")
		require.NoError(t, tbl.Append("2019-05-21"))
		first, _, err := NormalizeDate(tbl, "last_review")
		require.NoError(t, err)
		second, _, err := NormalizeDate(first, "last_review")
		require.NoError(t, err)
		assert.Equal(t, first.Rows, second.Rows)
	})

	t.Run("Should keep time of day when any value has one", func(t *testing.T) {
		tbl := New("last_review")
		require.NoError(t, tbl.Append("2019-05-21"))
		require.NoError(t, tbl.Append("2019-05-22T10:30:00Z"))
		out, _, err := NormalizeDate(tbl, "last_review")
		require.NoError(t, err)
		values, _ := out.Column("last_review")
		assert.Equal(t, []string{"2019-05-21 00:00:00", "2019-05-22 10:30:00"}, values)
	})

	t.Run("Should not mutate the input table", func(t *testing.T) {
		tbl := New("last_review")
		require.NoError(t, tbl.Append("05/21/2019"))
		_, _, err := NormalizeDate(tbl, "last_review")
		require.NoError(t, err)
		assert.Equal(t, "05/21/2019", tbl.Rows[0][0])
	})

	t.Run("Should fail on unknown column", func(t *testing.T) {
		_, _, err := NormalizeDate(New("a"), "last_review")
		assert.ErrorIs(t, err, ErrColumnNotFound)
	})
}

func TestReadWrite(t *testing.T) {
	t.Run("Should round trip header and quoted fields", func(t *testing.T) {
		in := "id,name,price,last_review\n1,\"Cozy, bright\",100,2019-05-21\n2,Loft,,\n"
		tbl, err := Read(strings.NewReader(in), ',')
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "name", "price", "last_review"}, tbl.Columns)
		require.Equal(t, 2, tbl.Len())
		assert.Equal(t, "Cozy, bright", tbl.Rows[0][1])

		var buf bytes.Buffer
		require.NoError(t, Write(&buf, tbl, ','))
		assert.Equal(t, in, buf.String())
	})

	t.Run("Should pad short rows with null markers", func(t *testing.T) {
		tbl, err := Read(strings.NewReader("a,b,c\n1\n"), ',')
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "", ""}, tbl.Rows[0])
	})

	t.Run("Should reject rows longer than the header", func(t *testing.T) {
		_, err := Read(strings.NewReader("a,b\n1,2,3\n"), ',')
		assert.Error(t, err)
	})

	t.Run("Should strip a UTF-8 byte order mark", func(t *testing.T) {
		tbl, err := Read(strings.NewReader("\ufeffprice\n1\n"), ',')
		require.NoError(t, err)
		assert.Equal(t, "price", tbl.Columns[0])
	})

	t.Run("Should fail on empty input", func(t *testing.T) {
		_, err := Read(strings.NewReader(""), ',')
		assert.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("Should honor a custom delimiter", func(t *testing.T) {
		var buf bytes.Buffer
		tbl := New("a", "b")
		require.NoError(t, tbl.Append("1", "2"))
		require.NoError(t, Write(&buf, tbl, ';'))
		assert.Equal(t, "a;b\n1;2\n", buf.String())
	})
}

func TestLoadPersist(t *testing.T) {
	t.Run("Should overwrite an existing file", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "clean_sample.csv", []byte("old,content,that,is,longer\n"), 0o644))
		tbl := New("price")
		require.NoError(t, tbl.Append("42"))
		require.NoError(t, Persist(fs, "clean_sample.csv", tbl, ','))

		data, err := afero.ReadFile(fs, "clean_sample.csv")
		require.NoError(t, err)
		assert.Equal(t, "price\n42\n", string(data))

		loaded, err := Load(fs, "clean_sample.csv", ',')
		require.NoError(t, err)
		assert.Equal(t, tbl, loaded)
	})

	t.Run("Should report missing file", func(t *testing.T) {
		_, err := Load(afero.NewMemMapFs(), "missing.csv", ',')
		assert.Error(t, err)
	})
}

func TestDelimiter(t *testing.T) {
	t.Run("Should accept one character", func(t *testing.T) {
		r, err := Delimiter("\t")
		require.NoError(t, err)
		assert.Equal(t, '\t', r)
	})
	t.Run("Should reject empty and multi-character values", func(t *testing.T) {
		_, err := Delimiter("")
		assert.Error(t, err)
		_, err = Delimiter(",,")
		assert.Error(t, err)
	})
}

func TestTable_Require(t *testing.T) {
	t.Run("Should report the first missing column", func(t *testing.T) {
		err := New("price").Require("price", "last_review")
		require.ErrorIs(t, err, ErrColumnNotFound)
		assert.Contains(t, err.Error(), "last_review")
	})
}
