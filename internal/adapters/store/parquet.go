package store

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/common"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/types"
)

// readParallelism is the page decode parallelism handed to parquet-go.
const readParallelism = 4

const magic = "PAR1"

// columns holds the leaf columns of one file keyed by lowercased name. Every
// column has one cell per row and nil marks a null.
type columns struct {
	rows int
	data map[string][]any
}

// get returns the first present column among names.
func (c columns) get(names ...string) ([]any, bool) {
	for _, n := range names {
		if col, ok := c.data[n]; ok {
			return col, true
		}
	}
	return nil, false
}

// readColumns reads the leaf columns of path accepted by keep. A nil keep
// reads every column. Timestamp logical types come back as time.Time.
func readColumns(path string, keep func(name string) bool) (columns, error) {
	if err := checkMagic(path); err != nil {
		return columns{}, err
	}
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return columns{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetColumnReader(fr, readParallelism)
	if err != nil {
		return columns{}, fmt.Errorf("read footer %s: %w", path, err)
	}
	defer pr.ReadStop()

	n := pr.GetNumRows()
	out := columns{rows: int(n), data: make(map[string][]any)}
	if n == 0 {
		return out, nil
	}

	sh := pr.SchemaHandler
	for i, inPath := range sh.ValueColumns {
		exPath := common.StrToPath(sh.InPathToExPath[inPath])
		name := strings.ToLower(exPath[len(exPath)-1])
		if keep != nil && !keep(name) {
			continue
		}
		if _, dup := out.data[name]; dup {
			continue
		}

		values, _, _, err := pr.ReadColumnByIndex(int64(i), n)
		if err != nil {
			return columns{}, fmt.Errorf("read column %s of %s: %w", name, path, err)
		}
		if len(values) != int(n) {
			// Nested or repeated leaf; not a flat table column.
			continue
		}

		if idx, ok := sh.MapIndex[inPath]; ok {
			convert(sh.SchemaElements[idx], values)
		}
		out.data[name] = values
	}
	return out, nil
}

// checkMagic rejects files that do not start with the parquet magic.
func checkMagic(path string) error {
	f, err := os.Open(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	head := make([]byte, len(magic))
	if _, err := io.ReadFull(f, head); err != nil || string(head) != magic {
		return fmt.Errorf("%s is not a parquet file", path)
	}
	return nil
}

// convert rewrites physical timestamp encodings to time.Time in place.
func convert(el *parquet.SchemaElement, values []any) {
	var fn func(any) any
	switch {
	case el.GetType() == parquet.Type_INT96:
		fn = func(v any) any {
			if s, ok := v.(string); ok {
				return types.INT96ToTime(s)
			}
			return v
		}
	case el.IsSetConvertedType() && el.GetConvertedType() == parquet.ConvertedType_TIMESTAMP_MILLIS:
		fn = epoch(time.Millisecond)
	case el.IsSetConvertedType() && el.GetConvertedType() == parquet.ConvertedType_TIMESTAMP_MICROS:
		fn = epoch(time.Microsecond)
	default:
		lt := el.GetLogicalType()
		if lt == nil || !lt.IsSetTIMESTAMP() || lt.GetTIMESTAMP().GetUnit() == nil {
			return
		}
		unit := lt.GetTIMESTAMP().GetUnit()
		switch {
		case unit.IsSetMILLIS():
			fn = epoch(time.Millisecond)
		case unit.IsSetMICROS():
			fn = epoch(time.Microsecond)
		case unit.IsSetNANOS():
			fn = epoch(time.Nanosecond)
		default:
			return
		}
	}
	for i, v := range values {
		if v != nil {
			values[i] = fn(v)
		}
	}
}

func epoch(unit time.Duration) func(any) any {
	return func(v any) any {
		n, ok := v.(int64)
		if !ok {
			return v
		}
		return time.Unix(0, n*int64(unit)).UTC()
	}
}
