package baseline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"
)

// Supported serialized formats
const (
	FormatAuto    = "auto"
	FormatJSON    = "json"
	FormatText    = "text"
	FormatParquet = "parquet"
)

// DefaultColumn is the column read from JSON objects when none is configured
const DefaultColumn = "log_likelihood"

// LoadOptions controls how a baseline blob is decoded
type LoadOptions struct {
	Format string
	Column string
}

// Load reads and decodes a baseline from src.
// Any read or decode failure, and an empty result, is fatal to the caller.
func Load(ctx context.Context, src Source, opts LoadOptions, logger *zap.Logger) (*Distribution, error) {
	format := opts.Format
	if format == "" || format == FormatAuto {
		format = detectFormat(src.Name())
	}
	column := opts.Column
	if column == "" {
		column = DefaultColumn
	}

	logger.Info("loading baseline distribution",
		zap.String("source", src.Name()),
		zap.String("format", format),
	)

	rc, err := src.Open(ctx)
	if err != nil {
		logger.Error("failed to open baseline", zap.String("source", src.Name()), zap.Error(err))
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		logger.Error("failed to read baseline", zap.String("source", src.Name()), zap.Error(err))
		return nil, fmt.Errorf("failed to read baseline: %w", err)
	}

	var values []float64
	switch format {
	case FormatJSON:
		values, err = decodeJSON(data, column)
	case FormatText:
		values, err = decodeText(data)
	case FormatParquet:
		values, err = decodeParquet(data, column)
	default:
		err = fmt.Errorf("unknown baseline format %q", format)
	}
	if err != nil {
		logger.Error("failed to decode baseline", zap.String("source", src.Name()), zap.Error(err))
		return nil, err
	}

	dist, err := New(values)
	if err != nil {
		logger.Error("invalid baseline", zap.String("source", src.Name()), zap.Error(err))
		return nil, err
	}

	logger.Info("baseline distribution loaded",
		zap.String("source", src.Name()),
		zap.Int("samples", dist.Len()),
	)
	return dist, nil
}

func detectFormat(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".parquet", ".pq":
		return FormatParquet
	case ".txt", ".csv":
		return FormatText
	default:
		return FormatJSON
	}
}

// decodeJSON accepts a flat array, {column: [...]} or the pandas column
// orientation {column: {"0": v, "1": v}} (ordered by index).
func decodeJSON(data []byte, column string) ([]float64, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrEmpty
	}

	if trimmed[0] == '[' {
		var values []float64
		if err := json.Unmarshal(trimmed, &values); err != nil {
			return nil, fmt.Errorf("failed to unmarshal baseline array: %w", err)
		}
		return values, nil
	}

	var columns map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &columns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal baseline object: %w", err)
	}

	raw, ok := columns[column]
	if !ok {
		if len(columns) != 1 {
			return nil, fmt.Errorf("baseline object has no column %q", column)
		}
		for _, only := range columns {
			raw = only
		}
	}

	var values []float64
	if err := json.Unmarshal(raw, &values); err == nil {
		return values, nil
	}

	var indexed map[string]float64
	if err := json.Unmarshal(raw, &indexed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal baseline column %q: %w", column, err)
	}
	keys := make([]string, 0, len(indexed))
	for k := range indexed {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA != nil || errB != nil {
			return keys[i] < keys[j]
		}
		return a < b
	})
	values = make([]float64, 0, len(keys))
	for _, k := range keys {
		values = append(values, indexed[k])
	}
	return values, nil
}

func decodeText(data []byte) ([]float64, error) {
	var values []float64
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		values = append(values, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan baseline: %w", err)
	}
	return values, nil
}

// decodeParquet reads every value of column across all row groups.
// A missing column is an error rather than a column of zeros.
func decodeParquet(data []byte, column string) ([]float64, error) {
	file, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet baseline: %w", err)
	}

	leaf, ok := file.Schema().Lookup(column)
	if !ok {
		return nil, fmt.Errorf("parquet baseline has no column %q", column)
	}

	values := make([]float64, 0, file.NumRows())
	for _, rowGroup := range file.RowGroups() {
		pages := rowGroup.ColumnChunks()[leaf.ColumnIndex].Pages()
		values, err = readParquetPages(pages, column, values)
		_ = pages.Close()
		if err != nil {
			return nil, err
		}
	}
	return values, nil
}

func readParquetPages(pages parquet.Pages, column string, values []float64) ([]float64, error) {
	for {
		page, err := pages.ReadPage()
		if errors.Is(err, io.EOF) {
			return values, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet column %q: %w", column, err)
		}

		buf := make([]parquet.Value, page.NumValues())
		n, err := page.Values().ReadValues(buf)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read parquet column %q: %w", column, err)
		}

		for _, v := range buf[:n] {
			f, err := parquetFloat(v)
			if err != nil {
				return nil, fmt.Errorf("parquet column %q: %w", column, err)
			}
			values = append(values, f)
		}
	}
}

func parquetFloat(v parquet.Value) (float64, error) {
	if v.IsNull() {
		return 0, fmt.Errorf("null value")
	}
	switch v.Kind() {
	case parquet.Double:
		return v.Double(), nil
	case parquet.Float:
		return float64(v.Float()), nil
	case parquet.Int32:
		return float64(v.Int32()), nil
	case parquet.Int64:
		return float64(v.Int64()), nil
	default:
		return 0, fmt.Errorf("unsupported value kind %s", v.Kind())
	}
}
