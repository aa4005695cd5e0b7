package baseline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_RejectsEmpty(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = New([]float64{})
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestNew_RejectsNaN(t *testing.T) {
	_, err := New([]float64{-1, math.NaN()})
	assert.Error(t, err)
}

func TestNew_CopiesInput(t *testing.T) {
	values := []float64{-3, -1, -2}
	d, err := New(values)
	require.NoError(t, err)

	values[0] = 100
	assert.Equal(t, []float64{-3, -2, -1}, d.Values())

	out := d.Values()
	out[0] = 100
	assert.Equal(t, []float64{-3, -2, -1}, d.Values())
}

func TestPValue_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		baseline []float64
		ll       float64
		want     float64
	}{
		{"above every sample", []float64{-10, -9, -8, -7, -6}, -5, 0.0},
		{"all ties", []float64{-5, -5, -5, -5}, -5, 0.5},
		{"below every sample", []float64{-1, -1, -1, -1}, -10, 1.0},
		{"mixed", []float64{-4, -3, -3, -2}, -3, 0.5},
		{"single sample equal", []float64{-2}, -2, 0.5},
		{"negative infinity", []float64{-2, -1}, math.Inf(-1), 1.0},
		{"nan counts nothing", []float64{-2, -1}, math.NaN(), 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(tt.baseline)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.PValue(tt.ll))
		})
	}
}

func TestPValue_NoTolerance(t *testing.T) {
	d, err := New([]float64{0.3})
	require.NoError(t, err)

	a, b := 0.1, 0.2
	// a+b rounds to 0.30000000000000004, so this is not a tie
	assert.Equal(t, 0.0, d.PValue(a+b))
	assert.Equal(t, 0.5, d.PValue(0.3))
}

func TestPValue_BoundedAndMonotonic(t *testing.T) {
	d, err := New([]float64{-12.5, -9, -9, -7.25, -3, -3, -3, -1, 0, 2})
	require.NoError(t, err)

	prev := math.Inf(1)
	for ll := -15.0; ll <= 5; ll += 0.25 {
		p := d.PValue(ll)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
		assert.LessOrEqual(t, p, prev, "p-value increased at ll=%v", ll)
		prev = p
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []float64
	}{
		{"flat array", `[-1.5, -2, -3]`, []float64{-1.5, -2, -3}},
		{"column array", `{"log_likelihood": [-1, -2]}`, []float64{-1, -2}},
		{"pandas columns", `{"log_likelihood": {"10": -3, "2": -2, "0": -1}}`, []float64{-1, -2, -3}},
		{"single unnamed column", `{"0": [-4, -5]}`, []float64{-4, -5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeJSON([]byte(tt.data), DefaultColumn)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := decodeJSON([]byte(`{"a": [1], "b": [2]}`), DefaultColumn)
	assert.Error(t, err)

	_, err = decodeJSON([]byte(`not json`), DefaultColumn)
	assert.Error(t, err)
}

func TestDecodeText(t *testing.T) {
	got, err := decodeText([]byte("# header\n-1.25\n\n  -2\n3e-1\n"))
	require.NoError(t, err)
	assert.Equal(t, []float64{-1.25, -2, 0.3}, got)

	_, err = decodeText([]byte("-1\nabc\n"))
	assert.Error(t, err)
}

type baselineRow struct {
	LogLikelihood float64 `parquet:"log_likelihood"`
}

type scoreRow struct {
	ID    int64   `parquet:"id"`
	Score float64 `parquet:"score"`
}

func writeParquet[T any](t *testing.T, rows []T) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, parquet.Write(&buf, rows))
	p := filepath.Join(t.TempDir(), "baseline.parquet")
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0o600))
	return p
}

func TestDecodeParquet(t *testing.T) {
	var buf bytes.Buffer
	rows := []baselineRow{{LogLikelihood: -2.5}, {LogLikelihood: -1}}
	require.NoError(t, parquet.Write(&buf, rows))

	got, err := decodeParquet(buf.Bytes(), DefaultColumn)
	require.NoError(t, err)
	assert.Equal(t, []float64{-2.5, -1}, got)
}

func TestLoad_ParquetNamedColumn(t *testing.T) {
	p := writeParquet(t, []scoreRow{{1, -9}, {2, -8}, {3, -7}})

	d, err := Load(context.Background(), &FileSource{Path: p}, LoadOptions{Format: FormatAuto, Column: "score"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []float64{-9, -8, -7}, d.Values())
	assert.Equal(t, 0.5, d.PValue(-8))
}

func TestLoad_ParquetMissingColumnIsFatal(t *testing.T) {
	p := writeParquet(t, []scoreRow{{1, -9}, {2, -8}, {3, -7}})

	_, err := Load(context.Background(), &FileSource{Path: p}, LoadOptions{Format: FormatAuto}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), DefaultColumn)
}

func TestLoad_ParquetIntegerColumn(t *testing.T) {
	p := writeParquet(t, []scoreRow{{1, -9}, {2, -8}})

	d, err := Load(context.Background(), &FileSource{Path: p}, LoadOptions{Format: FormatParquet, Column: "id"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, d.Values())
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "baseline.txt")
	require.NoError(t, os.WriteFile(p, []byte("-10\n-9\n-8\n-7\n-6\n"), 0o600))

	src, err := ParseLocation("file://"+p, nil)
	require.NoError(t, err)

	d, err := Load(context.Background(), src, LoadOptions{Format: FormatAuto}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 5, d.Len())
	assert.Equal(t, 0.0, d.PValue(-5))
}

func TestLoad_EmptyIsFatal(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "baseline.json")
	require.NoError(t, os.WriteFile(p, []byte(`[]`), 0o600))

	_, err := Load(context.Background(), &FileSource{Path: p}, LoadOptions{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(context.Background(), &FileSource{Path: "/nonexistent/baseline.json"}, LoadOptions{}, zap.NewNop())
	assert.Error(t, err)
}

type fakeGetter struct {
	body   string
	err    error
	bucket string
	key    string
}

func (f *fakeGetter) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket = *params.Bucket
	f.key = *params.Key
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewBufferString(f.body))}, nil
}

func TestLoad_FromS3(t *testing.T) {
	getter := &fakeGetter{body: `{"log_likelihood": [-1, -1, -1, -1]}`}

	src, err := ParseLocation("s3://my-bucket/baselines/baseline_log_likelihoods.json", getter)
	require.NoError(t, err)

	d, err := Load(context.Background(), src, LoadOptions{Format: FormatAuto}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "my-bucket", getter.bucket)
	assert.Equal(t, "baselines/baseline_log_likelihoods.json", getter.key)
	assert.Equal(t, 1.0, d.PValue(-10))
}

func TestLoad_S3Error(t *testing.T) {
	getter := &fakeGetter{err: errors.New("access denied")}
	src := &S3Source{Client: getter, Bucket: "b", Key: "k"}

	_, err := Load(context.Background(), src, LoadOptions{Format: FormatJSON}, zap.NewNop())
	assert.ErrorContains(t, err, "access denied")
}

func TestParseLocation(t *testing.T) {
	src, err := ParseLocation("data/baseline.json", nil)
	require.NoError(t, err)
	assert.Equal(t, "data/baseline.json", src.Name())

	src, err = ParseLocation("file:///tmp/baseline.json", nil)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/baseline.json", src.Name())

	_, err = ParseLocation("s3://bucket-only", &fakeGetter{})
	assert.Error(t, err)

	_, err = ParseLocation("s3://bucket/key", nil)
	assert.Error(t, err)

	_, err = ParseLocation("gs://bucket/key", nil)
	assert.Error(t, err)

	_, err = ParseLocation("", nil)
	assert.Error(t, err)
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatParquet, detectFormat("s3://b/baseline_log_likelihoods.parquet"))
	assert.Equal(t, FormatText, detectFormat("baseline.txt"))
	assert.Equal(t, FormatJSON, detectFormat("baseline.json"))
	assert.Equal(t, FormatJSON, detectFormat("baseline"))
}
