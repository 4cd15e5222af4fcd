package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCalc_Secondary(t *testing.T) {
	out, err := run(t, "calc", "--savings", "50000", "--children", "1", "--spouse-all")
	require.NoError(t, err)

	for _, want := range []string{
		"総資産額: 50,000 万円",
		"推定相続税: 40,500 万円",
		"推定相続税（二次相続時）: 10,530 万円",
		"総相続税（一次＋二次）: 51,030 万円",
		"一次相続税 |" + strings.Repeat("#", 50) + " 40,500",
		"二次相続税 |" + strings.Repeat("#", 13) + " 10,530",
	} {
		assert.Contains(t, out, want)
	}
}

func TestCalc_PrimaryOnly(t *testing.T) {
	out, err := run(t, "calc", "--land", "3000", "--insurance", "500", "--savings", "1000", "--stocks", "500", "--children", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "推定相続税: 110 万円")
	assert.Contains(t, out, "配偶者がすべて相続しない場合、二次相続は発生しません。")
	assert.NotContains(t, out, "二次相続の結果")
}

func TestCalc_JSON(t *testing.T) {
	out, err := run(t, "calc", "--land", "100,000", "--children", "1", "--spouse-all", "--json")
	require.NoError(t, err)

	var got struct {
		PrimaryTax   float64 `json:"primary_tax"`
		HasSecondary bool    `json:"has_secondary"`
		TotalTax     float64 `json:"total_tax"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 83190.0, got.PrimaryTax)
	assert.True(t, got.HasSecondary)
}

func TestCalc_Errors(t *testing.T) {
	_, err := run(t, "calc", "--children", "-1")
	assert.ErrorContains(t, err, "children")

	_, err = run(t, "calc", "--land", "abc")
	assert.ErrorContains(t, err, "land")

	_, err = run(t, "calc", "--log-level", "loud")
	assert.ErrorContains(t, err, "invalid log level")

	t.Setenv("AMQP_URL", "")
	_, err = run(t, "calc", "--remote", "--savings", "1")
	assert.ErrorContains(t, err, "AMQP_URL is required")
}

func TestBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
scenarios:
  - name: 基本
    assets: {land: 3000, insurance: 500, savings: 1000, stocks: 500}
    children: 0
  - name: 配偶者
    assets: {savings: 50000}
    children: 1
    spouse_inherits_all: true
`), 0o600))

	out, err := run(t, "batch", path)
	require.NoError(t, err)
	assert.Contains(t, out, "== 基本 ==")
	assert.Contains(t, out, "== 配偶者 ==")
	assert.Contains(t, out, "51,030")

	out, err = run(t, "batch", "--json", path)
	require.NoError(t, err)
	dec := json.NewDecoder(strings.NewReader(out))
	var names []string
	for dec.More() {
		var r struct {
			Name string `json:"name"`
		}
		require.NoError(t, dec.Decode(&r))
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"基本", "配偶者"}, names)

	_, err = run(t, "batch", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = run(t, "batch")
	assert.Error(t, err)
}

func TestServe_InvalidConfig(t *testing.T) {
	t.Setenv("PORT", "70000")
	_, err := run(t, "serve")
	assert.ErrorContains(t, err, "invalid port")
}
