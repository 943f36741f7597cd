package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gofestat/adapters/excel"
	"gofestat/internal/config"
	"gofestat/internal/errors"
	"gofestat/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunScan_WritesWorkbookAndReport(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	err := runScan(context.Background(), config.Default(), scanOptions{
		array:  testkit.DefaultArrayConfig(),
		freqs:  []float64{testkit.DefaultSource.F0},
		nTheta: 3,
		nPhi:   4,
		outDir: dir,
	}, &out)
	require.NoError(t, err)

	xlsx, err := filepath.Glob(filepath.Join(dir, "*.xlsx"))
	require.NoError(t, err)
	require.Len(t, xlsx, 1)

	md, err := os.ReadFile(strings.TrimSuffix(xlsx[0], ".xlsx") + ".md")
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Fe-statistic run")

	assert.Contains(t, out.String(), "12 points, 0 non-finite")
	assert.Contains(t, out.String(), "Loudest run:")
}

func TestRunScan_FromPulsarFile(t *testing.T) {
	dir := t.TempDir()
	cfg := testkit.DefaultArrayConfig()
	psrs, _ := testkit.Synthetic(cfg, testkit.DefaultSource)
	path := filepath.Join(dir, "pulsars.xlsx")
	require.NoError(t, excel.NewWriter(excel.DefaultExcelConfig()).WritePulsars(path, psrs))

	var out bytes.Buffer
	err := runScan(context.Background(), config.Default(), scanOptions{
		array:  cfg,
		file:   path,
		freqs:  []float64{1e-8, 2e-8},
		nTheta: 2,
		nPhi:   2,
		outDir: filepath.Join(dir, "out"),
	}, &out)
	require.NoError(t, err)

	xlsx, err := filepath.Glob(filepath.Join(dir, "out", "*.xlsx"))
	require.NoError(t, err)
	assert.Len(t, xlsx, 2)
}

func TestRunScan_MissingFile(t *testing.T) {
	err := runScan(context.Background(), config.Default(), scanOptions{
		array:  testkit.DefaultArrayConfig(),
		file:   filepath.Join(t.TempDir(), "missing.csv"),
		freqs:  []float64{2e-8},
		nTheta: 1,
		nPhi:   1,
		outDir: t.TempDir(),
	}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunScan_GridTooLarge(t *testing.T) {
	appCfg := config.Default()
	appCfg.Engine.MaxGridPoints = 10
	err := runScan(context.Background(), appCfg, scanOptions{
		array:  testkit.DefaultArrayConfig(),
		freqs:  []float64{2e-8},
		nTheta: 4,
		nPhi:   4,
		outDir: t.TempDir(),
	}, &bytes.Buffer{})
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestExportCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulsars.xlsx")
	cmd := newExportCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{path, "--ntoa", "10"})
	require.NoError(t, cmd.Execute())

	psrs, err := excel.ReadPulsars(path)
	require.NoError(t, err)
	require.Len(t, psrs, len(testkit.EightPulsarSky))
	assert.Len(t, psrs[0].TOAs, 10)
	assert.Contains(t, out.String(), "Wrote 8 pulsars")
}
