// report turns a collection file produced by collect (.bin or .csv) into an
// .xlsx sheet with the per-sample ones count, cumulative mean and z-score,
// plus a line chart of the z-score over time.
//
// The sample size in bits and the interval are recovered from the file name
// (see the naming package).
package main

import (
	"bufio"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/bits"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Zscore"

type sample struct {
	label   string
	ones    int
	cumMean float64
	zScore  float64
}

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatal("usage: report <file.bin|file.csv>")
	}
	inPath := flag.Arg(0)

	bitCount, err := fromName(inPath, `_s(\d+)_i`)
	if err != nil {
		log.Fatal(err)
	}
	intervalSec, err := fromName(inPath, `_i(\d+)`)
	if err != nil {
		log.Fatal(err)
	}

	var samples []sample
	switch ext := strings.ToLower(filepath.Ext(inPath)); ext {
	case ".bin":
		samples, err = readBin(inPath, bitCount)
	case ".csv":
		samples, err = readCSV(inPath)
	default:
		err = fmt.Errorf("unsupported extension %q (want .bin or .csv)", ext)
	}
	if err != nil {
		log.Fatal(err)
	}
	if len(samples) == 0 {
		log.Fatal("no samples in input")
	}

	zTest(samples, bitCount)

	outPath := strings.TrimSuffix(inPath, filepath.Ext(inPath)) + ".xlsx"
	if err := writeSheet(outPath, samples, inPath, bitCount, intervalSec); err != nil {
		log.Fatalf("writing %s: %v", outPath, err)
	}
	fmt.Printf("wrote %s (%d samples)\n", outPath, len(samples))
}

// fromName extracts a decimal field from the file name using re, which must
// have one capture group.
func fromName(path, re string) (int, error) {
	m := regexp.MustCompile(re).FindStringSubmatch(filepath.Base(path))
	if len(m) < 2 {
		return 0, fmt.Errorf("field %s not found in file name %s", re, filepath.Base(path))
	}
	return strconv.Atoi(m[1])
}

// readBin slices the raw byte stream into bitCount-sized samples and counts
// the ones in each. A partial trailing sample is kept.
func readBin(path string, bitCount int) ([]sample, error) {
	if bitCount%8 != 0 {
		return nil, errors.New("sample size must be a multiple of 8 bits for .bin input")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	buf := make([]byte, bitCount/8)
	var samples []sample
	for n := 1; ; n++ {
		got, err := io.ReadFull(r, buf)
		if got == 0 {
			break
		}
		ones := 0
		for _, b := range buf[:got] {
			ones += bits.OnesCount8(b)
		}
		samples = append(samples, sample{label: strconv.Itoa(n), ones: ones})
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, err
		}
	}
	return samples, nil
}

// readCSV reads timestamp,ones rows as written by collect.
func readCSV(path string) ([]sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	samples := make([]sample, 0, len(records))
	for _, rec := range records {
		if len(rec) < 2 {
			continue
		}
		ones, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid ones value %q: %w", rec[1], err)
		}
		samples = append(samples, sample{label: strings.TrimSpace(rec[0]), ones: ones})
	}
	return samples, nil
}

// zTest fills in the cumulative mean and z-score per sample against the
// expected mean bitCount/2 and standard deviation sqrt(bitCount)/2.
func zTest(samples []sample, bitCount int) {
	expMean := 0.5 * float64(bitCount)
	expStdDev := math.Sqrt(float64(bitCount) * 0.25)
	sum := 0
	for i := range samples {
		sum += samples[i].ones
		n := float64(i + 1)
		samples[i].cumMean = float64(sum) / n
		samples[i].zScore = (samples[i].cumMean - expMean) / (expStdDev / math.Sqrt(n))
	}
}

func writeSheet(outPath string, samples []sample, inPath string, bitCount, intervalSec int) error {
	f := excelize.NewFile()
	defer f.Close()

	if def := f.GetSheetName(0); def != sheetName {
		f.NewSheet(sheetName)
		f.DeleteSheet(def)
	}

	for col, h := range []string{"sample", "ones", "cumulative_mean", "z_score"} {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellStr(sheetName, cell, h)
	}
	for i, s := range samples {
		row := i + 2
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), s.label)
		_ = f.SetCellInt(sheetName, fmt.Sprintf("B%d", row), s.ones)
		_ = f.SetCellFloat(sheetName, fmt.Sprintf("C%d", row), s.cumMean, 6, 64)
		_ = f.SetCellFloat(sheetName, fmt.Sprintf("D%d", row), s.zScore, 6, 64)
	}

	endRow := len(samples) + 1
	chart := &excelize.Chart{
		Type: excelize.Line,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("%s!$D$1", sheetName),
			Categories: fmt.Sprintf("%s!$A$2:$A$%d", sheetName, endRow),
			Values:     fmt.Sprintf("%s!$D$2:$D$%d", sheetName, endRow),
		}},
		Title:  []excelize.RichTextRun{{Text: filepath.Base(inPath)}},
		Legend: excelize.ChartLegend{Position: "none"},
		XAxis:  excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: fmt.Sprintf("Samples, one every %d second(s)", intervalSec)}}},
		YAxis:  excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: fmt.Sprintf("Z-score, sample size %d bits", bitCount)}}, MajorGridLines: true},
	}
	if err := f.AddChart(sheetName, "F2", chart); err != nil {
		return err
	}
	return f.SaveAs(outPath)
}
