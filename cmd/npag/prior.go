package cmd

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// loadPriorTheta reads a headerless CSV of support-point rows (one row
// per point, nParams columns) into a Theta matrix. Unlike the dosing
// dataset, this format is just a plain numeric matrix, so parsing it is
// part of the CLI shell rather than the out-of-scope dataset parser.
func loadPriorTheta(path string, nParams int) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cmd: opening prior %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = nParams

	var rows [][]float64
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cmd: reading prior %s: %w", path, err)
		}
		row := make([]float64, len(record))
		for i, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("cmd: parsing prior %s: %w", path, err)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}

	theta := mat.NewDense(len(rows), nParams, nil)
	for i, row := range rows {
		theta.SetRow(i, row)
	}
	return theta, nil
}
