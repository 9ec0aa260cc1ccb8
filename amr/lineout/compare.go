package lineout

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Stats summarizes the discrepancy between two sets of lineouts: RMSE in
// field units and mean absolute relative error in percent, each with its
// standard deviation across file pairs.
type Stats struct {
	Pairs      int
	RMSEMean   float64
	RMSEStd    float64
	RelErrMean float64 // percent
	RelErrStd  float64 // percent
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"Average RMSE: %.3f\nStandard Deviation of RMSE: %.3f\nAverage Relative Error: %.3f%%\nStandard Deviation of Relative Error: %.3f%%",
		s.RMSEMean, s.RMSEStd, s.RelErrMean, s.RelErrStd)
}

// Compare pairs the .curve files of a reference directory with those of a
// comparison directory (by sorted file name) and computes discrepancy
// statistics. The directories must contain the same number of lineouts
// with the same sample counts.
func Compare(refDir, cmpDir string) (Stats, error) {
	refFiles, err := listCurves(refDir)
	if err != nil {
		return Stats{}, err
	}
	cmpFiles, err := listCurves(cmpDir)
	if err != nil {
		return Stats{}, err
	}
	if len(refFiles) == 0 {
		return Stats{}, fmt.Errorf("no .curve files in %s", refDir)
	}
	if len(refFiles) != len(cmpFiles) {
		return Stats{}, fmt.Errorf("directories hold different lineout counts: %d vs %d",
			len(refFiles), len(cmpFiles))
	}

	rmse := make([]float64, len(refFiles))
	relErr := make([]float64, len(refFiles))
	for i := range refFiles {
		ref, err := ParseCurve(refFiles[i])
		if err != nil {
			return Stats{}, err
		}
		cmp, err := ParseCurve(cmpFiles[i])
		if err != nil {
			return Stats{}, err
		}
		rmse[i], relErr[i], err = discrepancy(ref, cmp)
		if err != nil {
			return Stats{}, fmt.Errorf("%s vs %s: %w", refFiles[i], cmpFiles[i], err)
		}
	}

	s := Stats{
		Pairs:      len(refFiles),
		RMSEMean:   stat.Mean(rmse, nil),
		RelErrMean: stat.Mean(relErr, nil),
	}
	if len(rmse) > 1 {
		s.RMSEStd = stat.StdDev(rmse, nil)
		s.RelErrStd = stat.StdDev(relErr, nil)
	}
	return s, nil
}

func listCurves(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.curve"))
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(dir); statErr != nil {
		return nil, fmt.Errorf("lineout directory: %w", statErr)
	}
	sort.Strings(files)
	return files, nil
}

// discrepancy computes the RMSE and the mean absolute relative error (in
// percent, over points with a nonzero reference value) of one curve pair.
func discrepancy(ref, cmp Curve) (rmse, relErr float64, err error) {
	if len(ref.Points) != len(cmp.Points) {
		return 0, 0, fmt.Errorf("sample counts differ: %d vs %d", len(ref.Points), len(cmp.Points))
	}
	sq := 0.0
	relSum, relN := 0.0, 0
	for i := range ref.Points {
		d := ref.Points[i].Value - cmp.Points[i].Value
		sq += d * d
		if r := ref.Points[i].Value; r != 0 {
			relSum += math.Abs(d/r) * 100
			relN++
		}
	}
	rmse = math.Sqrt(sq / float64(len(ref.Points)))
	if relN > 0 {
		relErr = relSum / float64(relN)
	}
	return rmse, relErr, nil
}
