package xcorr_test

import (
	"fmt"

	"github.com/cwbudde/algo-matchfilter/dsp/xcorr"
)

func ExampleNormalizedTime() {
	data := []float64{0, 0, 1, 3, 1, 0, 0, 0}
	template := []float64{1, 3, 1}

	cc, err := xcorr.NormalizedTime(template, data)
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Printf("%.2f\n", cc[2])
	// Output: 1.00
}
