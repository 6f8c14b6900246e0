package rsmgo_test

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/hupe1980/rsmgo"
	"github.com/hupe1980/rsmgo/dataset"
	"github.com/hupe1980/rsmgo/selection"
)

func Example() {
	ctx := context.Background()

	csvData := `temp,ph,yield
30,5,12.1
40,5,19.8
50,5,21.3
30,6,15.2
40,6,24.9
50,6,26.0
30,7,14.0
40,7,22.7
50,7,24.1
35,6,21.5
45,6,26.2
45,7,24.8
`

	d, err := dataset.ParseCSV("fermentation", strings.NewReader(csvData))
	if err != nil {
		log.Fatal(err)
	}

	a := rsmgo.New(
		rsmgo.WithCriterion(selection.NewAdjustedR2()),
		rsmgo.WithGridSteps(200),
	)

	study, err := a.Run(ctx, d)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("terms:", study.Selection.Terms.Labels())
	fmt.Printf("q2: %.3f\n", study.CrossValidation.Q2)

	temp, _ := study.Optimization.Value("temp")
	ph, _ := study.Optimization.Value("ph")
	fmt.Printf("optimum: temp=%.1f ph=%.1f yield=%.1f\n", temp, ph, study.Optimization.Predicted)
}

func ExampleAnalyzer_RefitSelected() {
	sel := &dataset.SelectedTerms{
		Dataset: "fermentation",
		Labels:  []string{"temp", "ph", "temp^2", "temp ph"},
	}

	d, err := dataset.ParseCSV("fermentation-2", strings.NewReader(`temp,ph,yield
30,5,11.9
40,5,20.1
50,5,21.0
30,6,15.5
40,6,24.6
50,6,26.3
30,7,13.8
40,7,23.0
`))
	if err != nil {
		log.Fatal(err)
	}

	a := rsmgo.New()

	m, err := a.RefitSelected(d, sel)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("adjusted r2: %.3f\n", m.AdjR2)
}
