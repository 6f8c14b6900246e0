// Package rsmgo provides response surface methodology for Go.
//
// Rsmgo takes a set of experimental observations — numeric factor settings
// and a measured response — and finds the polynomial model and factor
// settings that best explain and maximize the response. It combines
// exhaustive best-subset selection over the full quadratic term pool with
// leave-one-out cross-validation and grid-based surface optimization.
//
// # Quick Start
//
//	ctx := context.Background()
//
//	d, _ := dataset.ParseCSV("yield", csvFile)
//
//	a := rsmgo.New(rsmgo.WithCriterion(selection.NewAdjustedR2()))
//
//	study, err := a.Run(ctx, d)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(study.Selection.Terms.Labels())   // e.g. [A B A^2 A B]
//	fmt.Println(study.CrossValidation.Q2)         // predictive quality
//	fmt.Println(study.Optimization.Predicted)     // maximum predicted response
//
// The individual stages are available separately via SelectModel,
// CrossValidate and Optimize when only part of the pipeline is needed, and
// RefitSelected re-fits a previously selected model structure on new data.
//
// # Model Selection
//
// Every non-empty subset of the quadratic term pool (linear, square and
// pairwise interaction terms) is fitted with ordinary least squares and
// scored. Two criteria ship with the library:
//
//   - selection.AdjustedR2 maximizes the adjusted coefficient of
//     determination (the default).
//   - selection.MallowsCp minimizes the distance of Mallows' Cp from the
//     subset's parameter count.
//
// Subsets that cannot be fitted — too few observations or a rank-deficient
// design — are skipped, not errors. Only when no subset at all is feasible
// does selection fail.
//
// # Batch Runs
//
// RunBatch analyzes every dataset under a blobstore prefix and writes the
// combined result records back to the store:
//
//	store := blobstore.NewLocalStore("./experiments")
//	summary, err := a.RunBatch(ctx, store, rsmgo.BatchInput{
//	    InputPrefix:  "datasets/",
//	    OutputPrefix: "results/",
//	})
//
// Datasets travel as CSV, optionally gzip- or lz4-compressed; local disk,
// in-memory, MinIO and S3 stores are provided under blobstore.
package rsmgo
