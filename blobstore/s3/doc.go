// Package s3 provides an Amazon S3 backed blob store for datasets and
// analysis results.
package s3
