// Package minio provides a blobstore.Store backed by MinIO or any
// S3-compatible object storage.
//
// Use it to read experimental datasets from, and write result records to,
// a shared object store:
//
//	client, _ := minio.New("play.min.io", &minio.Options{
//	    Creds: credentials.NewStaticV4(accessKey, secretKey, ""),
//	})
//	store := miniostore.NewStore(client, "experiments", "rsm/")
//	summary, _ := analyzer.RunBatch(ctx, store)
package minio
