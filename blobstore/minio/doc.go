// Package minio provides a blobstore.Store backed by MinIO or any S3-compatible service.
//
// # Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    return err
//	}
//	store := miniostore.NewStore(client, "studies", "covmatch/")
//
// The bucket must exist before the first write.
package minio
