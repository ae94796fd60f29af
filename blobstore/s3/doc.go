// Package s3 provides an S3 implementation of the blobstore.Store interface.
//
// Writes go through the transfer manager, so large exports are uploaded in parallel parts.
// Credentials and region come from the aws.Config the client was built with, usually
// config.LoadDefaultConfig.
package s3
