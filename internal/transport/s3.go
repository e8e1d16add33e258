// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3GetObjectAPI is the slice of the S3 client the fetcher needs.
type S3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3v2.GetObjectInput, optFns ...func(*s3v2.Options)) (*s3v2.GetObjectOutput, error)
}

// S3Fetcher reads s3://bucket/key URLs.
type S3Fetcher struct {
	client   S3GetObjectAPI
	maxBytes int64
}

// NewS3Fetcher wraps client.
func NewS3Fetcher(client S3GetObjectAPI) *S3Fetcher {
	return &S3Fetcher{client: client, maxBytes: DefaultMaxBytes}
}

// Fetch downloads the object. A missing key or bucket is reported as a 404
// status so it classifies like its HTTP counterpart.
func (f *S3Fetcher) Fetch(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, error) {
	u, err := parseURL(rawURL, "s3")
	if err != nil {
		return nil, err
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return nil, &Error{Kind: KindInvalidURL, URL: rawURL, Err: errors.New("missing object key")}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := f.client.GetObject(ctx, &s3v2.GetObjectInput{
		Bucket: awsv2.String(u.Host),
		Key:    awsv2.String(key),
	})
	if err != nil {
		return nil, classifyS3(rawURL, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(io.LimitReader(out.Body, f.maxBytes+1))
	if err != nil {
		return nil, classify(rawURL, fmt.Errorf("failed to read object: %w", err))
	}
	if int64(len(body)) > f.maxBytes {
		return nil, &Error{Kind: KindInvalidResponse, URL: rawURL, Err: fmt.Errorf("object exceeds %d bytes", f.maxBytes)}
	}
	if len(body) == 0 {
		return nil, &Error{Kind: KindNoData, StatusCode: http.StatusOK, URL: rawURL}
	}

	log.Debugf("GET %s: %d bytes", rawURL, len(body))
	return body, nil
}

// statusCoder is satisfied by the SDK's HTTP response errors.
type statusCoder interface {
	HTTPStatusCode() int
}

func classifyS3(rawURL string, err error) *Error {
	var nsk *types.NoSuchKey
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsk) || errors.As(err, &nsb) {
		return &Error{Kind: KindStatus, StatusCode: http.StatusNotFound, URL: rawURL, Err: err}
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return &Error{Kind: KindStatus, StatusCode: http.StatusNotFound, URL: rawURL, Err: err}
		case "AccessDenied", "Forbidden":
			return &Error{Kind: KindStatus, StatusCode: http.StatusForbidden, URL: rawURL, Err: err}
		}
	}

	var sc statusCoder
	if errors.As(err, &sc) && sc.HTTPStatusCode() != 0 {
		return &Error{Kind: KindStatus, StatusCode: sc.HTTPStatusCode(), URL: rawURL, Err: err}
	}

	return classify(rawURL, err)
}
