// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package aws

import (
	"testing"

	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Options_NoEndpoint(t *testing.T) {
	assert.Empty(t, S3Options(WithRegion("us-east-1"), WithProfile("dev")))
}

func TestS3Options_Endpoint(t *testing.T) {
	fns := S3Options(WithEndpoint("http://localhost:9000"))
	require.Len(t, fns, 1)

	var o s3v2.Options
	fns[0](&o)
	require.NotNil(t, o.BaseEndpoint)
	assert.Equal(t, "http://localhost:9000", *o.BaseEndpoint)
	assert.True(t, o.UsePathStyle)
}

func TestApply(t *testing.T) {
	o := apply([]Option{WithProfile("p"), WithRegion("r"), WithEndpoint("e")})
	assert.Equal(t, options{profile: "p", region: "r", endpoint: "e"}, o)
}
