package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// fakeS3 是一个内存版的 S3，只实现 Adapter 用到的语义：
// 条件写入 (If-None-Match / If-Match)、Range 读取、Head
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeObject
	seq     int
	puts    int
}

type fakeObject struct {
	data []byte
	etag string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string]fakeObject)}
}

func (f *fakeS3) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for k := range f.objects {
		out = append(out, k)
	}
	return out
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	cur, exists := f.objects[key]

	if in.IfNoneMatch != nil && exists {
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"}
	}
	if in.IfMatch != nil {
		if !exists {
			return nil, &s3types.NoSuchKey{}
		}
		if cur.etag != aws.ToString(in.IfMatch) {
			return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "etag mismatch"}
		}
	}

	f.seq++
	f.puts++
	etag := fmt.Sprintf("\"etag-%d\"", f.seq)
	f.objects[key] = fakeObject{data: data, etag: etag}
	return &s3.PutObjectOutput{ETag: aws.String(etag)}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	obj, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	f.mu.Unlock()
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}

	total := int64(len(obj.data))
	if in.Range == nil {
		return &s3.GetObjectOutput{
			Body:          io.NopCloser(bytes.NewReader(obj.data)),
			ContentLength: aws.Int64(total),
			ETag:          aws.String(obj.etag),
		}, nil
	}

	start, end, err := parseRange(aws.ToString(in.Range))
	if err != nil {
		return nil, err
	}
	if end >= total {
		end = total - 1
	}
	part := obj.data[start : end+1]
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(part)),
		ContentLength: aws.Int64(int64(len(part))),
		ContentRange:  aws.String(fmt.Sprintf("bytes %d-%d/%d", start, end, total)),
		ETag:          aws.String(obj.etag),
	}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	obj, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	f.mu.Unlock()
	if !ok {
		return nil, &s3types.NotFound{}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(obj.data))), ETag: aws.String(obj.etag)}, nil
}

var errNoMultipart = errors.New("fake s3: multipart upload not supported")

func (f *fakeS3) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errNoMultipart
}

func (f *fakeS3) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errNoMultipart
}

func (f *fakeS3) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errNoMultipart
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return nil, errNoMultipart
}

// parseRange 解析 "bytes=a-b"
func parseRange(r string) (int64, int64, error) {
	spec, ok := strings.CutPrefix(r, "bytes=")
	if !ok {
		return 0, 0, fmt.Errorf("bad range %q", r)
	}
	lo, hi, ok := strings.Cut(spec, "-")
	if !ok {
		return 0, 0, fmt.Errorf("bad range %q", r)
	}
	start, err := strconv.ParseInt(lo, 10, 64)
	if err != nil {
		return 0, 0, err
	}
	end, err := strconv.ParseInt(hi, 10, 64)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}
