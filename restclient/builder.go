package restclient

import (
	"context"
	"fmt"
	"strings"
)

// Doer sends a prepared request. *Client implements it.
type Doer interface {
	Do(ctx context.Context, req *Request) (*Result, error)
}

// RequestBuilder accumulates a resource path one segment at a time. Seg
// and Index extend the path and return the same builder; a verb method
// ends the chain and sends the request.
//
//	client.Path("repos", owner, repo).Seg("issues").Index(42).Get(ctx)
//	// GET /repos/<owner>/<repo>/issues/42
//
// Segments are rendered with their natural string form and are not
// URL-escaped.
type RequestBuilder struct {
	doer Doer
	path strings.Builder
}

// NewRequestBuilder returns an empty builder sending through d.
func NewRequestBuilder(d Doer) *RequestBuilder {
	return &RequestBuilder{doer: d}
}

// Seg appends "/" + key for each key.
func (b *RequestBuilder) Seg(keys ...any) *RequestBuilder {
	for _, k := range keys {
		b.path.WriteByte('/')
		b.path.WriteString(fmt.Sprint(k))
	}
	return b
}

// Index appends a numeric segment.
func (b *RequestBuilder) Index(i int) *RequestBuilder {
	return b.Seg(i)
}

// String returns the accumulated path.
func (b *RequestBuilder) String() string {
	return b.path.String()
}

// Call sends the accumulated path with method.
func (b *RequestBuilder) Call(ctx context.Context, method Method, opts ...CallOption) (*Result, error) {
	return b.doer.Do(ctx, NewRequest(method, b.path.String(), opts...))
}

// Head sends a HEAD request for the accumulated path.
func (b *RequestBuilder) Head(ctx context.Context, opts ...CallOption) (*Result, error) {
	return b.Call(ctx, MethodHead, opts...)
}

// Get sends a GET request for the accumulated path.
func (b *RequestBuilder) Get(ctx context.Context, opts ...CallOption) (*Result, error) {
	return b.Call(ctx, MethodGet, opts...)
}

// Post sends a POST request for the accumulated path.
func (b *RequestBuilder) Post(ctx context.Context, opts ...CallOption) (*Result, error) {
	return b.Call(ctx, MethodPost, opts...)
}

// Put sends a PUT request for the accumulated path.
func (b *RequestBuilder) Put(ctx context.Context, opts ...CallOption) (*Result, error) {
	return b.Call(ctx, MethodPut, opts...)
}

// Delete sends a DELETE request for the accumulated path.
func (b *RequestBuilder) Delete(ctx context.Context, opts ...CallOption) (*Result, error) {
	return b.Call(ctx, MethodDelete, opts...)
}

// Patch sends a PATCH request for the accumulated path.
func (b *RequestBuilder) Patch(ctx context.Context, opts ...CallOption) (*Result, error) {
	return b.Call(ctx, MethodPatch, opts...)
}
