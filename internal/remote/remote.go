// Package remote classifies errors returned by the object storage and CDN
// APIs into a small set of kinds shared by every remote client.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/minio/minio-go/v7"
)

type Kind int

const (
	Found Kind = iota
	NotFound
	ServiceError
	ConnectivityError
)

func (k Kind) String() string {
	switch k {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	case ServiceError:
		return "service_error"
	case ConnectivityError:
		return "connectivity_error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Service names a remote API and the resource it is addressed through.
type Service struct {
	Name     string
	Resource string
}

var (
	S3         = Service{Name: "AWS S3", Resource: "bucket"}
	CloudFront = Service{Name: "AWS CLOUDFRONT", Resource: "distribution"}
)

// Error is a fatal remote failure. Its message is fixed per service and kind;
// the underlying error stays reachable through Unwrap.
type Error struct {
	Service Service
	Kind    Kind
	Op      string
	Err     error
}

func (e *Error) Error() string {
	if e.Kind == ConnectivityError {
		return fmt.Sprintf("could not connect to the %s specified", e.Service.Resource)
	}
	return fmt.Sprintf("faced problems when connecting to %s", e.Service.Name)
}

func (e *Error) Unwrap() error { return e.Err }

type statusCoder interface {
	HTTPStatusCode() int
}

type connectionError interface {
	ConnectionError() bool
}

// StatusCode extracts the HTTP status carried by err, or 0 when there is none.
func StatusCode(err error) int {
	var mresp minio.ErrorResponse
	if errors.As(err, &mresp) && mresp.StatusCode != 0 {
		return mresp.StatusCode
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatusCode()
	}
	return 0
}

// Classify maps err onto a Kind. A nil error is Found.
func Classify(err error) Kind {
	if err == nil {
		return Found
	}
	var mresp minio.ErrorResponse
	if errors.As(err, &mresp) {
		switch {
		case mresp.StatusCode == http.StatusNotFound,
			mresp.Code == "NoSuchKey",
			mresp.Code == "NoSuchBucket":
			return NotFound
		case mresp.StatusCode != 0:
			return ServiceError
		}
	}
	if code := StatusCode(err); code != 0 {
		if code == http.StatusNotFound {
			return NotFound
		}
		return ServiceError
	}
	var ce connectionError
	if errors.As(err, &ce) && ce.ConnectionError() {
		return ConnectivityError
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return ConnectivityError
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return ConnectivityError
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ConnectivityError
	}
	return ServiceError
}

// Check turns an existence lookup into a boolean. NotFound is not an
// error; cancellation is returned as is; every other failure is wrapped into
// *Error.
func Check(svc Service, op string, err error) (bool, error) {
	if errors.Is(err, context.Canceled) {
		return false, err
	}
	switch kind := Classify(err); kind {
	case Found:
		return true, nil
	case NotFound:
		return false, nil
	default:
		return false, &Error{Service: svc, Kind: kind, Op: op, Err: err}
	}
}

// Wrap classifies a failed mutation. A NotFound answer to a mutation is a
// service error. Cancellation is returned as is.
func Wrap(svc Service, op string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	kind := Classify(err)
	if kind == NotFound || kind == Found {
		kind = ServiceError
	}
	return &Error{Service: svc, Kind: kind, Op: op, Err: err}
}

// IsKind reports whether err is a remote *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var rerr *Error
	return errors.As(err, &rerr) && rerr.Kind == kind
}
